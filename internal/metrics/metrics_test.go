package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheHitsTotal)
	misses := testutil.ToFloat64(CacheMissesTotal)

	ObserveCache(true)
	ObserveCache(true)
	ObserveCache(false)

	assert.Equal(t, hits+2, testutil.ToFloat64(CacheHitsTotal))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMissesTotal))
}

func TestObserveSearchCountsEmpty(t *testing.T) {
	empty := testutil.ToFloat64(EmptyResultsTotal)
	ObserveSearch(time.Millisecond, 3)
	ObserveSearch(time.Millisecond, 0)
	assert.Equal(t, empty+1, testutil.ToFloat64(EmptyResultsTotal))
}

func TestHandlerExposesCounters(t *testing.T) {
	RequestsTotal.WithLabelValues("search").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `placeserve_requests_total{action="search"}`)
}
