// Package metrics exposes prometheus counters for the IPC server and the
// search cache. Nothing is served unless Serve is called.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeserve_requests_total",
		Help: "Total IPC requests by action",
	}, []string{"action"})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placeserve_search_duration_ms",
		Help:    "Search duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeserve_empty_results_total",
		Help: "Total searches that returned no districts",
	})
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeserve_errors_total",
		Help: "Total error responses by code",
	}, []string{"code"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeserve_cache_hits_total",
		Help: "Total search cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeserve_cache_misses_total",
		Help: "Total search cache misses",
	})
	DistrictsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placeserve_districts_loaded",
		Help: "Number of districts in the loaded gazetteer",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(DistrictsLoaded)
}

// ObserveCache matches search.WithCacheObserver.
func ObserveCache(hit bool) {
	if hit {
		CacheHitsTotal.Inc()
		return
	}
	CacheMissesTotal.Inc()
}

// ObserveSearch records one search call.
func ObserveSearch(elapsed time.Duration, results int) {
	SearchDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
	if results == 0 {
		EmptyResultsTotal.Inc()
	}
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Debugf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
