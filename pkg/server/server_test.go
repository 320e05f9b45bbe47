package server

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bastiangx/placeserve/pkg/config"
	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func testSearcher(t *testing.T) *search.Searcher {
	t.Helper()
	g, err := gazetteer.New([]gazetteer.District{
		{ID: "11", Name: "서울특별시", FullName: "서울특별시", Level: gazetteer.LevelSido, Sido: "서울특별시"},
		{ID: "11680", Name: "강남구", FullName: "서울특별시 강남구", Level: gazetteer.LevelSigungu, Sido: "서울특별시", Sigungu: "강남구"},
		{ID: "1168010100", Name: "역삼동", FullName: "서울특별시 강남구 역삼동", Level: gazetteer.LevelEupmyeondong, Sido: "서울특별시", Sigungu: "강남구", Eupmyeondong: "역삼동"},
		{ID: "1168010300", Name: "개포동", FullName: "서울특별시 강남구 개포동", Level: gazetteer.LevelEupmyeondong, Sido: "서울특별시", Sigungu: "강남구", Eupmyeondong: "개포동"},
		{ID: "11500", Name: "강서구", FullName: "서울특별시 강서구", Level: gazetteer.LevelSigungu, Sido: "서울특별시", Sigungu: "강서구"},
		{ID: "26", Name: "부산광역시", FullName: "부산광역시", Level: gazetteer.LevelSido, Sido: "부산광역시"},
	})
	require.NoError(t, err)
	return search.NewSearcher(g, search.WithCache(8, time.Minute))
}

// exchange runs a server over the given requests and returns every
// response after the ready message.
func exchange(t *testing.T, cfg *config.Config, requests ...any) []msgpack.RawMessage {
	t.Helper()
	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, req := range requests {
		require.NoError(t, enc.Encode(req))
	}

	srv := NewServerWithIO(testSearcher(t), cfg, "", &in, &out)
	require.NoError(t, srv.Start())

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	require.Equal(t, "ready", ready.Status)

	var responses []msgpack.RawMessage
	for {
		raw, err := dec.DecodeRaw()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		responses = append(responses, raw)
	}
	require.Len(t, responses, len(requests))
	return responses
}

func decode[T any](t *testing.T, raw msgpack.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, msgpack.Unmarshal(raw, &v))
	return v
}

func TestServerSearch(t *testing.T) {
	responses := exchange(t, nil, Request{ID: "req1", Query: "강남"})
	resp := decode[SearchResponse](t, responses[0])

	assert.Equal(t, "req1", resp.ID)
	require.Equal(t, 3, resp.Count)
	require.Len(t, resp.Results, 3)

	first := resp.Results[0]
	assert.Equal(t, "11680", first.ID)
	assert.Equal(t, "sigungu", first.Level)
	assert.Equal(t, search.ScoreNamePrefix, first.Score)
	assert.Equal(t, 1, first.Rank)
	assert.Nil(t, first.Geocode, "only lookup carries geocode candidates")
	assert.Equal(t, []SpanMsg{{"서울특별시 ", false}, {"강남", true}, {"구", false}}, first.Spans)

	// both dongs tie on full name substring
	assert.Equal(t, 2, resp.Results[1].Rank)
	assert.Equal(t, 2, resp.Results[2].Rank)
	assert.GreaterOrEqual(t, resp.TimeTaken, int64(0))
}

func TestServerSearchOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxLimit = 2
	cfg.Server.Highlight = false

	responses := exchange(t, cfg,
		Request{ID: "capped", Query: "서울", Limit: 50},
		Request{ID: "levels", Action: ActionSearch, Query: "서울", Levels: []string{"eupmyeondong"}},
		Request{ID: "bad-level", Query: "서울", Levels: []string{"city"}},
		Request{ID: "blank", Query: "   "},
	)

	capped := decode[SearchResponse](t, responses[0])
	assert.Equal(t, 2, capped.Count)
	assert.Nil(t, capped.Results[0].Spans)

	levels := decode[SearchResponse](t, responses[1])
	require.Equal(t, 2, levels.Count)
	for _, r := range levels.Results {
		assert.Equal(t, "eupmyeondong", r.Level)
	}

	bad := decode[ErrorResponse](t, responses[2])
	assert.Equal(t, "bad-level", bad.ID)
	assert.Equal(t, CodeBadRequest, bad.Code)

	blank := decode[SearchResponse](t, responses[3])
	assert.Equal(t, 0, blank.Count)
}

func TestServerRejectsLongQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxQuery = 4

	responses := exchange(t, cfg, Request{ID: "long", Query: "서울특별시강남"})
	resp := decode[ErrorResponse](t, responses[0])
	assert.Equal(t, CodeBadRequest, resp.Code)
	assert.Contains(t, resp.Error, "4")
}

func TestServerActions(t *testing.T) {
	responses := exchange(t, nil,
		Request{ID: "h", Action: ActionHighlight, Text: "서울특별시 강남구", Query: "남구"},
		Request{ID: "l", Action: ActionLookup, DistrictID: "11680"},
		Request{ID: "l404", Action: ActionLookup, DistrictID: "99"},
		Request{ID: "w", Action: ActionWithin, DistrictID: "11680"},
		Request{ID: "w-lv", Action: ActionWithin, DistrictID: "11", Levels: []string{"sigungu"}},
		Request{ID: "s", Action: ActionStats},
		Request{ID: "ok", Action: ActionHealth},
		Request{ID: "x", Action: "reload"},
	)

	highlight := decode[HighlightResponse](t, responses[0])
	assert.Equal(t, []SpanMsg{{"서울특별시 강", false}, {"남구", true}}, highlight.Spans)

	lookup := decode[DistrictResponse](t, responses[1])
	require.Equal(t, 1, lookup.Count)
	assert.Equal(t, "서울특별시 강남구", lookup.Districts[0].FullName)
	assert.Equal(t, []string{"서울특별시 강남구", "강남구"}, lookup.Districts[0].Geocode)

	missing := decode[ErrorResponse](t, responses[2])
	assert.Equal(t, CodeNotFound, missing.Code)

	within := decode[DistrictResponse](t, responses[3])
	require.Equal(t, 2, within.Count)
	assert.Equal(t, "1168010100", within.Districts[0].ID)
	assert.Equal(t, "1168010300", within.Districts[1].ID)

	withinLevels := decode[DistrictResponse](t, responses[4])
	require.Equal(t, 2, withinLevels.Count)
	assert.Equal(t, "11680", withinLevels.Districts[0].ID)
	assert.Equal(t, "11500", withinLevels.Districts[1].ID)

	stats := decode[StatsResponse](t, responses[5])
	assert.Equal(t, 6, stats.Stats["totalDistricts"])
	assert.Equal(t, int64(6), stats.Requests)

	health := decode[StatusResponse](t, responses[6])
	assert.Equal(t, "ok", health.Status)

	unknown := decode[ErrorResponse](t, responses[7])
	assert.Equal(t, CodeBadRequest, unknown.Code)
}

func TestServerConfigAction(t *testing.T) {
	cfg := config.DefaultConfig()
	one := 1
	off := false
	zero := 0

	responses := exchange(t, cfg,
		Request{ID: "cfg", Action: ActionConfig, MaxLimit: &one, Highlight: &off},
		Request{ID: "after", Query: "서울"},
		Request{ID: "bad", Action: ActionConfig, DefaultLimit: &zero},
	)

	assert.Equal(t, "ok", decode[StatusResponse](t, responses[0]).Status)
	after := decode[SearchResponse](t, responses[1])
	require.Equal(t, 1, after.Count)
	assert.Nil(t, after.Results[0].Spans)
	assert.Equal(t, CodeBadRequest, decode[ErrorResponse](t, responses[2]).Code)

	assert.Equal(t, 1, cfg.Server.MaxLimit)
	assert.False(t, cfg.Server.Highlight)
}

func TestServerConfigPurgesCacheOnLimitChange(t *testing.T) {
	cfg := config.DefaultConfig()
	off := false
	twenty := 20

	responses := exchange(t, cfg,
		Request{ID: "warm", Query: "서울"},
		Request{ID: "hl", Action: ActionConfig, Highlight: &off},
		Request{ID: "kept", Action: ActionStats},
		Request{ID: "dl", Action: ActionConfig, DefaultLimit: &twenty},
		Request{ID: "purged", Action: ActionStats},
	)

	assert.Equal(t, 1, decode[StatsResponse](t, responses[2]).Stats["cacheEntries"])
	assert.Equal(t, "ok", decode[StatusResponse](t, responses[3]).Status)
	assert.Equal(t, 0, decode[StatsResponse](t, responses[4]).Stats["cacheEntries"])
}

func TestServerLookupGeocodeCandidates(t *testing.T) {
	responses := exchange(t, nil, Request{ID: "sido", Action: ActionLookup, DistrictID: "26"})
	lookup := decode[DistrictResponse](t, responses[0])
	require.Equal(t, 1, lookup.Count)
	assert.Equal(t, []string{"부산광역시"}, lookup.Districts[0].Geocode)
}

func TestServerKeepsReadingAfterBadRequest(t *testing.T) {
	responses := exchange(t, nil,
		42,
		"not a map",
		map[string]any{"q": "부산"},
	)

	for _, raw := range responses[:2] {
		resp := decode[ErrorResponse](t, raw)
		assert.Equal(t, CodeBadRequest, resp.Code)
		_, err := uuid.Parse(resp.ID)
		assert.NoError(t, err)
	}

	resp := decode[SearchResponse](t, responses[2])
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err, "missing id is generated")
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "26", resp.Results[0].ID)
}

func TestServerTruncatedStream(t *testing.T) {
	// str8 header promising 10 bytes, only 2 follow
	data := []byte{0xd9, 0x0a, 'a', 'b'}

	var out bytes.Buffer
	srv := NewServerWithIO(testSearcher(t), nil, "", bytes.NewReader(data), &out)
	assert.Error(t, srv.Start())
}

func TestClampLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.DefaultLimit = 5
	cfg.Server.MaxLimit = 10
	srv := NewServerWithIO(testSearcher(t), cfg, "", &bytes.Buffer{}, io.Discard)

	assert.Equal(t, 5, srv.clampLimit(0))
	assert.Equal(t, 5, srv.clampLimit(-3))
	assert.Equal(t, 7, srv.clampLimit(7))
	assert.Equal(t, 10, srv.clampLimit(11))
}
