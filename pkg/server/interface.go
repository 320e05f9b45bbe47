/*
Package server implements msgpack IPC for district search.

Clients write msgpack maps to stdin and read one msgpack map per request
from stdout. Logs go to stderr so the stream stays clean.

# IPC

Every request shares one envelope. The action key picks the operation and
defaults to search:

	{"id": "req_001", "q": "강남", "l": 10}
	{"id": "req_002", "a": "search", "q": "ㄱㄴ", "lv": ["sigungu"]}

Search responses carry ranked districts with their score, dense rank and
optional highlight spans of the full name:

	{"id": "req_001", "r": [{"d": "11680", "n": "강남구", "f": "서울특별시 강남구",
	  "lv": "sigungu", "s": 800, "r": 1, "h": [{"t": "서울특별시 ", "m": false}, ...]}],
	  "c": 1, "t": 42}

Other actions:

	{"a": "highlight", "tx": "서울특별시 강남구", "q": "강남"}
	{"a": "lookup", "d": "11680"}
	{"a": "within", "d": "11680"}
	{"a": "stats"}
	{"a": "health"}
	{"a": "config", "ml": 32, "hl": false}

Failures come back as {"id", "e", "c"} with an HTTP-like code; the loop keeps
reading after them. A missing id is filled with a random uuid so replies can
still be correlated.

t is the search time in microseconds. A lookup result also carries g, the
address strings to hand a geocoder in order, for example
["강원특별자치도 춘천시", "강원도 춘천시", "춘천시"].
*/
package server

// Actions understood by the server.
const (
	ActionSearch    = "search"
	ActionHighlight = "highlight"
	ActionLookup    = "lookup"
	ActionWithin    = "within"
	ActionStats     = "stats"
	ActionHealth    = "health"
	ActionConfig    = "config"
)

// Error codes.
const (
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeInternal   = 500
)

// Request is the envelope for every action.
type Request struct {
	ID         string   `msgpack:"id"`
	Action     string   `msgpack:"a,omitempty"`
	Query      string   `msgpack:"q,omitempty"`
	Limit      int      `msgpack:"l,omitempty"`
	Levels     []string `msgpack:"lv"`
	Text       string   `msgpack:"tx,omitempty"`
	DistrictID string   `msgpack:"d,omitempty"`

	// config action
	MaxLimit     *int  `msgpack:"ml,omitempty"`
	DefaultLimit *int  `msgpack:"dl,omitempty"`
	MaxQuery     *int  `msgpack:"mq,omitempty"`
	Highlight    *bool `msgpack:"hl,omitempty"`
}

// SpanMsg is one highlight segment.
type SpanMsg struct {
	Text      string `msgpack:"t"`
	Highlight bool   `msgpack:"m"`
}

// DistrictMsg is a district on the wire.
type DistrictMsg struct {
	ID       string    `msgpack:"d"`
	Name     string    `msgpack:"n"`
	FullName string    `msgpack:"f"`
	Level    string    `msgpack:"lv"`
	Score    int       `msgpack:"s,omitempty"`
	Rank     int       `msgpack:"r,omitempty"`
	Spans    []SpanMsg `msgpack:"h,omitempty"`
	Geocode  []string  `msgpack:"g,omitempty"`
}

// SearchResponse answers search.
type SearchResponse struct {
	ID        string        `msgpack:"id"`
	Results   []DistrictMsg `msgpack:"r"`
	Count     int           `msgpack:"c"`
	TimeTaken int64         `msgpack:"t"`
}

// HighlightResponse answers highlight.
type HighlightResponse struct {
	ID    string    `msgpack:"id"`
	Spans []SpanMsg `msgpack:"h"`
}

// DistrictResponse answers lookup and within.
type DistrictResponse struct {
	ID        string        `msgpack:"id"`
	Districts []DistrictMsg `msgpack:"r"`
	Count     int           `msgpack:"c"`
}

// StatsResponse answers stats.
type StatsResponse struct {
	ID       string         `msgpack:"id"`
	Stats    map[string]int `msgpack:"s"`
	Requests int64          `msgpack:"rq"`
}

// StatusResponse answers health and config, and announces readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for any action.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
