package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/config"
	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Server answers msgpack requests for one searcher.
type Server struct {
	searcher   search.ISearcher
	config     *config.Config
	configPath string
	decoder    *msgpack.Decoder
	encoder    *msgpack.Encoder
	requests   int64
}

// NewServer creates a server over stdin/stdout.
func NewServer(searcher search.ISearcher, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(searcher, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over arbitrary streams.
func NewServerWithIO(searcher search.ISearcher, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		searcher:   searcher,
		config:     cfg,
		configPath: configPath,
		decoder:    msgpack.NewDecoder(r),
		encoder:    msgpack.NewEncoder(w),
	}
}

// Start writes the ready message and serves until EOF.
func (s *Server) Start() error {
	log.Debug("Starting msgpack server")
	s.send(StatusResponse{Status: "ready"})

	for {
		// DecodeRaw consumes exactly one value, so a request of the wrong
		// shape does not desync the stream.
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("stdin closed, stopping server")
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}
		s.requests++

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			log.Debugf("Undecodable request: %v", err)
			s.sendError(uuid.NewString(), "invalid msgpack request", CodeBadRequest)
			continue
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req Request) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Action == "" {
		req.Action = ActionSearch
	}
	metrics.RequestsTotal.WithLabelValues(req.Action).Inc()

	switch req.Action {
	case ActionSearch:
		s.handleSearch(req)
	case ActionHighlight:
		s.handleHighlight(req)
	case ActionLookup:
		s.handleLookup(req)
	case ActionWithin:
		s.handleWithin(req)
	case ActionStats:
		s.send(StatsResponse{ID: req.ID, Stats: s.searcher.Stats(), Requests: s.requests})
	case ActionHealth:
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case ActionConfig:
		s.handleConfig(req)
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), CodeBadRequest)
	}
}

func (s *Server) handleSearch(req Request) {
	if !s.validQuery(req) {
		return
	}
	levels, err := parseLevels(req.Levels)
	if err != nil {
		s.sendError(req.ID, err.Error(), CodeBadRequest)
		return
	}

	start := time.Now()
	results := s.searcher.Search(search.Options{
		Query:  req.Query,
		Limit:  search.Limit(s.clampLimit(req.Limit)),
		Levels: levels,
	})
	elapsed := time.Since(start)
	metrics.ObserveSearch(elapsed, len(results))

	scores := make([]int, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	ranks := utils.CreateRankList(scores)

	msgs := make([]DistrictMsg, len(results))
	for i, r := range results {
		msgs[i] = toDistrictMsg(r.District)
		msgs[i].Score = r.Score
		msgs[i].Rank = ranks[i]
		if s.config.Server.Highlight {
			msgs[i].Spans = toSpanMsgs(s.searcher.Highlight(r.MatchedText, req.Query))
		}
	}

	log.Debugf("search %q: %d results in %s", req.Query, len(msgs), elapsed)
	s.send(SearchResponse{
		ID:        req.ID,
		Results:   msgs,
		Count:     len(msgs),
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleHighlight(req Request) {
	if !s.validQuery(req) {
		return
	}
	s.send(HighlightResponse{ID: req.ID, Spans: toSpanMsgs(s.searcher.Highlight(req.Text, req.Query))})
}

func (s *Server) handleLookup(req Request) {
	d, ok := s.lookup(req)
	if !ok {
		return
	}
	msg := toDistrictMsg(d)
	msg.Geocode = search.GeocodeCandidates(d.FullName)
	s.send(DistrictResponse{ID: req.ID, Districts: []DistrictMsg{msg}, Count: 1})
}

func (s *Server) handleWithin(req Request) {
	parent, ok := s.lookup(req)
	if !ok {
		return
	}
	levels, err := parseLevels(req.Levels)
	if err != nil {
		s.sendError(req.ID, err.Error(), CodeBadRequest)
		return
	}
	allowed := search.Options{Levels: levels}

	children := s.searcher.Gazetteer().Within(parent.FullName)
	msgs := make([]DistrictMsg, 0, len(children))
	for _, d := range children {
		if allowed.Admits(d.Level) {
			msgs = append(msgs, toDistrictMsg(d))
		}
	}
	s.send(DistrictResponse{ID: req.ID, Districts: msgs, Count: len(msgs)})
}

func (s *Server) handleConfig(req Request) {
	if req.MaxLimit != nil && *req.MaxLimit < 1 {
		s.sendError(req.ID, "max limit must be positive", CodeBadRequest)
		return
	}
	if req.DefaultLimit != nil && *req.DefaultLimit < 1 {
		s.sendError(req.ID, "default limit must be positive", CodeBadRequest)
		return
	}
	if err := s.config.Update(s.configPath, req.MaxLimit, req.DefaultLimit, req.MaxQuery, req.Highlight); err != nil {
		log.Errorf("Saving config: %v", err)
		s.sendError(req.ID, "failed to save config", CodeInternal)
		return
	}
	// entries keyed by the old limits can no longer be hit
	if req.MaxLimit != nil || req.DefaultLimit != nil {
		s.searcher.ResetCache()
	}
	s.send(StatusResponse{ID: req.ID, Status: "ok"})
}

func (s *Server) lookup(req Request) (*gazetteer.District, bool) {
	if req.DistrictID == "" {
		s.sendError(req.ID, "missing district id", CodeBadRequest)
		return nil, false
	}
	d, ok := s.searcher.Gazetteer().Lookup(req.DistrictID)
	if !ok {
		s.sendError(req.ID, "unknown district: "+req.DistrictID, CodeNotFound)
		return nil, false
	}
	return d, true
}

func (s *Server) validQuery(req Request) bool {
	maxQuery := s.config.Server.MaxQuery
	if !utils.IsValidQuery(req.Query, maxQuery) {
		s.sendError(req.ID, "query must be printable and at most "+strconv.Itoa(maxQuery)+" characters", CodeBadRequest)
		return false
	}
	return true
}

// clampLimit applies the configured default and cap. Zero or negative
// limits mean "use the default" on the wire.
func (s *Server) clampLimit(limit int) int {
	if limit < 1 {
		limit = s.config.Server.DefaultLimit
	}
	if maxLimit := s.config.Server.MaxLimit; maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func parseLevels(names []string) ([]gazetteer.Level, error) {
	if names == nil {
		return nil, nil
	}
	levels := make([]gazetteer.Level, 0, len(names))
	for _, name := range names {
		level, err := gazetteer.ParseLevel(name)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func toDistrictMsg(d *gazetteer.District) DistrictMsg {
	return DistrictMsg{ID: d.ID, Name: d.Name, FullName: d.FullName, Level: string(d.Level)}
}

func toSpanMsgs(spans []search.Span) []SpanMsg {
	msgs := make([]SpanMsg, len(spans))
	for i, span := range spans {
		msgs[i] = SpanMsg{Text: span.Text, Highlight: span.Highlight}
	}
	return msgs
}

func (s *Server) send(response any) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	metrics.ErrorsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	log.Debugf("request %s failed: %s (%d)", id, message, code)
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
