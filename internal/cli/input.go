// Package cli is an interactive district search loop for trying queries by hand.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	matchStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	labelStyle = lipgloss.NewStyle().Faint(true)
	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#907aa9", Dark: "#c4a7e7"})
)

// InputHandler reads queries line by line and prints ranked districts.
// Lines starting with ':' are commands:
//
//	:lv sido,sigungu   restrict levels (":lv" alone clears)
//	:limit 5           change the result cap
//	:within 11680      list districts under an id
//	:stats             dataset and cache counters
type InputHandler struct {
	searcher     search.ISearcher
	limit        int
	maxQuery     int
	levels       []gazetteer.Level
	requestCount int
	in           io.Reader
	out          *log.Logger
}

// NewInputHandler creates a handler over stdin/stdout.
func NewInputHandler(searcher search.ISearcher, limit, maxQuery int, levels []gazetteer.Level) *InputHandler {
	return NewInputHandlerWithIO(searcher, limit, maxQuery, levels, os.Stdin, os.Stdout)
}

// NewInputHandlerWithIO creates a handler over arbitrary streams.
func NewInputHandlerWithIO(searcher search.ISearcher, limit, maxQuery int, levels []gazetteer.Level, r io.Reader, w io.Writer) *InputHandler {
	return &InputHandler{
		searcher: searcher,
		limit:    limit,
		maxQuery: maxQuery,
		levels:   levels,
		in:       r,
		out:      logger.NewWithConfig(w, "", log.InfoLevel, false, false, log.TextFormatter),
	}
}

// Start runs the loop until the input ends.
func (h *InputHandler) Start() error {
	h.out.Print("PlaceServe CLI")
	h.out.Printf("%s districts loaded. type a place name or chosung (Ctrl+C to exit):",
		utils.FormatWithCommas(h.searcher.Gazetteer().Len()))

	scanner := bufio.NewScanner(h.in)
	for {
		h.out.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line[1:])
			continue
		}
		h.handleInput(line)
	}
}

func (h *InputHandler) handleCommand(line string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "lv", "levels":
		levels, err := ParseLevels(arg)
		if err != nil {
			h.out.Errorf("%v", err)
			return
		}
		h.levels = levels
		h.out.Printf("levels: %s", describeLevels(levels))
	case "limit":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			h.out.Errorf("limit must be a positive number: %q", arg)
			return
		}
		h.limit = n
		h.out.Printf("limit: %d", n)
	case "within":
		h.handleWithin(arg)
	case "stats":
		for _, key := range []string{"totalDistricts", "sido", "sigungu", "eupmyeondong", "searches", "cacheEntries", "cacheHits", "cacheMisses"} {
			if v, ok := h.searcher.Stats()[key]; ok {
				h.out.Printf("%-15s %s", key, utils.FormatWithCommas(v))
			}
		}
	default:
		h.out.Errorf("unknown command: %s", name)
	}
}

func (h *InputHandler) handleWithin(id string) {
	parent, ok := h.searcher.Gazetteer().Lookup(id)
	if !ok {
		h.out.Errorf("unknown district: %s", id)
		return
	}
	children := h.searcher.Gazetteer().Within(parent.FullName)
	h.out.Printf("%d districts under %s:", len(children), parent.FullName)
	for i, d := range children {
		h.out.Printf("%3d. %s %s", i+1, d.FullName, labelStyle.Render("("+d.Level.Label()+")"))
	}
}

func (h *InputHandler) handleInput(query string) {
	h.requestCount++
	if !utils.IsValidQuery(query, h.maxQuery) {
		h.out.Errorf("Query too long or not printable (max %d characters)", h.maxQuery)
		return
	}

	start := time.Now()
	results := h.searcher.Search(search.Options{Query: query, Limit: search.Limit(h.limit), Levels: h.levels})
	log.Debugf("Took [ %v ] for query '%s'", time.Since(start), query)

	if len(results) == 0 {
		h.out.Warnf("No districts found for '%s'", query)
		return
	}

	h.out.Printf("Found %d districts for '%s':", len(results), query)
	for i, r := range results {
		h.out.Printf("%2d. %s %s %s", i+1,
			RenderSpans(h.searcher.Highlight(r.MatchedText, query)),
			labelStyle.Render("("+r.District.Level.Label()+")"),
			scoreStyle.Render(fmt.Sprintf("%d %s", r.Score, search.TierFor(r.Score))))
	}
}

// RenderSpans styles highlighted spans for the terminal.
func RenderSpans(spans []search.Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Highlight {
			b.WriteString(matchStyle.Render(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// ParseLevels reads a comma separated level list. An empty string means no filter.
func ParseLevels(s string) ([]gazetteer.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var levels []gazetteer.Level
	for _, part := range strings.Split(s, ",") {
		level, err := gazetteer.ParseLevel(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func describeLevels(levels []gazetteer.Level) string {
	if levels == nil {
		return "all"
	}
	labels := make([]string, len(levels))
	for i, l := range levels {
		labels[i] = l.Label()
	}
	return strings.Join(labels, ", ")
}
