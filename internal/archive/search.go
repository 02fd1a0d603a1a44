package archive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/plenumbot/internal/domain"
)

// ErrEmptyQuery is returned for blank search queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Hit is a single search result.
type Hit struct {
	ID        string   `json:"id" yaml:"id"`
	Date      string   `json:"date" yaml:"date"`
	Concluded bool     `json:"concluded" yaml:"concluded"`
	Score     float64  `json:"score" yaml:"score"`
	Fragments []string `json:"fragments,omitempty" yaml:"fragments,omitempty"`
}

// Results is the outcome of a search.
type Results struct {
	Query string `json:"query" yaml:"query"`
	Total uint64 `json:"total" yaml:"total"`
	Hits  []Hit  `json:"hits" yaml:"hits"`
}

// SearchRequest filters and bounds a search.
type SearchRequest struct {
	Query string
	// Year limits results to meetings of that year when non-zero.
	Year  int
	Limit int
}

// buildQuery matches the page content, optionally restricted to a year.
func buildQuery(req SearchRequest) query.Query {
	content := bleve.NewMatchQuery(req.Query)
	content.SetField(domain.ProtocolFieldContent)

	if req.Year == 0 {
		return content
	}

	year := bleve.NewTermQuery(strconv.Itoa(req.Year))
	year.SetField(domain.ProtocolFieldYear)
	return bleve.NewConjunctionQuery(content, year)
}

// Search runs a full-text query. Results are ordered by score, newest
// meeting first among equal scores.
func (a *Archive) Search(req SearchRequest) (*Results, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	sr := bleve.NewSearchRequest(buildQuery(req))
	sr.Size = req.Limit
	sr.Fields = []string{domain.ProtocolFieldDate, domain.ProtocolFieldConcluded}
	sr.SortBy([]string{"-_score", "-" + domain.ProtocolFieldDate})
	sr.Highlight = bleve.NewHighlight()
	sr.Highlight.AddField(domain.ProtocolFieldContent)

	a.mu.RLock()
	res, err := a.index.Search(sr)
	a.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &Results{Query: req.Query, Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields[domain.ProtocolFieldDate].(string); ok {
			hit.Date = v
		}
		if v, ok := h.Fields[domain.ProtocolFieldConcluded].(bool); ok {
			hit.Concluded = v
		}
		if frags, ok := h.Fragments[domain.ProtocolFieldContent]; ok {
			hit.Fragments = frags
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// Format renders results as plain text.
func (r *Results) Format() string {
	if r.Total == 0 {
		return fmt.Sprintf("No protocols found for query: %s\n", r.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d protocols for '%s':\n\n", r.Total, r.Query)
	for i, h := range r.Hits {
		status := "open"
		if h.Concluded {
			status = "concluded"
		}
		fmt.Fprintf(&sb, "%d. %s (%s, score %.4f)\n", i+1, h.ID, status, h.Score)
		for _, f := range h.Fragments {
			sb.WriteString("   ")
			sb.WriteString(strings.ReplaceAll(f, "\n", " "))
			sb.WriteString("\n")
		}
	}
	if rest := r.Total - uint64(len(r.Hits)); rest > 0 {
		fmt.Fprintf(&sb, "... and %d more\n", rest)
	}
	return sb.String()
}
