package search

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// SearchParams configures a transcript search.
type SearchParams struct {
	Query string

	// Pagination
	Limit  int
	Offset int

	// Options
	Highlight bool // Include matched text fragments
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     10,
		Offset:    0,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one matching transcript.
type SearchHit struct {
	Slug        string    `json:"slug"`
	Score       float64   `json:"score"`
	Duration    float64   `json:"duration,omitempty"`
	GeneratedAt time.Time `json:"generatedAt,omitzero"`
	Fragments   []string  `json:"fragments,omitempty"`
}

// Search executes a full-text query over indexed transcripts.
func (t *TranscriptIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	matchQuery := bleve.NewMatchQuery(params.Query)
	matchQuery.SetField("text")

	searchRequest := bleve.NewSearchRequestOptions(matchQuery, params.Limit, params.Offset, false)
	searchRequest.Fields = []string{"slug", "duration", "generated_at"}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("text")
	}

	result, err := t.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}

	out := &SearchResult{
		Query:  params.Query,
		Total:  result.Total,
		TookMs: result.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(result.Hits)),
	}

	for _, hit := range result.Hits {
		sh := SearchHit{
			Slug:  hit.ID,
			Score: hit.Score,
		}
		if d, ok := hit.Fields["duration"].(float64); ok {
			sh.Duration = d
		}
		if ts, ok := hit.Fields["generated_at"].(float64); ok {
			sh.GeneratedAt = time.UnixMilli(int64(ts)).UTC()
		}
		if fragments, ok := hit.Fragments["text"]; ok {
			sh.Fragments = fragments
		}
		out.Hits = append(out.Hits, sh)
	}

	return out, nil
}
