package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emots/narrate-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchNarrations",
		Method:      http.MethodGet,
		Path:        "/api/v1/narration-search",
		Summary:     "Search transcripts",
		Description: "Full-text search over generated narration transcripts",
		Tags:        []string{"Search"},
	}, s.handleSearchNarrations)
}

// === DTOs ===

// TranscriptSearchInput contains parameters for searching narration transcripts.
type TranscriptSearchInput struct {
	Query     string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search query"`
	Limit     int    `query:"limit" minimum:"1" maximum:"100" required:"false" doc:"Max results (default 10)"`
	Offset    int    `query:"offset" minimum:"0" required:"false" doc:"Pagination offset (default 0)"`
	Fragments bool   `query:"fragments" required:"false" default:"true" doc:"Include highlighted transcript fragments"`
}

// TranscriptHitResult contains a single matching transcript.
type TranscriptHitResult struct {
	Slug        string    `json:"slug" doc:"Post slug"`
	Score       float64   `json:"score" doc:"Search relevance score"`
	Duration    float64   `json:"duration,omitempty" doc:"Narration duration in seconds"`
	GeneratedAt time.Time `json:"generatedAt,omitzero" doc:"When the narration was generated"`
	Fragments   []string  `json:"fragments,omitempty" doc:"Highlighted matches from the transcript"`
}

// TranscriptSearchResponse contains transcript search results.
type TranscriptSearchResponse struct {
	Query  string                `json:"query" doc:"Original search query"`
	Total  uint64                `json:"total" doc:"Total matches"`
	TookMs int64                 `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []TranscriptHitResult `json:"hits" doc:"Search results"`
}

// TranscriptSearchOutput wraps the search response for Huma.
type TranscriptSearchOutput struct {
	Body TranscriptSearchResponse
}

// === Handlers ===

func (s *Server) handleSearchNarrations(ctx context.Context, input *TranscriptSearchInput) (*TranscriptSearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	params.Highlight = input.Fragments

	result, err := s.narration.SearchTranscripts(ctx, params)
	if err != nil {
		s.logger.Error("Transcript search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := TranscriptSearchResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   make([]TranscriptHitResult, 0, len(result.Hits)),
	}
	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, TranscriptHitResult{
			Slug:        hit.Slug,
			Score:       hit.Score,
			Duration:    hit.Duration,
			GeneratedAt: hit.GeneratedAt,
			Fragments:   hit.Fragments,
		})
	}

	return &TranscriptSearchOutput{Body: resp}, nil
}
