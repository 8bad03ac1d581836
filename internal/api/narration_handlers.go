package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emots/narrate-server/internal/store"
)

func (s *Server) registerNarrationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getNarration",
		Method:      http.MethodGet,
		Path:        "/api/v1/narration/{slug}",
		Summary:     "Get narration",
		Description: "Returns the audio URL and per-character alignment for a post. 404 when no narration has been generated for the slug.",
		Tags:        []string{"Narration"},
	}, s.handleGetNarration)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNarrationRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/narration/{slug}/runs",
		Summary:     "List generation runs",
		Description: "Returns recorded generation runs for a post, newest first",
		Tags:        []string{"Narration"},
	}, s.handleListRuns)
}

// === DTOs ===

// NarrationInput identifies a post by slug.
type NarrationInput struct {
	Slug string `path:"slug" maxLength:"200" doc:"Post slug"`
}

// AlignmentResponse contains per-character timing for the narration audio.
type AlignmentResponse struct {
	Characters []string  `json:"characters" doc:"Visible characters of the narration script"`
	StartTimes []float64 `json:"character_start_times_seconds" doc:"Start time of each character in seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds" doc:"End time of each character in seconds"`
}

// NarrationResponse contains everything a playback client needs.
type NarrationResponse struct {
	Slug        string            `json:"slug" doc:"Post slug"`
	AudioURL    string            `json:"audioUrl" doc:"Audio stream URL, cache-busted by content hash"`
	Hash        string            `json:"hash" doc:"Fingerprint of the narrated text"`
	Duration    float64           `json:"duration" doc:"Audio duration in seconds"`
	GeneratedAt time.Time         `json:"generatedAt" doc:"When this narration was generated"`
	Alignment   AlignmentResponse `json:"alignment" doc:"Per-character timing data"`
}

// NarrationOutput wraps the narration response for Huma.
type NarrationOutput struct {
	Body NarrationResponse
}

// RunResponse describes one generation run.
type RunResponse struct {
	ID         string    `json:"id" doc:"Run ID"`
	Hash       string    `json:"hash,omitempty" doc:"Content hash at generation time"`
	Status     string    `json:"status" doc:"Run outcome: succeeded, skipped, or failed"`
	Error      string    `json:"error,omitempty" doc:"Failure reason, for failed runs"`
	StartedAt  time.Time `json:"startedAt" doc:"When the run started"`
	FinishedAt time.Time `json:"finishedAt" doc:"When the run finished"`
}

// RunsResponse contains the generation history for a post.
type RunsResponse struct {
	Slug string        `json:"slug" doc:"Post slug"`
	Runs []RunResponse `json:"runs" doc:"Recorded runs, newest first"`
}

// RunsOutput wraps the runs response for Huma.
type RunsOutput struct {
	Body RunsResponse
}

// === Handlers ===

func (s *Server) handleGetNarration(ctx context.Context, input *NarrationInput) (*NarrationOutput, error) {
	data, err := s.narration.Fetch(ctx, input.Slug)
	if err != nil {
		return nil, err
	}

	return &NarrationOutput{
		Body: NarrationResponse{
			Slug:        data.Metadata.Slug,
			AudioURL:    data.AudioURL,
			Hash:        data.Metadata.Hash,
			Duration:    data.Metadata.Duration,
			GeneratedAt: data.Metadata.GeneratedAt,
			Alignment: AlignmentResponse{
				Characters: data.Alignment.Characters,
				StartTimes: data.Alignment.StartTimes,
				EndTimes:   data.Alignment.EndTimes,
			},
		},
	}, nil
}

func (s *Server) handleListRuns(ctx context.Context, input *NarrationInput) (*RunsOutput, error) {
	runs, err := s.narration.Runs(input.Slug)
	if err != nil {
		return nil, err
	}

	// Run IDs are random, so key order is meaningless. Sort by start time.
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	resp := RunsResponse{
		Slug: input.Slug,
		Runs: make([]RunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runToResponse(run))
	}

	return &RunsOutput{Body: resp}, nil
}

func runToResponse(run *store.GenerationRun) RunResponse {
	return RunResponse{
		ID:         run.ID,
		Hash:       run.Hash,
		Status:     run.Status,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}
