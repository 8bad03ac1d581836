// Package service orchestrates narration generation: extracting narration
// text from post sources, synthesizing audio, persisting artifacts, and
// keeping the transcript search index in sync.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/id"
	"github.com/emots/narrate-server/internal/narration"
	"github.com/emots/narrate-server/internal/search"
	"github.com/emots/narrate-server/internal/store"
	"github.com/emots/narrate-server/internal/tts"
)

// SpeechGenerator synthesizes narration audio with per-character timestamps.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, text, voiceID string) (*tts.SpeechResult, error)
}

// ArtifactGateway persists and serves narration bundles.
type ArtifactGateway interface {
	Upload(ctx context.Context, slug string, audio []byte, alignment narration.Alignment, metadata narration.Metadata) (string, error)
	Fetch(ctx context.Context, slug string) (*narration.Data, error)
	Exists(ctx context.Context, slug string) bool
}

// NarrationService generates and serves post narrations.
type NarrationService struct {
	posts   *content.Repository
	speech  SpeechGenerator
	gateway ArtifactGateway
	index   *search.TranscriptIndex
	store   *store.Store
	probe   DurationProbe
	logger  *slog.Logger
}

// NewNarrationService creates a narration service. index, store, and probe
// are optional; a nil index disables transcript search maintenance, a nil
// store disables run records and stale flags, a nil probe skips the audio
// duration cross-check.
func NewNarrationService(
	posts *content.Repository,
	speech SpeechGenerator,
	gateway ArtifactGateway,
	index *search.TranscriptIndex,
	kv *store.Store,
	probe DurationProbe,
	logger *slog.Logger,
) *NarrationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NarrationService{
		posts:   posts,
		speech:  speech,
		gateway: gateway,
		index:   index,
		store:   kv,
		probe:   probe,
		logger:  logger,
	}
}

// GenerationResult describes the outcome of one slug's generation.
type GenerationResult struct {
	RunID    string  `json:"runId"`
	Slug     string  `json:"slug"`
	Hash     string  `json:"hash"`
	Status   string  `json:"status"`
	AudioURL string  `json:"audioUrl,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Generate synthesizes narration for one post. When force is false and the
// stored narration's content hash matches the current extracted text, the
// expensive synthesis is skipped entirely.
func (s *NarrationService) Generate(ctx context.Context, slug string, force bool) (*GenerationResult, error) {
	started := time.Now()
	runID := id.MustGenerate("run")

	result, err := s.generate(ctx, runID, slug, force)
	if err != nil {
		s.recordRun(&store.GenerationRun{
			ID:         runID,
			Slug:       slug,
			Status:     store.RunFailed,
			Error:      err.Error(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
		return nil, err
	}

	s.recordRun(&store.GenerationRun{
		ID:         runID,
		Slug:       slug,
		Hash:       result.Hash,
		Status:     result.Status,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return result, nil
}

func (s *NarrationService) generate(ctx context.Context, runID, slug string, force bool) (*GenerationResult, error) {
	source, err := s.posts.Read(slug)
	if err != nil {
		return nil, err
	}

	text := narration.Extract(source)
	hash := narration.ContentHash(text)

	if !force {
		existing, fetchErr := s.gateway.Fetch(ctx, slug)
		if fetchErr == nil && existing.Metadata.Hash == hash {
			s.logger.Info("narration unchanged, skipping", "slug", slug, "hash", hash)
			return &GenerationResult{
				RunID:    runID,
				Slug:     slug,
				Hash:     hash,
				Status:   store.RunSkipped,
				AudioURL: existing.AudioURL,
				Duration: existing.Metadata.Duration,
			}, nil
		}
	}

	s.logger.Info("generating narration", "slug", slug, "chars", len(text))

	speech, err := s.speech.GenerateSpeech(ctx, text, "")
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", slug, err)
	}

	aligned := narration.Normalize(speech.Alignment)
	duration := aligned.Duration()
	s.checkDuration(ctx, slug, speech.Audio, duration)

	metadata := narration.Metadata{
		Slug:        slug,
		Hash:        hash,
		Duration:    duration,
		GeneratedAt: time.Now().UTC(),
	}

	audioURL, err := s.gateway.Upload(ctx, slug, speech.Audio, aligned, metadata)
	if err != nil {
		return nil, err
	}

	s.indexTranscript(slug, aligned, metadata)
	s.clearStale(slug)

	s.logger.Info("narration generated",
		"slug", slug,
		"hash", hash,
		"duration", duration,
		"url", audioURL,
	)

	return &GenerationResult{
		RunID:    runID,
		Slug:     slug,
		Hash:     hash,
		Status:   store.RunSucceeded,
		AudioURL: audioURL,
		Duration: duration,
	}, nil
}

// GenerateAll generates narration for every post, continuing past individual
// failures. Failed slugs appear in the results with their error message.
func (s *NarrationService) GenerateAll(ctx context.Context, force bool) ([]*GenerationResult, error) {
	slugs, err := s.posts.ListSlugs()
	if err != nil {
		return nil, err
	}
	return s.generateBatch(ctx, slugs, force), nil
}

// GenerateStale regenerates only the posts flagged by the source watcher.
func (s *NarrationService) GenerateStale(ctx context.Context) ([]*GenerationResult, error) {
	if s.store == nil {
		return nil, nil
	}
	slugs, err := s.store.StaleSlugs()
	if err != nil {
		return nil, err
	}
	return s.generateBatch(ctx, slugs, false), nil
}

func (s *NarrationService) generateBatch(ctx context.Context, slugs []string, force bool) []*GenerationResult {
	results := make([]*GenerationResult, 0, len(slugs))
	for _, slug := range slugs {
		if ctx.Err() != nil {
			break
		}
		result, err := s.Generate(ctx, slug, force)
		if err != nil {
			s.logger.Error("narration generation failed", "slug", slug, "error", err)
			results = append(results, &GenerationResult{
				Slug:   slug,
				Status: store.RunFailed,
				Error:  err.Error(),
			})
			continue
		}
		results = append(results, result)
	}
	return results
}

// Fetch returns a slug's stored narration bundle, or narration.ErrNotFound.
func (s *NarrationService) Fetch(ctx context.Context, slug string) (*narration.Data, error) {
	return s.gateway.Fetch(ctx, slug)
}

// Exists reports whether a narration has been generated for slug.
func (s *NarrationService) Exists(ctx context.Context, slug string) bool {
	return s.gateway.Exists(ctx, slug)
}

// SearchTranscripts runs a full-text query over indexed transcripts.
func (s *NarrationService) SearchTranscripts(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.index == nil {
		return nil, narration.ErrInternal.WithMessage("transcript search is not enabled")
	}
	return s.index.Search(ctx, params)
}

// TranscriptCount returns the number of indexed transcripts, zero when
// search is not enabled.
func (s *NarrationService) TranscriptCount() (uint64, error) {
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocumentCount()
}

// ReindexAll rebuilds the transcript index from stored narration bundles.
// Returns the number of transcripts indexed.
func (s *NarrationService) ReindexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, narration.ErrInternal.WithMessage("transcript search is not enabled")
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, err
	}

	slugs, err := s.posts.ListSlugs()
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, slug := range slugs {
		data, err := s.gateway.Fetch(ctx, slug)
		if err != nil {
			var domainErr *narration.Error
			if errors.As(err, &domainErr) && domainErr.HTTPCode() == 404 {
				continue
			}
			return indexed, err
		}
		s.indexTranscript(slug, data.Alignment, data.Metadata)
		indexed++
	}

	s.logger.Info("transcript index rebuilt", "indexed", indexed)
	return indexed, nil
}

// NoteSourceChanged re-extracts a changed post and flags its narration stale
// when the content hash no longer matches the stored one. The watcher calls
// this; the next stale sweep regenerates flagged slugs. Edits that leave the
// narrated text unchanged (frontmatter, code blocks) are ignored.
func (s *NarrationService) NoteSourceChanged(ctx context.Context, slug string) {
	if s.store == nil {
		return
	}

	raw, err := s.posts.Read(slug)
	if err != nil {
		s.logger.Warn("failed to read changed post", "slug", slug, "error", err)
		return
	}
	hash := narration.ContentHash(narration.Extract(raw))

	data, err := s.gateway.Fetch(ctx, slug)
	if errors.Is(err, narration.ErrNotFound) {
		// Never narrated, nothing to invalidate.
		return
	}
	if err != nil {
		s.logger.Warn("failed to fetch narration for staleness check", "slug", slug, "error", err)
		return
	}
	if data.Metadata.Hash == hash {
		s.logger.Debug("source changed but narration text did not", "slug", slug, "hash", hash)
		return
	}

	if err := s.store.MarkStale(slug, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to flag stale narration", "slug", slug, "error", err)
		return
	}
	s.logger.Info("narration flagged stale", "slug", slug, "old_hash", data.Metadata.Hash, "new_hash", hash)
}

// Runs lists recorded generation runs, optionally filtered by slug.
func (s *NarrationService) Runs(slug string) ([]*store.GenerationRun, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(slug)
}

// checkDuration cross-checks the alignment-derived duration against the
// decoded audio. A large gap usually means the provider returned truncated
// timestamps; the narration still ships, loudly.
func (s *NarrationService) checkDuration(ctx context.Context, slug string, audio []byte, aligned float64) {
	if s.probe == nil {
		return
	}
	probed, err := s.probe(ctx, audio)
	if err != nil {
		s.logger.Warn("audio duration probe failed", "slug", slug, "error", err)
		return
	}
	if diff := probed.Seconds() - aligned; diff > 1 || diff < -1 {
		s.logger.Warn("alignment duration disagrees with decoded audio",
			"slug", slug,
			"aligned_seconds", aligned,
			"decoded_seconds", probed.Seconds(),
		)
	}
}

func (s *NarrationService) indexTranscript(slug string, aligned narration.Alignment, metadata narration.Metadata) {
	if s.index == nil {
		return
	}
	doc := &search.TranscriptDocument{
		Slug:        slug,
		Text:        strings.Join(aligned.Characters, ""),
		Hash:        metadata.Hash,
		Duration:    metadata.Duration,
		GeneratedAt: metadata.GeneratedAt,
	}
	if err := s.index.IndexTranscript(doc); err != nil {
		s.logger.Warn("failed to index transcript", "slug", slug, "error", err)
	}
}

func (s *NarrationService) recordRun(run *store.GenerationRun) {
	if s.store == nil {
		return
	}
	if err := s.store.PutRun(run); err != nil {
		s.logger.Warn("failed to record generation run", "run", run.ID, "error", err)
	}
}

func (s *NarrationService) clearStale(slug string) {
	if s.store == nil {
		return
	}
	if err := s.store.ClearStale(slug); err != nil {
		s.logger.Warn("failed to clear stale flag", "slug", slug, "error", err)
	}
}
