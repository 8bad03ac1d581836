package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/narration"
	"github.com/emots/narrate-server/internal/search"
	"github.com/emots/narrate-server/internal/storage"
	"github.com/emots/narrate-server/internal/store"
	"github.com/emots/narrate-server/internal/tts"
)

// fakeSpeech synthesizes a per-character alignment for whatever text it is
// given, counting calls so tests can assert the skip path.
type fakeSpeech struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSpeech) GenerateSpeech(_ context.Context, text, _ string) (*tts.SpeechResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	a := narration.Alignment{}
	i := 0
	for _, r := range text {
		a.Characters = append(a.Characters, string(r))
		a.StartTimes = append(a.StartTimes, float64(i)*0.1)
		a.EndTimes = append(a.EndTimes, float64(i+1)*0.1)
		i++
	}
	return &tts.SpeechResult{Audio: []byte("mp3:" + text), Alignment: a}, nil
}

type fixture struct {
	svc    *NarrationService
	speech *fakeSpeech
	posts  *content.Repository
	index  *search.TranscriptIndex
	kv     *store.Store
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	posts := content.NewRepository(dir)

	kv, err := store.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	index, err := search.NewTranscriptIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	gateway := storage.NewGateway(storage.NewBadgerStore(kv), "https://cdn.example.com", nil)
	speech := &fakeSpeech{}

	svc := NewNarrationService(posts, speech, gateway, index, kv, nil, slog.New(slog.DiscardHandler))
	return &fixture{svc: svc, speech: speech, posts: posts, index: index, kv: kv}
}

func writePost(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "Hello narration world.",
	})
	ctx := context.Background()

	result, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)

	assert.Equal(t, store.RunSucceeded, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Hash, 8)
	assert.Equal(t, "https://cdn.example.com/audio/narration/my-post/audio.mp3", result.AudioURL)
	assert.Greater(t, result.Duration, 0.0)

	// The bundle is fetchable and carries the hash as a cache buster.
	data, err := f.svc.Fetch(ctx, "my-post")
	require.NoError(t, err)
	assert.Equal(t, result.Hash, data.Metadata.Hash)
	assert.Contains(t, data.AudioURL, "?v="+result.Hash)

	// The transcript landed in the search index.
	found, err := f.svc.SearchTranscripts(ctx, search.SearchParams{Query: "narration", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), found.Total)

	// The run was recorded.
	runs, err := f.svc.Runs("my-post")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunSucceeded, runs[0].Status)
}

func TestGenerate_SkipsUnchangedContent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "Stable content.",
	})
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)
	require.Equal(t, store.RunSucceeded, first.Status)

	second, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)
	assert.Equal(t, store.RunSkipped, second.Status)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Contains(t, second.AudioURL, "?v="+first.Hash)

	// Synthesis ran exactly once.
	assert.Equal(t, int32(1), f.speech.calls.Load())
}

func TestGenerate_ForceRegenerates(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "Stable content.",
	})
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)

	result, err := f.svc.Generate(ctx, "my-post", true)
	require.NoError(t, err)
	assert.Equal(t, store.RunSucceeded, result.Status)
	assert.Equal(t, int32(2), f.speech.calls.Load())
}

func TestGenerate_ChangedContentRegenerates(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "First draft.",
	})
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.posts.Dir(), "my-post.mdx"), []byte("Second draft."), 0o644))

	second, err := f.svc.Generate(ctx, "my-post", false)
	require.NoError(t, err)
	assert.Equal(t, store.RunSucceeded, second.Status)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestGenerate_UnknownSlug(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Generate(context.Background(), "nope", false)
	var domainErr *narration.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 404, domainErr.HTTPCode())
}

func TestGenerate_SynthesisFailureIsRecorded(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "Content.",
	})
	f.speech.err = errors.New("synthesis API error: 500 - boom")

	_, err := f.svc.Generate(context.Background(), "my-post", false)
	require.Error(t, err)

	runs, err := f.svc.Runs("my-post")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "boom")
}

func TestGenerateAll_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha.mdx": "Alpha content.",
		"beta.mdx":  "Beta content.",
	})

	// Break beta by making it unreadable as a file.
	require.NoError(t, os.Remove(filepath.Join(f.posts.Dir(), "beta.mdx")))
	require.NoError(t, os.Mkdir(filepath.Join(f.posts.Dir(), "beta.mdx"), 0o755))

	results, err := f.svc.GenerateAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	bySlug := map[string]*GenerationResult{}
	for _, r := range results {
		bySlug[r.Slug] = r
	}
	assert.Equal(t, store.RunSucceeded, bySlug["alpha"].Status)
	assert.Equal(t, store.RunFailed, bySlug["beta"].Status)
	assert.NotEmpty(t, bySlug["beta"].Error)
}

func TestGenerateStale(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha.mdx": "Alpha content.",
		"beta.mdx":  "Beta content.",
	})
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "beta", false)
	require.NoError(t, err)

	// An edit that changes the narrated text flags the slug.
	writePost(t, f.posts.Dir(), "beta.mdx", "Beta content, revised.")
	f.svc.NoteSourceChanged(ctx, "beta")

	results, err := f.svc.GenerateStale(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].Slug)
	assert.Equal(t, store.RunSucceeded, results[0].Status)

	// Success clears the flag; the next sweep has nothing to do.
	results, err = f.svc.GenerateStale(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNoteSourceChanged_IgnoresCosmeticEdits(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha.mdx": "Alpha content.",
	})
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "alpha", false)
	require.NoError(t, err)

	// Same narrated text after extraction: frontmatter is stripped.
	writePost(t, f.posts.Dir(), "alpha.mdx", "---\ndraft: false\n---\nAlpha content.")
	f.svc.NoteSourceChanged(ctx, "alpha")

	results, err := f.svc.GenerateStale(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNoteSourceChanged_SkipsNeverNarratedPosts(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha.mdx": "Alpha content.",
	})
	ctx := context.Background()

	f.svc.NoteSourceChanged(ctx, "alpha")

	results, err := f.svc.GenerateStale(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReindexAll(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha.mdx": "Alpha narration text.",
		"beta.mdx":  "Beta narration text.",
		"gamma.mdx": "Never generated.",
	})
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "alpha", false)
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, "beta", false)
	require.NoError(t, err)

	indexed, err := f.svc.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestCheckDuration_ProbeMismatchDoesNotFail(t *testing.T) {
	f := newFixture(t, map[string]string{
		"my-post.mdx": "Short.",
	})

	probed := false
	f.svc.probe = func(context.Context, []byte) (time.Duration, error) {
		probed = true
		return time.Hour, nil
	}

	result, err := f.svc.Generate(context.Background(), "my-post", false)
	require.NoError(t, err)
	assert.True(t, probed)
	assert.Equal(t, store.RunSucceeded, result.Status)
}
