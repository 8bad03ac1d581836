package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *TranscriptIndex {
	t.Helper()
	idx, err := NewTranscriptIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *TranscriptIndex) {
	t.Helper()
	docs := []*TranscriptDocument{
		{
			Slug:        "building-a-blog",
			Text:        "How I built this blog with a static site generator and too much coffee.",
			Hash:        "a1b2c3d4",
			Duration:    180,
			GeneratedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Slug:        "on-naming-things",
			Text:        "Naming things is the hardest problem. Coffee does not help here.",
			Hash:        "e5f6a7b8",
			Duration:    240,
			GeneratedAt: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			Slug:        "silent-post",
			Text:        "A completely unrelated transcript about gardening.",
			Hash:        "c9d0e1f2",
			Duration:    60,
			GeneratedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, doc := range docs {
		require.NoError(t, idx.IndexTranscript(doc))
	}
}

func TestSearch(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	result, err := idx.Search(context.Background(), SearchParams{Query: "coffee", Limit: 10, Highlight: true})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Total)
	slugs := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		slugs = append(slugs, hit.Slug)
	}
	assert.ElementsMatch(t, []string{"building-a-blog", "on-naming-things"}, slugs)
}

func TestSearch_StemmedMatch(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	// English stemming lets "names" match "naming".
	result, err := idx.Search(context.Background(), SearchParams{Query: "names", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "on-naming-things", result.Hits[0].Slug)
}

func TestSearch_HitCarriesStoredFields(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	result, err := idx.Search(context.Background(), SearchParams{Query: "gardening", Limit: 10, Highlight: true})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)

	hit := result.Hits[0]
	assert.Equal(t, "silent-post", hit.Slug)
	assert.Equal(t, 60.0, hit.Duration)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), hit.GeneratedAt)
	require.NotEmpty(t, hit.Fragments)
	assert.Contains(t, hit.Fragments[0], "<mark>")
}

func TestSearch_NoResults(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	result, err := idx.Search(context.Background(), SearchParams{Query: "quantum chromodynamics", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Hits)
}

func TestIndexTranscript_ReplacesOnSameSlug(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.IndexTranscript(&TranscriptDocument{Slug: "post", Text: "old words about sailing"}))
	require.NoError(t, idx.IndexTranscript(&TranscriptDocument{Slug: "post", Text: "new words about climbing"}))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := idx.Search(context.Background(), SearchParams{Query: "sailing", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

func TestDeleteTranscript(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	require.NoError(t, idx.DeleteTranscript("silent-post"))

	result, err := idx.Search(context.Background(), SearchParams{Query: "gardening", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

func TestRebuild(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	// The rebuilt index accepts new documents.
	require.NoError(t, idx.IndexTranscript(&TranscriptDocument{Slug: "post", Text: "fresh start"}))
	count, err = idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestReopenKeepsDocuments(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewTranscriptIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.IndexTranscript(&TranscriptDocument{Slug: "post", Text: "persistent words"}))
	require.NoError(t, idx.Close())

	reopened, err := NewTranscriptIndex(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
