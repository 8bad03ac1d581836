package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emots/narrate-server/internal/narration"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRawKV(t *testing.T) {
	s := newTestStore(t)

	// Absent key reads as nil without error.
	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("k", []byte("v")))
	val, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	ok, err := s.Exists("k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("k"))
	ok, err = s.Exists("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is fine.
	require.NoError(t, s.Delete("k"))
}

func TestListKeys(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("a:1", []byte("x")))
	require.NoError(t, s.Set("a:2", []byte("y")))
	require.NoError(t, s.Set("b:1", []byte("z")))

	keys, err := s.ListKeys("a:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, keys)
}

func TestRuns(t *testing.T) {
	s := newTestStore(t)

	run := &GenerationRun{
		ID:         "run-abc123",
		Slug:       "building-a-blog",
		Hash:       "a1b2c3d4",
		Status:     RunSucceeded,
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutRun(run))

	got, err := s.GetRun("run-abc123")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = s.GetRun("run-nope")
	var domainErr *narration.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, 404, domainErr.HTTPCode())
}

func TestRuns_RequireID(t *testing.T) {
	s := newTestStore(t)
	err := s.PutRun(&GenerationRun{Slug: "post"})
	assert.Error(t, err)
}

func TestListRuns_FilterBySlug(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutRun(&GenerationRun{ID: "run-1", Slug: "one", Status: RunSucceeded}))
	require.NoError(t, s.PutRun(&GenerationRun{ID: "run-2", Slug: "two", Status: RunFailed}))
	require.NoError(t, s.PutRun(&GenerationRun{ID: "run-3", Slug: "one", Status: RunSkipped}))

	all, err := s.ListRuns("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := s.ListRuns("one")
	require.NoError(t, err)
	assert.Len(t, one, 2)
}

func TestStaleFlags(t *testing.T) {
	s := newTestStore(t)

	slugs, err := s.StaleSlugs()
	require.NoError(t, err)
	assert.Empty(t, slugs)

	require.NoError(t, s.MarkStale("post-a", time.Now()))
	require.NoError(t, s.MarkStale("post-b", time.Now()))

	slugs, err = s.StaleSlugs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"post-a", "post-b"}, slugs)

	require.NoError(t, s.ClearStale("post-a"))
	slugs, err = s.StaleSlugs()
	require.NoError(t, err)
	assert.Equal(t, []string{"post-b"}, slugs)
}
