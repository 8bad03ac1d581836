package player

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_AcquirePausesPreviousHolder(t *testing.T) {
	h := &Handle{}
	first := &fakeAudio{}
	second := &fakeAudio{}

	h.Acquire(first)
	require.NoError(t, first.Play())

	h.Acquire(second)
	assert.False(t, first.isPlaying())
}

func TestHandle_ReacquireIsNoOp(t *testing.T) {
	h := &Handle{}
	el := &fakeAudio{}

	h.Acquire(el)
	require.NoError(t, el.Play())
	h.Acquire(el)
	assert.True(t, el.isPlaying())
}

func TestHandle_StaleReleaseKeepsOwner(t *testing.T) {
	h := &Handle{}
	first := &fakeAudio{}
	second := &fakeAudio{}

	h.Acquire(first)
	h.Acquire(second)
	require.NoError(t, second.Play())

	h.Release(first)
	h.Acquire(&fakeAudio{})
	assert.False(t, second.isPlaying())
}

func TestHandle_PlayClip(t *testing.T) {
	h := &Handle{}
	clip := &fakeAudio{}

	done, err := h.PlayClip(clip)
	require.NoError(t, err)
	assert.True(t, clip.isPlaying())

	done()
	assert.False(t, clip.isPlaying())
}

func TestHandle_PlayClipErrorReleases(t *testing.T) {
	h := &Handle{}
	clip := &fakeAudio{playErr: errors.New("decode failed")}

	_, err := h.PlayClip(clip)
	require.Error(t, err)

	// Ownership must be free again for the next source.
	next := &fakeAudio{}
	h.Acquire(next)
	require.NoError(t, next.Play())
	assert.True(t, next.isPlaying())
}

func TestSession_PlayThroughHandlePreemptsClip(t *testing.T) {
	h := &Handle{}
	clip := &fakeAudio{}
	_, err := h.PlayClip(clip)
	require.NoError(t, err)

	st := NewStore(nil)
	el := &fakeAudio{duration: 60}
	s := NewSession(st, el)
	s.AttachHandle(h)
	t.Cleanup(s.Close)

	s.Play()
	assert.False(t, clip.isPlaying())
	assert.True(t, el.isPlaying())
}
