package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emots/narrate-server/internal/narration"
)

func TestReduce_Setters(t *testing.T) {
	tests := []struct {
		name  string
		cmd   Command
		check func(t *testing.T, s State)
	}{
		{"playing", SetPlaying{Playing: true}, func(t *testing.T, s State) {
			assert.True(t, s.IsPlaying)
		}},
		{"loading", SetLoading{Loading: true}, func(t *testing.T, s State) {
			assert.True(t, s.IsLoading)
		}},
		{"current time", SetCurrentTime{Time: 12.5}, func(t *testing.T, s State) {
			assert.Equal(t, 12.5, s.CurrentTime)
		}},
		{"duration", SetDuration{Duration: 240}, func(t *testing.T, s State) {
			assert.Equal(t, 240.0, s.Duration)
		}},
		{"volume", SetVolume{Volume: 0.8}, func(t *testing.T, s State) {
			assert.Equal(t, 0.8, s.Volume)
		}},
		{"rate", SetPlaybackRate{Rate: 1.5}, func(t *testing.T, s State) {
			assert.Equal(t, 1.5, s.PlaybackRate)
		}},
		{"muted", SetMuted{Muted: true}, func(t *testing.T, s State) {
			assert.True(t, s.IsMuted)
		}},
		{"follow along", SetFollowAlong{Follow: true}, func(t *testing.T, s State) {
			assert.True(t, s.FollowAlong)
		}},
		{"auto scroll", SetAutoScroll{Scroll: false}, func(t *testing.T, s State) {
			assert.False(t, s.AutoScroll)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Reduce(NewState(), tt.cmd))
		})
	}
}

func TestReduce_LoadNarration(t *testing.T) {
	s := NewState()
	s.IsLoading = true
	s.CurrentTime = 99

	s = Reduce(s, LoadNarration{
		Slug:     "building-a-blog",
		AudioURL: "https://cdn.example.com/audio/narration/building-a-blog/audio.mp3?v=a1b2c3d4",
		Alignment: narration.Alignment{
			Characters: []string{"H", "i"},
			StartTimes: []float64{0, 0.2},
			EndTimes:   []float64{0.2, 0.4},
		},
		Metadata: narration.Metadata{Slug: "building-a-blog", Hash: "a1b2c3d4"},
	})

	assert.True(t, s.IsVisible)
	assert.False(t, s.IsLoading)
	assert.Equal(t, 0.0, s.CurrentTime)
	assert.Equal(t, "building-a-blog", s.Slug)
	require.NotNil(t, s.Alignment)
	assert.Equal(t, 2, s.Alignment.Len())
	require.NotNil(t, s.Metadata)
	assert.Equal(t, "a1b2c3d4", s.Metadata.Hash)
}

func TestReduce_CloseKeepsPreferences(t *testing.T) {
	s := NewState()
	s = Reduce(s, SetVolume{Volume: 0.9})
	s = Reduce(s, SetFollowAlong{Follow: true})
	s = Reduce(s, LoadNarration{Slug: "post", AudioURL: "u"})
	s = Reduce(s, SetPlaying{Playing: true})
	s = Reduce(s, SetCurrentTime{Time: 30})

	s = Reduce(s, Close{})

	assert.False(t, s.IsVisible)
	assert.False(t, s.IsPlaying)
	assert.Equal(t, 0.0, s.CurrentTime)
	assert.Empty(t, s.Slug)
	assert.Empty(t, s.AudioURL)
	assert.Nil(t, s.Alignment)
	assert.Nil(t, s.Metadata)

	// Session state is gone, settings survive.
	assert.Equal(t, 0.9, s.Volume)
	assert.True(t, s.FollowAlong)
}

func TestReduce_IsPure(t *testing.T) {
	before := NewState()
	_ = Reduce(before, SetVolume{Volume: 0.1})
	assert.Equal(t, NewState(), before)
}

func TestStore_PersistsPreferenceChanges(t *testing.T) {
	kv := newMemKV()
	store := NewStore(NewPreferenceStore(kv, nil))

	store.Dispatch(SetVolume{Volume: 0.7})
	assert.Equal(t, 1, kv.writes)

	// Non-preference commands do not touch persistence.
	store.Dispatch(SetCurrentTime{Time: 5})
	store.Dispatch(SetPlaying{Playing: true})
	assert.Equal(t, 1, kv.writes)

	// A fresh store hydrates what was written.
	fresh := NewStore(NewPreferenceStore(kv, nil))
	assert.Equal(t, 0.7, fresh.State().Volume)
}

func TestStore_HydratesOnConstruction(t *testing.T) {
	kv := newMemKV()
	prefs := NewPreferenceStore(kv, nil)
	require.NoError(t, prefs.Save(Preferences{Volume: 0.3, PlaybackRate: 2, FollowAlong: true, AutoScroll: false}))

	store := NewStore(prefs)
	state := store.State()
	assert.Equal(t, 0.3, state.Volume)
	assert.Equal(t, 2.0, state.PlaybackRate)
	assert.True(t, state.FollowAlong)
	assert.False(t, state.AutoScroll)
}
