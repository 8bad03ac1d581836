// Package player holds the playback state machine and audio session
// controller for narration. State transitions are a pure reducer over a
// command union; the Store serializes dispatches and persists preference
// changes; the Session drives an abstract audio element and owns the
// position tick loop.
package player

import (
	"sync"

	"github.com/emots/narrate-server/internal/narration"
)

// Preferences are the user-tunable playback settings that survive sessions.
type Preferences struct {
	Volume       float64 `json:"volume"`
	PlaybackRate float64 `json:"playbackRate"`
	FollowAlong  bool    `json:"followAlong"`
	AutoScroll   bool    `json:"autoScroll"`
}

// DefaultPreferences returns the out-of-the-box settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Volume:       0.5,
		PlaybackRate: 1,
		FollowAlong:  false,
		AutoScroll:   true,
	}
}

// State is the complete playback state for one narration session.
type State struct {
	Preferences

	IsPlaying   bool
	IsLoading   bool
	CurrentTime float64
	Duration    float64
	IsMuted     bool
	IsVisible   bool

	Slug      string
	AudioURL  string
	Alignment *narration.Alignment
	Metadata  *narration.Metadata
}

// NewState returns the initial state: player hidden, nothing loaded,
// default preferences.
func NewState() State {
	return State{Preferences: DefaultPreferences()}
}

// Command is one playback state transition.
type Command interface{ isCommand() }

type SetPlaying struct{ Playing bool }
type SetLoading struct{ Loading bool }
type SetCurrentTime struct{ Time float64 }
type SetDuration struct{ Duration float64 }
type SetVolume struct{ Volume float64 }
type SetPlaybackRate struct{ Rate float64 }
type SetMuted struct{ Muted bool }
type SetVisible struct{ Visible bool }
type SetFollowAlong struct{ Follow bool }
type SetAutoScroll struct{ Scroll bool }

// LoadNarration installs a fetched narration bundle and shows the player.
type LoadNarration struct {
	Slug      string
	AudioURL  string
	Alignment narration.Alignment
	Metadata  narration.Metadata
}

// Close hides the player and drops the loaded narration. Preferences are
// kept.
type Close struct{}

// HydratePreferences overlays persisted preferences onto the state.
type HydratePreferences struct{ Preferences }

func (SetPlaying) isCommand()         {}
func (SetLoading) isCommand()         {}
func (SetCurrentTime) isCommand()     {}
func (SetDuration) isCommand()        {}
func (SetVolume) isCommand()          {}
func (SetPlaybackRate) isCommand()    {}
func (SetMuted) isCommand()           {}
func (SetVisible) isCommand()         {}
func (SetFollowAlong) isCommand()     {}
func (SetAutoScroll) isCommand()      {}
func (LoadNarration) isCommand()      {}
func (Close) isCommand()              {}
func (HydratePreferences) isCommand() {}

// Reduce applies one command to a state and returns the next state. Pure:
// no I/O, no clock, no mutation of the input.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case SetPlaying:
		s.IsPlaying = c.Playing
	case SetLoading:
		s.IsLoading = c.Loading
	case SetCurrentTime:
		s.CurrentTime = c.Time
	case SetDuration:
		s.Duration = c.Duration
	case SetVolume:
		s.Volume = c.Volume
	case SetPlaybackRate:
		s.PlaybackRate = c.Rate
	case SetMuted:
		s.IsMuted = c.Muted
	case SetVisible:
		s.IsVisible = c.Visible
	case SetFollowAlong:
		s.FollowAlong = c.Follow
	case SetAutoScroll:
		s.AutoScroll = c.Scroll
	case LoadNarration:
		alignment := c.Alignment
		metadata := c.Metadata
		s.Slug = c.Slug
		s.AudioURL = c.AudioURL
		s.Alignment = &alignment
		s.Metadata = &metadata
		s.IsVisible = true
		s.IsLoading = false
		s.CurrentTime = 0
	case Close:
		s.IsVisible = false
		s.IsPlaying = false
		s.CurrentTime = 0
		s.Slug = ""
		s.AudioURL = ""
		s.Alignment = nil
		s.Metadata = nil
	case HydratePreferences:
		s.Preferences = c.Preferences
	}
	return s
}

// Store serializes command dispatch over a single State and writes
// preference changes through to the preference store when one is attached.
type Store struct {
	mu    sync.RWMutex
	state State
	prefs *PreferenceStore
}

// NewStore creates a store. When prefs is non-nil, persisted preferences
// are hydrated immediately and every preference change is written back.
func NewStore(prefs *PreferenceStore) *Store {
	s := &Store{state: NewState(), prefs: prefs}
	if prefs != nil {
		s.state = Reduce(s.state, HydratePreferences{prefs.Load()})
	}
	return s
}

// Dispatch applies cmd and returns the resulting state.
func (s *Store) Dispatch(cmd Command) State {
	s.mu.Lock()
	prev := s.state.Preferences
	s.state = Reduce(s.state, cmd)
	next := s.state
	s.mu.Unlock()

	if s.prefs != nil && next.Preferences != prev {
		// Persistence failures are non-fatal; the session keeps its
		// in-memory settings.
		_ = s.prefs.Save(next.Preferences)
	}
	return next
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
