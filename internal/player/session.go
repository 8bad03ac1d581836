package player

import (
	"sync"
	"time"
)

// AudioElement is the playback surface a session drives. Implementations
// wrap whatever actually produces sound; tests use a fake.
type AudioElement interface {
	// Play starts or resumes playback. An error means playback could not
	// start (autoplay refusal, decode failure).
	Play() error
	Pause()
	CurrentTime() float64
	// SeekTo moves the playhead. Values outside [0, Duration] are clamped
	// by the caller, not the element.
	SeekTo(seconds float64)
	Duration() float64
	SetVolume(v float64)
	SetRate(r float64)
}

const defaultTickInterval = 50 * time.Millisecond

// Session binds a store to one audio element. Play and pause are serialized
// behind a mutex so rapid toggling cannot interleave, and the position tick
// loop runs only while playing.
type Session struct {
	store *Store
	audio AudioElement

	tickInterval time.Duration
	handle       *Handle

	mu          sync.Mutex
	stopTick    chan struct{}
	wasPlaying  bool
	scrubActive bool
}

// NewSession creates a session over store and audio. The element is
// immediately synced to the store's persisted volume and rate.
func NewSession(store *Store, audio AudioElement) *Session {
	s := &Session{
		store:        store,
		audio:        audio,
		tickInterval: defaultTickInterval,
	}
	state := store.State()
	s.applyVolume(state)
	audio.SetRate(state.PlaybackRate)
	return s
}

// AttachHandle routes this session's playback through h so it preempts,
// and yields to, other audio sources sharing the handle.
func (s *Session) AttachHandle(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

// Play starts playback. On element failure the state is rolled back to
// paused rather than left claiming playback.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		s.handle.Acquire(s.audio)
	}
	s.store.Dispatch(SetPlaying{Playing: true})
	if err := s.audio.Play(); err != nil {
		s.store.Dispatch(SetPlaying{Playing: false})
		return
	}
	s.startTickLocked()
}

// Pause stops playback and the tick loop.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

func (s *Session) pauseLocked() {
	s.audio.Pause()
	s.store.Dispatch(SetPlaying{Playing: false})
	s.stopTickLocked()
}

// Toggle flips between playing and paused.
func (s *Session) Toggle() {
	if s.store.State().IsPlaying {
		s.Pause()
	} else {
		s.Play()
	}
}

// Skip moves the playhead by seconds, clamped to [0, duration].
func (s *Session) Skip(seconds float64) {
	target := s.audio.CurrentTime() + seconds
	s.seekClamped(target)
}

// SeekFraction moves the playhead to fraction in [0, 1] of the duration.
func (s *Session) SeekFraction(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	s.seekClamped(fraction * s.audio.Duration())
}

func (s *Session) seekClamped(target float64) {
	if target < 0 {
		target = 0
	}
	if d := s.audio.Duration(); target > d {
		target = d
	}
	s.audio.SeekTo(target)
	s.store.Dispatch(SetCurrentTime{Time: target})
}

// BeginScrub pauses playback for the duration of a drag, remembering whether
// it was active so EndScrub can resume.
func (s *Session) BeginScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrubActive {
		return
	}
	s.scrubActive = true
	s.wasPlaying = s.store.State().IsPlaying
	if s.wasPlaying {
		s.pauseLocked()
	}
}

// EndScrub finishes a drag and resumes playback if it was active before.
func (s *Session) EndScrub() {
	s.mu.Lock()
	resume := s.scrubActive && s.wasPlaying
	s.scrubActive = false
	s.wasPlaying = false
	s.mu.Unlock()

	if resume {
		s.Play()
	}
}

// SetVolume updates the preference and pushes the effective volume to the
// element, honoring mute.
func (s *Session) SetVolume(v float64) {
	state := s.store.Dispatch(SetVolume{Volume: v})
	s.applyVolume(state)
}

// SetMuted flips mute without losing the stored volume.
func (s *Session) SetMuted(muted bool) {
	state := s.store.Dispatch(SetMuted{Muted: muted})
	s.applyVolume(state)
}

// SetRate updates the playback rate preference and the element.
func (s *Session) SetRate(rate float64) {
	s.store.Dispatch(SetPlaybackRate{Rate: rate})
	s.audio.SetRate(rate)
}

func (s *Session) applyVolume(state State) {
	if state.IsMuted {
		s.audio.SetVolume(0)
		return
	}
	s.audio.SetVolume(state.Volume)
}

// HandleEnded marks playback finished when the element reaches the end.
func (s *Session) HandleEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Dispatch(SetPlaying{Playing: false})
	s.stopTickLocked()
}

// HandleLoadedMetadata records the decoded duration.
func (s *Session) HandleLoadedMetadata() {
	s.store.Dispatch(SetDuration{Duration: s.audio.Duration()})
}

// Close tears the session down: playback stops, the tick loop exits, and the
// loaded narration is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio.Pause()
	s.stopTickLocked()
	if s.handle != nil {
		s.handle.Release(s.audio)
	}
	s.store.Dispatch(Close{})
}

func (s *Session) startTickLocked() {
	if s.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	s.stopTick = stop

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.store.Dispatch(SetCurrentTime{Time: s.audio.CurrentTime()})
			}
		}
	}()
}

func (s *Session) stopTickLocked() {
	if s.stopTick == nil {
		return
	}
	close(s.stopTick)
	s.stopTick = nil
}
