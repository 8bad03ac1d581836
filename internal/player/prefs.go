package player

import (
	"encoding/json/v2"
	"log/slog"

	"github.com/emots/narrate-server/internal/logger"
)

const (
	preferencesKey     = "narration/preferences"
	preferencesVersion = 1
)

// KV is the small persistence surface preferences need. The key-value store
// wrapper satisfies it; tests use an in-memory map.
type KV interface {
	// Get returns the stored value, or (nil, nil) when the key is absent.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// storedPreferences is the persisted shape. Fields are pointers so a payload
// written by an older build that lacks a field falls back to its default
// instead of a zero value.
type storedPreferences struct {
	V            int      `json:"v"`
	Volume       *float64 `json:"volume,omitempty"`
	PlaybackRate *float64 `json:"playbackRate,omitempty"`
	FollowAlong  *bool    `json:"followAlong,omitempty"`
	AutoScroll   *bool    `json:"autoScroll,omitempty"`
}

// PreferenceStore persists playback preferences as a small versioned JSON
// document. Any load failure degrades to defaults; the document is rewritten
// on the next preference change.
type PreferenceStore struct {
	kv  KV
	log *logger.Logger
}

func NewPreferenceStore(kv KV, log *logger.Logger) *PreferenceStore {
	if log == nil {
		log = logger.Discard()
	}
	return &PreferenceStore{kv: kv, log: log}
}

// Load reads persisted preferences. Missing key, unreadable payload, or a
// version mismatch all return defaults.
func (p *PreferenceStore) Load() Preferences {
	defaults := DefaultPreferences()

	raw, err := p.kv.Get(preferencesKey)
	if err != nil {
		p.log.Warn("read preferences", slog.String("error", err.Error()))
		return defaults
	}
	if raw == nil {
		return defaults
	}

	var stored storedPreferences
	if err := json.Unmarshal(raw, &stored); err != nil {
		p.log.Warn("decode preferences", slog.String("error", err.Error()))
		return defaults
	}
	if stored.V != preferencesVersion {
		return defaults
	}

	prefs := defaults
	if stored.Volume != nil {
		prefs.Volume = *stored.Volume
	}
	if stored.PlaybackRate != nil {
		prefs.PlaybackRate = *stored.PlaybackRate
	}
	if stored.FollowAlong != nil {
		prefs.FollowAlong = *stored.FollowAlong
	}
	if stored.AutoScroll != nil {
		prefs.AutoScroll = *stored.AutoScroll
	}
	return prefs
}

// Save writes the current preferences under the current version.
func (p *PreferenceStore) Save(prefs Preferences) error {
	stored := storedPreferences{
		V:            preferencesVersion,
		Volume:       &prefs.Volume,
		PlaybackRate: &prefs.PlaybackRate,
		FollowAlong:  &prefs.FollowAlong,
		AutoScroll:   &prefs.AutoScroll,
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := p.kv.Set(preferencesKey, raw); err != nil {
		p.log.Warn("write preferences", slog.String("error", err.Error()))
		return err
	}
	return nil
}
