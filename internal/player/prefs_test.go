package player

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memKV is an in-memory KV for tests.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
	getErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.writes++
	return nil
}

func TestPreferences_RoundTrip(t *testing.T) {
	kv := newMemKV()
	store := NewPreferenceStore(kv, nil)

	want := Preferences{Volume: 0.8, PlaybackRate: 1.25, FollowAlong: true, AutoScroll: false}
	require.NoError(t, store.Save(want))

	assert.Equal(t, want, store.Load())
}

func TestPreferences_MissingKeyGivesDefaults(t *testing.T) {
	store := NewPreferenceStore(newMemKV(), nil)
	assert.Equal(t, DefaultPreferences(), store.Load())
}

func TestPreferences_VersionMismatchGivesDefaults(t *testing.T) {
	kv := newMemKV()
	kv.data[preferencesKey] = []byte(`{"v":99,"volume":0.9}`)

	store := NewPreferenceStore(kv, nil)
	assert.Equal(t, DefaultPreferences(), store.Load())
}

func TestPreferences_CorruptPayloadGivesDefaults(t *testing.T) {
	kv := newMemKV()
	kv.data[preferencesKey] = []byte(`{not json`)

	store := NewPreferenceStore(kv, nil)
	assert.Equal(t, DefaultPreferences(), store.Load())
}

func TestPreferences_ReadErrorGivesDefaults(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk gone")

	store := NewPreferenceStore(kv, nil)
	assert.Equal(t, DefaultPreferences(), store.Load())
}

func TestPreferences_PartialPayloadFillsDefaults(t *testing.T) {
	kv := newMemKV()
	kv.data[preferencesKey] = []byte(`{"v":1,"volume":0.9}`)

	store := NewPreferenceStore(kv, nil)
	got := store.Load()

	assert.Equal(t, 0.9, got.Volume)
	assert.Equal(t, DefaultPreferences().PlaybackRate, got.PlaybackRate)
	assert.Equal(t, DefaultPreferences().FollowAlong, got.FollowAlong)
	assert.Equal(t, DefaultPreferences().AutoScroll, got.AutoScroll)
}
