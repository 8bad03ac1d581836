package tts

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(Config{
		APIKey:                   "test-key",
		VoiceID:                  "voice-default",
		PronunciationDictID:      "dict-1",
		PronunciationDictVersion: "v1",
		BaseURL:                  server.URL,
	}, nil)
	t.Cleanup(c.Close)
	return c
}

func TestGenerateSpeech(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.UnmarshalRead(r.Body, &gotBody))

		resp := map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString([]byte("mp3 bytes")),
			"alignment": map[string]any{
				"characters":                    []string{"H", "i"},
				"character_start_times_seconds": []float64{0, 0.2},
				"character_end_times_seconds":   []float64{0.2, 0.4},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.MarshalWrite(w, resp))
	})

	c := newTestClient(t, handler)
	result, err := c.GenerateSpeech(context.Background(), "Hi", "")
	require.NoError(t, err)

	assert.Equal(t, "/v1/text-to-speech/voice-default/with-timestamps", gotPath)
	assert.Equal(t, "test-key", gotKey)

	assert.Equal(t, "Hi", gotBody["text"])
	assert.Equal(t, "eleven_turbo_v2_5", gotBody["model_id"])
	settings, ok := gotBody["voice_settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.6, settings["stability"])
	assert.Equal(t, 0.8, settings["similarity_boost"])
	locators, ok := gotBody["pronunciation_dictionary_locators"].([]any)
	require.True(t, ok)
	require.Len(t, locators, 1)

	assert.Equal(t, []byte("mp3 bytes"), result.Audio)
	assert.Equal(t, []string{"H", "i"}, result.Alignment.Characters)
	assert.Equal(t, []float64{0, 0.2}, result.Alignment.StartTimes)
}

func TestGenerateSpeech_ExplicitVoiceOverridesDefault(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.MarshalWrite(w, map[string]any{"audio_base64": "", "alignment": map[string]any{}})
	})

	c := newTestClient(t, handler)
	_, err := c.GenerateSpeech(context.Background(), "Hi", "voice-other")
	require.NoError(t, err)
	assert.Equal(t, "/v1/text-to-speech/voice-other/with-timestamps", gotPath)
}

func TestGenerateSpeech_NoDictionaryWhenUnconfigured(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.UnmarshalRead(r.Body, &gotBody))
		_ = json.MarshalWrite(w, map[string]any{"audio_base64": "", "alignment": map[string]any{}})
	}))
	t.Cleanup(server.Close)

	c := New(Config{APIKey: "k", VoiceID: "v", BaseURL: server.URL}, nil)
	t.Cleanup(c.Close)

	_, err := c.GenerateSpeech(context.Background(), "Hi", "")
	require.NoError(t, err)
	_, present := gotBody["pronunciation_dictionary_locators"]
	assert.False(t, present)
}

func TestGenerateSpeech_APIErrorIncludesStatusAndBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("synthesis backend overloaded"))
	})

	c := newTestClient(t, handler)
	_, err := c.GenerateSpeech(context.Background(), "Hi", "")
	require.Error(t, err)
	// Retry classification matches on these fragments.
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "synthesis backend overloaded")
}

func TestGenerateSpeech_BadAudioPayload(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.MarshalWrite(w, map[string]any{"audio_base64": "!!! not base64 !!!", "alignment": map[string]any{}})
	})

	c := newTestClient(t, handler)
	_, err := c.GenerateSpeech(context.Background(), "Hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode audio")
}

func TestSearchVoice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/voices", r.URL.Path)
		assert.Equal(t, "Portuguese Brazilian", r.URL.Query().Get("search"))
		assert.Equal(t, "1", r.URL.Query().Get("page_size"))

		_ = json.MarshalWrite(w, map[string]any{
			"voices": []map[string]any{{"voice_id": "voice-pt", "name": "Camila"}},
		})
	})

	c := newTestClient(t, handler)
	voice, err := c.SearchVoice(context.Background(), "Portuguese Brazilian")
	require.NoError(t, err)
	require.NotNil(t, voice)
	assert.Equal(t, "voice-pt", voice.VoiceID)
	assert.Equal(t, "Camila", voice.Name)
}

func TestSearchVoice_NoMatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.MarshalWrite(w, map[string]any{"voices": []any{}})
	})

	c := newTestClient(t, handler)
	voice, err := c.SearchVoice(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, voice)
}
