// Package tts wraps the ElevenLabs speech synthesis API: timestamped
// text-to-speech for narration generation and voice search for tooling.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/emots/narrate-server/internal/narration"
	"github.com/emots/narrate-server/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_turbo_v2_5"

	// Rate limit: 2 requests per second per voice, burst of 2. Synthesis
	// calls are heavy; concurrent batch generation must not hammer the API.
	defaultRPS   = 2.0
	defaultBurst = 2

	defaultTimeout = 5 * time.Minute
)

// Voice settings for narration synthesis.
const (
	voiceStability       = 0.6
	voiceSimilarityBoost = 0.8
)

// Config holds client configuration.
type Config struct {
	APIKey  string
	VoiceID string
	// ModelID defaults to the turbo model when empty.
	ModelID string
	// PronunciationDictID and PronunciationDictVersion attach a custom
	// pronunciation dictionary to every synthesis request. Both empty
	// disables the dictionary.
	PronunciationDictID      string
	PronunciationDictVersion string
	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string
	Timeout time.Duration
}

// Client is a rate-limited ElevenLabs API client.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// SpeechResult is one synthesized narration: the MP3 bytes and the raw
// per-character alignment as the API returned it. Callers normalize the
// alignment before persisting it.
type SpeechResult struct {
	Audio     []byte
	Alignment narration.Alignment
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`

	PronunciationDictionaryLocators []dictionaryLocator `json:"pronunciation_dictionary_locators,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type dictionaryLocator struct {
	PronunciationDictionaryID string `json:"pronunciation_dictionary_id"`
	VersionID                 string `json:"version_id"`
}

type synthesisResponse struct {
	AudioBase64 string              `json:"audio_base64"`
	Alignment   narration.Alignment `json:"alignment"`
}

// GenerateSpeech synthesizes text with per-character timestamps. The voice
// defaults to the configured one when voiceID is empty.
func (c *Client) GenerateSpeech(ctx context.Context, text, voiceID string) (*SpeechResult, error) {
	if voiceID == "" {
		voiceID = c.cfg.VoiceID
	}

	if err := c.limiter.Wait(ctx, voiceID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload := synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       voiceStability,
			SimilarityBoost: voiceSimilarityBoost,
		},
	}
	if c.cfg.PronunciationDictID != "" {
		payload.PronunciationDictionaryLocators = []dictionaryLocator{{
			PronunciationDictionaryID: c.cfg.PronunciationDictID,
			VersionID:                 c.cfg.PronunciationDictVersion,
		}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", c.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	if c.logger != nil {
		c.logger.Debug("synthesis request",
			"voice", voiceID,
			"chars", len(text),
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The status code and body text drive the caller's retry
		// classification, so both go into the message verbatim.
		return nil, fmt.Errorf("synthesis API error: %d - %s", resp.StatusCode, raw)
	}

	var decoded synthesisResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	return &SpeechResult{
		Audio:     audio,
		Alignment: decoded.Alignment,
	}, nil
}

// Voice is one synthesis voice as returned by voice search.
type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// SearchVoice returns the best match for a free-text voice query, or nil
// when nothing matches.
func (c *Client) SearchVoice(ctx context.Context, query string) (*Voice, error) {
	if err := c.limiter.Wait(ctx, "voices"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(1))

	endpoint := fmt.Sprintf("%s/v2/voices?%s", c.cfg.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voice search API error: %d - %s", resp.StatusCode, body)
	}

	var decoded voicesResponse
	if err := json.UnmarshalRead(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Voices) == 0 {
		return nil, nil
	}
	return &decoded.Voices[0], nil
}
