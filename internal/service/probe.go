package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/simonhull/audiometa"
)

// DurationProbe measures the real duration of encoded audio.
type DurationProbe func(ctx context.Context, audio []byte) (time.Duration, error)

// ProbeAudioDuration decodes audio metadata to measure duration. The decoder
// operates on files, so the bytes take a round trip through a temp file.
func ProbeAudioDuration(ctx context.Context, audio []byte) (time.Duration, error) {
	tmp, err := os.CreateTemp("", "narration-*.mp3")
	if err != nil {
		return 0, fmt.Errorf("create temp audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp audio file: %w", err)
	}

	file, err := audiometa.OpenContext(ctx, tmp.Name())
	if err != nil {
		return 0, fmt.Errorf("probe audio: %w", err)
	}
	defer file.Close()

	return file.Audio.Duration, nil
}
