package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	maxRetries     = 3
	baseRetryDelay = time.Second
)

// retriableFragments are error message substrings that mark an upstream
// failure as transient. The tag and deserialization messages cover the
// provider's known intermittent parse failures on break markers.
var retriableFragments = []string{
	"502",
	"503",
	"Expected closing tag",
	"Deserialization error",
}

func isRetriable(err error) bool {
	msg := err.Error()
	for _, fragment := range retriableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// retryWithBackoff runs fn up to maxRetries+1 times with exponential delay
// (base, 2x base, 4x base). Non-retriable errors abort immediately; context
// cancellation cuts a pending delay short.
func (g *Gateway) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if !isRetriable(lastErr) {
			return lastErr
		}

		delay := g.retryDelay * (1 << attempt)
		g.log.Warn("retrying storage operation",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
