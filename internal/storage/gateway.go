package storage

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/narration"
)

// Bundle is the persisted metadata.json shape: the normalized alignment next
// to the generation metadata. The audio bytes live in a sibling object.
type Bundle struct {
	Alignment narration.Alignment `json:"alignment"`
	Metadata  narration.Metadata  `json:"metadata"`
}

// Gateway persists and serves narration artifacts through a blob backend.
// Object keys are audio/narration/{slug}/audio.mp3 and
// audio/narration/{slug}/metadata.json; the returned audio URL carries the
// content hash as a cache buster so a regenerated narration is never served
// from a stale cache entry.
type Gateway struct {
	blobs     BlobStore
	publicURL string
	log       *logger.Logger

	retryDelay time.Duration
}

func NewGateway(blobs BlobStore, publicURL string, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Discard()
	}
	return &Gateway{
		blobs:      blobs,
		publicURL:  publicURL,
		log:        log,
		retryDelay: baseRetryDelay,
	}
}

func audioKey(slug string) string {
	return fmt.Sprintf("audio/narration/%s/audio.mp3", slug)
}

func metadataKey(slug string) string {
	return fmt.Sprintf("audio/narration/%s/metadata.json", slug)
}

// Upload stores the audio and its metadata bundle for a slug, retrying
// transient failures, and returns the public audio URL. Both objects are
// written in the same retry attempt so a retried upload never leaves the
// pair half refreshed.
func (g *Gateway) Upload(ctx context.Context, slug string, audio []byte, alignment narration.Alignment, metadata narration.Metadata) (string, error) {
	bundle, err := json.Marshal(Bundle{Alignment: alignment, Metadata: metadata})
	if err != nil {
		return "", fmt.Errorf("failed to marshal narration bundle: %w", err)
	}

	err = g.retryWithBackoff(ctx, func() error {
		var wg sync.WaitGroup
		errs := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = g.blobs.Put(ctx, audioKey(slug), audio, "audio/mpeg")
		}()
		go func() {
			defer wg.Done()
			errs[1] = g.blobs.Put(ctx, metadataKey(slug), bundle, "application/json")
		}()
		wg.Wait()

		return errors.Join(errs...)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload narration for %q: %w", slug, err)
	}

	return g.publicURL + "/" + audioKey(slug), nil
}

// Fetch loads a slug's narration bundle. A slug with no stored narration
// returns narration.ErrNotFound; backend failures are reported as errors
// rather than being folded into not-found.
func (g *Gateway) Fetch(ctx context.Context, slug string) (*narration.Data, error) {
	raw, err := g.blobs.Get(ctx, metadataKey(slug))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, narration.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch narration for %q: %w", slug, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode narration bundle for %q: %w", slug, err)
	}

	return &narration.Data{
		AudioURL:  fmt.Sprintf("%s/%s?v=%s", g.publicURL, audioKey(slug), bundle.Metadata.Hash),
		Alignment: bundle.Alignment,
		Metadata:  bundle.Metadata,
	}, nil
}

// Exists reports whether a narration has been generated for slug. Backend
// failures read as absent; callers use this only as a generation hint.
func (g *Gateway) Exists(ctx context.Context, slug string) bool {
	ok, err := g.blobs.Head(ctx, metadataKey(slug))
	if err != nil {
		g.log.Warn("narration existence check failed", "slug", slug, "error", err)
		return false
	}
	return ok
}
