// Package main provides the narration generation tool.
//
// It synthesizes narration audio for blog posts and stores the audio plus
// per-character alignment data. Posts whose narrated text is unchanged since
// the last run are skipped.
//
// Usage:
//
//	go run ./cmd/generate                   # all posts
//	go run ./cmd/generate my-post-slug     # specific posts
//	go run ./cmd/generate --force          # regenerate even when unchanged
//	go run ./cmd/generate --stale          # only posts the watcher flagged
//	go run ./cmd/generate --reindex        # rebuild the transcript index
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/search"
	"github.com/emots/narrate-server/internal/service"
	"github.com/emots/narrate-server/internal/storage"
	"github.com/emots/narrate-server/internal/store"
	"github.com/emots/narrate-server/internal/tts"
)

var (
	force   = flag.Bool("force", false, "Regenerate even when the narrated text is unchanged")
	stale   = flag.Bool("stale", false, "Only regenerate posts flagged stale by the watcher")
	reindex = flag.Bool("reindex", false, "Rebuild the transcript search index from stored narrations")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	st, err := store.New(filepath.Join(cfg.App.DataPath, "db"), logg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	index, err := search.NewTranscriptIndex(search.Options{
		DataPath: cfg.App.DataPath,
		Logger:   logg.Logger,
	})
	if err != nil {
		log.Fatalf("Failed to open transcript index: %v", err)
	}
	defer index.Close()

	blobs, closeBlobs, err := openBlobStore(cfg, st)
	if err != nil {
		log.Fatalf("Failed to open blob storage: %v", err)
	}
	defer closeBlobs()

	gateway := storage.NewGateway(blobs, cfg.Storage.PublicURL, logg)
	speech := tts.New(tts.Config{
		APIKey:                   cfg.TTS.APIKey,
		VoiceID:                  cfg.TTS.VoiceID,
		ModelID:                  cfg.TTS.ModelID,
		PronunciationDictID:      cfg.TTS.PronunciationDictID,
		PronunciationDictVersion: cfg.TTS.PronunciationDictVersion,
		Timeout:                  cfg.TTS.RequestTimeout,
	}, logg.Logger)
	posts := content.NewRepository(cfg.Content.PostsPath)

	svc := service.NewNarrationService(posts, speech, gateway, index, st, service.ProbeAudioDuration, logg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *reindex {
		count, err := svc.ReindexAll(ctx)
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		fmt.Printf("Reindexed %d transcripts\n", count)
		return
	}

	results := run(ctx, svc)

	var succeeded, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case store.RunSucceeded:
			succeeded++
			fmt.Printf("  %-40s generated  %6.1fs  %s\n", r.Slug, r.Duration, r.AudioURL)
		case store.RunSkipped:
			skipped++
			fmt.Printf("  %-40s unchanged\n", r.Slug)
		default:
			failed++
			fmt.Printf("  %-40s FAILED: %s\n", r.Slug, r.Error)
		}
	}

	fmt.Printf("\n%d generated, %d unchanged, %d failed\n", succeeded, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// run dispatches to the selected generation mode and normalizes the output
// to one result per attempted slug.
func run(ctx context.Context, svc *service.NarrationService) []*service.GenerationResult {
	switch {
	case flag.NArg() > 0:
		results := make([]*service.GenerationResult, 0, flag.NArg())
		for _, slug := range flag.Args() {
			result, err := svc.Generate(ctx, slug, *force)
			if err != nil {
				results = append(results, &service.GenerationResult{
					Slug:   slug,
					Status: store.RunFailed,
					Error:  err.Error(),
				})
				continue
			}
			results = append(results, result)
		}
		return results

	case *stale:
		results, err := svc.GenerateStale(ctx)
		if err != nil {
			log.Fatalf("Failed to list stale posts: %v", err)
		}
		if len(results) == 0 {
			fmt.Println("No stale narrations")
		}
		return results

	default:
		results, err := svc.GenerateAll(ctx, *force)
		if err != nil {
			log.Fatalf("Failed to list posts: %v", err)
		}
		return results
	}
}

// openBlobStore builds the configured blob backend. The returned func
// releases any connection it owns.
func openBlobStore(cfg *config.Config, st *store.Store) (storage.BlobStore, func(), error) {
	switch cfg.Storage.Backend {
	case "badger":
		return storage.NewBadgerStore(st), func() {}, nil

	case "nats":
		nc, err := nats.Connect(cfg.Storage.NATSURL, nats.Name("narrate-generate"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
		}
		blobs, err := storage.NewNATSStore(js, cfg.Storage.NATSBucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return blobs, nc.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
