package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/search"
	"github.com/emots/narrate-server/internal/service"
)

// SearchIndexHandle wraps the transcript index with shutdown capability.
type SearchIndexHandle struct {
	*search.TranscriptIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve transcript index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewTranscriptIndex(search.Options{
		DataPath: cfg.App.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Transcript index initialized", "documents", docCount)

	return &SearchIndexHandle{TranscriptIndex: index}, nil
}

// TriggerReindexIfNeeded rebuilds the transcript index from stored narration
// bundles when the index is empty but narrations exist. Should be called
// after all services are wired.
func TriggerReindexIfNeeded(i do.Injector) {
	svc := do.MustInvoke[*service.NarrationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, err := svc.TranscriptCount()
	if err != nil || docCount > 0 {
		return
	}

	go func() {
		indexed, err := svc.ReindexAll(context.Background())
		if err != nil {
			log.Error("Initial transcript reindex failed", "error", err)
			return
		}
		if indexed > 0 {
			log.Info("Initial transcript reindex completed", "documents", indexed)
		}
	}()
}
