package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/service"
	"github.com/emots/narrate-server/internal/watcher"
)

// ContentWatcherHandle wraps the posts watcher with shutdown capability.
// The wrapped watcher is nil when staleness watching is disabled.
type ContentWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ContentWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideContentWatcher provides the posts directory watcher. Settled .mdx
// changes mark the slug's narration stale; generation stays an explicit
// maintenance action.
func ProvideContentWatcher(i do.Injector) (*ContentWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	posts := do.MustInvoke[*content.Repository](i)
	svc := do.MustInvoke[*service.NarrationService](i)

	if !cfg.Watcher.Enabled {
		log.Info("Content watcher disabled")
		return &ContentWatcherHandle{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	onChange := func(path string) {
		slug := posts.SlugForPath(path)
		if slug == "" {
			return
		}
		svc.NoteSourceChanged(ctx, slug)
	}

	w, err := watcher.New(cfg.Content.PostsPath, watcher.Options{SettleDelay: cfg.Watcher.Debounce}, onChange, log.Logger)
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Content watcher error", "error", err)
		}
	}()

	log.Info("Content watcher started", "path", cfg.Content.PostsPath)

	return &ContentWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
