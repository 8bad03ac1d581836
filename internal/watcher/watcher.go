// Package watcher monitors the posts directory and reports post sources
// that changed, with debouncing so editors that write in bursts produce one
// notification per file.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettleDelay = 500 * time.Millisecond

// Options configures the watcher.
type Options struct {
	// SettleDelay is how long a file must stay quiet before its change is
	// reported. Editors and sync tools write files in bursts.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = defaultSettleDelay
	}
}

// Watcher reports settled changes to post sources under one directory.
type Watcher struct {
	dir      string
	opts     Options
	onChange func(path string)
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer

	wg sync.WaitGroup
}

// New creates a watcher over dir. onChange is called with the changed file's
// path after its writes settle; it runs on a timer goroutine and must not
// block for long.
func New(dir string, opts Options, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	opts.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Clean(dir)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		opts:     opts,
		onChange: onChange,
		logger:   logger,
		watcher:  fsw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start processes events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	w.logger.Info("watching posts directory", "dir", w.dir)
	<-ctx.Done()
	return nil
}

// Stop releases resources and cancels pending notifications.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()

	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !relevant(event) {
		return
	}

	path := filepath.Clean(event.Name)
	w.logger.Debug("source event", "op", event.Op.String(), "path", path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Reset(w.opts.SettleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.SettleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.onChange(path)
	})
}

// relevant filters to content writes on post sources. Chmod-only events and
// editor temp files never settle into a notification.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == ".mdx"
}
