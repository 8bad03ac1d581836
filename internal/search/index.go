// Package search maintains a full-text index over narration transcripts so
// listeners can find the post (and position) where something was said.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// TranscriptIndex wraps a Bleve index over narration transcripts.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects against index corruption during rebuild operations.
type TranscriptIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the transcript index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// NewTranscriptIndex creates or opens the index. An existing index with a
// stale mapping version, or one that fails to open, is removed and recreated;
// callers then reindex from stored narration bundles.
func NewTranscriptIndex(opts Options) (*TranscriptIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "transcripts.bleve")
	versionPath := filepath.Join(opts.DataPath, "transcripts.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("transcript index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("transcript index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0644); writeErr != nil {
			logger.Warn("failed to write index version file", "error", writeErr)
		}
		logger.Info("created new transcript index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing transcript index", "path", indexPath)
	}

	return &TranscriptIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (t *TranscriptIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Close()
}

// IndexTranscript indexes one narration transcript, keyed by slug so a
// regenerated narration replaces its old document.
func (t *TranscriptIndex) IndexTranscript(doc *TranscriptDocument) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Index(doc.Slug, doc.toMap())
}

// DeleteTranscript removes a slug's transcript from the index.
func (t *TranscriptIndex) DeleteTranscript(slug string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Delete(slug)
}

// DocumentCount returns the total number of indexed transcripts.
func (t *TranscriptIndex) DocumentCount() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.DocCount()
}

// Rebuild drops the existing index and creates a fresh empty one. Callers
// reindex all stored narrations afterwards.
//
// This acquires an exclusive lock and blocks all other operations.
func (t *TranscriptIndex) Rebuild() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(t.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(t.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	t.index = index
	t.logger.Info("rebuilt transcript index", "path", t.path)
	return nil
}
