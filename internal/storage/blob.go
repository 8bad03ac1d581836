// Package storage persists narration artifacts. A Gateway composes a blob
// backend with the bucket key layout, public URL construction, and the retry
// policy for flaky upstreams. Backends exist for Badger (local single-node
// deployments) and NATS JetStream object storage.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get for keys with no stored object.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is one object storage backend.
type BlobStore interface {
	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get retrieves an object, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Head reports whether an object exists without fetching it.
	Head(ctx context.Context, key string) (bool, error)
}
