package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore keeps blobs in a JetStream object store bucket, for deployments
// where generation and serving run on different hosts.
type NATSStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNATSStore binds to bucketName, creating it when absent.
func NewNATSStore(js nats.JetStreamContext, bucketName string) (*NATSStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Narration artifacts for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket %q: %w", bucketName, err)
		}
		store, err = js.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket %q: %w", bucketName, err)
		}
	}

	return &NATSStore{bucket: bucketName, store: store}, nil
}

func (n *NATSStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	meta := &nats.ObjectMeta{Name: key}
	if contentType != "" {
		meta.Headers = nats.Header{"Content-Type": []string{contentType}}
	}

	if _, err := n.store.Put(meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to put object %q to bucket %q: %w", key, n.bucket, err)
	}
	return nil
}

func (n *NATSStore) Get(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close object %q: %w", key, closeErr)
	}
	return data, nil
}

func (n *NATSStore) Head(_ context.Context, key string) (bool, error) {
	_, err := n.store.GetInfo(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %q in bucket %q: %w", key, n.bucket, err)
	}
	return true, nil
}
