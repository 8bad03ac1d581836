package storage

import (
	"context"
	"fmt"

	"github.com/emots/narrate-server/internal/store"
)

const blobKeyPrefix = "blob:"

// BadgerStore keeps blobs in the local Badger database. The content type is
// not recorded; local serving infers it from the key extension.
type BadgerStore struct {
	kv *store.Store
}

func NewBadgerStore(kv *store.Store) *BadgerStore {
	return &BadgerStore{kv: kv}
}

func (b *BadgerStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if err := b.kv.Set(blobKeyPrefix+key, data); err != nil {
		return fmt.Errorf("failed to store blob %q: %w", key, err)
	}
	return nil
}

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := b.kv.Get(blobKeyPrefix + key)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	if data == nil {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func (b *BadgerStore) Head(_ context.Context, key string) (bool, error) {
	return b.kv.Exists(blobKeyPrefix + key)
}
