package providers

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/samber/do/v2"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/storage"
)

// BlobStoreHandle wraps a blob backend with its connection lifecycle.
type BlobStoreHandle struct {
	storage.BlobStore
	nc *nats.Conn
}

// Shutdown implements do.Shutdownable.
func (h *BlobStoreHandle) Shutdown() error {
	if h.nc != nil {
		h.nc.Close()
	}
	return nil
}

// ProvideBlobStore provides the narration artifact blob backend.
// The badger backend shares the KV store; nats uses a JetStream object store
// bucket and owns its connection.
func ProvideBlobStore(i do.Injector) (*BlobStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Storage.Backend {
	case "badger":
		storeHandle := do.MustInvoke[*StoreHandle](i)
		log.Info("Blob storage using local database")
		return &BlobStoreHandle{BlobStore: storage.NewBadgerStore(storeHandle.Store)}, nil

	case "nats":
		nc, err := nats.Connect(cfg.Storage.NATSURL, nats.Name("narrate-server"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to get JetStream context: %w", err)
		}
		blobs, err := storage.NewNATSStore(js, cfg.Storage.NATSBucket)
		if err != nil {
			nc.Close()
			return nil, err
		}
		log.Info("Blob storage using NATS object store",
			"url", cfg.Storage.NATSURL,
			"bucket", cfg.Storage.NATSBucket,
		)
		return &BlobStoreHandle{BlobStore: blobs, nc: nc}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// ProvideGateway provides the narration artifact gateway.
func ProvideGateway(i do.Injector) (*storage.Gateway, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	blobs := do.MustInvoke[*BlobStoreHandle](i)

	return storage.NewGateway(blobs.BlobStore, cfg.Storage.PublicURL, log), nil
}
