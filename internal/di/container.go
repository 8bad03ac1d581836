// Package di provides dependency injection configuration for the narration server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/di/providers"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/service"
	"github.com/emots/narrate-server/internal/storage"
	"github.com/emots/narrate-server/internal/tts"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Storage layer
	do.Provide(injector, providers.ProvideBlobStore)
	do.Provide(injector, providers.ProvideGateway)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Content and synthesis
	do.Provide(injector, providers.ProvideContentRepository)
	do.Provide(injector, providers.ProvideTTSClient)

	// Business services
	do.Provide(injector, providers.ProvideNarrationService)

	// Workers
	do.Provide(injector, providers.ProvideContentWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.BlobStoreHandle](injector)
	_ = do.MustInvoke[*storage.Gateway](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*content.Repository](injector)
	_ = do.MustInvoke[*tts.Client](injector)
	_ = do.MustInvoke[*service.NarrationService](injector)
	_ = do.MustInvoke[*providers.ContentWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the transcript index if it is empty but narrations exist
	providers.TriggerReindexIfNeeded(injector)

	return nil
}
