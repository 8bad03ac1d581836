package providers

import (
	"github.com/samber/do/v2"

	"github.com/emots/narrate-server/internal/config"
	"github.com/emots/narrate-server/internal/content"
	"github.com/emots/narrate-server/internal/logger"
	"github.com/emots/narrate-server/internal/service"
	"github.com/emots/narrate-server/internal/storage"
	"github.com/emots/narrate-server/internal/tts"
)

// ProvideContentRepository provides the posts directory repository.
func ProvideContentRepository(i do.Injector) (*content.Repository, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return content.NewRepository(cfg.Content.PostsPath), nil
}

// ProvideTTSClient provides the speech synthesis client.
func ProvideTTSClient(i do.Injector) (*tts.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tts.New(tts.Config{
		APIKey:                   cfg.TTS.APIKey,
		VoiceID:                  cfg.TTS.VoiceID,
		ModelID:                  cfg.TTS.ModelID,
		PronunciationDictID:      cfg.TTS.PronunciationDictID,
		PronunciationDictVersion: cfg.TTS.PronunciationDictVersion,
		Timeout:                  cfg.TTS.RequestTimeout,
	}, log.Logger), nil
}

// ProvideNarrationService provides the narration orchestration service.
func ProvideNarrationService(i do.Injector) (*service.NarrationService, error) {
	posts := do.MustInvoke[*content.Repository](i)
	speech := do.MustInvoke[*tts.Client](i)
	gateway := do.MustInvoke[*storage.Gateway](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNarrationService(
		posts,
		speech,
		gateway,
		indexHandle.TranscriptIndex,
		storeHandle.Store,
		service.ProbeAudioDuration,
		log.Logger,
	), nil
}
