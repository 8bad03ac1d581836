package api

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emots/narrate-server/internal/http/response"
	"github.com/emots/narrate-server/internal/storage"
)

func (s *Server) registerObjectRoutes() {
	// Raw blob serving bypasses huma: audio needs Range support and the
	// paths mirror blob keys rather than a resource hierarchy.
	s.router.Get("/objects/*", s.handleGetObject)
}

// handleGetObject streams a stored narration artifact with HTTP Range support
// for seeking. GET /objects/audio/narration/{slug}/audio.mp3
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		response.BadRequest(w, "Object key is required", s.logger)
		return
	}

	data, err := s.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.NotFound(w, "Object not found", s.logger)
			return
		}
		s.logger.Error("Failed to read object", "error", err, "key", key)
		response.InternalError(w, "Failed to read object", s.logger)
		return
	}

	w.Header().Set("Content-Type", objectContentType(key))
	// Audio URLs carry the content hash as a cache buster, so long cache
	// lifetimes are safe.
	w.Header().Set("Cache-Control", CacheOneWeek)

	// http.ServeContent handles Range requests, Content-Length, and
	// If-Modified-Since. A zero modtime suppresses Last-Modified.
	http.ServeContent(w, r, path.Base(key), time.Time{}, bytes.NewReader(data))
}

func objectContentType(key string) string {
	switch path.Ext(key) {
	case ".mp3":
		return "audio/mpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
