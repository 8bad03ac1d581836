// Package api provides the HTTP API server and handlers for the narration backend.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/emots/narrate-server/internal/service"
	"github.com/emots/narrate-server/internal/storage"
	"github.com/emots/narrate-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     *store.Store
	narration *service.NarrationService
	blobs     storage.BlobStore
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// AllowedOrigins feeds the CORS policy; the narration endpoints are consumed
// directly by blog frontends on other origins.
func NewServer(st *store.Store, narration *service.NarrationService, blobs storage.BlobStore, allowedOrigins []string, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Length", "Content-Range", "Accept-Ranges"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("Narrate API", "1.0.0")
	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:     st,
		narration: narration,
		blobs:     blobs,
		router:    router,
		api:       humaAPI,
		logger:    logger,
	}

	s.registerHealthRoutes()
	s.registerNarrationRoutes()
	s.registerSearchRoutes()
	s.registerObjectRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
