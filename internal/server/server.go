// Package server exposes the HTTP API: context profile CRUD, prompt
// enhancement, and the image/video generation pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/promptforge/promptforge/internal/assets"
	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/enhance"
	"github.com/promptforge/promptforge/internal/media"
	"github.com/promptforge/promptforge/internal/profile"
)

// ImageGenerator produces an image for a prompt. *media.ImageClient is the
// production implementation.
type ImageGenerator interface {
	Generate(ctx context.Context, req media.ImageRequest) (media.ImageResult, error)
}

// VideoGenerator produces a video for a prompt. *media.VideoClient is the
// production implementation.
type VideoGenerator interface {
	Generate(ctx context.Context, req media.VideoRequest) (media.VideoResult, error)
}

// FileSaver persists a remote file locally. *assets.Saver is the production
// implementation.
type FileSaver interface {
	DownloadAndSave(ctx context.Context, fileURL, fileName, folder string) (assets.SavedFile, error)
}

// Server wires the stores and clients behind the HTTP routes.
type Server struct {
	store    *profile.Store
	enhancer *enhance.Enhancer
	images   ImageGenerator
	videos   VideoGenerator
	saver    FileSaver
	cfg      config.Config
	log      *zap.SugaredLogger
}

// New builds a Server. A nil logger is replaced with a no-op logger.
func New(store *profile.Store, enhancer *enhance.Enhancer, images ImageGenerator, videos VideoGenerator, saver FileSaver, cfg config.Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		store:    store,
		enhancer: enhancer,
		images:   images,
		videos:   videos,
		saver:    saver,
		cfg:      cfg,
		log:      log,
	}
}

// Router assembles the chi router with middleware and every API route.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/context-profiles", func(r chi.Router) {
		r.Get("/", s.handleListProfiles)
		r.Post("/", s.handleCreateProfile)
		r.Get("/{id}", s.handleGetProfile)
		r.Put("/{id}", s.handleUpdateProfile)
		r.Delete("/{id}", s.handleDeleteProfile)
		r.Post("/{id}/apply", s.handleApplyProfile)
		r.Post("/{id}/score", s.handleScoreProfile)
		r.Post("/{id}/success", s.handleRecordSuccess)
	})

	r.Post("/api/enhance", s.handleEnhance)
	r.Post("/api/generate-image", s.handleGenerateImage)
	r.Post("/api/generate-video", s.handleGenerateVideo)
	r.Post("/api/generate-complete", s.handleGenerateComplete)

	// Generated assets are served straight off disk.
	fileServer := http.StripPrefix("/", http.FileServer(http.Dir(s.cfg.AssetsDir)))
	r.Get("/images/*", fileServer.ServeHTTP)
	r.Get("/videos/*", fileServer.ServeHTTP)

	return r
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "promptforge",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
