package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scaleworks/docquery/internal/api"
	"github.com/scaleworks/docquery/internal/api/handlers"
	"github.com/scaleworks/docquery/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator        middleware.AuthValidator
	KnowledgeBaseHandler *handlers.KnowledgeBaseHandler
	QueryHandler         *handlers.QueryHandler
	SessionHandler       *handlers.SessionHandler
	AuthHandler          *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/documents", cfg.KnowledgeBaseHandler.Ingest)

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Get("/", cfg.KnowledgeBaseHandler.List)
			r.Delete("/{id}", cfg.KnowledgeBaseHandler.Delete)
		})

		r.Post("/query", cfg.QueryHandler.Query)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/documents", cfg.SessionHandler.AttachDocuments)
			r.Post("/query", cfg.SessionHandler.Query)
		})
	})

	r.Post("/owners", cfg.AuthHandler.CreateOwner)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
