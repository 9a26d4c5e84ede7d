package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/handler"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
)

// NewRouter builds the HTTP routing tree over already constructed components.
func NewRouter(cfg *config.Config, c *Components) http.Handler {
	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - auth is not enforced")
	}

	// ─── Handlers ────────────────────────────────────────────────────────────────
	checkers := map[string]handler.HealthChecker{}
	if cfg.SearchBackend == config.SearchBackendElasticsearch {
		checkers["elasticsearch"] = nil
		if c.Elastic != nil {
			checkers["elasticsearch"] = c.Elastic
		}
	}
	if cfg.AuditExportEnabled() {
		checkers["bigquery"] = nil
		if c.BigQuery != nil {
			checkers["bigquery"] = c.BigQuery
		}
	}
	healthH := handler.NewHealthHandler(c.Orchestrator != nil, checkers)

	var runner handler.Runner
	if c.Orchestrator != nil {
		runner = c.Orchestrator
	}
	chatH := handler.NewChatHandler(runner, c.ModelName, c.Screener, c.Audit, cfg.APIKeyHeader)
	toolsH := handler.NewToolsHandler(c.Registry)
	indexH := handler.NewIndexHandler(cfg.APIPrefix)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		models.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		models.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", indexH.Index)

	api := func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
		if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
			r.Use(middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
		}
		r.Post("/chat", chatH.Chat)
		r.Get("/tools", toolsH.List)
	}
	if cfg.APIPrefix == "" || cfg.APIPrefix == "/" {
		r.Group(api)
	} else {
		r.Route(cfg.APIPrefix, api)
	}

	return r
}
