package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/agent"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/llm"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/service"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// Components are the long-lived collaborators shared by the HTTP server and
// the CLI commands.
type Components struct {
	Registry     *tools.Registry
	Orchestrator *agent.Orchestrator // nil when no model is configured
	ModelName    string
	Screener     *security.Screener
	Audit        *security.AuditLogger
	Elastic      *service.ElasticsearchService // nil unless the ES search backend is selected
	BigQuery     *service.BigQueryService      // nil unless audit export is enabled
}

// NewComponents wires the tool catalog, model adapter, search backend and
// audit sink from cfg. Optional dependencies that fail to initialise are
// logged and left disabled.
func NewComponents(ctx context.Context, cfg *config.Config) (*Components, error) {
	c := &Components{
		Screener: security.NewScreener(cfg.MaxMessageLength, cfg.SensitiveKeywords),
		Audit:    security.NewAuditLogger(cfg.EnableAuditLogging),
	}

	httpClient := &http.Client{}

	// ─── Search backend ─────────────────────────────────────────────────────────
	var searcher tools.Searcher = tools.NewDuckDuckGo(httpClient, cfg.SearchBaseURL)
	if cfg.SearchBackend == config.SearchBackendElasticsearch {
		es, err := service.NewElasticsearchService(
			cfg.ElasticsearchScheme,
			cfg.ElasticsearchHost,
			cfg.ElasticsearchPort,
			cfg.ElasticsearchUser,
			cfg.ElasticsearchPassword,
			cfg.ElasticsearchVerifyCerts,
			cfg.ElasticsearchMaxRetries,
			cfg.SearchIndex,
			cfg.SearchFields,
		)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch search backend: %w", err)
		}
		c.Elastic = es
		searcher = es
	}

	// ─── Tools ──────────────────────────────────────────────────────────────────
	reg, err := tools.NewRegistry(tools.Builtin(httpClient, cfg.WeatherBaseURL, searcher)...)
	if err != nil {
		return nil, fmt.Errorf("tool registry: %w", err)
	}
	c.Registry = reg

	// ─── Model ──────────────────────────────────────────────────────────────────
	model, err := llm.New(cfg)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn().Str("provider", cfg.Provider).Msg("no API key for provider - /chat will return 503")
	case err != nil:
		return nil, fmt.Errorf("model adapter: %w", err)
	default:
		c.ModelName = model.Name()
		c.Orchestrator = agent.New(model, tools.NewExecutor(reg, cfg.ToolTimeout), agent.Options{
			SystemPrompt: cfg.SystemPrompt,
			ModelTimeout: cfg.ModelTimeout,
			Parallel:     cfg.ParallelTools,
		})
	}

	// ─── Audit export ───────────────────────────────────────────────────────────
	if cfg.AuditExportEnabled() {
		bq, err := service.NewBigQueryService(ctx, cfg.GCPProjectID, cfg.GoogleApplicationCredentials, cfg.BigQueryLocation, cfg.AuditDataset, cfg.AuditTable)
		if err != nil {
			log.Warn().Err(err).Msg("BigQuery audit export unavailable")
		} else if err := bq.EnsureAuditTable(ctx); err != nil {
			log.Warn().Err(err).Msg("BigQuery audit table unavailable - export disabled")
			bq.Close()
		} else {
			c.BigQuery = bq
			c.Audit.WithSink(bq)
		}
	}

	log.Info().
		Str("model", c.ModelName).
		Str("search_backend", cfg.SearchBackend).
		Int("tools", reg.Len()).
		Bool("parallel_tools", cfg.ParallelTools).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("audit_export", c.BigQuery != nil).
		Msg("service configuration")

	return c, nil
}

// Close flushes pending audit exports and releases clients.
func (c *Components) Close() {
	if c.Audit != nil {
		c.Audit.Close()
	}
	if c.BigQuery != nil {
		if err := c.BigQuery.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing BigQuery client")
		} else {
			log.Info().Msg("BigQuery client closed")
		}
	}
}
