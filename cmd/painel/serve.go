package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/config"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/handlers"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/middleware"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/observability"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/server"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/ui/templates"
)

const (
	renderTimeout        = 10 * time.Second
	rateLimiterSweep     = time.Minute
	dashboardCacheMaxAge = "no-cache"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Load the feed once and serve the dashboard page, the JSON API and the
datastar SSE endpoints until interrupted.`,
		RunE: runServe,
	}

	cmd.Flags().String("host", "localhost", "listen host")
	cmd.Flags().Int("port", 8084, "listen port")

	return cmd
}

// dashboardHandler renders the page for an empty filter; the browser then
// drives every update over SSE.
func dashboardHandler(analytics *services.Analytics, narrative *services.NarrativeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Cache-Control", dashboardCacheMaxAge)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		page := templates.Dashboard(analytics.Dashboard(models.FilterState{}), narrative.Enabled())
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := bindFlags(cmd.Flags(), map[string]string{
		"SERVER_HOST": "host",
		"SERVER_PORT": "port",
	}); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"addr", cfg.Address(),
		"source", cfg.Feed.Source,
	)

	analytics, err := loadAnalytics(ctx, cfg, logger)
	if err != nil {
		return err
	}
	narrative := newNarrativeService(ctx, cfg.Narrative, logger)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, narrative),
	}

	srv := server.NewServer(analytics, narrative, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go rateLimiter.Cleanup(ctx, rateLimiterSweep)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.CSRF(cfg.Security, logger),
		middleware.RateLimit(rateLimiter, logger, "/health"),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("application stopped gracefully")
	return nil
}

// loadAnalytics reads the configured feed into a fresh record store. Feed
// problems never fail the command: the loader falls back to sample data.
func loadAnalytics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.Analytics, error) {
	source, err := services.NewSource(cfg.Feed.Source, services.SourceOptions{
		GoogleAPIKey: cfg.Feed.GoogleAPIKey,
		HTTPClient:   &http.Client{Timeout: cfg.Feed.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid feed source: %w", err)
	}

	loader := services.NewLoader(source, services.LoaderConfig{
		CacheDir:   cfg.Feed.CacheDir,
		SampleSize: cfg.Feed.SampleSize,
		SampleYear: cfg.Feed.SampleYear,
	}, logger)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Feed.Timeout)
	defer cancel()

	loadCtx, span := observability.StartSpan(loadCtx, "feed.load")
	span.SetTag("feed.source", source.Name())

	analytics := services.NewAnalytics()
	result := analytics.Load(loadCtx, loader)
	if result.Fallback {
		span.SetError(fmt.Errorf("feed unavailable, serving sample data"))
	}
	span.End(loadCtx, logger)

	logger.Info("feed loaded",
		"records", result.Records,
		"fallback", result.Fallback,
		"from_cache", result.FromCache,
		"duration", result.Duration,
	)
	return analytics, nil
}

// newNarrativeService wires the Gemini generator when an API key is set.
// Without one the service answers with the not-configured message.
func newNarrativeService(ctx context.Context, cfg config.NarrativeConfig, logger *slog.Logger) *services.NarrativeService {
	var generator services.TextGenerator
	if cfg.APIKey != "" {
		gemini, err := services.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			logger.Warn("narrative disabled", "error", err)
		} else {
			generator = gemini
		}
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	return services.NewNarrativeService(generator, limiter, cfg.Timeout, logger)
}
