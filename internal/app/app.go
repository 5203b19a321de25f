package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/config"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/infrastructure"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/marketdata"
	custommw "github.com/neilchentw7/alpha-beta-dashboard/internal/middleware"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/services"
	handlers "github.com/neilchentw7/alpha-beta-dashboard/internal/transport/http"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Application is the composition root: it owns the configuration, the
// shared logger, the telemetry pipeline, and the HTTP server.
type Application struct {
	Config    *config.Config
	Router    *chi.Mux
	Server    *http.Server
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry

	riskService    *services.RiskService
	returnsService *services.ReturnsService
	healthService  *services.HealthService
}

// NewApplication loads configuration and wires every component together.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	telemetry, err := infrastructure.InitializeTelemetry(Version)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	store := returns.NewCSVStore(cfg.ReturnsPath(), logger)

	provider := marketdata.NewCachedProvider(
		marketdata.NewHTTPProvider(marketdata.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			Symbol:  cfg.Provider.Symbol,
			Timeout: cfg.Provider.Timeout,
			RPS:     cfg.Provider.RPS,
			Burst:   cfg.Provider.Burst,
		}, logger),
		cfg.Provider.CacheTTL,
	)

	riskService, err := services.NewRiskService(store, provider, risk.Config{
		Window:         cfg.Risk.Window,
		AlertThreshold: cfg.Risk.AlertThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create risk service: %w", err)
	}

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		Telemetry:      telemetry,
		riskService:    riskService,
		returnsService: services.NewReturnsService(store, logger),
		healthService:  services.NewHealthService(Version, logger),
	}
	app.setupRouter()

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter configures the HTTP router with middleware and routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)
		r.Use(custommw.Compress(5))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			handlers.NewRiskHandler(a.riskService, a.Logger).RegisterRoutes(r)
			handlers.NewReturnsHandler(a.returnsService, a.Logger).RegisterRoutes(r)
			handlers.NewHealthHandler(a.healthService, a.Logger).RegisterRoutes(r)
		})
	})

	// Scrape endpoint stays outside the logging group; Prometheus polls it
	// constantly.
	r.Handle("/metrics", a.Telemetry.PrometheusHTTP)

	a.Router = r
}

// Start begins serving. Server errors cancel the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("returns_file", a.Config.ReturnsPath()),
		slog.String("benchmark_symbol", a.Config.Provider.Symbol))
	return nil
}

// Stop gracefully shuts the application down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "log file close error", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until interrupted, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
