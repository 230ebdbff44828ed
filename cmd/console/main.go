package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freightdesk/freightdesk-console-go/internal/config"
	"github.com/freightdesk/freightdesk-console-go/internal/handler"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/backend"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/observability"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/resilience"
	"github.com/freightdesk/freightdesk-console-go/internal/session"
	"github.com/freightdesk/freightdesk-console-go/internal/tokenstore"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_url", cfg.BackendURL),
		zap.Bool("dev_auth", cfg.DevAuth),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	backendURL, err := url.Parse(cfg.BackendURL)
	if err != nil {
		logger.Fatal("invalid BACKEND_URL", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "freightdesk-console")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Token vault ---
	vault, err := tokenstore.New(cfg.TokenDir, logger)
	if err != nil {
		logger.Fatal("failed to open token vault", zap.String("dir", cfg.TokenDir), zap.Error(err))
	}

	// --- Backend client ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("freight-backend")
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := backend.NewClient(httpClient, cfg.BackendURL, vault, cb, resilienceCfg, metrics, logger)

	// --- Session manager ---
	var mgr session.Manager
	if cfg.DevAuth {
		mgr = session.NewFixedActorManager(logger)
	} else {
		remote := session.NewRemoteManager(api, vault, metrics, logger)
		// Any 401 outside the auth flow tears the session down.
		api.SetAuthFailureHandler(remote.AuthFailure)
		mgr = remote
	}
	defer mgr.Close()

	// Resolve the startup state in the background; guards hold requests
	// on the booting phase until this completes.
	go mgr.Bootstrap(context.Background())

	// --- Router ---
	router := handler.NewRouter(handler.RouterConfig{
		Session:        mgr,
		Refs:           api,
		Vault:          vault,
		BackendURL:     backendURL,
		LoginPerMinute: cfg.LoginPerMinute,
		LoginBurst:     cfg.LoginBurst,
		CacheTTL:       cfg.CacheTTL,
		Metrics:        metrics,
		Logger:         logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("console starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("console shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("console stopped")
}
