package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/config"
	"github.com/boddenberg/tapcard-bfa-go/internal/handler"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/cache"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/client"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "tapcard")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("webhook_timeout", cfg.WebhookTimeout),
		zap.Duration("replay_window", cfg.ReplayWindow),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("generator_configured", cfg.GeneratorAPIKey != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "tapcard-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	configCache := cache.New[any](cfg.CacheTTL)
	defer configCache.Close()
	metrics.RegisterCacheSize("company_config", configCache.Len)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store + change feed ---
	store, feed, closeStore, err := openStore(cfg, httpClient, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// Webhooks get their own client: the per-delivery timeout is applied per call.
	webhookClient := client.NewWebhookClient(&http.Client{}, cfg.WebhookTimeout)
	generatorClient := client.NewGeneratorClient(
		httpClient,
		cfg.GeneratorURL,
		cfg.GeneratorAPIKey,
		cfg.GeneratorModel,
		cfg.GeneratorTimeout,
		resilience.NewCircuitBreaker("generator"),
	)

	// --- Services ---
	events := service.NewEventRecorder(store, cfg.EventQueueSize, cfg.EventWorkers, metrics, logger)
	profiles := service.NewProfileLoader(store, configCache, events, metrics, logger)
	writer := service.NewLeadWriter(store, events, metrics, logger)
	guard := service.NewReplayGuard(store, cfg.ReplayWindow, nil, metrics, logger)
	dispatcher := service.NewDispatcher(store, guard, webhookClient, cfg.MaxConcurrency, nil, metrics, logger)
	composer := service.NewComposer(store, generatorClient, guard, events, metrics, logger)
	pipeline := service.NewCapturePipeline(profiles, writer, dispatcher, composer, metrics, logger)
	tags := service.NewTagResolver(store, events, logger)

	if cfg.JWTSecret == "" {
		logger.Warn("dashboard auth: JWT_SECRET not set, dashboard routes will reject every token")
	}
	auth := service.NewAuthVerifier(cfg.JWTSecret)

	// --- Realtime ---
	hub := realtime.NewHub()
	notifier := service.NewRealtimeNotifier(feed, hub, logger)
	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	notifierDone := make(chan struct{})
	go func() {
		defer close(notifierDone)
		if err := notifier.Run(notifierCtx); err != nil {
			logger.Error("realtime notifier stopped", zap.Error(err))
		}
	}()

	// --- Router ---
	router := handler.NewRouter(&handler.Services{
		Tags:          tags,
		Profiles:      profiles,
		Pipeline:      pipeline,
		Dispatcher:    dispatcher,
		Composer:      composer,
		Auth:          auth,
		Hub:           hub,
		Store:         store,
		PublicBaseURL: cfg.PublicBaseURL,
		CORSOrigins:   cfg.CORSOrigins,
	}, metrics, logger)

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
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stopNotifier()
	<-notifierDone
	// Long-lived SSE requests would otherwise hold Shutdown until the deadline.
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	pipeline.Wait()
	events.Close()

	logger.Info("server stopped")
}

// openStore builds the configured persistence backend and its lead change feed.
func openStore(cfg *config.Config, httpClient *http.Client, resilienceCfg resilience.Config, logger *zap.Logger) (port.Store, port.LeadFeed, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, nil, fmt.Errorf("DATABASE_URL is required for the %s backend", config.BackendPostgres)
		}
		logger.Info("using Postgres as data backend")

		pg, err := postgres.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		closeFn := func() {
			if err := pg.Close(); err != nil {
				logger.Warn("postgres close failed", zap.Error(err))
			}
		}
		return pg, postgres.NewLeadFeed(cfg.DatabaseURL, logger), closeFn, nil

	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, nil, nil, fmt.Errorf("SUPABASE_URL is required for the %s backend", config.BackendSupabase)
		}
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		sb := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		feed := realtime.NewLocalFeed()
		return realtime.NewNotifyingStore(sb, feed), feed, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
