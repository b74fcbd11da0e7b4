package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/tapcard-bfa-go/internal/config"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/client"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the services a command needs, wired from the environment.
type app struct {
	cfg        *config.Config
	store      port.Store
	tags       *service.TagResolver
	dispatcher *service.Dispatcher
	logger     *zap.Logger
	close      func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	level, _ := cmd.Flags().GetString("log-level")
	logger := observability.NewLogger(level, "tapcardctl")
	metrics := observability.NewMetrics()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	a := &app{cfg: cfg, logger: logger, close: func() { logger.Sync() }}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s backend", config.BackendPostgres)
		}
		pg, err := postgres.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.store = pg
		a.close = func() {
			pg.Close()
			logger.Sync()
		}
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required for the %s backend", config.BackendSupabase)
		}
		a.store = supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"), resilienceCfg, logger)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	guard := service.NewReplayGuard(a.store, cfg.ReplayWindow, nil, metrics, logger)
	webhooks := client.NewWebhookClient(&http.Client{}, cfg.WebhookTimeout)
	a.dispatcher = service.NewDispatcher(a.store, guard, webhooks, cfg.MaxConcurrency, nil, metrics, logger)
	// Operator lookups are not taps: no recorder.
	a.tags = service.NewTagResolver(a.store, nil, logger)
	return a, nil
}

// run wires the app, runs fn and releases resources.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
