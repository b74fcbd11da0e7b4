package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports backend reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the router serves. Nil members disable the
// routes that depend on them.
type Services struct {
	Tags       *service.TagResolver
	Profiles   *service.ProfileLoader
	Pipeline   *service.CapturePipeline
	Dispatcher *service.Dispatcher
	Composer   *service.Composer
	Auth       *service.AuthVerifier
	Hub        *realtime.Hub
	Store      Pinger

	// PublicBaseURL prefixes profile redirects from /c/{slug}.
	PublicBaseURL string
	CORSOrigins   []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	origins := svc.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "apikey", "x-client-info"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// =============================================
	// 1. NFC tag entry point
	// GET /c/{slug}
	// =============================================
	if svc.Tags != nil {
		r.Get("/c/{slug}", tagRedirectHandler(svc.Tags, svc.PublicBaseURL, logger))
	}

	// =============================================
	// 2. Dispatch endpoints (called right after capture)
	// =============================================
	if svc.Dispatcher != nil {
		r.Post("/dispatch-lead-webhooks", dispatchWebhooksHandler(svc.Dispatcher, logger))
	}
	if svc.Composer != nil {
		r.Post("/compose-follow-up", composeFollowUpHandler(svc.Composer, logger))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/pipeline", pipelineMetricsHandler(metrics))

		// =============================================
		// 3. Public profile & lead capture
		// =============================================
		r.Route("/public/profiles/{profileId}", func(r chi.Router) {
			if svc.Profiles != nil {
				r.Get("/", publicProfileHandler(svc.Profiles, logger))
				r.Post("/events", trackEventHandler(svc.Profiles, logger))
			}
			if svc.Pipeline != nil {
				r.Post("/leads", submitLeadHandler(svc.Pipeline, logger))
			}
		})

		// =============================================
		// 4. Dashboard (company-scoped, JWT)
		// =============================================
		r.Route("/companies/{companyId}", func(r chi.Router) {
			if svc.Auth == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "dashboard auth unavailable: JWT_SECRET not configured")
				}))
				return
			}
			r.Use(DashboardAuthMiddleware(svc.Auth, logger))
			if svc.Hub != nil {
				r.Get("/leads/stream", leadStreamHandler(svc.Hub, metrics, logger))
			}
			if svc.Dispatcher != nil {
				r.Post("/integrations/{integrationId}/test", testIntegrationHandler(svc.Dispatcher, logger))
			}
		})
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "tapcard-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health: store ping failed", zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
