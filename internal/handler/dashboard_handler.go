package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// heartbeatInterval keeps idle streams alive through proxies.
var heartbeatInterval = 25 * time.Second

// ============================================================
// Dashboard endpoints (JWT, company-scoped)
// ============================================================

// leadStreamHandler streams new-lead notifications for the authenticated
// company as Server-Sent Events. There is no backlog: only leads committed
// while the session is open are delivered.
func leadStreamHandler(hub *realtime.Hub, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		companyID := CompanyIDFromContext(ctx)

		rc := http.NewResponseController(w)
		// The server write timeout would otherwise cut the stream.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			logger.Debug("stream: write deadline not adjustable", zap.Error(err))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			logger.Error("stream: flushing unsupported", zap.Error(err))
			return
		}

		sessionID, ch, cancel := hub.Subscribe(companyID)
		defer cancel()
		metrics.RealtimeSessionOpened()
		defer metrics.RealtimeSessionClosed()

		logger.Info("stream: session opened",
			zap.String("company_id", companyID),
			zap.String("session_id", sessionID),
			zap.Int("company_sessions", hub.Sessions(companyID)),
		)
		defer func() {
			// Runs before cancel, so the closing session is still counted.
			logger.Info("stream: session closed",
				zap.String("company_id", companyID),
				zap.String("session_id", sessionID),
				zap.Int("company_sessions", hub.Sessions(companyID)-1),
			)
		}()

		fmt.Fprintf(w, "event: ready\ndata: {\"session_id\":%q}\n\n", sessionID)
		rc.Flush()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(n)
				if err != nil {
					logger.Warn("stream: encode notification", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: lead\ndata: %s\n\n", data); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

// testIntegrationHandler sends a test payload to one webhook on demand.
func testIntegrationHandler(dispatcher *service.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/{companyId}/integrations/{integrationId}/test")
		defer span.End()

		companyID := CompanyIDFromContext(ctx)
		integrationID := chi.URLParam(r, "integrationId")
		span.SetAttributes(
			attribute.String("company.id", companyID),
			attribute.String("integration.id", integrationID),
		)

		result, err := dispatcher.TestDelivery(ctx, companyID, integrationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
