package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Post-capture dispatch (replay-guarded)
// ============================================================

func dispatchWebhooksHandler(dispatcher *service.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /dispatch-lead-webhooks")
		defer span.End()

		var req domain.DispatchRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req.LeadID = strings.TrimSpace(req.LeadID)
		if req.LeadID == "" {
			writeError(w, http.StatusBadRequest, "lead_id is required")
			return
		}
		span.SetAttributes(attribute.String("lead.id", req.LeadID))

		summary, err := dispatcher.Dispatch(ctx, req.LeadID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func composeFollowUpHandler(composer *service.Composer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /compose-follow-up")
		defer span.End()

		var req domain.FollowUpRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("company.id", req.CompanyID))

		result, err := composer.Compose(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
