package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Visitor endpoints (unauthenticated)
// ============================================================

// tagRedirectHandler resolves a scanned tag and redirects to the public
// profile page. Failures answer with a low-information message.
func tagRedirectHandler(tags *service.TagResolver, baseURL string, logger *zap.Logger) http.HandlerFunc {
	base := strings.TrimSuffix(baseURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /c/{slug}")
		defer span.End()

		slug := chi.URLParam(r, "slug")
		span.SetAttributes(attribute.String("card.slug", slug))

		res, err := tags.Resolve(ctx, slug, r.UserAgent())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		target := base + "/p/" + url.PathEscape(res.ProfileID) + "?card=" + url.QueryEscape(res.CardID)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func publicProfileHandler(profiles *service.ProfileLoader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/public/profiles/{profileId}")
		defer span.End()

		profileID := chi.URLParam(r, "profileId")
		span.SetAttributes(attribute.String("profile.id", profileID))

		q := r.URL.Query()
		visit := service.Visit{
			UserAgent: r.UserAgent(),
			Source:    q.Get("utm_source"),
			CardID:    cardParam(q.Get("card")),
		}

		profile, err := profiles.Load(ctx, profileID, visit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func submitLeadHandler(pipeline *service.CapturePipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/public/profiles/{profileId}/leads")
		defer span.End()

		profileID := chi.URLParam(r, "profileId")
		span.SetAttributes(attribute.String("profile.id", profileID))

		var in domain.LeadInput
		if err := decodeBody(r, &in); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error: "Dados inválidos.",
				Code:  string(domain.CodeInvalidInput),
			})
			return
		}

		receipt, err := pipeline.Submit(ctx, profileID, &in, r.UserAgent())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func trackEventHandler(profiles *service.ProfileLoader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/public/profiles/{profileId}/events")
		defer span.End()

		var req domain.TrackRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := profiles.Track(ctx, chi.URLParam(r, "profileId"), &req, r.UserAgent()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, domain.SuccessResponse{Message: "accepted"})
	}
}

// cardParam keeps the ?card= value only when it is a well-formed id.
func cardParam(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return nil
	}
	return &v
}
