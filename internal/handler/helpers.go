package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// retryMessage is the only detail visitors get when a lead cannot be stored.
const retryMessage = "Não foi possível enviar seus dados. Tente novamente em instantes."

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return &domain.ErrValidation{Field: "body", Message: "request body is required"}
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return nil
}

// bearerToken extracts the token from "Authorization: Bearer <t>". Browsers
// cannot set headers on EventSource, so ?access_token= is accepted as well.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var tagUnusable *domain.ErrTagUnusable
	var profileNotFound *domain.ErrProfileNotFound
	var leadValidation *domain.ErrLeadValidation
	var persistence *domain.ErrPersistenceFailed
	var stale *domain.ErrStaleLead
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &tagUnusable):
		logger.Debug("tag unusable",
			zap.String("slug", tagUnusable.Slug),
			zap.String("reason", string(tagUnusable.Reason)),
		)
		writeError(w, tagStatus(tagUnusable.Reason), tagUnusable.VisitorMessage())
	case errors.As(err, &profileNotFound):
		logger.Debug("profile not found", zap.String("profile_id", profileNotFound.ProfileID))
		writeError(w, http.StatusNotFound, profileNotFound.Error())
	case errors.As(err, &leadValidation):
		logger.Debug("lead rejected", zap.String("error", err.Error()))
		status := http.StatusUnprocessableEntity
		if leadValidation.Code == domain.CodeCaptureDisabled {
			status = http.StatusForbidden
		}
		writeJSON(w, status, errorResponse{
			Error: leadValidation.Message,
			Code:  string(leadValidation.Code),
			Field: leadValidation.Field,
		})
	case errors.As(err, &persistence):
		logger.Error("lead persistence failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, retryMessage)
	case errors.As(err, &stale):
		logger.Warn("dispatch outside replay window",
			zap.String("lead_id", stale.LeadID),
			zap.String("action", stale.Action),
		)
		writeError(w, http.StatusForbidden, "lead is outside the dispatch window")
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func tagStatus(reason domain.TagOutcome) int {
	switch reason {
	case domain.TagDeactivated:
		return http.StatusGone
	case domain.TagUnlinked:
		return http.StatusConflict
	default:
		return http.StatusNotFound
	}
}
