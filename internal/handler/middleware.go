package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "dashboardClaims"

// DashboardAuthMiddleware validates the dashboard bearer token and checks that
// its company matches the {companyId} route parameter.
func DashboardAuthMiddleware(auth *service.AuthVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			claims, err := auth.Authorize(token, chi.URLParam(r, "companyId"))
			if err != nil {
				logger.Warn("auth: token rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the dashboard claims set by DashboardAuthMiddleware.
func ClaimsFromContext(ctx context.Context) *service.DashboardClaims {
	v, _ := ctx.Value(claimsKey).(*service.DashboardClaims)
	return v
}

// CompanyIDFromContext extracts the authenticated company id from context.
func CompanyIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Company()
	}
	return ""
}
