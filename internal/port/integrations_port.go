package port

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// IntegrationStore reads company integrations.
type IntegrationStore interface {
	ListActiveIntegrations(ctx context.Context, companyID string, kind domain.IntegrationType) ([]domain.Integration, error)
	GetIntegration(ctx context.Context, companyID, integrationID string) (*domain.Integration, error)
}
