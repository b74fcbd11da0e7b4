package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// ============================================================
// Integrations
// ============================================================

// ListActiveIntegrations returns the company's active integrations of a type.
func (c *Client) ListActiveIntegrations(ctx context.Context, companyID string, kind domain.IntegrationType) ([]domain.Integration, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActiveIntegrations")
	defer span.End()

	var rows []domain.Integration
	path := fmt.Sprintf("integrations?%s&%s&active=eq.true&order=created_at.asc",
		eq("company_id", companyID), eq("type", string(kind)))
	if err := c.selectRows(ctx, "supabase/integrations", path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetIntegration fetches one integration scoped to its company.
func (c *Client) GetIntegration(ctx context.Context, companyID, integrationID string) (*domain.Integration, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetIntegration")
	defer span.End()

	var rows []domain.Integration
	path := fmt.Sprintf("integrations?%s&%s&limit=1", eq("id", integrationID), eq("company_id", companyID))
	if err := c.selectRows(ctx, "supabase/integrations", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "integration", ID: integrationID}
	}
	return &rows[0], nil
}
