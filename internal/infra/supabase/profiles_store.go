package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Profiles, Companies & Layouts
// ============================================================

// GetPublishedProfile returns the profile only when published = true.
func (c *Client) GetPublishedProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPublishedProfile")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profileID))

	var rows []domain.Profile
	path := fmt.Sprintf("profiles?%s&published=eq.true&limit=1", eq("id", profileID))
	if err := c.selectRows(ctx, "supabase/profiles", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: profileID}
	}
	return &rows[0], nil
}

// GetCompany fetches a company by ID.
func (c *Client) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	var rows []domain.Company
	path := fmt.Sprintf("companies?select=id,name,slug,follow_up_email&%s&limit=1", eq("id", companyID))
	if err := c.selectRows(ctx, "supabase/companies", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return &rows[0], nil
}

// GetLayout fetches the company's singleton layout; (nil, nil) when absent.
func (c *Client) GetLayout(ctx context.Context, companyID string) (*domain.ProfileLayout, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLayout")
	defer span.End()

	var rows []domain.ProfileLayout
	path := fmt.Sprintf("profile_layouts?%s&limit=1", eq("company_id", companyID))
	if err := c.selectRows(ctx, "supabase/profile_layouts", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
