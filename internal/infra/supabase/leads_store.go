package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Leads & Events
// ============================================================

// InsertLead writes one lead row and returns the stored representation,
// including the authoritative created_at.
func (c *Client) InsertLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertLead")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", lead.CompanyID))

	row := map[string]any{
		"company_id": lead.CompanyID,
		"profile_id": nullable(lead.ProfileID),
		"card_id":    nullable(lead.CardID),
		"name":       lead.Name,
		"email":      lead.Email,
		"phone":      nullable(lead.Phone),
		"consent":    lead.Consent,
	}

	var rows []domain.Lead
	if err := c.insertRow(ctx, "supabase/leads", "leads", row, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase/leads", Err: fmt.Errorf("no result from leads insert")}
	}
	return &rows[0], nil
}

// GetLead fetches a lead by ID.
func (c *Client) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID))

	var rows []domain.Lead
	path := fmt.Sprintf("leads?%s&limit=1", eq("id", leadID))
	if err := c.selectRows(ctx, "supabase/leads", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	return &rows[0], nil
}

// InsertEvent appends one analytics event.
func (c *Client) InsertEvent(ctx context.Context, event *domain.Event) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", string(event.Type)))

	row := map[string]any{
		"company_id": event.CompanyID,
		"profile_id": nullable(event.ProfileID),
		"card_id":    nullable(event.CardID),
		"event_type": string(event.Type),
		"device":     string(event.Device),
		"metadata":   event.Metadata,
	}
	return c.insertRow(ctx, "supabase/events", "events", row, nil)
}
