package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// NFC Cards (read via PostgREST)
// ============================================================

const cardColumns = "id,tag_uid,slug,status,profile_id,company_id,created_at"

// GetCardBySlug looks up exactly one card by its public slug.
func (c *Client) GetCardBySlug(ctx context.Context, slug string) (*domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCardBySlug")
	defer span.End()
	span.SetAttributes(attribute.String("card.slug", slug))

	var rows []domain.Card
	path := fmt.Sprintf("cards?select=%s&%s&limit=1", cardColumns, eq("slug", slug))
	if err := c.selectRows(ctx, "supabase/cards", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "card", ID: slug}
	}
	return &rows[0], nil
}

// GetCard looks up a card by id.
func (c *Client) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", id))

	var rows []domain.Card
	path := fmt.Sprintf("cards?select=%s&%s&limit=1", cardColumns, eq("id", id))
	if err := c.selectRows(ctx, "supabase/cards", path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "card", ID: id}
	}
	return &rows[0], nil
}
