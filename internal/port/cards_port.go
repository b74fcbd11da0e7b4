package port

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// CardStore reads NFC card records.
type CardStore interface {
	// GetCardBySlug returns *domain.ErrNotFound when no card has the slug.
	GetCardBySlug(ctx context.Context, slug string) (*domain.Card, error)
	// GetCard returns *domain.ErrNotFound when no card has the id.
	GetCard(ctx context.Context, id string) (*domain.Card, error)
}
