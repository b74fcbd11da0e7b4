package port

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// LeadStore persists and reads captured leads.
type LeadStore interface {
	InsertLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	GetLead(ctx context.Context, leadID string) (*domain.Lead, error)
}

// EventStore appends analytics events. Events are never updated.
type EventStore interface {
	InsertEvent(ctx context.Context, event *domain.Event) error
}
