// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Store is the full persistence surface used by the lead pipeline.
// Implemented by the Supabase adapter and by the Postgres (gorm) adapter.
type Store interface {
	CardStore
	ProfileStore
	LeadStore
	EventStore
	IntegrationStore
	Ping(ctx context.Context) error
}

// WebhookSender performs one outbound webhook delivery. It returns the HTTP
// status when a response was received.
type WebhookSender interface {
	Send(ctx context.Context, url, secret string, body []byte) (int, error)
}

// TextGenerator calls a generative text model.
type TextGenerator interface {
	Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error)
}

// LeadFeed is a change feed of newly inserted leads. Listen blocks until ctx
// is done, invoking fn once per committed insert.
type LeadFeed interface {
	Listen(ctx context.Context, fn func(domain.LeadNotification)) error
}

// LeadBroadcaster pushes notifications to live dashboard sessions of a company.
type LeadBroadcaster interface {
	Publish(companyID string, n domain.LeadNotification)
}
