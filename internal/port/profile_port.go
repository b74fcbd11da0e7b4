package port

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// ProfileStore reads profiles and company display configuration.
type ProfileStore interface {
	// GetPublishedProfile only returns profiles with published = true.
	GetPublishedProfile(ctx context.Context, profileID string) (*domain.Profile, error)
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	// GetLayout returns (nil, nil) when the company has no layout row.
	GetLayout(ctx context.Context, companyID string) (*domain.ProfileLayout, error)
}

// ProfileReader is what the profile loader reads: profiles plus the cards
// that visits and leads reference.
type ProfileReader interface {
	ProfileStore
	CardStore
}
