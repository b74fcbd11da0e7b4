package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TagResolver maps a scanned tag slug to the profile it is linked to.
type TagResolver struct {
	cards  port.CardStore
	events *EventRecorder
	logger *zap.Logger
}

// NewTagResolver creates a TagResolver. A nil recorder disables nfc_tap
// recording, for operator lookups that are not real taps.
func NewTagResolver(cards port.CardStore, events *EventRecorder, logger *zap.Logger) *TagResolver {
	return &TagResolver{cards: cards, events: events, logger: logger}
}

// Resolve returns the card's linked profile. Unusable tags yield
// *domain.ErrTagUnusable. Only a successful resolution records an nfc_tap.
func (t *TagResolver) Resolve(ctx context.Context, slug, userAgent string) (*domain.TagResolution, error) {
	ctx, span := tracer.Start(ctx, "TagResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("card.slug", slug))

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, &domain.ErrTagUnusable{Slug: slug, Reason: domain.TagNotFound}
	}

	card, err := t.cards.GetCardBySlug(ctx, slug)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &domain.ErrTagUnusable{Slug: slug, Reason: domain.TagNotFound}
		}
		return nil, fmt.Errorf("card lookup: %w", err)
	}

	if card.Status != domain.CardActive {
		t.logger.Debug("tag deactivated", zap.String("slug", slug), zap.String("card_id", card.ID))
		return nil, &domain.ErrTagUnusable{Slug: slug, Reason: domain.TagDeactivated}
	}
	if card.ProfileID == nil || *card.ProfileID == "" {
		t.logger.Debug("tag unlinked", zap.String("slug", slug), zap.String("card_id", card.ID))
		return nil, &domain.ErrTagUnusable{Slug: slug, Reason: domain.TagUnlinked}
	}

	if t.events != nil {
		t.events.Record(&domain.Event{
			CompanyID: card.CompanyID,
			ProfileID: card.ProfileID,
			CardID:    strPtr(card.ID),
			Type:      domain.EventNFCTap,
			Device:    ClassifyDevice(userAgent),
			Metadata:  map[string]any{"source": "nfc"},
		})
	}

	return &domain.TagResolution{
		CardID:    card.ID,
		CompanyID: card.CompanyID,
		ProfileID: *card.ProfileID,
	}, nil
}
