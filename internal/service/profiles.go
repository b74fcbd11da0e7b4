package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// companyConfig is the cached pair of company record and resolved layout.
type companyConfig struct {
	company *domain.Company
	layout  domain.ResolvedLayout
}

// Visit describes the visitor request that triggered a profile load.
type Visit struct {
	UserAgent string
	Source    string  // utm_source
	CardID    *string // set when the visit came through a tag
}

// ProfileLoader loads published profiles with their company configuration.
type ProfileLoader struct {
	store   port.ProfileReader
	cache   port.Cache[any]
	events  *EventRecorder
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewProfileLoader creates a ProfileLoader.
func NewProfileLoader(store port.ProfileReader, cache port.Cache[any], events *EventRecorder, metrics *observability.Metrics, logger *zap.Logger) *ProfileLoader {
	return &ProfileLoader{store: store, cache: cache, events: events, metrics: metrics, logger: logger}
}

// Load returns the public view of a published profile and records a
// profile_view. Missing and unpublished profiles are indistinguishable.
func (l *ProfileLoader) Load(ctx context.Context, profileID string, visit Visit) (*domain.PublicProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileLoader.Load")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profileID))

	profile, err := l.Published(ctx, profileID)
	if err != nil {
		return nil, err
	}

	cfg, err := l.companyConfig(ctx, profile.CompanyID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{}
	if src := strings.TrimSpace(visit.Source); src != "" {
		metadata["source"] = src
	}
	l.events.Record(&domain.Event{
		CompanyID: profile.CompanyID,
		ProfileID: strPtr(profile.ID),
		CardID:    l.CardRef(ctx, profile.CompanyID, visit.CardID),
		Type:      domain.EventProfileView,
		Device:    ClassifyDevice(visit.UserAgent),
		Metadata:  metadata,
	})

	return &domain.PublicProfile{
		Profile: profile,
		Company: cfg.company,
		Layout:  cfg.layout,
	}, nil
}

// Published returns the profile only when it is published.
func (l *ProfileLoader) Published(ctx context.Context, profileID string) (*domain.Profile, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, &domain.ErrProfileNotFound{ProfileID: profileID}
	}
	profile, err := l.store.GetPublishedProfile(ctx, profileID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &domain.ErrProfileNotFound{ProfileID: profileID}
		}
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	if !profile.Published {
		return nil, &domain.ErrProfileNotFound{ProfileID: profileID}
	}
	return profile, nil
}

// CardRef returns the normalized card id when it names an existing card of
// the company, and nil otherwise. Unresolvable references are dropped rather
// than failing the visitor request.
func (l *ProfileLoader) CardRef(ctx context.Context, companyID string, cardID *string) *string {
	id := normalizeCardID(cardID)
	if id == nil {
		return nil
	}
	card, err := l.store.GetCard(ctx, *id)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			l.logger.Debug("dropping unknown card reference", zap.String("card_id", *id))
		} else {
			l.logger.Warn("card lookup failed, dropping reference", zap.String("card_id", *id), zap.Error(err))
		}
		return nil
	}
	if card.CompanyID != companyID {
		l.logger.Debug("dropping foreign card reference",
			zap.String("card_id", *id), zap.String("company_id", companyID))
		return nil
	}
	return id
}

// LeadCaptureAllowed re-reads the company layout from the store, bypassing
// the cache, and reports whether the lead form is enabled.
func (l *ProfileLoader) LeadCaptureAllowed(ctx context.Context, companyID string) (domain.ResolvedLayout, error) {
	ctx, span := tracer.Start(ctx, "ProfileLoader.LeadCaptureAllowed")
	defer span.End()

	layout, err := l.store.GetLayout(ctx, companyID)
	if err != nil {
		return domain.ResolvedLayout{}, fmt.Errorf("layout lookup: %w", err)
	}
	resolved := domain.ResolveLayout(layout)
	l.cache.Delete(companyConfigKey(companyID))
	return resolved, nil
}

func companyConfigKey(companyID string) string {
	return "company_config:" + companyID
}

func (l *ProfileLoader) companyConfig(ctx context.Context, companyID string) (*companyConfig, error) {
	key := companyConfigKey(companyID)
	if cached, ok := l.cache.Get(key); ok {
		if cfg, ok := cached.(*companyConfig); ok {
			l.metrics.IncrCacheHit("company_config")
			return cfg, nil
		}
	}
	l.metrics.IncrCacheMiss("company_config")

	company, err := l.store.GetCompany(ctx, companyID)
	if err != nil {
		l.logger.Error("company lookup failed", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("company lookup: %w", err)
	}
	layout, err := l.store.GetLayout(ctx, companyID)
	if err != nil {
		l.logger.Error("layout lookup failed", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("layout lookup: %w", err)
	}

	cfg := &companyConfig{company: company, layout: domain.ResolveLayout(layout)}
	l.cache.Set(key, cfg)
	return cfg, nil
}

// Track records a visitor interaction (CTA click, vCard download) on a
// published profile. Only visitor-trackable event types are accepted.
func (l *ProfileLoader) Track(ctx context.Context, profileID string, req *domain.TrackRequest, userAgent string) error {
	ctx, span := tracer.Start(ctx, "ProfileLoader.Track")
	defer span.End()

	if req == nil || !req.Type.VisitorTrackable() {
		return &domain.ErrValidation{Field: "event_type", Message: "event_type must be cta_click or vcard_download"}
	}

	profile, err := l.Published(ctx, profileID)
	if err != nil {
		return err
	}

	l.events.Record(&domain.Event{
		CompanyID: profile.CompanyID,
		ProfileID: strPtr(profile.ID),
		CardID:    l.CardRef(ctx, profile.CompanyID, req.CardID),
		Type:      req.Type,
		Device:    ClassifyDevice(userAgent),
		Metadata:  req.Metadata,
	})
	return nil
}
