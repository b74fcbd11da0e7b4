package service

import (
	"context"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LeadWriter persists validated leads and their lead_submit event.
type LeadWriter struct {
	leads   port.LeadStore
	events  *EventRecorder
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLeadWriter creates a LeadWriter.
func NewLeadWriter(leads port.LeadStore, events *EventRecorder, metrics *observability.Metrics, logger *zap.Logger) *LeadWriter {
	return &LeadWriter{leads: leads, events: events, metrics: metrics, logger: logger}
}

// Persist inserts one lead and then one lead_submit event. The lead insert is
// the durable outcome: an event failure is logged and never returned. Store
// rejections of the lead come back as *domain.ErrPersistenceFailed.
func (w *LeadWriter) Persist(ctx context.Context, lead *domain.NormalizedLead, scope domain.LeadScope) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadWriter.Persist")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", scope.CompanyID))

	start := time.Now()
	stored, err := w.leads.InsertLead(ctx, &domain.Lead{
		CompanyID: scope.CompanyID,
		ProfileID: scope.ProfileID,
		CardID:    scope.CardID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Consent:   true,
	})
	w.metrics.RecordRequestDuration("lead_insert", time.Since(start))
	if err != nil {
		w.metrics.IncrLead("persistence_failed")
		w.logger.Error("lead insert failed",
			zap.String("company_id", scope.CompanyID),
			zap.Error(err),
		)
		return nil, &domain.ErrPersistenceFailed{Err: err}
	}

	_ = w.events.RecordNow(ctx, &domain.Event{
		CompanyID: scope.CompanyID,
		ProfileID: scope.ProfileID,
		CardID:    scope.CardID,
		Type:      domain.EventLeadSubmit,
		Device:    scope.Device,
		Metadata:  map[string]any{"lead_id": stored.ID},
	})

	w.metrics.IncrLead("captured")
	return stored, nil
}
