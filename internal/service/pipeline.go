package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// asyncBudget bounds the background work started after a capture.
const asyncBudget = 30 * time.Second

// CapturePipeline runs a visitor lead submission end to end: gate, validate,
// persist, then webhook fan-out and follow-up composition in the background.
type CapturePipeline struct {
	profiles   *ProfileLoader
	writer     *LeadWriter
	dispatcher *Dispatcher
	composer   *Composer
	metrics    *observability.Metrics
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewCapturePipeline creates a CapturePipeline.
func NewCapturePipeline(profiles *ProfileLoader, writer *LeadWriter, dispatcher *Dispatcher, composer *Composer, metrics *observability.Metrics, logger *zap.Logger) *CapturePipeline {
	return &CapturePipeline{
		profiles:   profiles,
		writer:     writer,
		dispatcher: dispatcher,
		composer:   composer,
		metrics:    metrics,
		logger:     logger,
	}
}

// Submit captures a lead for a published profile. It returns once the lead is
// durable; fan-out and follow-up never affect the visitor's outcome.
func (p *CapturePipeline) Submit(ctx context.Context, profileID string, in *domain.LeadInput, userAgent string) (*domain.LeadReceipt, error) {
	ctx, span := tracer.Start(ctx, "CapturePipeline.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profileID))

	profile, err := p.profiles.Published(ctx, profileID)
	if err != nil {
		return nil, err
	}

	layout, err := p.profiles.LeadCaptureAllowed(ctx, profile.CompanyID)
	if err != nil {
		return nil, err
	}

	normalized, err := ValidateLead(in, layout)
	if err != nil {
		var lv *domain.ErrLeadValidation
		if errors.As(err, &lv) {
			p.metrics.IncrLead(string(lv.Code))
		}
		return nil, err
	}

	var cardID *string
	if in != nil {
		cardID = p.profiles.CardRef(ctx, profile.CompanyID, in.CardID)
	}

	lead, err := p.writer.Persist(ctx, normalized, domain.LeadScope{
		CompanyID: profile.CompanyID,
		ProfileID: strPtr(profile.ID),
		CardID:    cardID,
		Device:    ClassifyDevice(userAgent),
	})
	if err != nil {
		return nil, err
	}

	p.afterCapture(context.WithoutCancel(ctx), lead)

	return &domain.LeadReceipt{ID: lead.ID, CreatedAt: lead.CreatedAt}, nil
}

// afterCapture starts webhook dispatch and follow-up composition concurrently.
// Both go through the replay guard; failures are only logged.
func (p *CapturePipeline) afterCapture(parent context.Context, lead *domain.Lead) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(parent, asyncBudget)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			summary, err := p.dispatcher.Dispatch(ctx, lead.ID)
			if err != nil {
				p.logger.Warn("post-capture dispatch failed", zap.String("lead_id", lead.ID), zap.Error(err))
				return nil
			}
			p.logger.Debug("post-capture dispatch done",
				zap.String("lead_id", lead.ID),
				zap.Int("dispatched", summary.Dispatched),
				zap.Int("total", summary.Total),
			)
			return nil
		})
		g.Go(func() error {
			res, err := p.composer.Compose(ctx, &domain.FollowUpRequest{
				CompanyID: lead.CompanyID,
				LeadID:    lead.ID,
				Lead: &domain.FollowUpLead{
					Name:      lead.Name,
					Email:     lead.Email,
					Phone:     lead.Phone,
					ProfileID: lead.ProfileID,
				},
			})
			if err != nil {
				p.logger.Warn("post-capture follow-up failed", zap.String("lead_id", lead.ID), zap.Error(err))
				return nil
			}
			p.logger.Debug("post-capture follow-up done",
				zap.String("lead_id", lead.ID),
				zap.Bool("sent", res.Sent),
				zap.String("reason", res.Reason),
			)
			return nil
		})
		_ = g.Wait()
	}()
}

// Wait blocks until background work started by Submit has finished.
func (p *CapturePipeline) Wait() {
	p.wg.Wait()
}
