package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher fans a new lead out to the company's active webhooks.
type Dispatcher struct {
	integrations port.IntegrationStore
	guard        *ReplayGuard
	sender       port.WebhookSender
	bulkhead     *resilience.Bulkhead
	now          Clock
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewDispatcher creates a Dispatcher. maxConcurrency bounds simultaneous
// deliveries across all dispatches.
func NewDispatcher(integrations port.IntegrationStore, guard *ReplayGuard, sender port.WebhookSender, maxConcurrency int, now Clock, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		integrations: integrations,
		guard:        guard,
		sender:       sender,
		bulkhead:     resilience.NewBulkhead(maxConcurrency),
		now:          now,
		metrics:      metrics,
		logger:       logger,
	}
}

type delivery struct {
	integrationID string
	url           string
	secret        string
}

// Dispatch runs the replay guard and delivers lead.created to every active
// webhook of the lead's company. Each endpoint is attempted exactly once and
// one failure never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, leadID string) (*domain.DispatchSummary, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID))

	lead, err := d.guard.Check(ctx, leadID, ActionWebhooks)
	if err != nil {
		return nil, err
	}

	targets, err := d.targets(ctx, lead.CompanyID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return &domain.DispatchSummary{Results: []domain.DeliveryResult{}}, nil
	}

	body, err := json.Marshal(domain.NewLeadCreatedPayload(lead, d.now()))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	start := time.Now()
	results := d.deliverAll(ctx, targets, body)
	d.metrics.RecordRequestDuration("webhook_dispatch", time.Since(start))

	summary := &domain.DispatchSummary{Total: len(results), Results: results}
	for _, r := range results {
		if r.OK {
			summary.Dispatched++
		}
	}

	d.logger.Info("webhooks dispatched",
		zap.String("lead_id", leadID),
		zap.String("company_id", lead.CompanyID),
		zap.Int("dispatched", summary.Dispatched),
		zap.Int("total", summary.Total),
	)
	return summary, nil
}

// TestDelivery sends a test payload to one integration. Operators use it to
// check an endpoint, so it is not gated by the replay guard and ignores the
// active flag.
func (d *Dispatcher) TestDelivery(ctx context.Context, companyID, integrationID string) (*domain.DeliveryResult, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.TestDelivery")
	defer span.End()

	in, err := d.integrations.GetIntegration(ctx, companyID, integrationID)
	if err != nil {
		return nil, fmt.Errorf("integration lookup: %w", err)
	}
	cfg, err := in.Webhook()
	if err != nil {
		return nil, &domain.ErrValidation{Field: "config", Message: err.Error()}
	}

	body, err := json.Marshal(&domain.WebhookPayload{
		Event:     domain.WebhookEventTest,
		Timestamp: d.now().UTC().Format(time.RFC3339),
		CompanyID: companyID,
		Lead: &domain.WebhookLead{
			Name:  "Lead de teste",
			Email: "teste@exemplo.com",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	results := d.deliverAll(ctx, []delivery{{integrationID: in.ID, url: cfg.URL, secret: cfg.Secret}}, body)
	return &results[0], nil
}

func (d *Dispatcher) targets(ctx context.Context, companyID string) ([]delivery, error) {
	integrations, err := d.integrations.ListActiveIntegrations(ctx, companyID, domain.IntegrationWebhook)
	if err != nil {
		return nil, fmt.Errorf("integrations lookup: %w", err)
	}

	targets := make([]delivery, 0, len(integrations))
	for i := range integrations {
		in := &integrations[i]
		if !in.Active {
			continue
		}
		cfg, err := in.Webhook()
		if err != nil {
			d.logger.Warn("skipping misconfigured integration",
				zap.String("integration_id", in.ID),
				zap.Error(err),
			)
			continue
		}
		targets = append(targets, delivery{integrationID: in.ID, url: cfg.URL, secret: cfg.Secret})
	}
	return targets, nil
}

// deliverAll posts body to every target concurrently and joins all attempts.
// Goroutines never return errors, so no attempt cancels another.
func (d *Dispatcher) deliverAll(ctx context.Context, targets []delivery, body []byte) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			results[i] = d.deliver(ctx, t, body)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) deliver(ctx context.Context, t delivery, body []byte) domain.DeliveryResult {
	result := domain.DeliveryResult{IntegrationID: t.integrationID, URL: t.url}

	if err := d.bulkhead.Acquire(ctx); err != nil {
		result.Error = err.Error()
		d.metrics.IncrWebhookDelivery("failed")
		return result
	}
	defer d.bulkhead.Release()

	status, err := d.sender.Send(ctx, t.url, t.secret, body)
	result.Status = status
	if err == nil && (status < 200 || status >= 300) {
		err = fmt.Errorf("webhook returned status %d", status)
	}
	if err != nil {
		result.Error = err.Error()
		d.metrics.IncrWebhookDelivery("failed")
		d.logger.Warn("webhook delivery failed",
			zap.String("integration_id", t.integrationID),
			zap.Int("status", status),
			zap.Error(err),
		)
		return result
	}

	result.OK = true
	d.metrics.IncrWebhookDelivery("delivered")
	return result
}
