package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.uber.org/zap"
)

// DefaultReplayWindow is how long after creation a lead may be dispatched.
const DefaultReplayWindow = 60 * time.Second

// ReplayGuard refuses dispatch for leads older than the replay window.
type ReplayGuard struct {
	leads   port.LeadStore
	window  time.Duration
	now     Clock
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReplayGuard creates a guard. A nil clock uses time.Now.
func NewReplayGuard(leads port.LeadStore, window time.Duration, now Clock, metrics *observability.Metrics, logger *zap.Logger) *ReplayGuard {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ReplayGuard{leads: leads, window: window, now: now, metrics: metrics, logger: logger}
}

// Check loads the lead and returns it when action may proceed. Leads older
// than the window yield *domain.ErrStaleLead; missing leads *domain.ErrNotFound.
func (g *ReplayGuard) Check(ctx context.Context, leadID, action string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "ReplayGuard.Check")
	defer span.End()

	if strings.TrimSpace(leadID) == "" {
		return nil, &domain.ErrValidation{Field: "lead_id", Message: "lead_id is required"}
	}

	lead, err := g.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("lead lookup: %w", err)
	}

	if age := g.now().Sub(lead.CreatedAt); age > g.window {
		g.metrics.IncrDispatchDenied(action)
		g.logger.Warn("replay guard: stale lead",
			zap.String("lead_id", leadID),
			zap.String("action", action),
			zap.Duration("age", age),
		)
		return nil, &domain.ErrStaleLead{LeadID: leadID, Action: action}
	}
	return lead, nil
}
