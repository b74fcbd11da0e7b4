package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.uber.org/zap"
)

func TestReplayGuard_Window(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		age   time.Duration
		stale bool
	}{
		{"fresh", time.Second, false},
		{"exactly at window", 60 * time.Second, false},
		{"just past window", 60*time.Second + time.Millisecond, true},
		{"old", 24 * time.Hour, true},
		{"clock skew", -2 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(fixedClock(now))
			seedLead(h, "l1", now.Add(-tt.age))
			guard := service.NewReplayGuard(h.store, 60*time.Second, fixedClock(now), h.metrics, zap.NewNop())

			_, err := guard.Check(context.Background(), "l1", service.ActionWebhooks)
			var stale *domain.ErrStaleLead
			if got := errors.As(err, &stale); got != tt.stale {
				t.Errorf("stale=%v, want %v (err=%v)", got, tt.stale, err)
			}
		})
	}
}

func TestReplayGuard_RequiresLeadID(t *testing.T) {
	h := newHarness(nil)
	_, err := h.guard.Check(context.Background(), " ", service.ActionWebhooks)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
