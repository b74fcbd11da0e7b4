// Package service implements the lead pipeline: tag resolution, profile
// loading, lead intake, persistence, replay protection, webhook fan-out,
// follow-up composition and the realtime notifier.
package service

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("service/pipeline")

// Clock returns the current time. Injected so time-window checks are testable.
type Clock func() time.Time

// Dispatch actions gated by the replay guard.
const (
	ActionWebhooks = "webhooks"
	ActionFollowUp = "follow_up"
)

func strPtr(s string) *string { return &s }
