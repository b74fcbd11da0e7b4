package service

import (
	"context"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.uber.org/zap"
)

// RealtimeNotifier relays the lead change feed to live dashboard sessions.
// It is driven by the store, not by the submission path.
type RealtimeNotifier struct {
	feed        port.LeadFeed
	broadcaster port.LeadBroadcaster
	logger      *zap.Logger
}

// NewRealtimeNotifier creates a RealtimeNotifier.
func NewRealtimeNotifier(feed port.LeadFeed, broadcaster port.LeadBroadcaster, logger *zap.Logger) *RealtimeNotifier {
	return &RealtimeNotifier{feed: feed, broadcaster: broadcaster, logger: logger}
}

// Run blocks until ctx is done.
func (n *RealtimeNotifier) Run(ctx context.Context) error {
	n.logger.Info("realtime notifier started")
	defer n.logger.Info("realtime notifier stopped")

	return n.feed.Listen(ctx, func(ln domain.LeadNotification) {
		if ln.CompanyID == "" {
			return
		}
		n.broadcaster.Publish(ln.CompanyID, ln)
	})
}
