package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LeadChannel is the NOTIFY channel the leads trigger publishes on.
const LeadChannel = "lead_inserted"

// LeadFeed implements port.LeadFeed with a dedicated pgx connection running
// LISTEN on LeadChannel. Lost connections are re-established until ctx ends.
type LeadFeed struct {
	dsn     string
	logger  *zap.Logger
	backoff time.Duration
}

// NewLeadFeed creates a feed for dsn.
func NewLeadFeed(dsn string, logger *zap.Logger) *LeadFeed {
	return &LeadFeed{dsn: dsn, logger: logger, backoff: time.Second}
}

// Listen blocks until ctx is done, invoking fn for every committed lead insert.
func (f *LeadFeed) Listen(ctx context.Context, fn func(domain.LeadNotification)) error {
	for {
		err := f.listenOnce(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		f.logger.Warn("lead feed: connection lost, reconnecting",
			zap.Duration("backoff", f.backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.backoff):
		}
	}
}

func (f *LeadFeed) listenOnce(ctx context.Context, fn func(domain.LeadNotification)) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{LeadChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	f.logger.Info("lead feed: listening", zap.String("channel", LeadChannel))

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		n, err := parseNotification(notification.Payload)
		if err != nil {
			f.logger.Warn("lead feed: bad payload", zap.String("payload", notification.Payload), zap.Error(err))
			continue
		}
		fn(n)
	}
}

type leadPayload struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

func parseNotification(payload string) (domain.LeadNotification, error) {
	var p leadPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.LeadNotification{}, err
	}
	if p.CompanyID == "" {
		return domain.LeadNotification{}, fmt.Errorf("missing company_id")
	}
	return domain.LeadNotification{CompanyID: p.CompanyID, Name: p.Name, Email: p.Email}, nil
}
