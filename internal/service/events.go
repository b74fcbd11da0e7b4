package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.uber.org/zap"
)

const eventWriteTimeout = 5 * time.Second

// EventRecorder writes analytics events. Record is fire-and-forget: events go
// to a bounded queue drained by background workers, and a full queue drops
// the event instead of blocking the caller.
type EventRecorder struct {
	store   port.EventStore
	queue   chan *domain.Event
	metrics *observability.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEventRecorder starts workers goroutines draining a queue of queueSize.
func NewEventRecorder(store port.EventStore, queueSize, workers int, metrics *observability.Metrics, logger *zap.Logger) *EventRecorder {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	r := &EventRecorder{
		store:   store,
		queue:   make(chan *domain.Event, queueSize),
		metrics: metrics,
		logger:  logger,
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

func (r *EventRecorder) worker() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), eventWriteTimeout)
		_ = r.RecordNow(ctx, e)
		cancel()
	}
}

// Record enqueues e without blocking.
func (r *EventRecorder) Record(e *domain.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.metrics.IncrEventDropped("closed")
		return
	}
	select {
	case r.queue <- e:
	default:
		r.metrics.IncrEventDropped("queue_full")
		r.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(e.Type)),
			zap.String("company_id", e.CompanyID),
		)
	}
}

// RecordNow writes e synchronously. Failures are logged and counted, and
// also returned for callers that care.
func (r *EventRecorder) RecordNow(ctx context.Context, e *domain.Event) error {
	if err := r.store.InsertEvent(ctx, e); err != nil {
		r.metrics.IncrEventDropped("store_error")
		r.logger.Warn("event write failed",
			zap.String("event_type", string(e.Type)),
			zap.String("company_id", e.CompanyID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be written.
func (r *EventRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}
