package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type blockingEventStore struct {
	release chan struct{}
	mu      sync.Mutex
	written int
}

func (s *blockingEventStore) InsertEvent(ctx context.Context, _ *domain.Event) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.written++
	s.mu.Unlock()
	return nil
}

func TestEventRecorder_FullQueueDropsWithoutBlocking(t *testing.T) {
	store := &blockingEventStore{release: make(chan struct{})}
	metrics := observability.NewMetrics()
	rec := service.NewEventRecorder(store, 1, 1, metrics, zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			rec.Record(&domain.Event{CompanyID: "c1", Type: domain.EventCTAClick})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	if dropped := metrics.GetPipelineSnapshot().EventsDropped; dropped < 3 {
		t.Errorf("expected at least 3 dropped events, got %d", dropped)
	}

	close(store.release)
	rec.Close()
}

func TestEventRecorder_CloseDrains(t *testing.T) {
	h := newHarness(nil)
	for i := 0; i < 20; i++ {
		h.events.Record(&domain.Event{CompanyID: "c1", Type: domain.EventVCardDownload})
	}
	h.events.Close()

	if n := len(h.store.eventsOfType(domain.EventVCardDownload)); n != 20 {
		t.Errorf("expected all 20 queued events written, got %d", n)
	}

	// Recording after close is a counted no-op.
	h.events.Record(&domain.Event{CompanyID: "c1", Type: domain.EventVCardDownload})
	h.events.Close()
}

func TestEventRecorder_RecordAfterCloseCountsClosed(t *testing.T) {
	metrics := observability.NewMetrics()
	rec := service.NewEventRecorder(newMockStore(), 4, 1, metrics, zap.NewNop())
	rec.Close()

	rec.Record(&domain.Event{CompanyID: "c1", Type: domain.EventCTAClick})

	expected := `
# HELP tapcard_events_dropped_total Analytics events that could not be recorded.
# TYPE tapcard_events_dropped_total counter
tapcard_events_dropped_total{reason="closed"} 1
`
	if err := testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected), "tapcard_events_dropped_total"); err != nil {
		t.Error(err)
	}
	if dropped := metrics.GetPipelineSnapshot().EventsDropped; dropped != 1 {
		t.Errorf("expected 1 dropped event in the snapshot, got %d", dropped)
	}
}
