// Package realtime fans live lead notifications out to connected dashboard
// sessions, keyed by company.
package realtime

import (
	"sync"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/google/uuid"
)

const streamBuffer = 32

// Hub holds one buffered channel per connected session, grouped by company.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]chan domain.LeadNotification
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: map[string]map[string]chan domain.LeadNotification{},
	}
}

// Subscribe registers a session for a company. The returned cancel func
// unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(companyID string) (string, <-chan domain.LeadNotification, func()) {
	streamID := uuid.NewString()
	ch := make(chan domain.LeadNotification, streamBuffer)

	h.mu.Lock()
	streams, ok := h.sessions[companyID]
	if !ok {
		streams = map[string]chan domain.LeadNotification{}
		h.sessions[companyID] = streams
	}
	streams[streamID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		streams := h.sessions[companyID]
		if streams == nil {
			return
		}
		if current, ok := streams[streamID]; ok {
			delete(streams, streamID)
			close(current)
		}
		if len(streams) == 0 {
			delete(h.sessions, companyID)
		}
	}

	return streamID, ch, cancel
}

// Publish delivers n to every session of the company. Slow receivers miss it.
func (h *Hub) Publish(companyID string, n domain.LeadNotification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, stream := range h.sessions[companyID] {
		select {
		case stream <- n:
		default:
			// Drop if receiver is slow.
		}
	}
}

// Sessions returns the number of live sessions for a company.
func (h *Hub) Sessions(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[companyID])
}

// Close ends every session. Subscribers see their channel closed; later
// cancel calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for companyID, streams := range h.sessions {
		for id, ch := range streams {
			delete(streams, id)
			close(ch)
		}
		delete(h.sessions, companyID)
	}
}
