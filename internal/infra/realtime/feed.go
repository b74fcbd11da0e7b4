package realtime

import (
	"context"
	"sync"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"
)

// LocalFeed is an in-process change feed of committed lead inserts. It is
// used with backends that have no native notification channel.
type LocalFeed struct {
	mu        sync.RWMutex
	listeners map[int]func(domain.LeadNotification)
	next      int
}

// NewLocalFeed creates an empty feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: map[int]func(domain.LeadNotification){}}
}

// Listen registers fn and blocks until ctx is done.
func (f *LocalFeed) Listen(ctx context.Context, fn func(domain.LeadNotification)) error {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	delete(f.listeners, id)
	f.mu.Unlock()
	return nil
}

// Emit invokes every listener synchronously.
func (f *LocalFeed) Emit(n domain.LeadNotification) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.listeners {
		fn(n)
	}
}

// NotifyingStore decorates a store so that every successful lead insert is
// emitted on a LocalFeed.
type NotifyingStore struct {
	port.Store
	feed *LocalFeed
}

// NewNotifyingStore wraps store.
func NewNotifyingStore(store port.Store, feed *LocalFeed) *NotifyingStore {
	return &NotifyingStore{Store: store, feed: feed}
}

// InsertLead inserts through the wrapped store and emits on success.
func (s *NotifyingStore) InsertLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	stored, err := s.Store.InsertLead(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.feed.Emit(domain.LeadNotification{
		CompanyID: stored.CompanyID,
		Name:      stored.Name,
		Email:     stored.Email,
	})
	return stored, nil
}
