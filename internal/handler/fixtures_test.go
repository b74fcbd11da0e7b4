package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/handler"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/cache"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/client"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret"

// --- Fake store ---

type fakeStore struct {
	mu           sync.Mutex
	cards        map[string]*domain.Card
	profiles     map[string]*domain.Profile
	companies    map[string]*domain.Company
	layouts      map[string]*domain.ProfileLayout
	leads        map[string]*domain.Lead
	events       []domain.Event
	integrations []domain.Integration
	insertErr    error
	pingErr      error
	seq          int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cards:     map[string]*domain.Card{},
		profiles:  map[string]*domain.Profile{},
		companies: map[string]*domain.Company{},
		layouts:   map[string]*domain.ProfileLayout{},
		leads:     map[string]*domain.Lead{},
	}
}

func (f *fakeStore) GetCardBySlug(_ context.Context, slug string) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cards[slug]; ok {
		return c, nil
	}
	return nil, &domain.ErrNotFound{Resource: "card", ID: slug}
}

func (f *fakeStore) GetCard(_ context.Context, id string) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "card", ID: id}
}

func (f *fakeStore) GetPublishedProfile(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok && p.Published {
		return p, nil
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
}

func (f *fakeStore) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.companies[id]; ok {
		return c, nil
	}
	return nil, &domain.ErrNotFound{Resource: "company", ID: id}
}

func (f *fakeStore) GetLayout(_ context.Context, companyID string) (*domain.ProfileLayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.layouts[companyID], nil
}

func (f *fakeStore) InsertLead(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.seq++
	stored := *lead
	stored.ID = fmt.Sprintf("lead-%d", f.seq)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.leads[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (f *fakeStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.leads[id]; ok {
		out := *l
		return &out, nil
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
}

func (f *fakeStore) InsertEvent(_ context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeStore) ListActiveIntegrations(_ context.Context, companyID string, kind domain.IntegrationType) ([]domain.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Integration
	for _, in := range f.integrations {
		if in.CompanyID == companyID && in.Type == kind && in.Active {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeStore) GetIntegration(_ context.Context, companyID, id string) (*domain.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, in := range f.integrations {
		if in.ID == id && in.CompanyID == companyID {
			out := in
			return &out, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "integration", ID: id}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) addLead(id, companyID string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[id] = &domain.Lead{ID: id, CompanyID: companyID, Name: "Ana", Email: "ana@x.com", Consent: true, CreatedAt: createdAt}
}

func (f *fakeStore) addWebhook(id, companyID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrations = append(f.integrations, domain.Integration{
		ID:        id,
		CompanyID: companyID,
		Type:      domain.IntegrationWebhook,
		Active:    true,
		Config:    []byte(fmt.Sprintf(`{"url":%q}`, url)),
	})
}

func (f *fakeStore) eventCount(t domain.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// --- Test server wiring ---

type testEnv struct {
	store    *fakeStore
	hub      *realtime.Hub
	auth     *service.AuthVerifier
	metrics  *observability.Metrics
	pipeline *service.CapturePipeline
	events   *service.EventRecorder
	router   http.Handler
}

// newTestEnv wires the real services over the fake store the way cmd/tapcard
// does, with company c1 owning the published profile p1.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, zap.NewNop())
}

func newTestEnvWithLogger(t *testing.T, logger *zap.Logger) *testEnv {
	t.Helper()
	metrics := observability.NewMetrics()
	store := newFakeStore()

	store.companies["c1"] = &domain.Company{ID: "c1", Name: "Acme", Slug: "acme"}
	store.profiles["p1"] = &domain.Profile{ID: "p1", CompanyID: "c1", FullName: "Bruno", Published: true}

	events := service.NewEventRecorder(store, 64, 1, metrics, logger)
	profiles := service.NewProfileLoader(store, cache.New[any](time.Minute), events, metrics, logger)
	writer := service.NewLeadWriter(store, events, metrics, logger)
	guard := service.NewReplayGuard(store, service.DefaultReplayWindow, nil, metrics, logger)
	sender := client.NewWebhookClient(&http.Client{}, 2*time.Second)
	dispatcher := service.NewDispatcher(store, guard, sender, 4, nil, metrics, logger)
	composer := service.NewComposer(store, nil, guard, events, metrics, logger)
	pipeline := service.NewCapturePipeline(profiles, writer, dispatcher, composer, metrics, logger)
	hub := realtime.NewHub()
	auth := service.NewAuthVerifier(testSecret)

	env := &testEnv{
		store:    store,
		hub:      hub,
		auth:     auth,
		metrics:  metrics,
		pipeline: pipeline,
		events:   events,
	}
	env.router = handler.NewRouter(&handler.Services{
		Tags:          service.NewTagResolver(store, events, logger),
		Profiles:      profiles,
		Pipeline:      pipeline,
		Dispatcher:    dispatcher,
		Composer:      composer,
		Auth:          auth,
		Hub:           hub,
		Store:         store,
		PublicBaseURL: "https://app.tapcard.test",
	}, metrics, logger)

	t.Cleanup(func() {
		pipeline.Wait()
		events.Close()
	})
	return env
}

func (e *testEnv) token(t *testing.T, companyID string) string {
	t.Helper()
	tok, err := e.auth.Sign("user-1", companyID, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
