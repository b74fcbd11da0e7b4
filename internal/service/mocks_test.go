package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/cache"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockStore struct {
	mu           sync.Mutex
	cards        map[string]*domain.Card
	profiles     map[string]*domain.Profile
	companies    map[string]*domain.Company
	layouts      map[string]*domain.ProfileLayout
	leads        map[string]*domain.Lead
	events       []domain.Event
	integrations []domain.Integration

	cardErr        error
	insertLeadErr  error
	insertEventErr error
	nextLead       int
	now            func() time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		cards:     map[string]*domain.Card{},
		profiles:  map[string]*domain.Profile{},
		companies: map[string]*domain.Company{},
		layouts:   map[string]*domain.ProfileLayout{},
		leads:     map[string]*domain.Lead{},
		now:       time.Now,
	}
}

func (m *mockStore) GetCardBySlug(_ context.Context, slug string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cardErr != nil {
		return nil, m.cardErr
	}
	c, ok := m.cards[slug]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "card", ID: slug}
	}
	return c, nil
}

func (m *mockStore) GetCard(_ context.Context, id string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cardErr != nil {
		return nil, m.cardErr
	}
	for _, c := range m.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "card", ID: id}
}

func (m *mockStore) GetPublishedProfile(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || !p.Published {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	return p, nil
}

func (m *mockStore) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return c, nil
}

func (m *mockStore) GetLayout(_ context.Context, companyID string) (*domain.ProfileLayout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layouts[companyID], nil
}

func (m *mockStore) InsertLead(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertLeadErr != nil {
		return nil, m.insertLeadErr
	}
	m.nextLead++
	stored := *lead
	stored.ID = fmt.Sprintf("lead-%d", m.nextLead)
	stored.CreatedAt = m.now()
	stored.UpdatedAt = stored.CreatedAt
	m.leads[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	out := *l
	return &out, nil
}

func (m *mockStore) InsertEvent(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertEventErr != nil {
		return m.insertEventErr
	}
	m.events = append(m.events, *e)
	return nil
}

func (m *mockStore) ListActiveIntegrations(_ context.Context, companyID string, kind domain.IntegrationType) ([]domain.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Integration
	for _, in := range m.integrations {
		if in.CompanyID == companyID && in.Type == kind && in.Active {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *mockStore) GetIntegration(_ context.Context, companyID, id string) (*domain.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.integrations {
		if in.ID == id && in.CompanyID == companyID {
			out := in
			return &out, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "integration", ID: id}
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) eventsOfType(t domain.EventType) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockStore) leadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads)
}

type mockSender struct {
	mu       sync.Mutex
	statuses map[string]int // url -> status; missing means 200
	errs     map[string]error
	calls    map[string]int
}

func newMockSender() *mockSender {
	return &mockSender{statuses: map[string]int{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (m *mockSender) Send(_ context.Context, url, _ string, _ []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[url]++
	if err := m.errs[url]; err != nil {
		return 0, err
	}
	if s, ok := m.statuses[url]; ok {
		if s < 200 || s >= 300 {
			return s, fmt.Errorf("webhook returned status %d", s)
		}
		return s, nil
	}
	return 200, nil
}

func (m *mockSender) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

type mockGenerator struct {
	mu         sync.Mutex
	text       string
	err        error
	calls      int
	configured bool
	lastReq    *domain.GenerateRequest
}

func (m *mockGenerator) Generate(_ context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.GenerateResponse{Text: m.text, PromptTokens: 10, CompletionTokens: 20}, nil
}

func (m *mockGenerator) Configured() bool { return m.configured }

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Fixtures ---

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) service.Clock { return func() time.Time { return t } }

type harness struct {
	store     *mockStore
	sender    *mockSender
	generator *mockGenerator
	metrics   *observability.Metrics
	events    *service.EventRecorder
	profiles  *service.ProfileLoader
	writer    *service.LeadWriter
	guard     *service.ReplayGuard
	dispatch  *service.Dispatcher
	composer  *service.Composer
	pipeline  *service.CapturePipeline
	resolver  *service.TagResolver
}

// newHarness wires every service over the mocks, mirroring cmd/tapcard.
func newHarness(now service.Clock) *harness {
	logger := zap.NewNop()
	h := &harness{
		store:     newMockStore(),
		sender:    newMockSender(),
		generator: &mockGenerator{configured: true, text: "Olá Ana, obrigado pelo contato!"},
		metrics:   observability.NewMetrics(),
	}
	if now != nil {
		h.store.now = now
	}
	h.events = service.NewEventRecorder(h.store, 64, 2, h.metrics, logger)
	h.profiles = service.NewProfileLoader(h.store, cache.New[any](time.Minute), h.events, h.metrics, logger)
	h.writer = service.NewLeadWriter(h.store, h.events, h.metrics, logger)
	h.guard = service.NewReplayGuard(h.store, time.Minute, now, h.metrics, logger)
	h.dispatch = service.NewDispatcher(h.store, h.guard, h.sender, 4, now, h.metrics, logger)
	h.composer = service.NewComposer(h.store, h.generator, h.guard, h.events, h.metrics, logger)
	h.pipeline = service.NewCapturePipeline(h.profiles, h.writer, h.dispatch, h.composer, h.metrics, logger)
	h.resolver = service.NewTagResolver(h.store, h.events, logger)

	h.store.companies["c1"] = &domain.Company{ID: "c1", Name: "Acme", Slug: "acme", FollowUpEmail: true}
	h.store.profiles["p1"] = &domain.Profile{ID: "p1", CompanyID: "c1", FullName: "Bruno", Published: true}
	return h
}

func (h *harness) webhook(id, url string) {
	h.store.integrations = append(h.store.integrations, domain.Integration{
		ID:        id,
		CompanyID: "c1",
		Type:      domain.IntegrationWebhook,
		Active:    true,
		Config:    []byte(fmt.Sprintf(`{"url":%q,"secret":"s-%s"}`, url, id)),
	})
}
