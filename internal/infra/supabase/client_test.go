package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/supabase"

	"go.uber.org/zap"
)

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service", resilience.NewCircuitBreaker(t.Name()), cfg, zap.NewNop())
}

func TestGetCardBySlug(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/cards" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("slug"); got != "eq.ana silva" {
			t.Errorf("unexpected slug filter %q", got)
		}
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer service" {
			t.Error("missing supabase auth headers")
		}
		w.Write([]byte(`[{"id":"card-1","slug":"ana silva","status":"active","profile_id":"p1","company_id":"c1"}]`))
	})

	card, err := client.GetCardBySlug(context.Background(), "ana silva")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.ID != "card-1" || card.Status != domain.CardActive || card.ProfileID == nil || *card.ProfileID != "p1" {
		t.Errorf("unexpected card %+v", card)
	}
}

func TestGetCardBySlug_NotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.GetCardBySlug(context.Background(), "ghost")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReads_RetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id":"lead-1","company_id":"c1","name":"Ana","email":"ana@x.com","consent":true,"created_at":"2026-01-02T10:00:00Z"}]`))
	})

	lead, err := client.GetLead(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Email != "ana@x.com" || calls.Load() != 3 {
		t.Errorf("expected success on third attempt, got %d calls", calls.Load())
	}
}

func TestReads_ClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.GetLead(context.Background(), "lead-1")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestInsertLead_NeverRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.InsertLead(context.Background(), &domain.Lead{CompanyID: "c1", Name: "Ana", Email: "ana@x.com", Consent: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("inserts must not be retried, got %d attempts", calls.Load())
	}
}

func TestInsertLead_NullPhone(t *testing.T) {
	var row map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("unexpected request %s prefer=%q", r.Method, r.Header.Get("Prefer"))
		}
		json.NewDecoder(r.Body).Decode(&row)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"lead-9","company_id":"c1","name":"Ana","email":"ana@x.com","phone":null,"consent":true,"created_at":"2026-01-02T10:00:00Z"}]`))
	})

	lead, err := client.InsertLead(context.Background(), &domain.Lead{CompanyID: "c1", Name: "Ana", Email: "ana@x.com", Consent: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := row["phone"]; !ok || v != nil {
		t.Errorf("phone should be sent as null, got %v", v)
	}
	if lead.ID != "lead-9" || lead.Phone != nil {
		t.Errorf("unexpected lead %+v", lead)
	}
}

func TestReads_MalformedKeyIsNotFound(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"22P02","details":null,"hint":null,"message":"invalid input syntax for type uuid: \"not-a-uuid\""}`))
	})

	_, err := client.GetLead(context.Background(), "not-a-uuid")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}

	integrations, err := client.ListActiveIntegrations(context.Background(), "not-a-uuid", domain.IntegrationWebhook)
	if err != nil || len(integrations) != 0 {
		t.Errorf("expected no integrations, got %v (err %v)", integrations, err)
	}
}
