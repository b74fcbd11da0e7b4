package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"go.uber.org/zap"
)

func followUpReq() *domain.FollowUpRequest {
	return &domain.FollowUpRequest{
		CompanyID: "c1",
		Lead:      &domain.FollowUpLead{Name: "Ana", Email: "ana@x.com", ProfileID: strPtr("p1")},
	}
}

func TestCompose_Disabled(t *testing.T) {
	h := newHarness(nil)
	h.store.companies["c1"].FollowUpEmail = false

	res, err := h.composer.Compose(context.Background(), followUpReq())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Sent || res.Reason != domain.FollowUpDisabled {
		t.Errorf("expected disabled, got %+v", res)
	}
	if h.generator.callCount() != 0 {
		t.Errorf("expected zero generator calls, got %d", h.generator.callCount())
	}
}

func TestCompose_UnknownCompanyIsSoft(t *testing.T) {
	h := newHarness(nil)
	req := followUpReq()
	req.CompanyID = "ghost"

	res, err := h.composer.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Sent || res.Reason != domain.FollowUpUnknownCompany {
		t.Errorf("expected unknown_company, got %+v", res)
	}
	if h.generator.callCount() != 0 {
		t.Errorf("expected zero generator calls, got %d", h.generator.callCount())
	}
	if skipped := h.metrics.GetPipelineSnapshot().FollowUpsSkipped; skipped != 1 {
		t.Errorf("expected 1 skipped follow-up, got %d", skipped)
	}
}

func TestCompose_NotConfigured(t *testing.T) {
	h := newHarness(nil)
	h.generator.configured = false

	res, err := h.composer.Compose(context.Background(), followUpReq())
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != domain.FollowUpNotConfigured {
		t.Errorf("expected not_configured, got %+v", res)
	}
	if h.generator.callCount() != 0 {
		t.Error("unconfigured generator must not be called")
	}

	nilGen := service.NewComposer(h.store, nil, h.guard, h.events, h.metrics, zap.NewNop())
	res, err = nilGen.Compose(context.Background(), followUpReq())
	if err != nil || res.Reason != domain.FollowUpNotConfigured {
		t.Errorf("expected not_configured for nil generator, got %+v / %v", res, err)
	}
}

func TestCompose_GenerationFailedIsSoft(t *testing.T) {
	h := newHarness(nil)
	h.generator.err = errors.New("gateway returned 500")

	res, err := h.composer.Compose(context.Background(), followUpReq())
	if err != nil {
		t.Fatalf("generation failures must not be errors, got %v", err)
	}
	if res.Sent || res.Reason != domain.FollowUpGenerationFailed {
		t.Errorf("expected generation_failed, got %+v", res)
	}
	if n := len(h.store.eventsOfType(domain.EventFollowUpSent)); n != 0 {
		t.Errorf("expected no follow_up_sent event, got %d", n)
	}
}

func TestCompose_EmptyBody(t *testing.T) {
	h := newHarness(nil)
	h.generator.text = "   "

	res, _ := h.composer.Compose(context.Background(), followUpReq())
	if res.Sent || res.Reason != domain.FollowUpEmptyBody {
		t.Errorf("expected empty_body, got %+v", res)
	}
}

func TestCompose_SuccessRecordsEvent(t *testing.T) {
	h := newHarness(nil)

	res, err := h.composer.Compose(context.Background(), followUpReq())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Sent || res.EmailBody != "Olá Ana, obrigado pelo contato!" {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(h.generator.lastReq.User, "Ana") {
		t.Errorf("user prompt must name the lead: %q", h.generator.lastReq.User)
	}
	if !strings.Contains(h.generator.lastReq.System, "150 palavras") {
		t.Errorf("system prompt must bound the length: %q", h.generator.lastReq.System)
	}

	events := h.store.eventsOfType(domain.EventFollowUpSent)
	if len(events) != 1 {
		t.Fatalf("expected one follow_up_sent event, got %d", len(events))
	}
	md := events[0].Metadata
	if md["email"] != "ana@x.com" || md["name"] != "Ana" || md["body"] != res.EmailBody {
		t.Errorf("unexpected event metadata %v", md)
	}
}

func TestCompose_Validation(t *testing.T) {
	h := newHarness(nil)
	bad := []*domain.FollowUpRequest{
		nil,
		{Lead: &domain.FollowUpLead{Name: "Ana", Email: "ana@x.com"}},
		{CompanyID: "c1"},
		{CompanyID: "c1", Lead: &domain.FollowUpLead{Email: "ana@x.com"}},
		{CompanyID: "c1", Lead: &domain.FollowUpLead{Name: "Ana"}},
	}
	for i, req := range bad {
		_, err := h.composer.Compose(context.Background(), req)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestCompose_LeadIDGuarded(t *testing.T) {
	now := time.Now()
	h := newHarness(fixedClock(now))
	seedLead(h, "old", now.Add(-2*time.Minute))
	seedLead(h, "fresh", now)
	h.store.leads["foreign"] = &domain.Lead{ID: "foreign", CompanyID: "c2", CreatedAt: now}

	req := followUpReq()
	req.LeadID = "old"
	_, err := h.composer.Compose(context.Background(), req)
	var stale *domain.ErrStaleLead
	if !errors.As(err, &stale) {
		t.Errorf("expected ErrStaleLead, got %v", err)
	}

	req.LeadID = "foreign"
	_, err = h.composer.Compose(context.Background(), req)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if h.generator.callCount() != 0 {
		t.Errorf("refused requests must not reach the generator, got %d calls", h.generator.callCount())
	}

	req.LeadID = "fresh"
	res, err := h.composer.Compose(context.Background(), req)
	if err != nil || !res.Sent {
		t.Errorf("expected fresh lead to compose, got %+v / %v", res, err)
	}
}
