package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

func anaInput() *domain.LeadInput {
	return &domain.LeadInput{Name: "Ana", Email: "ana@x.com", Consent: boolPtr(true)}
}

func TestSubmit_TwoWebhooksOneFails(t *testing.T) {
	h := newHarness(nil)
	h.webhook("i1", "https://ok.example.com")
	h.webhook("i2", "https://down.example.com")
	h.sender.statuses["https://down.example.com"] = 500

	receipt, err := h.pipeline.Submit(context.Background(), "p1", anaInput(), iphoneUA)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.ID == "" || receipt.CreatedAt.IsZero() {
		t.Errorf("unexpected receipt %+v", receipt)
	}
	h.pipeline.Wait()
	h.events.Close()

	if h.store.leadCount() != 1 {
		t.Fatalf("expected one lead row, got %d", h.store.leadCount())
	}
	if n := len(h.store.eventsOfType(domain.EventLeadSubmit)); n != 1 {
		t.Errorf("expected one lead_submit event, got %d", n)
	}
	if h.sender.calls["https://ok.example.com"] != 1 || h.sender.calls["https://down.example.com"] != 1 {
		t.Errorf("each webhook must be attempted once, got %v", h.sender.calls)
	}
	snap := h.metrics.GetPipelineSnapshot()
	if snap.WebhookDelivered != 1 || snap.WebhookFailed != 1 {
		t.Errorf("expected {dispatched:1,total:2}, got delivered=%d failed=%d", snap.WebhookDelivered, snap.WebhookFailed)
	}
	if n := len(h.store.eventsOfType(domain.EventFollowUpSent)); n != 1 {
		t.Errorf("expected follow-up to be composed, got %d events", n)
	}

	stored, _ := h.store.GetLead(context.Background(), receipt.ID)
	if !stored.Consent {
		t.Error("stored consent must be true")
	}
	if stored.Phone != nil {
		t.Errorf("omitted phone must be stored as null, got %q", *stored.Phone)
	}
	if stored.ProfileID == nil || *stored.ProfileID != "p1" {
		t.Errorf("lead must be scoped to the profile, got %v", stored.ProfileID)
	}
}

func TestSubmit_ConsentMissingCreatesNothing(t *testing.T) {
	for _, consent := range []*bool{nil, boolPtr(false)} {
		h := newHarness(nil)
		in := anaInput()
		in.Consent = consent

		_, err := h.pipeline.Submit(context.Background(), "p1", in, "")
		var lv *domain.ErrLeadValidation
		if !errors.As(err, &lv) || lv.Code != domain.CodeConsentRequired {
			t.Fatalf("expected consent_required, got %v", err)
		}
		h.pipeline.Wait()
		if h.store.leadCount() != 0 {
			t.Errorf("no lead may be persisted without consent")
		}
	}
}

func TestSubmit_CaptureDisabled(t *testing.T) {
	h := newHarness(nil)
	h.store.layouts["c1"] = &domain.ProfileLayout{CompanyID: "c1", ShowLeadForm: boolPtr(false)}

	_, err := h.pipeline.Submit(context.Background(), "p1", anaInput(), "")
	var lv *domain.ErrLeadValidation
	if !errors.As(err, &lv) || lv.Code != domain.CodeCaptureDisabled {
		t.Fatalf("expected capture_disabled, got %v", err)
	}
	if h.store.leadCount() != 0 {
		t.Error("no lead may be persisted when capture is disabled")
	}
}

func TestSubmit_UnpublishedProfile(t *testing.T) {
	h := newHarness(nil)
	h.store.profiles["p1"].Published = false

	_, err := h.pipeline.Submit(context.Background(), "p1", anaInput(), "")
	var nf *domain.ErrProfileNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSubmit_PersistenceFailureStopsPipeline(t *testing.T) {
	h := newHarness(nil)
	h.webhook("i1", "https://ok.example.com")
	h.store.insertLeadErr = errors.New(`duplicate key value violates unique constraint "leads_pkey"`)

	_, err := h.pipeline.Submit(context.Background(), "p1", anaInput(), "")
	var pf *domain.ErrPersistenceFailed
	if !errors.As(err, &pf) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	h.pipeline.Wait()

	if h.sender.totalCalls() != 0 {
		t.Error("nothing downstream of a failed insert may run")
	}
	if h.generator.callCount() != 0 {
		t.Error("follow-up must not run after a failed insert")
	}
}

func TestSubmit_EventFailureIsNotSurfaced(t *testing.T) {
	h := newHarness(nil)
	h.store.insertEventErr = errors.New("events table locked")

	receipt, err := h.pipeline.Submit(context.Background(), "p1", anaInput(), "")
	if err != nil {
		t.Fatalf("event failures must not fail the submission, got %v", err)
	}
	h.pipeline.Wait()
	if receipt.ID == "" || h.store.leadCount() != 1 {
		t.Error("lead must still be durable")
	}
}

func TestSubmit_CardReference(t *testing.T) {
	const (
		ownCard     = "6f1c2a7e-8a51-4a4e-9d7b-0c0f5a3b2e11"
		foreignCard = "0b9d3c44-5e2f-4d7a-8c61-2f4e9a7b1d03"
		missingCard = "c3a1f0e2-7d4b-4b9e-9a15-6e8d2c0f4b77"
	)
	h := newHarness(nil)
	h.store.cards["ana"] = &domain.Card{ID: ownCard, Slug: "ana", Status: domain.CardActive, CompanyID: "c1"}
	h.store.cards["rival"] = &domain.Card{ID: foreignCard, Slug: "rival", Status: domain.CardActive, CompanyID: "c2"}
	ctx := context.Background()

	tests := []struct {
		name   string
		cardID string
		want   *string
	}{
		{"own card kept", ownCard, strPtr(ownCard)},
		{"foreign card dropped", foreignCard, nil},
		{"missing card dropped", missingCard, nil},
		{"malformed card dropped", "not-a-card", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := anaInput()
			in.CardID = strPtr(tt.cardID)
			receipt, err := h.pipeline.Submit(ctx, "p1", in, "")
			if err != nil {
				t.Fatalf("lead must still be accepted, got %v", err)
			}
			h.pipeline.Wait()

			lead, err := h.store.GetLead(ctx, receipt.ID)
			if err != nil {
				t.Fatal(err)
			}
			switch {
			case tt.want == nil && lead.CardID != nil:
				t.Errorf("expected card reference dropped, got %q", *lead.CardID)
			case tt.want != nil && (lead.CardID == nil || *lead.CardID != *tt.want):
				t.Errorf("expected card %s, got %v", *tt.want, lead.CardID)
			}
		})
	}
}

func TestSubmit_CardLookupFailureDropsReference(t *testing.T) {
	h := newHarness(nil)
	h.store.cardErr = &domain.ErrExternalService{Service: "supabase/cards", Err: errors.New("boom")}

	in := anaInput()
	in.CardID = strPtr("6f1c2a7e-8a51-4a4e-9d7b-0c0f5a3b2e11")
	receipt, err := h.pipeline.Submit(context.Background(), "p1", in, "")
	if err != nil {
		t.Fatalf("card lookup failures must not fail the submission, got %v", err)
	}
	h.pipeline.Wait()

	lead, _ := h.store.GetLead(context.Background(), receipt.ID)
	if lead.CardID != nil {
		t.Errorf("expected card reference dropped, got %q", *lead.CardID)
	}
}
