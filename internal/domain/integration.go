package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================
// Integrations & webhook fan-out
// ============================================================

// IntegrationType tags the variant held in Integration.Config.
type IntegrationType string

const (
	IntegrationWebhook IntegrationType = "webhook"
)

// Integration is a company-configured external endpoint. Config is the raw
// JSON bag as stored; use Webhook() to decode the typed variant.
type Integration struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Type      IntegrationType `json:"type"`
	Active    bool            `json:"active"`
	Config    json.RawMessage `json:"config"`
}

// WebhookConfig is the typed payload of a webhook integration.
type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// Webhook decodes the webhook variant. It fails for other integration types
// and for configurations without a URL.
func (i *Integration) Webhook() (*WebhookConfig, error) {
	if i.Type != IntegrationWebhook {
		return nil, fmt.Errorf("integration %s is %q, not webhook", i.ID, i.Type)
	}
	var cfg WebhookConfig
	if len(i.Config) > 0 {
		if err := json.Unmarshal(i.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode webhook config %s: %w", i.ID, err)
		}
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("integration %s has no url", i.ID)
	}
	return &cfg, nil
}

// WebhookLead is the lead section of a webhook payload.
type WebhookLead struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	ProfileID *string `json:"profile_id"`
}

// WebhookPayload is the body posted to every webhook endpoint.
type WebhookPayload struct {
	Event     string       `json:"event"`
	Timestamp string       `json:"timestamp"`
	CompanyID string       `json:"company_id"`
	Lead      *WebhookLead `json:"lead,omitempty"`
}

const (
	WebhookEventLeadCreated = "lead.created"
	WebhookEventTest        = "test"
)

// NewLeadCreatedPayload builds the lead.created payload for a lead.
func NewLeadCreatedPayload(lead *Lead, at time.Time) *WebhookPayload {
	return &WebhookPayload{
		Event:     WebhookEventLeadCreated,
		Timestamp: at.UTC().Format(time.RFC3339),
		CompanyID: lead.CompanyID,
		Lead: &WebhookLead{
			Name:      lead.Name,
			Email:     lead.Email,
			Phone:     lead.Phone,
			ProfileID: lead.ProfileID,
		},
	}
}

// DeliveryResult is the outcome of one webhook delivery attempt.
type DeliveryResult struct {
	IntegrationID string `json:"integration_id"`
	URL           string `json:"url"`
	Status        int    `json:"status,omitempty"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
}

// DispatchSummary aggregates a fan-out invocation.
type DispatchSummary struct {
	Dispatched int              `json:"dispatched"`
	Total      int              `json:"total"`
	Results    []DeliveryResult `json:"results"`
}

// DispatchRequest is the body of POST /dispatch-lead-webhooks.
type DispatchRequest struct {
	LeadID string `json:"lead_id"`
}
