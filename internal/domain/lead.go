package domain

import "time"

// ============================================================
// Leads
// ============================================================

// Lead is a captured visitor contact.
type Lead struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	ProfileID *string   `json:"profile_id"`
	CardID    *string   `json:"card_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Consent   bool      `json:"consent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadInput is the raw visitor submission. Consent is a pointer so that an
// absent field can be told apart from an explicit false.
type LeadInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Consent *bool   `json:"consent"`
	CardID  *string `json:"card_id,omitempty"`
}

// NormalizedLead is a validated, trimmed submission ready for persistence.
type NormalizedLead struct {
	Name  string
	Email string
	Phone *string
}

// LeadScope carries the ownership of a lead being persisted.
type LeadScope struct {
	CompanyID string
	ProfileID *string
	CardID    *string
	Device    DeviceClass
}

// LeadReceipt is returned to the visitor after a successful capture.
type LeadReceipt struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadNotification is the lightweight payload pushed to live dashboards.
type LeadNotification struct {
	CompanyID string `json:"-"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}
