package domain

// ============================================================
// Follow-up composition
// ============================================================

// Follow-up outcome reasons when nothing was composed.
const (
	FollowUpDisabled         = "disabled"
	FollowUpNotConfigured    = "not_configured"
	FollowUpGenerationFailed = "generation_failed"
	FollowUpEmptyBody        = "empty_body"
	FollowUpUnknownCompany   = "unknown_company"
)

// FollowUpLead is the lead section of a compose request.
type FollowUpLead struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	ProfileID *string `json:"profile_id,omitempty"`
}

// FollowUpRequest is the body of POST /compose-follow-up.
type FollowUpRequest struct {
	CompanyID string        `json:"company_id"`
	LeadID    string        `json:"lead_id,omitempty"`
	Lead      *FollowUpLead `json:"lead"`
}

// FollowUpResult is returned by the composer. Failures are soft.
type FollowUpResult struct {
	Sent      bool   `json:"sent"`
	Reason    string `json:"reason,omitempty"`
	EmailBody string `json:"email_body,omitempty"`
}

// GenerateRequest is a single-turn generative text call.
type GenerateRequest struct {
	System string
	User   string
}

// GenerateResponse is the generator's answer.
type GenerateResponse struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
