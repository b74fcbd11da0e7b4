package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a malformed request (missing ids, bad JSON shape).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates the caller lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates an invalid or missing dashboard token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ============================================================
// Tag resolution
// ============================================================

// TagOutcome distinguishes why a scanned tag cannot be used.
type TagOutcome string

const (
	TagNotFound    TagOutcome = "not_found"
	TagDeactivated TagOutcome = "deactivated"
	TagUnlinked    TagOutcome = "unlinked"
)

// ErrTagUnusable is returned by the tag resolver for every non-success outcome.
// Reason is for internal tooling; visitors only get VisitorMessage.
type ErrTagUnusable struct {
	Slug   string
	Reason TagOutcome
}

func (e *ErrTagUnusable) Error() string {
	return fmt.Sprintf("tag %s unusable: %s", e.Slug, e.Reason)
}

// VisitorMessage is the low-information message shown on the public page.
func (e *ErrTagUnusable) VisitorMessage() string {
	switch e.Reason {
	case TagDeactivated:
		return "Este cartão está desativado."
	case TagUnlinked:
		return "Este cartão ainda não foi vinculado a um perfil."
	default:
		return "Cartão não encontrado."
	}
}

// ErrProfileNotFound covers both missing and unpublished profiles. The two
// cases are never distinguished in the message.
type ErrProfileNotFound struct {
	ProfileID string
}

func (e *ErrProfileNotFound) Error() string {
	return "Perfil não encontrado."
}

// ============================================================
// Lead intake
// ============================================================

// LeadErrorCode is the stable code of a lead validation failure.
type LeadErrorCode string

const (
	CodeInvalidInput    LeadErrorCode = "invalid_input"
	CodeConsentRequired LeadErrorCode = "consent_required"
	CodeCaptureDisabled LeadErrorCode = "capture_disabled"
)

// ErrLeadValidation reports the first failing field of a lead submission.
type ErrLeadValidation struct {
	Code    LeadErrorCode
	Field   string
	Message string
}

func (e *ErrLeadValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("lead rejected [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("lead rejected [%s] on '%s': %s", e.Code, e.Field, e.Message)
}

// ErrPersistenceFailed wraps a store rejection of a lead insert. Err is never
// shown to visitors.
type ErrPersistenceFailed struct {
	Err error
}

func (e *ErrPersistenceFailed) Error() string {
	return fmt.Sprintf("lead persistence failed: %v", e.Err)
}

func (e *ErrPersistenceFailed) Unwrap() error {
	return e.Err
}

// ErrStaleLead is returned when a dispatch is requested outside the replay window.
type ErrStaleLead struct {
	LeadID string
	Action string
}

func (e *ErrStaleLead) Error() string {
	return fmt.Sprintf("lead %s is outside the replay window for %s", e.LeadID, e.Action)
}
