package service

import (
	"errors"
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Field rules for visitor-submitted leads. Lengths count runes.
const (
	nameRule  = "required,min=1,max=100"
	emailRule = "required,email,max=255"
	phoneRule = "max=20"
	uuidRule  = "uuid"
)

// Visitor-facing validation messages.
const (
	msgCaptureDisabled = "Este perfil não está recebendo contatos no momento."
	msgNameRequired    = "Informe seu nome."
	msgNameTooLong     = "O nome deve ter no máximo 100 caracteres."
	msgEmailRequired   = "Informe seu e-mail."
	msgEmailInvalid    = "Informe um e-mail válido."
	msgEmailTooLong    = "O e-mail deve ter no máximo 255 caracteres."
	msgPhoneTooLong    = "O telefone deve ter no máximo 20 caracteres."
	msgConsentRequired = "É necessário autorizar o compartilhamento dos seus dados."
)

// ValidateLead checks a visitor submission against the company layout. It is
// pure. The capture gate is checked first; field errors are reported for the
// first failing field in the order name, email, phone, consent.
func ValidateLead(in *domain.LeadInput, layout domain.ResolvedLayout) (*domain.NormalizedLead, error) {
	if !layout.ShowLeadForm {
		return nil, &domain.ErrLeadValidation{Code: domain.CodeCaptureDisabled, Message: msgCaptureDisabled}
	}
	if in == nil {
		in = &domain.LeadInput{}
	}

	name := strings.TrimSpace(in.Name)
	if tag := failedTag(name, nameRule); tag != "" {
		msg := msgNameRequired
		if tag == "max" {
			msg = msgNameTooLong
		}
		return nil, invalid("name", msg)
	}

	email := strings.TrimSpace(in.Email)
	if tag := failedTag(email, emailRule); tag != "" {
		msg := msgEmailInvalid
		switch tag {
		case "required":
			msg = msgEmailRequired
		case "max":
			msg = msgEmailTooLong
		}
		return nil, invalid("email", msg)
	}

	var phone *string
	if in.Phone != nil {
		p := strings.TrimSpace(*in.Phone)
		if tag := failedTag(p, phoneRule); tag != "" {
			return nil, invalid("phone", msgPhoneTooLong)
		}
		if p != "" {
			phone = &p
		}
	}

	if in.Consent == nil || !*in.Consent {
		return nil, &domain.ErrLeadValidation{Code: domain.CodeConsentRequired, Field: "consent", Message: msgConsentRequired}
	}

	return &domain.NormalizedLead{Name: name, Email: email, Phone: phone}, nil
}

// normalizeCardID keeps a visitor-supplied card reference only when it is a
// well-formed id. A lead without a card is valid.
func normalizeCardID(cardID *string) *string {
	if cardID == nil {
		return nil
	}
	id := strings.TrimSpace(*cardID)
	if id == "" || failedTag(id, uuidRule) != "" {
		return nil
	}
	return &id
}

func invalid(field, msg string) error {
	return &domain.ErrLeadValidation{Code: domain.CodeInvalidInput, Field: field, Message: msg}
}

// failedTag returns the first validator tag value fails, or "".
func failedTag(value, rule string) string {
	err := validate.Var(value, rule)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return rule
}
