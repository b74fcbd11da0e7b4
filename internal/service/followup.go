package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/tapcard-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const followUpSystemPrompt = `Você escreve e-mails de follow-up para contatos captados por cartões de visita digitais.
Escreva em português do Brasil, com tom profissional e caloroso.
Use no máximo 150 palavras.
Não inclua linha de assunto. Responda apenas com o corpo do e-mail.`

// configurable is implemented by generators that can report missing setup.
type configurable interface {
	Configured() bool
}

// Composer writes a personalised follow-up for a new lead and records it as
// a follow_up_sent event. Every failure is soft: it returns a reason, never an
// error, so it cannot affect lead capture or webhook dispatch.
type Composer struct {
	companies port.ProfileStore
	generator port.TextGenerator
	guard     *ReplayGuard
	events    *EventRecorder
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewComposer creates a Composer. generator may be nil when not configured.
func NewComposer(companies port.ProfileStore, generator port.TextGenerator, guard *ReplayGuard, events *EventRecorder, metrics *observability.Metrics, logger *zap.Logger) *Composer {
	return &Composer{
		companies: companies,
		generator: generator,
		guard:     guard,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

// Compose validates req and composes the follow-up. When req.LeadID is set
// the replay guard applies and the lead must belong to req.CompanyID.
// Request errors (validation, stale or foreign lead) are returned as errors.
// An unknown company and generation problems are reported in the result.
func (c *Composer) Compose(ctx context.Context, req *domain.FollowUpRequest) (*domain.FollowUpResult, error) {
	ctx, span := tracer.Start(ctx, "Composer.Compose")
	defer span.End()

	if err := validateFollowUp(req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("company.id", req.CompanyID))

	if req.LeadID != "" {
		lead, err := c.guard.Check(ctx, req.LeadID, ActionFollowUp)
		if err != nil {
			return nil, err
		}
		if lead.CompanyID != req.CompanyID {
			return nil, &domain.ErrForbidden{Action: "compose follow-up for a lead of another company"}
		}
	}

	company, err := c.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			c.logger.Debug("follow-up for unknown company", zap.String("company_id", req.CompanyID))
			return c.skip(domain.FollowUpUnknownCompany), nil
		}
		return nil, fmt.Errorf("company lookup: %w", err)
	}

	if !company.FollowUpEmail {
		return c.skip(domain.FollowUpDisabled), nil
	}
	if c.generator == nil {
		return c.skip(domain.FollowUpNotConfigured), nil
	}
	if g, ok := c.generator.(configurable); ok && !g.Configured() {
		return c.skip(domain.FollowUpNotConfigured), nil
	}

	start := time.Now()
	resp, err := c.generator.Generate(ctx, &domain.GenerateRequest{
		System: followUpSystemPrompt,
		User:   followUpUserPrompt(company, req.Lead),
	})
	c.metrics.RecordRequestDuration("generator", time.Since(start))
	if err != nil {
		c.metrics.IncrExternalError("generator")
		c.logger.Warn("follow-up generation failed",
			zap.String("company_id", req.CompanyID),
			zap.Error(err),
		)
		return c.skip(domain.FollowUpGenerationFailed), nil
	}
	c.metrics.RecordTokens(resp.PromptTokens, resp.CompletionTokens)

	body := strings.TrimSpace(resp.Text)
	if body == "" {
		return c.skip(domain.FollowUpEmptyBody), nil
	}

	_ = c.events.RecordNow(ctx, &domain.Event{
		CompanyID: req.CompanyID,
		ProfileID: req.Lead.ProfileID,
		Type:      domain.EventFollowUpSent,
		Metadata: map[string]any{
			"email": req.Lead.Email,
			"name":  req.Lead.Name,
			"body":  body,
		},
	})

	c.metrics.IncrFollowUp("sent")
	return &domain.FollowUpResult{Sent: true, EmailBody: body}, nil
}

func (c *Composer) skip(reason string) *domain.FollowUpResult {
	c.metrics.IncrFollowUp(reason)
	return &domain.FollowUpResult{Sent: false, Reason: reason}
}

func validateFollowUp(req *domain.FollowUpRequest) error {
	if req == nil || strings.TrimSpace(req.CompanyID) == "" {
		return &domain.ErrValidation{Field: "company_id", Message: "company_id is required"}
	}
	if req.Lead == nil {
		return &domain.ErrValidation{Field: "lead", Message: "lead is required"}
	}
	if strings.TrimSpace(req.Lead.Name) == "" {
		return &domain.ErrValidation{Field: "lead.name", Message: "lead.name is required"}
	}
	if strings.TrimSpace(req.Lead.Email) == "" {
		return &domain.ErrValidation{Field: "lead.email", Message: "lead.email is required"}
	}
	return nil
}

func followUpUserPrompt(company *domain.Company, lead *domain.FollowUpLead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Escreva um e-mail de follow-up para %s (%s)", strings.TrimSpace(lead.Name), strings.TrimSpace(lead.Email))
	if company.Name != "" {
		fmt.Fprintf(&b, ", que acabou de deixar seu contato com a empresa %s", company.Name)
	}
	b.WriteString(".")
	if lead.Phone != nil && strings.TrimSpace(*lead.Phone) != "" {
		fmt.Fprintf(&b, " Telefone informado: %s.", strings.TrimSpace(*lead.Phone))
	}
	return b.String()
}
