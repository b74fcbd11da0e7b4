package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// ErrGeneratorNotConfigured is returned when no API key or endpoint is set.
var ErrGeneratorNotConfigured = errors.New("generator not configured")

// GeneratorClient calls an OpenAI-compatible chat completions endpoint.
// Calls go through the circuit breaker and are never retried.
type GeneratorClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
}

// NewGeneratorClient creates a new GeneratorClient.
func NewGeneratorClient(httpClient *http.Client, baseURL, apiKey, model string, timeout time.Duration, cb *gobreaker.CircuitBreaker) *GeneratorClient {
	return &GeneratorClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		cb:         cb,
	}
}

// Configured reports whether the client can make calls at all.
func (c *GeneratorClient) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate runs one single-turn completion.
func (c *GeneratorClient) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	ctx, span := tracer.Start(ctx, "GeneratorClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("generator.model", c.model))

	if !c.Configured() {
		return nil, ErrGeneratorNotConfigured
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.cb.Execute(func() (any, error) {
		body, err := json.Marshal(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: req.System},
				{Role: "user", Content: req.User},
			},
		})
		if err != nil {
			return nil, resilience.Permanent(err)
		}

		url := fmt.Sprintf("%s/chat/completions", c.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("generator returned status %d: %s", resp.StatusCode, string(msg))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, resilience.Permanent(err)
			}
			return nil, err
		}

		var out chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("decode generator response: %w", err))
		}
		return &out, nil
	})
	if err != nil {
		if resilience.IsBreakerOpen(err) {
			return nil, &domain.ErrCircuitOpen{Service: "generator"}
		}
		return nil, &domain.ErrExternalService{Service: "generator", Err: err}
	}

	out := result.(*chatResponse)
	resp := &domain.GenerateResponse{
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}
	if len(out.Choices) > 0 {
		resp.Text = strings.TrimSpace(out.Choices[0].Message.Content)
	}
	return resp, nil
}
