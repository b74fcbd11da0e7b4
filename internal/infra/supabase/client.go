// Package supabase provides a client for Supabase (PostgREST).
// It is the default data backend for cards, profiles, leads, events and
// integrations.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// statusError is a non-2xx PostgREST response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// invalidTextRepresentation is the Postgres code PostgREST relays when a
// filter value cannot be cast to the column type, such as a malformed uuid.
const invalidTextRepresentation = "22P02"

// pgCode returns the Postgres error code carried in a PostgREST error body.
func (e *statusError) pgCode() string {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	return body.Code
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// doRequest executes an authenticated GET-style request to Supabase PostgREST.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &statusError{Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// selectRows runs a read through the circuit breaker with retry and decodes
// the JSON array into out. Client errors (4xx) are not retried; a filter
// value of the wrong type yields an empty result.
func (c *Client) selectRows(ctx context.Context, service, path string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				var se *statusError
				if !errors.As(err, &se) || se.Status >= 500 {
					return err
				}
				// A key that cannot be cast to the column type matches no row.
				if se.pgCode() != invalidTextRepresentation {
					return resilience.Permanent(err)
				}
				body = nil
			}
			if body == nil {
				body = []byte("[]")
			}
			if err := json.Unmarshal(body, out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s: %w", service, err))
			}
			return nil
		})
	})
	return c.wrapErr(service, err)
}

// insertRow posts one row and decodes the returned representation into out.
// Inserts are never retried.
func (c *Client) insertRow(ctx context.Context, service, table string, row map[string]any, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doPost(ctx, table, row)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.Status < 500 {
				return nil, resilience.Permanent(err)
			}
			return nil, err
		}
		if out == nil {
			return nil, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("decode %s: %w", service, err))
		}
		return nil, nil
	})
	return c.wrapErr(service, err)
}

func (c *Client) wrapErr(service string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsBreakerOpen(err) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Ping checks PostgREST reachability for /healthz.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "companies?select=id&limit=1")
	return err
}
