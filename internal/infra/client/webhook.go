package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Webhook request headers.
const (
	HeaderWebhookSecret    = "X-Webhook-Secret"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// WebhookClient delivers JSON payloads to company webhook endpoints.
// Deliveries are attempted once: no retry and no circuit breaker, since each
// endpoint belongs to a different tenant.
type WebhookClient struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewWebhookClient creates a WebhookClient with a per-delivery timeout.
func NewWebhookClient(httpClient *http.Client, timeout time.Duration) *WebhookClient {
	return &WebhookClient{httpClient: httpClient, timeout: timeout}
}

// Send posts body to url. It returns the response status whenever a response
// was received; any non-2xx status is also reported as an error.
func (c *WebhookClient) Send(ctx context.Context, url, secret string, body []byte) (int, error) {
	ctx, span := tracer.Start(ctx, "WebhookClient.Send")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.url", url))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tapcard-webhooks/1.0")
	if secret != "" {
		req.Header.Set(HeaderWebhookSecret, secret)
		req.Header.Set(HeaderWebhookSignature, Sign(secret, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign returns the X-Webhook-Signature value for body: "sha256=" followed by
// the hex HMAC-SHA256 keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
