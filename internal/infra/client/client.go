// Package client holds the outbound HTTP adapters: webhook delivery and the
// generative-text gateway.
package client

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("client")
