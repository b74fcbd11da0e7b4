package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// PipelineMetrics is returned by GET /v1/metrics/pipeline.
type PipelineMetrics struct {
	LeadsCaptured       int64   `json:"leadsCaptured"`
	WebhookDelivered    int64   `json:"webhookDelivered"`
	WebhookFailed       int64   `json:"webhookFailed"`
	WebhookSuccessRate  float64 `json:"webhookSuccessRate"`
	FollowUpsSent       int64   `json:"followUpsSent"`
	FollowUpsSkipped    int64   `json:"followUpsSkipped"`
	EventsDropped       int64   `json:"eventsDropped"`
	StaleDispatchDenied int64   `json:"staleDispatchDenied"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	Period              string  `json:"period"`
}

// SuccessResponse wraps a simple acknowledgement.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
