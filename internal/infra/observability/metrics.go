package observability

import (
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the lead pipeline.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	leadsCaptured   *prometheus.CounterVec
	webhookDeliver  *prometheus.CounterVec
	followUps       *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	dispatchDenied  *prometheus.CounterVec
	realtimeClients prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tapcard_operation_duration_seconds",
				Help:    "Duration of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_llm_tokens_total",
				Help: "Total generator tokens consumed.",
			},
			[]string{"type"},
		),
		leadsCaptured: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_leads_total",
				Help: "Lead submissions by outcome.",
			},
			[]string{"outcome"},
		),
		webhookDeliver: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_webhook_deliveries_total",
				Help: "Webhook delivery attempts by outcome.",
			},
			[]string{"outcome"},
		),
		followUps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_follow_ups_total",
				Help: "Follow-up compositions by outcome.",
			},
			[]string{"outcome"},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_events_dropped_total",
				Help: "Analytics events that could not be recorded.",
			},
			[]string{"reason"},
		),
		dispatchDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapcard_dispatch_denied_total",
				Help: "Dispatch requests refused by the replay guard.",
			},
			[]string{"action"},
		),
		realtimeClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tapcard_realtime_sessions",
				Help: "Connected dashboard sessions.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrLead counts a lead submission outcome (captured, rejected, failed).
func (m *Metrics) IncrLead(outcome string) {
	m.leadsCaptured.WithLabelValues(outcome).Inc()
}

// IncrWebhookDelivery counts one delivery attempt (delivered, failed).
func (m *Metrics) IncrWebhookDelivery(outcome string) {
	m.webhookDeliver.WithLabelValues(outcome).Inc()
}

// IncrFollowUp counts a composer outcome (sent or a skip reason).
func (m *Metrics) IncrFollowUp(outcome string) {
	m.followUps.WithLabelValues(outcome).Inc()
}

// IncrEventDropped counts an analytics event lost to a full queue, a store
// error or a recorder that was already closed.
func (m *Metrics) IncrEventDropped(reason string) {
	m.eventsDropped.WithLabelValues(reason).Inc()
}

// IncrDispatchDenied counts a replay guard refusal.
func (m *Metrics) IncrDispatchDenied(action string) {
	m.dispatchDenied.WithLabelValues(action).Inc()
}

// RealtimeSessionOpened / RealtimeSessionClosed track connected dashboards.
func (m *Metrics) RealtimeSessionOpened() { m.realtimeClients.Inc() }
func (m *Metrics) RealtimeSessionClosed() { m.realtimeClients.Dec() }

// RegisterCacheSize exports the entry count of a named in-process cache,
// read at scrape time.
func (m *Metrics) RegisterCacheSize(name string, size func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "tapcard_cache_entries",
			Help:        "Entries held by an in-process cache, expired ones included.",
			ConstLabels: prometheus.Labels{"cache": name},
		},
		func() float64 { return float64(size()) },
	))
}

// GetPipelineSnapshot returns a snapshot of pipeline counters suitable for
// the GET /v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineMetrics {
	delivered := getCounterValue(m.webhookDeliver, "delivered")
	failed := getCounterValue(m.webhookDeliver, "failed")
	hits := getCounterValue(m.cacheHits, "company_config")
	misses := getCounterValue(m.cacheMisses, "company_config")

	successRate := float64(0)
	if delivered+failed > 0 {
		successRate = delivered / (delivered + failed)
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	skipped := getCounterValue(m.followUps, domain.FollowUpDisabled) +
		getCounterValue(m.followUps, domain.FollowUpNotConfigured) +
		getCounterValue(m.followUps, domain.FollowUpGenerationFailed) +
		getCounterValue(m.followUps, domain.FollowUpEmptyBody) +
		getCounterValue(m.followUps, domain.FollowUpUnknownCompany)

	return &domain.PipelineMetrics{
		LeadsCaptured:       int64(getCounterValue(m.leadsCaptured, "captured")),
		WebhookDelivered:    int64(delivered),
		WebhookFailed:       int64(failed),
		WebhookSuccessRate:  successRate,
		FollowUpsSent:       int64(getCounterValue(m.followUps, "sent")),
		FollowUpsSkipped:    int64(skipped),
		EventsDropped:       int64(getCounterValue(m.eventsDropped, "queue_full") + getCounterValue(m.eventsDropped, "store_error") + getCounterValue(m.eventsDropped, "closed")),
		StaleDispatchDenied: int64(getCounterValue(m.dispatchDenied, "webhooks") + getCounterValue(m.dispatchDenied, "follow_up")),
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
