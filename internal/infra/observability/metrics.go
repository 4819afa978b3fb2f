package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the platform.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	chatTurns          *prometheus.CounterVec
	sessionsTerminated *prometheus.CounterVec
	leadsCaptured      prometheus.Counter
	sinkFailures       *prometheus.CounterVec
}

// MetricsSummary is a point-in-time snapshot of the platform counters,
// served on GET /metrics/summary for the dashboard.
type MetricsSummary struct {
	ChatTurns          int64   `json:"chatTurns"`
	ChatErrorRate      float64 `json:"chatErrorRate"`
	SessionsTerminated int64   `json:"sessionsTerminated"`
	LeadsCaptured      int64   `json:"leadsCaptured"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	Period             string  `json:"period"`
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
				Name:    "prime_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		chatTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_chat_turns_total",
				Help: "Total chat turns processed.",
			},
			[]string{"status"},
		),
		sessionsTerminated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_sessions_terminated_total",
				Help: "Total chat sessions closed out, by summarizer outcome.",
			},
			[]string{"outcome"},
		),
		leadsCaptured: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "prime_leads_captured_total",
				Help: "Total leads created or matched.",
			},
		),
		sinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prime_sink_failures_total",
				Help: "Total notification sink failures.",
			},
			[]string{"sink"},
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

// IncrChatTurn increments the chat turn counter with a status label.
func (m *Metrics) IncrChatTurn(status string) {
	m.chatTurns.WithLabelValues(status).Inc()
}

// IncrSessionTerminated increments the termination counter with an
// outcome label ("summarized" or "fallback").
func (m *Metrics) IncrSessionTerminated(outcome string) {
	m.sessionsTerminated.WithLabelValues(outcome).Inc()
}

// IncrLeadCaptured increments the lead counter.
func (m *Metrics) IncrLeadCaptured() {
	m.leadsCaptured.Inc()
}

// IncrSinkFailure increments the sink failure counter.
func (m *Metrics) IncrSinkFailure(sink string) {
	m.sinkFailures.WithLabelValues(sink).Inc()
}

// GetSummary returns a snapshot of the counters suitable for the
// GET /metrics/summary endpoint.
func (m *Metrics) GetSummary() *MetricsSummary {
	turnsOK := getCounterValue(m.chatTurns, "success")
	turnsErr := getCounterValue(m.chatTurns, "error")
	terminated := getCounterValue(m.sessionsTerminated, "summarized") +
		getCounterValue(m.sessionsTerminated, "fallback")
	cacheHits := getCounterValue(m.cacheHits, "company")
	cacheMisses := getCounterValue(m.cacheMisses, "company")

	errorRate := float64(0)
	if turnsOK+turnsErr > 0 {
		errorRate = turnsErr / (turnsOK + turnsErr)
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	leads := float64(0)
	if c := (&dto.Metric{}); m.leadsCaptured.Write(c) == nil && c.Counter != nil && c.Counter.Value != nil {
		leads = *c.Counter.Value
	}

	return &MetricsSummary{
		ChatTurns:          int64(turnsOK + turnsErr),
		ChatErrorRate:      errorRate,
		SessionsTerminated: int64(terminated),
		LeadsCaptured:      int64(leads),
		CacheHitRate:       cacheHitRate,
		Period:             "all_time",
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
