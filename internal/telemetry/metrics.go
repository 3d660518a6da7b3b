package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the core emits. One
// instance per process; pass it down, never reach for globals.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamRetries  *prometheus.CounterVec
	UpstreamThrottle prometheus.Counter
	BreakerState     prometheus.Gauge

	StageDuration  *prometheus.HistogramVec
	StageCandidates *prometheus.GaugeVec
	SelectionTotal *prometheus.CounterVec
	AlertsEmitted  *prometheus.CounterVec
}

// NewMetrics registers all collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in the host, a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealsentry_upstream_requests_total",
			Help: "Upstream product API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		UpstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealsentry_upstream_retries_total",
			Help: "Upstream retries by operation.",
		}, []string{"op"}),
		UpstreamThrottle: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealsentry_upstream_throttled_total",
			Help: "Requests rejected upstream with a throttling signal.",
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealsentry_upstream_breaker_open",
			Help: "1 when the upstream circuit breaker is open.",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealsentry_pipeline_stage_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		StageCandidates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dealsentry_pipeline_stage_candidates",
			Help: "Candidate count leaving each pipeline stage.",
		}, []string{"stage"}),
		SelectionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealsentry_selections_total",
			Help: "Completed selections by model and mode.",
		}, []string{"model", "mode"}),
		AlertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealsentry_alerts_emitted_total",
			Help: "Watch alerts emitted by kind.",
		}, []string{"kind"}),
	}
}

// Nop returns metrics bound to a throwaway registry, for tests and
// callers that do not scrape.
func Nop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
