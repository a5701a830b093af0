package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	ResultStored  = "stored"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
	ResultSuccess = "success"
)

// Metrics holds all Prometheus metrics for the proxy. Every method is nil-safe
// so components can run without metrics in tests.
type Metrics struct {
	// Proxied requests by method and outcome (ok, upstream_error, internal_error)
	Requests *prometheus.CounterVec

	// Forward-to-upstream latency including body buffering
	UpstreamLatency prometheus.Histogram

	// State cache writes by result (stored, skipped, failed)
	StateCacheWrites *prometheus.CounterVec

	// Client-credentials exchanges by result (success, failed)
	TokenExchanges *prometheus.CounterVec

	// Risk events by classified level and result (success, failed, skipped)
	RiskEvents *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskproxy_requests_total",
			Help: "Total proxied requests by method and outcome",
		}, []string{"method", "outcome"}),

		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskproxy_upstream_duration_seconds",
			Help:    "Duration of forwarding a request to the identity provider",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		StateCacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskproxy_state_cache_writes_total",
			Help: "State cache writes by result",
		}, []string{"result"}),

		TokenExchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskproxy_token_exchanges_total",
			Help: "Client-credentials token exchanges by result",
		}, []string{"result"}),

		RiskEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskproxy_risk_events_total",
			Help: "Risk events reported by level and result",
		}, []string{"level", "result"}),
	}
}

// IncrementRequest records a completed proxied request.
func (m *Metrics) IncrementRequest(method, outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(method, outcome).Inc()
	}
}

// ObserveUpstreamLatency records the duration of an upstream round trip.
func (m *Metrics) ObserveUpstreamLatency(d time.Duration) {
	if m != nil {
		m.UpstreamLatency.Observe(d.Seconds())
	}
}

// IncrementStateCacheWrite records a state cache write attempt.
func (m *Metrics) IncrementStateCacheWrite(result string) {
	if m != nil {
		m.StateCacheWrites.WithLabelValues(result).Inc()
	}
}

// IncrementTokenExchange records a token exchange attempt.
func (m *Metrics) IncrementTokenExchange(result string) {
	if m != nil {
		m.TokenExchanges.WithLabelValues(result).Inc()
	}
}

// IncrementRiskEvent records a risk event submission attempt.
func (m *Metrics) IncrementRiskEvent(level, result string) {
	if m != nil {
		m.RiskEvents.WithLabelValues(level, result).Inc()
	}
}
