package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by backend and decision metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeApproved    = "approved"
	OutcomeDenied      = "denied"
	OutcomeServerError = "server_error"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// Backend document store calls
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec

	// Dispense verification
	DispenseDecisions *prometheus.CounterVec
	FallbackDecisions *prometheus.CounterVec
	LookupVariants    prometheus.Histogram

	// Proxy pass-through
	ProxyRequests *prometheus.CounterVec

	BreakerOpen *prometheus.GaugeVec
}

// New creates and registers all metrics with reg. A nil reg registers with
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_backend_requests_total",
			Help: "Total number of document store requests by operation and outcome",
		}, []string{"op", "outcome"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_backend_request_duration_seconds",
			Help:    "Duration of document store requests by operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		DispenseDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_dispense_decisions_total",
			Help: "Total number of dispense decisions by outcome and reason",
		}, []string{"outcome", "reason"}),
		FallbackDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_fallback_decisions_total",
			Help: "Total number of decisions made by the availability fallback",
		}, []string{"outcome"}),
		LookupVariants: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiosk_customer_lookup_variants",
			Help:    "Number of phone variants queried per customer lookup",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		ProxyRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_proxy_requests_total",
			Help: "Total number of generic proxy requests by operation and outcome",
		}, []string{"op", "outcome"}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kiosk_circuit_breaker_open",
			Help: "1 when the named circuit breaker is open",
		}, []string{"name"}),
	}
}

// ObserveBackend records one document store call.
func (m *Metrics) ObserveBackend(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.BackendRequests.WithLabelValues(op, outcome).Inc()
	m.BackendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordDecision counts a dispense outcome and its reason.
func (m *Metrics) RecordDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.DispenseDecisions.WithLabelValues(outcome, reason).Inc()
}

// RecordFallback counts a decision made without the database.
func (m *Metrics) RecordFallback(approved bool) {
	if m == nil {
		return
	}
	outcome := OutcomeDenied
	if approved {
		outcome = OutcomeApproved
	}
	m.FallbackDecisions.WithLabelValues(outcome).Inc()
}

// ObserveLookupVariants records how many variants a lookup tried.
func (m *Metrics) ObserveLookupVariants(n int) {
	if m == nil {
		return
	}
	m.LookupVariants.Observe(float64(n))
}

// RecordProxy counts one generic proxy call.
func (m *Metrics) RecordProxy(op string, success bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.ProxyRequests.WithLabelValues(op, outcome).Inc()
}

// SetBreakerOpen mirrors breaker state into the gauge.
func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(name).Set(v)
}
