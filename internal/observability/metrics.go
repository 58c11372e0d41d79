package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	storeAttemptsTotal *prometheus.CounterVec
	storeOutcomesTotal *prometheus.CounterVec
	admissionTotal     *prometheus.CounterVec
	sessionsActive     prometheus.Gauge
	submissionsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Requests served per API surface.",
		}, []string{"surface", "method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_request_latency_seconds",
			Help:    "Request latency per API surface.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"surface", "method", "route"})

		storeAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_write_attempts_total",
			Help: "Individual durable write attempts by result.",
		}, []string{"status"})

		storeOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_write_outcomes_total",
			Help: "Terminal durable write outcomes by result.",
		}, []string{"status"})

		admissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Rate limiter decisions by policy.",
		}, []string{"policy", "decision"})

		sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently held in the registry.",
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Student submissions processed by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			storeAttemptsTotal,
			storeOutcomesTotal,
			admissionTotal,
			sessionsActive,
			submissionsTotal,
		)
	})
}

// Requests counts served requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency observes request durations.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// StoreWriteAttempts counts every durable write attempt.
func StoreWriteAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return storeAttemptsTotal
}

// StoreWriteOutcomes counts terminal durable write results.
func StoreWriteOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return storeOutcomesTotal
}

// AdmissionDecisions counts allowed and denied requests per limiter.
func AdmissionDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return admissionTotal
}

// SessionsActive tracks the size of the session table.
func SessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return sessionsActive
}

// Submissions counts pipeline results.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}
