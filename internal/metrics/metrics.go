// Package metrics exposes the Prometheus collectors shared by the web server
// and the mail worker. Collectors are registered on the registry passed to
// New so that several instances can coexist in one process.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Contact outcomes used as label values.
const (
	OutcomeSent        = "sent"
	OutcomeQueued      = "queued"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
)

type Metrics struct {
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	summarizeDuration    prometheus.Histogram
	transactionsAppended prometheus.Counter
	contactSubmissions   *prometheus.CounterVec
	mailDeliveries       *prometheus.CounterVec
	circuitBreakerState  *prometheus.GaugeVec
	rateLimited          prometheus.Counter
	suspiciousRequests   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		summarizeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_summarize_duration_seconds",
				Help:    "Time spent aggregating transactions",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		transactionsAppended: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_transactions_appended_total",
				Help: "Total number of transactions added through the dashboard",
			},
		),
		contactSubmissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_contact_submissions_total",
				Help: "Contact form submissions by outcome",
			},
			[]string{"outcome"},
		),
		mailDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mail_deliveries_total",
				Help: "Mail delivery attempts by transport and status",
			},
			[]string{"transport", "status"},
		),
		circuitBreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledger_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		rateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_rate_limited_requests_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		suspiciousRequests: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_suspicious_requests_total",
				Help: "Requests matching a suspicious pattern",
			},
		),
	}
}

// All recorders are no-ops on a nil receiver.

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) ObserveSummarize(d time.Duration) {
	if m == nil {
		return
	}
	m.summarizeDuration.Observe(d.Seconds())
}

func (m *Metrics) TransactionAppended() {
	if m == nil {
		return
	}
	m.transactionsAppended.Inc()
}

func (m *Metrics) ContactSubmission(outcome string) {
	if m == nil {
		return
	}
	m.contactSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MailDelivery(transport string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.mailDeliveries.WithLabelValues(transport, status).Inc()
}

func (m *Metrics) CircuitState(service string, state gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 2
	}
	m.circuitBreakerState.WithLabelValues(service).Set(v)
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) Suspicious() {
	if m == nil {
		return
	}
	m.suspiciousRequests.Inc()
}
