package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ContactSubmission(OutcomeSent)
	m.ContactSubmission(OutcomeSent)
	m.ContactSubmission(OutcomeInvalid)
	m.TransactionAppended()
	m.MailDelivery("smtp", nil)
	m.MailDelivery("smtp", errors.New("boom"))
	m.CircuitState("smtp", gobreaker.StateOpen)
	m.ObserveHTTP("GET", "/", 200, 5*time.Millisecond)
	m.ObserveSummarize(time.Microsecond)
	m.RateLimited()
	m.Suspicious()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.contactSubmissions.WithLabelValues(OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contactSubmissions.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsAppended))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mailDeliveries.WithLabelValues("smtp", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitBreakerState.WithLabelValues("smtp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/", "200")))

	m.CircuitState("smtp", gobreaker.StateHalfOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.circuitBreakerState.WithLabelValues("smtp")))

	count, err := testutil.GatherAndCount(reg, "ledger_summarize_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP ledger_rate_limited_requests_total Requests rejected by the rate limiter
# TYPE ledger_rate_limited_requests_total counter
ledger_rate_limited_requests_total 1
`), "ledger_rate_limited_requests_total")
	assert.NoError(t, err)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ContactSubmission(OutcomeFailed)
		m.ObserveHTTP("GET", "/", 500, time.Second)
		m.CircuitState("smtp", gobreaker.StateClosed)
		m.MailDelivery("log", nil)
		m.RateLimited()
	})
}
