package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for certificate issuance and revocation.
type Metrics struct {
	Issued          prometheus.Counter
	IssueConflicts  prometheus.Counter
	Revoked         prometheus.Counter
	LazilyExpired   prometheus.Counter
	IssueLatency    prometheus.Histogram
	CounterFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_certificates_issued_total",
			Help: "Certificates issued",
		}),
		IssueConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_certificate_issue_conflicts_total",
			Help: "Issue attempts rejected because the product already had an active certificate",
		}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_certificates_revoked_total",
			Help: "Certificates revoked",
		}),
		LazilyExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_certificates_expired_on_reissue_total",
			Help: "Stored-active certificates persisted as expired when superseded",
		}),
		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "provenant_certificate_issue_duration_seconds",
			Help:    "Duration of certificate issuance including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CounterFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_certificate_counter_failures_total",
			Help: "Verification counter increments that failed",
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) IncrementIssueConflict() {
	if m != nil {
		m.IssueConflicts.Inc()
	}
}

func (m *Metrics) IncrementRevoked() {
	if m != nil {
		m.Revoked.Inc()
	}
}

func (m *Metrics) IncrementLazilyExpired() {
	if m != nil {
		m.LazilyExpired.Inc()
	}
}

func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCounterFailure() {
	if m != nil {
		m.CounterFailures.Inc()
	}
}
