package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks verification outcomes.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Latency  prometheus.Histogram
	Tampered prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_verifications_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		Latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "provenant_verification_duration_seconds",
			Help:    "Time to evaluate a verification, including the scan log write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Tampered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_verification_tampered_total",
			Help: "Certificates whose stored signature did not match",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTampered() {
	if m != nil {
		m.Tampered.Inc()
	}
}

func (m *Metrics) ObserveLatency(d time.Duration) {
	if m != nil {
		m.Latency.Observe(d.Seconds())
	}
}
