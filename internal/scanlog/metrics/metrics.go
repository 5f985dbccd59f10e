package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scan-log writes and the retry buffer.
type Metrics struct {
	Recorded       *prometheus.CounterVec
	WriteFailures  prometheus.Counter
	Retried        prometheus.Counter
	Dropped        prometheus.Counter
	PendingRetries prometheus.Gauge
	BreakerState   prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_scan_logs_recorded_total",
			Help: "Scan logs persisted, by outcome",
		}, []string{"outcome"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_scan_log_write_failures_total",
			Help: "Scan log writes that failed and were queued for retry",
		}),
		Retried: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_scan_log_retries_succeeded_total",
			Help: "Queued scan logs persisted by the retry worker",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_scan_log_dropped_total",
			Help: "Scan logs lost because the retry buffer was full",
		}),
		PendingRetries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "provenant_scan_log_pending_retries",
			Help: "Scan logs waiting in the retry buffer",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "provenant_scan_log_circuit_breaker_state",
			Help: "Scan log store breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) IncrementRecorded(outcome string) {
	if m != nil {
		m.Recorded.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementWriteFailure() {
	if m != nil {
		m.WriteFailures.Inc()
	}
}

func (m *Metrics) IncrementRetried() {
	if m != nil {
		m.Retried.Inc()
	}
}

func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.PendingRetries.Set(float64(n))
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
