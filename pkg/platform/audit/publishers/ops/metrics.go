package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultTracked        = "tracked"
	resultSampledOut     = "sampled_out"
	resultBreakerDropped = "breaker_dropped"
	resultPersistFailed  = "persist_failed"
)

// Metrics counts ops events by what happened to them.
type Metrics struct {
	Events       *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_audit_ops_events_total",
			Help: "Ops audit events by result (tracked, sampled_out, breaker_dropped, persist_failed)",
		}, []string{"result"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "provenant_audit_ops_breaker_open",
			Help: "1 while the ops audit store breaker is open",
		}),
	}
}

func (m *Metrics) IncTracked() { m.inc(resultTracked) }

func (m *Metrics) IncSampled() { m.inc(resultSampledOut) }

func (m *Metrics) IncCircuitBreakerDropped() { m.inc(resultBreakerDropped) }

func (m *Metrics) IncPersistFailures() { m.inc(resultPersistFailed) }

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.Set(v)
}

func (m *Metrics) inc(result string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(result).Inc()
}
