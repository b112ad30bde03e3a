package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks stage transitions and in-flight records.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Pending     *prometheus.GaugeVec
	Failures    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderbot",
			Subsystem: "pipeline",
			Name:      "transitions_total",
			Help:      "Order stage transitions.",
		}, []string{"from", "to"}),
		Pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orderbot",
			Subsystem: "pipeline",
			Name:      "pending_records",
			Help:      "In-flight records per stage table.",
		}, []string{"table"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderbot",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Transitions rolled back after a failed platform call, by event.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Pending, m.Failures)
	}
	return m
}

func (m *Metrics) observe(from, to Stage, c Counts) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
	m.gauge(c)
}

func (m *Metrics) failed(ev Event, c Counts) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(string(ev)).Inc()
	m.gauge(c)
}

func (m *Metrics) gauge(c Counts) {
	m.Pending.WithLabelValues("approvals").Set(float64(c.Approvals))
	m.Pending.WithLabelValues("dispatches").Set(float64(c.Dispatches))
	m.Pending.WithLabelValues("polls").Set(float64(c.Polls))
}
