// Package metrics owns the process-wide Prometheus registry and the
// collectors shared by the Telegram runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "orderbot"

// Registry is served on /metrics. Components register their collectors here.
var Registry = NewRegistry()

// Telegram holds update and handler collectors registered on Registry.
var Telegram = NewTelegramCollectors(Registry)

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// TelegramCollectors counts incoming updates and handler outcomes.
type TelegramCollectors struct {
	Updates         *prometheus.CounterVec
	Handled         *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	SendFailures    *prometheus.CounterVec
}

// NewTelegramCollectors creates the collectors and registers them on reg.
func NewTelegramCollectors(reg prometheus.Registerer) *TelegramCollectors {
	c := &TelegramCollectors{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind.",
		}, []string{"kind"}),
		Handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "handled_total",
			Help:      "Handler invocations, by handler and status.",
		}, []string{"handler", "status"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "handler_duration_seconds",
			Help:      "Handler latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"handler"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limiter.",
		}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "send_failures_total",
			Help:      "Outbound calls that failed after retries, by error kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(c.Updates, c.Handled, c.HandlerDuration, c.RateLimited, c.SendFailures)
	}
	return c
}
