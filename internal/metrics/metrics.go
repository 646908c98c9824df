// Package metrics exposes process-local Prometheus collectors for the
// readiness loop. Nothing here serves an HTTP endpoint — registering
// and scraping the collectors is the embedding process's job, the same
// boundary m-lab/tcp-info draws between collecting samples and
// exporting them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the counters and gauges the accept/spawn/reap path
// updates. A nil *Collector is valid everywhere it is used — every
// method no-ops on a nil receiver, so callers that don't want metrics
// never have to special-case it.
type Collector struct {
	Accepted      *prometheus.CounterVec
	SpawnFailures *prometheus.CounterVec
	Reaped        *prometheus.CounterVec
	LiveChildren  *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yinetd",
			Name:      "accepted_total",
			Help:      "Connections accepted per service.",
		}, []string{"service"}),
		SpawnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yinetd",
			Name:      "spawn_failures_total",
			Help:      "Child process spawn failures per service.",
		}, []string{"service"}),
		Reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yinetd",
			Name:      "reaped_total",
			Help:      "Child processes reaped per service.",
		}, []string{"service"}),
		LiveChildren: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "yinetd",
			Name:      "live_children",
			Help:      "Currently outstanding (unreaped) children per service.",
		}, []string{"service"}),
	}

	reg.MustRegister(c.Accepted, c.SpawnFailures, c.Reaped, c.LiveChildren)
	return c
}

// Accept records one accepted connection for service.
func (c *Collector) Accept(service string) {
	if c == nil {
		return
	}
	c.Accepted.WithLabelValues(service).Inc()
}

// SpawnFailure records one failed child spawn for service.
func (c *Collector) SpawnFailure(service string) {
	if c == nil {
		return
	}
	c.SpawnFailures.WithLabelValues(service).Inc()
}

// Reaped records one reaped child for service.
func (c *Collector) Reaped(service string) {
	if c == nil {
		return
	}
	c.Reaped.WithLabelValues(service).Inc()
}

// SetLiveChildren records the current outstanding-child count for service.
func (c *Collector) SetLiveChildren(service string, n int) {
	if c == nil {
		return
	}
	c.LiveChildren.WithLabelValues(service).Set(float64(n))
}
