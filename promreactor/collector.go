// Package promreactor exports the runtime statistics of [reactor.Base]
// instances as Prometheus metrics.
package promreactor

import (
	"strconv"
	"sync"
	"weak"

	"github.com/joeycumines/go-reactor/reactor"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "reactor"

// Collector is a [prometheus.Collector] over any number of bases. Bases
// are tracked weakly, and dropped once freed or collected. Statistics are
// only recorded by bases created with [reactor.WithMetrics].
type Collector struct {
	mu    sync.Mutex
	bases map[uint64]weak.Pointer[reactor.Base]

	iterations *prometheus.Desc
	callbacks  *prometheus.Desc
	timeouts   *prometheus.Desc
	panics     *prometheus.Desc
	pollErrors *prometheus.Desc
	latency    *prometheus.Desc
	latencyMax *prometheus.Desc
	live       *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector, with metric names under namespace
// (which may be empty).
func NewCollector(namespace string) *Collector {
	labels := []string{"base"}
	return &Collector{
		bases: make(map[uint64]weak.Pointer[reactor.Base]),
		iterations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "iterations_total"),
			"Number of loop iterations performed.",
			labels, nil,
		),
		callbacks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "callbacks_total"),
			"Number of event callbacks invoked.",
			labels, nil,
		),
		timeouts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "timeouts_total"),
			"Number of events activated by their timeout.",
			labels, nil,
		),
		panics: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "callback_panics_total"),
			"Number of event callbacks that panicked.",
			labels, nil,
		),
		pollErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "poll_errors_total"),
			"Number of failed polls.",
			labels, nil,
		),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "callback_duration_seconds"),
			"Estimated distribution of event callback durations.",
			labels, nil,
		),
		latencyMax: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "callback_duration_max_seconds"),
			"Longest event callback duration observed.",
			labels, nil,
		),
		live: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "bases"),
			"Number of tracked bases that have not been freed.",
			nil, nil,
		),
	}
}

// Track adds base to the collector. Tracking a base does not keep it
// alive.
func (c *Collector) Track(base *reactor.Base) {
	c.mu.Lock()
	c.bases[base.ID()] = weak.Make(base)
	c.mu.Unlock()
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.iterations
	ch <- c.callbacks
	ch <- c.timeouts
	ch <- c.panics
	ch <- c.pollErrors
	ch <- c.latency
	ch <- c.latencyMax
	ch <- c.live
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	bases := c.snapshot()

	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(len(bases)))

	for _, base := range bases {
		id := strconv.FormatUint(base.ID(), 10)
		m := base.Metrics()

		ch <- prometheus.MustNewConstMetric(c.iterations, prometheus.CounterValue, float64(m.Iterations), id)
		ch <- prometheus.MustNewConstMetric(c.callbacks, prometheus.CounterValue, float64(m.Callbacks), id)
		ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(m.Timeouts), id)
		ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(m.Panics), id)
		ch <- prometheus.MustNewConstMetric(c.pollErrors, prometheus.CounterValue, float64(m.PollErrors), id)
		ch <- prometheus.MustNewConstSummary(c.latency, m.Callbacks, m.LatencySum.Seconds(), map[float64]float64{
			0.5:  m.LatencyP50.Seconds(),
			0.9:  m.LatencyP90.Seconds(),
			0.99: m.LatencyP99.Seconds(),
		}, id)
		ch <- prometheus.MustNewConstMetric(c.latencyMax, prometheus.GaugeValue, m.LatencyMax.Seconds(), id)
	}
}

// snapshot returns the live bases, pruning the rest.
func (c *Collector) snapshot() []*reactor.Base {
	c.mu.Lock()
	defer c.mu.Unlock()
	bases := make([]*reactor.Base, 0, len(c.bases))
	for id, wp := range c.bases {
		base := wp.Value()
		if base == nil || base.State() == reactor.StateFreed {
			delete(c.bases, id)
			continue
		}
		bases = append(bases, base)
	}
	return bases
}
