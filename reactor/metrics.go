package reactor

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the runtime statistics of a
// [Base], see [WithMetrics] and [Base.Metrics].
type MetricsSnapshot struct {
	// Iterations is the number of loop iterations (polls) performed.
	Iterations uint64
	// Callbacks is the number of callbacks invoked.
	Callbacks uint64
	// Timeouts is the number of events activated by their timeout.
	Timeouts uint64
	// Panics is the number of callbacks that panicked.
	Panics uint64
	// PollErrors is the number of failed polls.
	PollErrors uint64

	// Callback latency distribution, estimated.
	LatencyP50  time.Duration
	LatencyP90  time.Duration
	LatencyP99  time.Duration
	LatencyMax  time.Duration
	LatencyMean time.Duration
	LatencySum  time.Duration
}

// metrics is written by the loop goroutine and read from any goroutine.
type metrics struct {
	mu         sync.Mutex
	iterations uint64
	callbacks  uint64
	timeouts   uint64
	panics     uint64
	pollErrors uint64
	p50        *psquare
	p90        *psquare
	p99        *psquare
	max        time.Duration
	sum        time.Duration
}

func newMetrics() *metrics {
	return &metrics{
		p50: newPSquare(0.50),
		p90: newPSquare(0.90),
		p99: newPSquare(0.99),
	}
}

func (m *metrics) recordIteration(pollErr bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.iterations++
	if pollErr {
		m.pollErrors++
	}
	m.mu.Unlock()
}

func (m *metrics) recordTimeouts(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.timeouts += uint64(n)
	m.mu.Unlock()
}

func (m *metrics) recordCallback(d time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks++
	if panicked {
		m.panics++
	}
	x := float64(d)
	m.p50.observe(x)
	m.p90.observe(x)
	m.p99.observe(x)
	m.sum += d
	m.max = max(m.max, d)
}

func (m *metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{
		Iterations: m.iterations,
		Callbacks:  m.callbacks,
		Timeouts:   m.timeouts,
		Panics:     m.panics,
		PollErrors: m.pollErrors,
		LatencyP50: time.Duration(m.p50.quantile()),
		LatencyP90: time.Duration(m.p90.quantile()),
		LatencyP99: time.Duration(m.p99.quantile()),
		LatencyMax: m.max,
		LatencySum: m.sum,
	}
	if m.callbacks != 0 {
		s.LatencyMean = m.sum / time.Duration(m.callbacks)
	}
	return s
}
