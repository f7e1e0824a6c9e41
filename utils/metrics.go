package utils

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// KernelMetrics receives one observation per dense product.
type KernelMetrics interface {
	ObserveBLAS(op string, d time.Duration)
	ObserveFallback(op string, d time.Duration)
}

type NopMetrics struct{}

func (NopMetrics) ObserveBLAS(string, time.Duration)     {}
func (NopMetrics) ObserveFallback(string, time.Duration) {}

// CounterMetrics keeps the number, total and minimum duration of BLAS calls.
// It is safe for concurrent use by several kernels.
type CounterMetrics struct {
	mu        sync.Mutex
	count     int
	fallbacks int
	sum       time.Duration
	min       time.Duration
}

func NewCounterMetrics() *CounterMetrics { return &CounterMetrics{} }

func (c *CounterMetrics) ObserveBLAS(_ string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 || d < c.min {
		c.min = d
	}
	c.count++
	c.sum += d
}

func (c *CounterMetrics) ObserveFallback(string, time.Duration) {
	c.mu.Lock()
	c.fallbacks++
	c.mu.Unlock()
}

// Count returns the number of BLAS calls, optionally resetting all counters.
func (c *CounterMetrics) Count(reset bool) (n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n = c.count
	if reset {
		c.reset()
	}
	return
}

func (c *CounterMetrics) Fallbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallbacks
}

func (c *CounterMetrics) SumTime(reset bool) (d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d = c.sum
	if reset {
		c.reset()
	}
	return
}

func (c *CounterMetrics) MinTime(reset bool) (d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d = c.min
	if reset {
		c.reset()
	}
	return
}

func (c *CounterMetrics) reset() {
	c.count, c.fallbacks, c.sum, c.min = 0, 0, 0, 0
}

// PrometheusMetrics exports kernel calls as a counter and a latency histogram
// labelled by operation and path.
type PrometheusMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	pm := &PrometheusMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feassembly",
			Subsystem: "kernel",
			Name:      "calls_total",
			Help:      "Dense products by operation and path.",
		}, []string{"op", "path"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feassembly",
			Subsystem: "kernel",
			Name:      "duration_seconds",
			Help:      "Duration of dense products.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"op", "path"}),
	}
	for _, c := range []prometheus.Collector{pm.calls, pm.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

func (pm *PrometheusMetrics) ObserveBLAS(op string, d time.Duration) {
	pm.observe(op, "blas", d)
}

func (pm *PrometheusMetrics) ObserveFallback(op string, d time.Duration) {
	pm.observe(op, "fallback", d)
}

func (pm *PrometheusMetrics) observe(op, path string, d time.Duration) {
	pm.calls.WithLabelValues(op, path).Inc()
	pm.duration.WithLabelValues(op, path).Observe(d.Seconds())
}

// TeeMetrics forwards every observation to all of its sinks.
type TeeMetrics []KernelMetrics

func (t TeeMetrics) ObserveBLAS(op string, d time.Duration) {
	for _, m := range t {
		m.ObserveBLAS(op, d)
	}
}

func (t TeeMetrics) ObserveFallback(op string, d time.Duration) {
	for _, m := range t {
		m.ObserveFallback(op, d)
	}
}
