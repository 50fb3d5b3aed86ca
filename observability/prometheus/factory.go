// Package prometheus backs observability.MetricFactory with Prometheus
// collectors.
package prometheus

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/auditledger/observability"
)

var _ observability.MetricFactory = (*Factory)(nil)

// Factory registers one collector per metric name. Dots in names become
// underscores.
type Factory struct {
	reg     prometheus.Registerer
	buckets []float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// Option configures a Factory.
type Option func(*Factory)

// WithBuckets sets histogram buckets (default: prometheus.DefBuckets).
func WithBuckets(b []float64) Option {
	return func(f *Factory) { f.buckets = b }
}

// New creates a Factory registering into reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer, opts ...Option) *Factory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &Factory{
		reg:        reg,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements observability.MetricFactory.
func (f *Factory) Counter(name string) observability.Counter {
	name = metricName(name)

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: helpText(name)})
	c = register(f.reg, c)
	f.counters[name] = c
	return c
}

// Histogram implements observability.MetricFactory.
func (f *Factory) Histogram(name string) observability.Histogram {
	name = metricName(name)

	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: helpText(name), Buckets: f.buckets})
	h = register(f.reg, h)
	f.histograms[name] = h
	return h
}

// register adds c to reg, returning the already registered collector when
// another Factory created the same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func helpText(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
