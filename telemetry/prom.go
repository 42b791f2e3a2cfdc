package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics records counters/timers/gauges directly through
// client_golang, for deployments that scrape /metrics rather than export via
// OTLP. Registered against the provided registerer (typically
// prometheus.DefaultRegisterer).
type PromMetrics struct {
	reg prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	timers   map[string]*prometheus.HistogramVec
}

// NewPromMetrics constructs a Metrics recorder registered against reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	return &PromMetrics{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
		timers:   make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PromMetrics) IncCounter(name string, value float64, tags ...string) {
	labels, values := splitTags(tags)
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labels)
		m.reg.MustRegister(c)
		m.counters[name] = c
	}
	m.mu.Unlock()
	c.WithLabelValues(values...).Add(value)
}

func (m *PromMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	labels, values := splitTags(tags)
	m.mu.Lock()
	h, ok := m.timers[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labels)
		m.reg.MustRegister(h)
		m.timers[name] = h
	}
	m.mu.Unlock()
	h.WithLabelValues(values...).Observe(d.Seconds())
}

func (m *PromMetrics) RecordGauge(name string, value float64, tags ...string) {
	labels, values := splitTags(tags)
	m.mu.Lock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labels)
		m.reg.MustRegister(g)
		m.gauges[name] = g
	}
	m.mu.Unlock()
	g.WithLabelValues(values...).Set(value)
}

func splitTags(tags []string) (labels, values []string) {
	for i := 0; i+1 < len(tags); i += 2 {
		labels = append(labels, tags[i])
		values = append(values, tags[i+1])
	}
	return labels, values
}
