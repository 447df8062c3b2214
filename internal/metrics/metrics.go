// Package metrics holds the Prometheus collectors shared by the pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	extractions *prometheus.CounterVec
	generations *prometheus.CounterVec
	genLatency  *prometheus.HistogramVec
	cache       *prometheus.CounterVec
	activity    *prometheus.CounterVec
	writeBehind *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidify",
			Name:      "text_extractions_total",
			Help:      "Documents converted to text, by format and provenance.",
		}, []string{"format", "provenance"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidify",
			Name:      "generations_total",
			Help:      "Generative backend invocations, by call site and outcome.",
		}, []string{"call", "outcome"}),
		genLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "guidify",
			Name:      "generation_seconds",
			Help:      "Backend call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"call"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidify",
			Name:      "recommendation_cache_total",
			Help:      "Recommendation cache operations, by op and result.",
		}, []string{"op", "result"}),
		activity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidify",
			Name:      "activity_events_total",
			Help:      "Activity transitions applied, by kind.",
		}, []string{"kind"}),
		writeBehind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidify",
			Name:      "write_behind_jobs_total",
			Help:      "Background persistence jobs, by job name and result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.extractions, m.generations, m.genLatency, m.cache, m.activity, m.writeBehind,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Extraction(format, provenance string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(format, provenance).Inc()
}

func (m *Metrics) Generation(call, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(call, outcome).Inc()
	m.genLatency.WithLabelValues(call).Observe(seconds)
}

func (m *Metrics) Cache(op, result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Activity(kind string) {
	if m == nil {
		return
	}
	m.activity.WithLabelValues(kind).Inc()
}

func (m *Metrics) WriteBehind(job, result string) {
	if m == nil {
		return
	}
	m.writeBehind.WithLabelValues(job, result).Inc()
}
