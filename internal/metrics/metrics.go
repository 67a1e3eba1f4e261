package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contexta"

// Metrics holds the scan counters. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	documents      *prometheus.CounterVec
	itemErrors     *prometheus.CounterVec
	records        *prometheus.CounterVec
	pages          *prometheus.CounterVec
	fatalErrors    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents produced by storage scans, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		itemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Items that failed to parse.",
		}, []string{"backend"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_records_total",
			Help:      "Metadata records read from vector stores.",
		}, []string{"backend"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_served_total",
			Help:      "Pages returned to consumers, by scan kind.",
		}, []string{"kind"}),
		fatalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_failures_total",
			Help:      "Scans aborted by a fatal backend error.",
		}, []string{"backend"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open scan sessions.",
		}),
	}
	reg.MustRegister(m.documents, m.itemErrors, m.records, m.pages, m.fatalErrors, m.activeSessions)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) DocumentProduced(backend string) {
	if m != nil {
		m.documents.WithLabelValues(backend, "ok").Inc()
	}
}

func (m *Metrics) DocumentSkipped(backend string) {
	if m != nil {
		m.documents.WithLabelValues(backend, "blank").Inc()
	}
}

func (m *Metrics) ItemFailed(backend string) {
	if m != nil {
		m.itemErrors.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) RecordsRead(backend string, n int) {
	if m != nil {
		m.records.WithLabelValues(backend).Add(float64(n))
	}
}

func (m *Metrics) PageServed(kind string) {
	if m != nil {
		m.pages.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ScanFailed(backend string) {
	if m != nil {
		m.fatalErrors.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}
