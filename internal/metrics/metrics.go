// Package metrics exposes ingestion and alert counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartbin-api-server/internal/models"
)

const namespace = "smartbin"

// Metrics registers on a private registry, not the global default.
type Metrics struct {
	registry *prometheus.Registry

	samplesIngested *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	alertsRaised    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		samplesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "samples_total",
			Help:      "Telemetry samples processed by source and outcome",
		}, []string{"source", "outcome"}),
		// 0.5ms to ~2s
		ingestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "ingest_duration_seconds",
			Help:      "Time spent recording a sample and persisting its alerts",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"source"}),
		alertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "raised_total",
			Help:      "Alerts raised by type and severity",
		}, []string{"type", "severity"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) SampleIngested(source, outcome string, elapsed time.Duration) {
	m.samplesIngested.WithLabelValues(source, outcome).Inc()
	if elapsed > 0 {
		m.ingestDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) AlertRaised(typ models.AlertType, severity models.AlertSeverity) {
	m.alertsRaised.WithLabelValues(string(typ), string(severity)).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
