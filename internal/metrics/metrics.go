// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	InvoicesGenerated    prometheus.Counter
	InvoicesSkipped      prometheus.Counter
	ClientFailures       *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	PrestationsValidated prometheus.Counter
	PrestationsCreated   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InvoicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventflow",
			Name:      "invoices_generated_total",
			Help:      "Invoices inserted by the monthly batch.",
		}),
		InvoicesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventflow",
			Name:      "invoices_skipped_total",
			Help:      "Clients skipped because an invoice already existed for the period.",
		}),
		ClientFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventflow",
			Name:      "invoice_client_failures_total",
			Help:      "Per-client batch failures by stage.",
		}, []string{"stage"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventflow",
			Name:      "invoice_batch_duration_seconds",
			Help:      "Wall time of a monthly invoice batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		PrestationsValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventflow",
			Name:      "prestations_validated_total",
			Help:      "Prestations moved to validated.",
		}),
		PrestationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventflow",
			Name:      "prestations_created_total",
			Help:      "Prestations recorded.",
		}),
	}
	m.registry.MustRegister(
		m.InvoicesGenerated,
		m.InvoicesSkipped,
		m.ClientFailures,
		m.BatchDuration,
		m.PrestationsValidated,
		m.PrestationsCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
