package tenant

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instruments. A nil *Metrics is
// valid and records nothing, so tests and embedded callers can skip
// registration entirely.
type Metrics struct {
	EstablishTotal    *prometheus.CounterVec
	EstablishDuration prometheus.Histogram
	SwitchTotal       *prometheus.CounterVec
	PermissionChecks  *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	PersistErrors     prometheus.Counter
}

// NewMetrics creates and registers the engine's metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		EstablishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantctx_establish_total",
				Help: "Total number of context establish operations",
			},
			[]string{"status"},
		),
		EstablishDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenantctx_establish_duration_seconds",
				Help:    "Context establish duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SwitchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantctx_switch_total",
				Help: "Total number of context switch operations",
			},
			[]string{"kind", "status"},
		),
		PermissionChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantctx_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"granted"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantctx_provider_errors_total",
				Help: "Total number of provider failures, by provider",
			},
			[]string{"provider"},
		),
		PersistErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tenantctx_persist_errors_total",
				Help: "Total number of best-effort persistence failures",
			},
		),
	}

	registry.MustRegister(
		m.EstablishTotal,
		m.EstablishDuration,
		m.SwitchTotal,
		m.PermissionChecks,
		m.ProviderErrors,
		m.PersistErrors,
	)
	return m
}

func (m *Metrics) establish(status string, seconds float64) {
	if m == nil {
		return
	}
	m.EstablishTotal.WithLabelValues(status).Inc()
	m.EstablishDuration.Observe(seconds)
}

func (m *Metrics) switched(kind, status string) {
	if m == nil {
		return
	}
	m.SwitchTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) permissionCheck(granted bool) {
	if m == nil {
		return
	}
	if granted {
		m.PermissionChecks.WithLabelValues("true").Inc()
	} else {
		m.PermissionChecks.WithLabelValues("false").Inc()
	}
}

func (m *Metrics) providerError(provider string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

func (m *Metrics) persistError() {
	if m == nil {
		return
	}
	m.PersistErrors.Inc()
}
