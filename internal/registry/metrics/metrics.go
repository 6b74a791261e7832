package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's Prometheus collectors.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DomainsCreated    *prometheus.CounterVec
	HookFailures      *prometheus.CounterVec
	NameCacheLookups  *prometheus.CounterVec
}

// New registers the registry collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_operations_total",
			Help: "Registry operations by name and outcome (ok or the error kind)",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "namereg_operation_duration_seconds",
			Help:    "Latency of registry operations",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"operation"}),
		DomainsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_domains_created_total",
			Help: "Domains created by visibility",
		}, []string{"visibility"}),
		HookFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_record_hook_failures_total",
			Help: "Record hook calls that returned an error",
		}, []string{"call"}),
		NameCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_name_cache_lookups_total",
			Help: "Name cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncrementDomainsCreated(public bool) {
	visibility := "private"
	if public {
		visibility = "public"
	}
	m.DomainsCreated.WithLabelValues(visibility).Inc()
}

func (m *Metrics) IncrementHookFailures(call string) {
	m.HookFailures.WithLabelValues(call).Inc()
}

func (m *Metrics) RecordNameCache(result string) {
	m.NameCacheLookups.WithLabelValues(result).Inc()
}
