package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the scan counters. Each instance owns its registry so
// tests and embedded servers do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	scans        *prometheus.CounterVec
	dependencies prometheus.Counter
	vulns        *prometheus.CounterVec
	violations   *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics registers the depsentry collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "depsentry_scans_total",
			Help: "Dependency files scanned, by outcome.",
		}, []string{"outcome"}),
		dependencies: factory.NewCounter(prometheus.CounterOpts{
			Name: "depsentry_dependencies_total",
			Help: "Dependencies resolved across all scans.",
		}),
		vulns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "depsentry_vulnerabilities_total",
			Help: "Confirmed vulnerabilities, by severity.",
		}, []string{"severity"}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "depsentry_policy_violations_total",
			Help: "Policy violations, by policy type.",
		}, []string{"policy_type"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "depsentry_scan_duration_seconds",
			Help:    "Time spent scanning one dependency file.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScanFinished records one scanned file.
func (m *Metrics) ScanFinished(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scans.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

// DependenciesResolved adds n resolved dependencies.
func (m *Metrics) DependenciesResolved(n int) {
	m.dependencies.Add(float64(n))
}

// VulnerabilityConfirmed counts one confirmed vulnerability.
func (m *Metrics) VulnerabilityConfirmed(severity string) {
	m.vulns.WithLabelValues(severity).Inc()
}

// PolicyViolated counts one violation.
func (m *Metrics) PolicyViolated(policyType string) {
	m.violations.WithLabelValues(policyType).Inc()
}
