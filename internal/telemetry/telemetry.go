// Package telemetry exposes the agent's own lifecycle counters in
// Prometheus format. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "atlas_agent"

// Metrics holds the lifecycle collectors registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	registrationAttempts *prometheus.CounterVec
	reports              *prometheus.CounterVec
	reregistrations      prometheus.Counter
	consecutiveFailures  prometheus.Gauge
	lastReport           prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		registrationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_attempts_total",
			Help:      "Registration attempts against the collector, by result.",
		}, []string{"result"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Metric reports sent to the collector, by result.",
		}, []string{"result"}),
		reregistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reregistrations_total",
			Help:      "Re-registrations triggered by sustained reporting failure.",
		}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Reporting cycles failed in a row since the last success.",
		}),
		lastReport: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_timestamp_seconds",
			Help:      "Unix time of the last acknowledged report.",
		}),
	}
	reg.MustRegister(
		m.registrationAttempts,
		m.reports,
		m.reregistrations,
		m.consecutiveFailures,
		m.lastReport,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// RegistrationAttempt records one registration attempt.
func (m *Metrics) RegistrationAttempt(ok bool) {
	if m == nil {
		return
	}
	m.registrationAttempts.WithLabelValues(result(ok)).Inc()
}

// Report records one reporting cycle outcome and the failure streak after it.
func (m *Metrics) Report(ok bool, consecutiveFailures int, at time.Time) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(result(ok)).Inc()
	m.consecutiveFailures.Set(float64(consecutiveFailures))
	if ok {
		m.lastReport.Set(float64(at.Unix()))
	}
}

// Reregistration records that sustained failure triggered re-registration.
func (m *Metrics) Reregistration() {
	if m == nil {
		return
	}
	m.reregistrations.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
