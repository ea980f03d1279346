// Package metrics counts scenario, step and assertion outcomes of a run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "uitest"

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	scenarios   *prometheus.CounterVec
	steps       *prometheus.CounterVec
	assertions  *prometheus.CounterVec
	screenshots *prometheus.CounterVec
	sessions    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		scenarios: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scenarios_total",
			Help:      "Scenarios run, by feature and result.",
		}, []string{"feature", "result"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "steps_total",
			Help:      "Steps run, by status.",
		}, []string{"status"}),
		assertions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "assertions_total",
			Help:      "Assertions checked, by kind and result.",
		}, []string{"assertion", "result"}),
		screenshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "screenshots_total",
			Help:      "Failure screenshots, by whether they were saved.",
		}, []string{"result"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "driver_sessions_total",
			Help:      "WebDriver sessions created, by browser and result.",
		}, []string{"browser", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Scenario wall-clock duration.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"feature"}),
	}
}

func result(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

// RecordScenario counts a finished scenario and its duration.
func (m *Metrics) RecordScenario(feature string, passed bool, d time.Duration) {
	m.scenarios.WithLabelValues(feature, result(passed)).Inc()
	m.duration.WithLabelValues(feature).Observe(d.Seconds())
}

// RecordStep counts a finished step by its report status.
func (m *Metrics) RecordStep(status string) {
	m.steps.WithLabelValues(status).Inc()
}

// RecordAssertion counts an assertion outcome. Its signature matches
// assertion.WithObserver.
func (m *Metrics) RecordAssertion(assertion string, passed bool) {
	m.assertions.WithLabelValues(assertion, result(passed)).Inc()
}

// RecordScreenshot counts a screenshot attempt.
func (m *Metrics) RecordScreenshot(saved bool) {
	m.screenshots.WithLabelValues(result(saved)).Inc()
}

// RecordSession counts a WebDriver session creation attempt.
func (m *Metrics) RecordSession(browser string, ok bool) {
	m.sessions.WithLabelValues(browser, result(ok)).Inc()
}

// Registry exposes the collectors for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics to path for the node exporter's textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
