// Package metrics provides Prometheus metrics for grading runs and the
// reference candidate service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by mlgrade.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Grading run
	candidateCallDuration *prometheus.HistogramVec
	candidateCallFailures *prometheus.CounterVec
	metricChecks          *prometheus.CounterVec
	sectionScore          *prometheus.GaugeVec
	runScore              prometheus.Gauge
	runsTotal             *prometheus.CounterVec
	referenceSource       *prometheus.GaugeVec

	// Reference candidate HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	eventsIngested      prometheus.Counter
	alertsRaised        *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Default histogram buckets in milliseconds, sized for HTTP round-trips
// bounded by a 15 s timeout.
var defaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mlgrade",
		subsystem:        "grader",
		histogramBuckets: defaultBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.candidateCallDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidate_call_duration_milliseconds",
		Help:        "Duration of candidate service calls by call and outcome",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"call", "outcome"})

	m.candidateCallFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidate_call_failures_total",
		Help:        "Candidate calls that degraded to their failure sentinel",
		ConstLabels: m.constLabels,
	}, []string{"call", "reason"})

	m.metricChecks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "metric_checks_total",
		Help:        "Metric tolerance checks by metric and result",
		ConstLabels: m.constLabels,
	}, []string{"metric", "result"})

	m.sectionScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "section_score",
		Help:        "Points awarded per section in the last run",
		ConstLabels: m.constLabels,
	}, []string{"section"})

	m.runScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_score",
		Help:        "Total score of the last run",
		ConstLabels: m.constLabels,
	})

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Grading runs by final status",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.referenceSource = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reference_fallback",
		Help:        "1 when the built-in fallback was used for a reference input",
		ConstLabels: m.constLabels,
	}, []string{"input"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "candidate",
		Name:        "http_requests_total",
		Help:        "Requests served by the reference candidate by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "candidate",
		Name:        "http_request_duration_milliseconds",
		Help:        "Request duration of the reference candidate",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "candidate",
		Name:        "events_ingested_total",
		Help:        "Events accepted by the reference candidate",
		ConstLabels: m.constLabels,
	})

	m.alertsRaised = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "candidate",
		Name:        "alerts_raised_total",
		Help:        "Alerts returned by the reference candidate by rule",
		ConstLabels: m.constLabels,
	}, []string{"rule"})
}

// RecordCandidateCall observes one candidate call.
func (m *Manager) RecordCandidateCall(call string, ok bool, durationMs float64) {
	m.candidateCallDuration.WithLabelValues(call, outcome(ok)).Observe(durationMs)
}

// RecordCandidateFailure counts a degraded candidate call.
func (m *Manager) RecordCandidateFailure(call, reason string) {
	m.candidateCallFailures.WithLabelValues(call, reason).Inc()
}

// RecordMetricCheck counts one tolerance check.
func (m *Manager) RecordMetricCheck(metric string, present, agreed bool) {
	result := "mismatch"
	switch {
	case !present:
		result = "absent"
	case agreed:
		result = "agreed"
	}
	m.metricChecks.WithLabelValues(metric, result).Inc()
}

// SetSectionScore records the points awarded to a section.
func (m *Manager) SetSectionScore(section string, score int) {
	m.sectionScore.WithLabelValues(section).Set(float64(score))
}

// RecordRun records the final status and score of a run.
func (m *Manager) RecordRun(status string, score int) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runScore.Set(float64(score))
}

// SetReferenceFallback records whether input came from the fallback constant.
func (m *Manager) SetReferenceFallback(input string, fallback bool) {
	v := 0.0
	if fallback {
		v = 1
	}
	m.referenceSource.WithLabelValues(input).Set(v)
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordCandidateCall observes one candidate call on the global manager.
func RecordCandidateCall(call string, ok bool, durationMs float64) {
	globalManager.RecordCandidateCall(call, ok, durationMs)
}

// RecordCandidateFailure counts a degraded candidate call on the global manager.
func RecordCandidateFailure(call, reason string) {
	globalManager.RecordCandidateFailure(call, reason)
}

// RecordMetricCheck counts one tolerance check on the global manager.
func RecordMetricCheck(metric string, present, agreed bool) {
	globalManager.RecordMetricCheck(metric, present, agreed)
}

// SetSectionScore records section points on the global manager.
func SetSectionScore(section string, score int) {
	globalManager.SetSectionScore(section, score)
}

// RecordRun records a run on the global manager.
func RecordRun(status string, score int) {
	globalManager.RecordRun(status, score)
}

// SetReferenceFallback records the reference source on the global manager.
func SetReferenceFallback(input string, fallback bool) {
	globalManager.SetReferenceFallback(input, fallback)
}

// RecordHTTPRequest records an HTTP request served by the reference candidate.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordEventsIngested adds n accepted events.
func RecordEventsIngested(n int) {
	globalManager.eventsIngested.Add(float64(n))
}

// RecordAlertRaised counts an alert produced by rule.
func RecordAlertRaised(rule string) {
	globalManager.alertsRaised.WithLabelValues(rule).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the custom registry in text exposition format to
// path, atomically, for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
