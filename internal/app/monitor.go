package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/mlgrade/internal/domain/expected"
	"github.com/okian/mlgrade/internal/domain/model"
	"github.com/okian/mlgrade/internal/reference"
	"github.com/okian/mlgrade/pkg/logger"
	"github.com/okian/mlgrade/pkg/metrics"
)

// Monitor is the in-memory monitoring service behind the reference candidate.
// It stores every ingested event and derives metrics and alerts on demand.
type Monitor struct {
	mu     sync.RWMutex
	events []model.Event

	ref              model.ReferenceStatistics
	driftPValueBelow float64
	meanShiftAbove   float64
	now              func() time.Time

	logger logger.Logger
}

// MonitorOption applies a configuration option to the Monitor.
type MonitorOption func(*Monitor)

// WithReference sets the baseline statistics alerts are judged against.
func WithReference(ref model.ReferenceStatistics) MonitorOption {
	return func(m *Monitor) {
		m.ref = ref
	}
}

// WithAlertThresholds sets the drift p-value floor and the allowed
// prediction-mean shift. Non-positive values keep the defaults.
func WithAlertThresholds(driftPValue, meanShift float64) MonitorOption {
	return func(m *Monitor) {
		if driftPValue > 0 {
			m.driftPValueBelow = driftPValue
		}
		if meanShift > 0 {
			m.meanShiftAbove = meanShift
		}
	}
}

// WithMonitorClock sets the time source used for latency metrics.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMonitorLogger sets a custom logger for the monitor.
func WithMonitorLogger(l logger.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMonitor constructs a Monitor seeded with the built-in baseline.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		events:           make([]model.Event, 0, 1024),
		ref:              reference.FallbackReference(),
		driftPValueBelow: 0.05,
		meanShiftAbove:   0.1,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("monitor")
	}
	return m
}

// Ingest stores events and returns how many were accepted.
func (m *Monitor) Ingest(ctx context.Context, events []model.Event) int {
	m.mu.Lock()
	m.events = append(m.events, events...)
	total := len(m.events)
	m.mu.Unlock()

	metrics.RecordEventsIngested(len(events))
	m.logger.Debug(ctx, "events ingested",
		logger.Int("accepted", len(events)),
		logger.Int("total", total),
	)
	return len(events)
}

// Count returns the number of stored events.
func (m *Monitor) Count(context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Metrics computes the current statistics over every stored event.
func (m *Monitor) Metrics(context.Context) model.Metrics {
	return expected.Calculate(m.snapshot(), m.ref, m.now())
}

// Alerts evaluates alert rules against the current statistics.
// It returns an empty, non-nil slice when nothing fires.
func (m *Monitor) Alerts(ctx context.Context) []model.Alert {
	events := m.snapshot()
	if len(events) == 0 {
		return []model.Alert{}
	}
	now := m.now().UTC()
	alerts := make([]model.Alert, 0, 2)

	if p := expected.DriftPValue(events, m.ref); p < m.driftPValueBelow {
		alerts = append(alerts, model.Alert{
			ID:        uuid.NewString(),
			Rule:      model.AlertFeatureDrift,
			Severity:  model.SeverityCritical,
			Metric:    model.MetricFeatureDriftPValue,
			Value:     p,
			Threshold: m.driftPValueBelow,
			Message:   fmt.Sprintf("feature drift p-value %.4f below %.4f", p, m.driftPValueBelow),
			RaisedAt:  now,
		})
	}

	preds := make([]float64, len(events))
	for i, e := range events {
		preds[i] = e.Prediction
	}
	mean := expected.Mean(preds)
	if shift := math.Abs(mean - m.ref.PredictionMean); shift > m.meanShiftAbove {
		alerts = append(alerts, model.Alert{
			ID:        uuid.NewString(),
			Rule:      model.AlertPredictionShift,
			Severity:  model.SeverityWarning,
			Metric:    model.MetricPredictionMean,
			Value:     mean,
			Threshold: m.meanShiftAbove,
			Message:   fmt.Sprintf("prediction mean %.4f is %.4f away from reference %.4f", mean, shift, m.ref.PredictionMean),
			RaisedAt:  now,
		})
	}

	for _, a := range alerts {
		metrics.RecordAlertRaised(a.Rule)
		m.logger.Info(ctx, "alert raised",
			logger.String("rule", a.Rule),
			logger.Float64("value", a.Value),
			logger.Float64("threshold", a.Threshold),
		)
	}
	return alerts
}

// Reset drops every stored event.
func (m *Monitor) Reset(ctx context.Context) {
	m.mu.Lock()
	m.events = m.events[:0]
	m.mu.Unlock()
	m.logger.Info(ctx, "events reset")
}

func (m *Monitor) snapshot() []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}
