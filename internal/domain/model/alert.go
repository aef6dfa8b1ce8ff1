package model

import "time"

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert rules raised by the reference monitor.
const (
	AlertFeatureDrift    = "feature_drift"
	AlertPredictionShift = "prediction_shift"
)

// Alert is a structured monitoring alert as served on /alerts.
type Alert struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Severity  string    `json:"severity"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	RaisedAt  time.Time `json:"raised_at"`
}
