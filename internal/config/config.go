// Package config defines grader configuration and its loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"time"

	"github.com/okian/mlgrade/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// CandidateURL is the base URL of the service under test.
	CandidateURL string `koanf:"candidate_url"`

	// EventsPath is the newline-delimited JSON event log.
	EventsPath string `koanf:"events_path"`

	// ReferencePath is the reference statistics JSON document.
	ReferencePath string `koanf:"reference_path"`

	// OutputPath receives the grading report.
	OutputPath string `koanf:"output_path"`

	// ResultPath is echoed into the report for the portal that serves results.
	ResultPath string `koanf:"result_path"`

	// SchemaPath is the candidate's machine-readable API schema endpoint.
	SchemaPath string `koanf:"schema_path"`

	// Per-call timeouts in milliseconds.
	IngestTimeoutMS  int `koanf:"ingest_timeout_ms"`
	MetricsTimeoutMS int `koanf:"metrics_timeout_ms"`
	AlertsTimeoutMS  int `koanf:"alerts_timeout_ms"`
	SchemaTimeoutMS  int `koanf:"schema_timeout_ms"`

	// MetricsTextfile, when set, receives the run metrics in Prometheus text format.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Rules overrides the metric tolerance rules. An empty list keeps the
	// default rules; the grader logs a warning when that happens.
	Rules []scoring.Rule `koanf:"rules"`

	// Addr is the listen address of the reference candidate.
	Addr string `koanf:"addr"`

	// AlertDriftPValue raises a drift alert when the p-value falls below it.
	AlertDriftPValue float64 `koanf:"alert_drift_pvalue"`

	// AlertMeanShift raises a prediction-shift alert when the observed mean
	// moves further than this from the reference mean.
	AlertMeanShift float64 `koanf:"alert_mean_shift"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		CandidateURL:     "http://localhost:18000",
		EventsPath:       "/workspace/assets/sample_events.jsonl",
		ReferencePath:    "/workspace/assets/reference_stats.json",
		OutputPath:       "/workspace/output/result.json",
		ResultPath:       "/assets/results",
		SchemaPath:       "/openapi.json",
		IngestTimeoutMS:  15_000,
		MetricsTimeoutMS: 10_000,
		AlertsTimeoutMS:  10_000,
		SchemaTimeoutMS:  5_000,
		Rules:            scoring.DefaultRules(),
		Addr:             ":18000",
		AlertDriftPValue: 0.05,
		AlertMeanShift:   0.1,
	}
}

// IngestTimeout returns the ingestion call budget.
func (c *Config) IngestTimeout() time.Duration { return ms(c.IngestTimeoutMS) }

// MetricsTimeout returns the metrics call budget.
func (c *Config) MetricsTimeout() time.Duration { return ms(c.MetricsTimeoutMS) }

// AlertsTimeout returns the alerts call budget.
func (c *Config) AlertsTimeout() time.Duration { return ms(c.AlertsTimeoutMS) }

// SchemaTimeout returns the schema call budget.
func (c *Config) SchemaTimeout() time.Duration { return ms(c.SchemaTimeoutMS) }

// Validate checks the fields the grader cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.CandidateURL == "":
		return fmt.Errorf("candidate_url must not be empty: %w", ErrInvalidConfig)
	case c.OutputPath == "":
		return fmt.Errorf("output_path must not be empty: %w", ErrInvalidConfig)
	case c.IngestTimeoutMS <= 0, c.MetricsTimeoutMS <= 0, c.AlertsTimeoutMS <= 0, c.SchemaTimeoutMS <= 0:
		return fmt.Errorf("timeouts must be positive: %w", ErrInvalidConfig)
	}
	if err := scoring.ValidateRules(c.Rules); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
