package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/mlgrade/internal/domain/model"
)

// ErrInvalidRule is returned by Policy.Validate for malformed rules.
var ErrInvalidRule = errors.New("invalid tolerance rule")

// Default section maxima.
const (
	defaultIngestionPoints       = 10
	defaultMetricsMax            = 50
	defaultAlertListPoints       = 10
	defaultAlertStructuredPoints = 10
	defaultSchemaPoints          = 20
	defaultTolerance             = 0.25
	defaultF1Tolerance           = 0.3
)

// Rule says how close a metric must be and what agreement is worth.
type Rule struct {
	Metric    string  `koanf:"metric" json:"metric"`
	Tolerance float64 `koanf:"tolerance" json:"tolerance"`
	Weight    int     `koanf:"weight" json:"weight"`
}

// Policy holds the point values of every section and the metric rules.
type Policy struct {
	IngestionPoints       int
	MetricsMax            int
	AlertListPoints       int
	AlertStructuredPoints int
	SchemaPoints          int
	Rules                 []Rule
}

// AlertsMax is the maximum score of the alerts section.
func (p Policy) AlertsMax() int { return p.AlertListPoints + p.AlertStructuredPoints }

// Max is the maximum total score.
func (p Policy) Max() int {
	return p.IngestionPoints + p.MetricsMax + p.AlertsMax() + p.SchemaPoints
}

// DefaultRules returns the tolerance rules the grader ships with. The rule
// weights add up to more than the metrics maximum; the section is clamped.
func DefaultRules() []Rule {
	return []Rule{
		{Metric: model.MetricCount1h, Tolerance: defaultTolerance, Weight: 10},
		{Metric: model.MetricCount24h, Tolerance: defaultTolerance, Weight: 10},
		{Metric: model.MetricPredictionMean, Tolerance: defaultTolerance, Weight: 10},
		{Metric: model.MetricPredictionStd, Tolerance: defaultTolerance, Weight: 10},
		{Metric: model.MetricLatencyP95, Tolerance: defaultTolerance, Weight: 5},
		{Metric: model.MetricAccuracy, Tolerance: defaultTolerance, Weight: 5},
		{Metric: model.MetricF1, Tolerance: defaultF1Tolerance, Weight: 5},
	}
}

// DefaultPolicy returns the standard 100-point policy.
func DefaultPolicy() Policy {
	return Policy{
		IngestionPoints:       defaultIngestionPoints,
		MetricsMax:            defaultMetricsMax,
		AlertListPoints:       defaultAlertListPoints,
		AlertStructuredPoints: defaultAlertStructuredPoints,
		SchemaPoints:          defaultSchemaPoints,
		Rules:                 DefaultRules(),
	}
}

// Validate checks every rule.
func (p Policy) Validate() error {
	return ValidateRules(p.Rules)
}

// ValidateRules rejects rules with an empty metric, a negative tolerance or
// a negative weight.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		switch {
		case r.Metric == "":
			return fmt.Errorf("rule %d: empty metric: %w", i, ErrInvalidRule)
		case r.Tolerance < 0:
			return fmt.Errorf("rule %d (%s): negative tolerance: %w", i, r.Metric, ErrInvalidRule)
		case r.Weight < 0:
			return fmt.Errorf("rule %d (%s): negative weight: %w", i, r.Metric, ErrInvalidRule)
		}
	}
	return nil
}
