// Package scoring compares expected metrics with what a candidate reported
// and turns the comparison into weighted section scores.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/mlgrade/internal/domain/model"
)

// Result status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Section names, in report order.
const (
	SectionIngestion = "Ingestion API"
	SectionMetrics   = "Metrics"
	SectionAlerts    = "Alerts"
	SectionSchema    = "OpenAPI"
)

// ZeroMargin is the absolute agreement margin used when the expected value is 0.
const ZeroMargin = 0.05

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPolicy replaces the scoring policy.
func WithPolicy(p Policy) Option {
	return func(s *Scorer) {
		s.policy = p
	}
}

// WithRules replaces only the metric rules, keeping section maxima.
// An empty list leaves the current rules in place.
func WithRules(rules []Rule) Option {
	return func(s *Scorer) {
		if len(rules) > 0 {
			s.policy.Rules = append([]Rule(nil), rules...)
		}
	}
}

// Input bundles everything the scorer needs for one run. Expected and
// Candidate are only read.
type Input struct {
	Expected  model.Metrics
	Candidate model.Metrics
	Alerts    model.AlertList
	SchemaOK  bool
	IngestOK  bool
}

// Section is one named, independently weighted slice of the score.
type Section struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Max   int    `json:"max"`
}

// Check records how a single metric rule was judged.
type Check struct {
	Metric    string  `json:"metric"`
	Expected  float64 `json:"expected"`
	Candidate float64 `json:"candidate"`
	Present   bool    `json:"present"`
	Agreed    bool    `json:"agreed"`
	Points    int     `json:"points"`
}

// Result is the outcome of grading one candidate.
type Result struct {
	Status   string
	Score    int
	Max      int
	Sections []Section
	Checks   []Check
	Feedback string
}

// Section returns the named section and whether it exists.
func (r Result) Section(name string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Scorer applies a Policy to grading inputs.
type Scorer struct {
	policy Policy
}

// NewScorer creates a scorer with the default policy and options applied.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns a copy of the active policy.
func (s *Scorer) Policy() Policy {
	p := s.policy
	p.Rules = append([]Rule(nil), s.policy.Rules...)
	return p
}

// Close reports whether candidate agrees with expected. When expected is
// exactly zero the absolute difference must be below ZeroMargin; otherwise
// the relative difference must not exceed tolerance.
func Close(candidate, expected, tolerance float64) bool {
	if math.IsNaN(candidate) || math.IsNaN(expected) {
		return false
	}
	diff := math.Abs(candidate - expected)
	if expected == 0 {
		return diff < ZeroMargin
	}
	return diff/math.Abs(expected) <= tolerance
}

// Score grades in. Sections are always emitted in the same order and each
// is clamped to [0, max].
func (s *Scorer) Score(in Input) Result {
	p := s.policy

	ingest := 0
	if in.IngestOK {
		ingest = p.IngestionPoints
	}

	checks, metricPoints := s.scoreMetrics(in.Expected, in.Candidate)

	alerts := 0
	if in.Alerts.Present {
		alerts += p.AlertListPoints
		if in.Alerts.HasStructured() {
			alerts += p.AlertStructuredPoints
		}
	}

	schema := 0
	if in.SchemaOK {
		schema = p.SchemaPoints
	}

	sections := []Section{
		{Name: SectionIngestion, Score: clamp(ingest, p.IngestionPoints), Max: p.IngestionPoints},
		{Name: SectionMetrics, Score: clamp(metricPoints, p.MetricsMax), Max: p.MetricsMax},
		{Name: SectionAlerts, Score: clamp(alerts, p.AlertsMax()), Max: p.AlertsMax()},
		{Name: SectionSchema, Score: clamp(schema, p.SchemaPoints), Max: p.SchemaPoints},
	}

	total, maxTotal := 0, 0
	for _, sec := range sections {
		total += sec.Score
		maxTotal += sec.Max
	}

	status := StatusFailed
	if total > 0 {
		status = StatusCompleted
	}

	ingestWord := "fail"
	if in.IngestOK {
		ingestWord = "ok"
	}
	feedback := fmt.Sprintf("Score %d/%d. Metrics match %d/%d; alerts %d/%d; ingestion %s.",
		total, maxTotal, sections[1].Score, sections[1].Max, sections[2].Score, sections[2].Max, ingestWord)

	return Result{
		Status:   status,
		Score:    total,
		Max:      maxTotal,
		Sections: sections,
		Checks:   checks,
		Feedback: feedback,
	}
}

// scoreMetrics awards each rule's weight when the metric is present on both
// sides and the values agree. Absent metrics never partially score.
func (s *Scorer) scoreMetrics(expected, candidate model.Metrics) ([]Check, int) {
	checks := make([]Check, 0, len(s.policy.Rules))
	points := 0
	for _, r := range s.policy.Rules {
		c := Check{Metric: r.Metric}
		want, okWant := expected.Lookup(r.Metric)
		got, okGot := candidate.Lookup(r.Metric)
		c.Expected, c.Candidate = want, got
		c.Present = okWant && okGot
		if c.Present && Close(got, want, r.Tolerance) {
			c.Agreed = true
			c.Points = r.Weight
			points += r.Weight
		}
		checks = append(checks, c)
	}
	return checks, points
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
