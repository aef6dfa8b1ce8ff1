// Package app wires the grading pipeline and the reference monitoring service.
package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/okian/mlgrade/internal/candidate"
	"github.com/okian/mlgrade/internal/config"
	"github.com/okian/mlgrade/internal/domain/expected"
	"github.com/okian/mlgrade/internal/domain/scoring"
	"github.com/okian/mlgrade/internal/reference"
	"github.com/okian/mlgrade/internal/report"
	"github.com/okian/mlgrade/pkg/logger"
	"github.com/okian/mlgrade/pkg/metrics"
)

// Grader runs one grading pass: load, compute expected, query the
// candidate, score and emit.
type Grader struct {
	cfg    *config.Config
	client *candidate.Client
	scorer *scoring.Scorer
	now    func() time.Time
	runID  func() string

	logger logger.Logger
}

// Option applies a configuration option to the Grader.
type Option func(*Grader)

// WithConfig sets the run configuration.
func WithConfig(cfg *config.Config) Option {
	return func(g *Grader) {
		if cfg != nil {
			g.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the grader.
func WithLogger(l logger.Logger) Option {
	return func(g *Grader) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClient replaces the candidate client built from the config.
func WithClient(c *candidate.Client) Option {
	return func(g *Grader) {
		if c != nil {
			g.client = c
		}
	}
}

// WithClock sets the time source used for latency expectations.
func WithClock(now func() time.Time) Option {
	return func(g *Grader) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRunID sets the generator of run identifiers.
func WithRunID(fn func() string) Option {
	return func(g *Grader) {
		if fn != nil {
			g.runID = fn
		}
	}
}

// New constructs a Grader. Anything not supplied is derived from the config.
func New(opts ...Option) *Grader {
	g := &Grader{
		cfg:   config.New(),
		now:   time.Now,
		runID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get()
	}
	if g.client == nil {
		g.client = candidate.New(g.cfg.CandidateURL,
			candidate.WithTimeouts(candidate.Timeouts{
				Ingest:  g.cfg.IngestTimeout(),
				Metrics: g.cfg.MetricsTimeout(),
				Alerts:  g.cfg.AlertsTimeout(),
				Schema:  g.cfg.SchemaTimeout(),
			}),
			candidate.WithSchemaPath(g.cfg.SchemaPath),
			candidate.WithLogger(g.logger.Named("candidate")),
		)
	}
	if len(g.cfg.Rules) == 0 {
		g.logger.Warn(context.Background(), "rule list is empty; default metric rules apply",
			logger.Int("default_rules", len(scoring.DefaultRules())))
	}
	g.scorer = scoring.NewScorer(scoring.WithRules(g.cfg.Rules))
	return g
}

// Run grades the candidate and writes exactly one report document.
// Any error or panic inside the pipeline becomes a failure document.
// The returned error is non-nil only when the document could not be written.
func (g *Grader) Run(ctx context.Context) (report.Document, error) {
	runID := g.runID()
	log := g.logger.With(logger.String("run_id", runID))
	started := time.Now()

	log.Info(ctx, "grading started",
		logger.String("candidate_url", g.cfg.CandidateURL),
		logger.String("output", g.cfg.OutputPath),
	)

	doc, err := g.grade(ctx, runID, log)
	if err != nil {
		log.Error(ctx, "grading failed", logger.Error(err))
		doc = report.Failure(runID, err)
		doc.ResultPath = g.cfg.ResultPath
	}
	metrics.RecordRun(doc.Status, doc.Score)

	// The document is written even when ctx was cancelled mid-run.
	if werr := report.Write(context.WithoutCancel(ctx), g.cfg.OutputPath, doc); werr != nil {
		log.Error(ctx, "report write failed", logger.Error(werr))
		return doc, werr
	}
	if g.cfg.MetricsTextfile != "" {
		if merr := metrics.WriteTextfile(g.cfg.MetricsTextfile); merr != nil {
			log.Warn(ctx, "metrics textfile write failed", logger.Error(merr))
		}
	}

	log.Info(ctx, "grading finished",
		logger.String("status", doc.Status),
		logger.Int("score", doc.Score),
		logger.Duration("elapsed", time.Since(started)),
	)
	return doc, nil
}

func (g *Grader) grade(ctx context.Context, runID string, log logger.Logger) (doc report.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "panic during grading", logger.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	events, evSrc, err := reference.LoadEvents(ctx, g.cfg.EventsPath)
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrLoadEvents, err)
	}
	ref, refSrc, err := reference.LoadReference(ctx, g.cfg.ReferencePath)
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrLoadBaseline, err)
	}
	metrics.SetReferenceFallback("events", evSrc == reference.SourceFallback)
	metrics.SetReferenceFallback("reference", refSrc == reference.SourceFallback)
	log.Info(ctx, "inputs loaded",
		logger.String("events_source", evSrc.String()),
		logger.String("reference_source", refSrc.String()),
		logger.Int("events", len(events)),
	)

	want := expected.Calculate(events, ref, g.now())
	log.Debug(ctx, "expected metrics computed", logger.Any("metrics", want))

	obs := g.client.Query(ctx, events)

	res := g.scorer.Score(scoring.Input{
		Expected:  want,
		Candidate: obs.Metrics.Metrics,
		Alerts:    obs.Alerts,
		SchemaOK:  obs.Schema.OK,
		IngestOK:  obs.Ingest.OK,
	})
	for _, c := range res.Checks {
		metrics.RecordMetricCheck(c.Metric, c.Present, c.Agreed)
		log.Debug(ctx, "metric check",
			logger.String("metric", c.Metric),
			logger.Float64("expected", c.Expected),
			logger.Float64("candidate", c.Candidate),
			logger.Bool("present", c.Present),
			logger.Bool("agreed", c.Agreed),
		)
	}
	for _, s := range res.Sections {
		metrics.SetSectionScore(s.Name, s.Score)
	}
	return report.FromResult(runID, g.cfg.ResultPath, res), nil
}
