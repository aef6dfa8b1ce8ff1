package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/mlgrade/internal/config"
	"github.com/okian/mlgrade/internal/domain/model"
	"github.com/okian/mlgrade/internal/domain/scoring"
	"github.com/okian/mlgrade/internal/report"
	"github.com/okian/mlgrade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 20, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// echoCandidate answers with exactly what the grader expects.
func echoCandidate(mon *Monitor) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var evs []model.Event
		if err := json.NewDecoder(r.Body).Decode(&evs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mon.Ingest(r.Context(), evs)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mon.Metrics(r.Context()))
	})
	mux.HandleFunc("/alerts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"rule":"feature_drift","severity":"warning"}]`))
	})
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.0.3"}`))
	})
	return mux
}

// recordingLogger keeps warning messages for assertions.
type recordingLogger struct {
	warnings *[]string
}

func newRecordingLogger() recordingLogger { return recordingLogger{warnings: &[]string{}} }

func (l recordingLogger) Info(context.Context, string, ...logger.Field)  {}
func (l recordingLogger) Error(context.Context, string, ...logger.Field) {}
func (l recordingLogger) Debug(context.Context, string, ...logger.Field) {}
func (l recordingLogger) Warn(_ context.Context, msg string, _ ...logger.Field) {
	*l.warnings = append(*l.warnings, msg)
}
func (l recordingLogger) Named(string) logger.Logger        { return l }
func (l recordingLogger) With(...logger.Field) logger.Logger { return l }

func testConfig(t *testing.T, candidateURL string) *config.Config {
	dir := t.TempDir()
	cfg := config.New()
	cfg.CandidateURL = candidateURL
	cfg.EventsPath = filepath.Join(dir, "missing_events.jsonl")
	cfg.ReferencePath = filepath.Join(dir, "missing_reference.json")
	cfg.OutputPath = filepath.Join(dir, "output", "result.json")
	cfg.IngestTimeoutMS = 2000
	cfg.MetricsTimeoutMS = 2000
	cfg.AlertsTimeoutMS = 2000
	cfg.SchemaTimeoutMS = 2000
	return cfg
}

func newTestGrader(cfg *config.Config, opts ...Option) *Grader {
	base := []Option{
		WithConfig(cfg),
		WithLogger(logger.Nop()),
		WithClock(fixedClock),
		WithRunID(func() string { return "run-test" }),
	}
	return New(append(base, opts...)...)
}

func TestGraderRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a candidate that echoes the expected metrics", t, func() {
		srv := httptest.NewServer(echoCandidate(NewMonitor(
			WithMonitorClock(fixedClock),
			WithMonitorLogger(logger.Nop()),
		)))
		defer srv.Close()
		cfg := testConfig(t, srv.URL)

		doc, err := newTestGrader(cfg).Run(ctx)

		Convey("Then the run scores full marks", func() {
			So(err, ShouldBeNil)
			So(doc.RunID, ShouldEqual, "run-test")
			So(doc.Status, ShouldEqual, scoring.StatusCompleted)
			So(doc.Score, ShouldEqual, 100)
			So(doc.Sections, ShouldResemble, []scoring.Section{
				{Name: scoring.SectionIngestion, Score: 10, Max: 10},
				{Name: scoring.SectionMetrics, Score: 50, Max: 50},
				{Name: scoring.SectionAlerts, Score: 20, Max: 20},
				{Name: scoring.SectionSchema, Score: 20, Max: 20},
			})
			So(doc.Feedback, ShouldEqual, "Score 100/100. Metrics match 50/50; alerts 20/20; ingestion ok.")
			So(doc.ResultPath, ShouldEqual, "/assets/results")
		})

		Convey("Then the written document matches the returned one", func() {
			got, readErr := report.Read(cfg.OutputPath)
			So(readErr, ShouldBeNil)
			So(got.Score, ShouldEqual, doc.Score)
			So(got.Sections, ShouldResemble, doc.Sections)
		})
	})

	Convey("Given a candidate that is not running", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		cfg := testConfig(t, url)

		doc, err := newTestGrader(cfg).Run(ctx)

		Convey("Then every section is present and zero", func() {
			So(err, ShouldBeNil)
			So(doc.Status, ShouldEqual, scoring.StatusFailed)
			So(doc.Score, ShouldEqual, 0)
			So(len(doc.Sections), ShouldEqual, 4)
			for _, s := range doc.Sections {
				So(s.Score, ShouldEqual, 0)
			}
			So(doc.Feedback, ShouldEqual, "Score 0/100. Metrics match 0/50; alerts 0/20; ingestion fail.")
		})
	})

	Convey("Given a corrupt reference file", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := testConfig(t, srv.URL)
		So(os.WriteFile(cfg.ReferencePath, []byte(`{"feature_means": [`), 0o600), ShouldBeNil)

		doc, err := newTestGrader(cfg).Run(ctx)

		Convey("Then a failure document is written", func() {
			So(err, ShouldBeNil)
			So(doc.Status, ShouldEqual, scoring.StatusFailed)
			So(doc.Score, ShouldEqual, 0)
			So(doc.Sections, ShouldBeEmpty)
			So(strings.HasPrefix(doc.Feedback, "Grader error: "), ShouldBeTrue)

			got, readErr := report.Read(cfg.OutputPath)
			So(readErr, ShouldBeNil)
			So(got.Status, ShouldEqual, scoring.StatusFailed)
		})
	})

	Convey("Given a pipeline step that panics", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := testConfig(t, srv.URL)

		g := newTestGrader(cfg, WithClock(func() time.Time { panic("clock exploded") }))
		doc, err := g.Run(ctx)

		Convey("Then the panic becomes a failure document", func() {
			So(err, ShouldBeNil)
			So(doc.Status, ShouldEqual, scoring.StatusFailed)
			So(doc.Feedback, ShouldContainSubstring, "clock exploded")
		})
	})

	Convey("Given an output path that cannot be created", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := testConfig(t, srv.URL)
		blocker := filepath.Join(t.TempDir(), "blocker")
		So(os.WriteFile(blocker, []byte("x"), 0o600), ShouldBeNil)
		cfg.OutputPath = filepath.Join(blocker, "result.json")

		_, err := newTestGrader(cfg).Run(ctx)

		Convey("Then Run reports the write error", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a metrics textfile destination", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := testConfig(t, srv.URL)
		cfg.MetricsTextfile = filepath.Join(t.TempDir(), "mlgrade.prom")

		_, err := newTestGrader(cfg).Run(ctx)

		Convey("Then run metrics are exported", func() {
			So(err, ShouldBeNil)
			b, readErr := os.ReadFile(cfg.MetricsTextfile)
			So(readErr, ShouldBeNil)
			So(string(b), ShouldContainSubstring, "mlgrade_grader_runs_total")
		})
	})
}

func TestGraderRules(t *testing.T) {
	Convey("Given a config with an empty rule list", t, func() {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Rules = []scoring.Rule{}
		log := newRecordingLogger()

		g := newTestGrader(cfg, WithLogger(log))

		Convey("Then the defaults are scored and the operator is warned", func() {
			So(g.scorer.Policy().Rules, ShouldResemble, scoring.DefaultRules())
			So(*log.warnings, ShouldContain, "rule list is empty; default metric rules apply")
		})
	})

	Convey("Given a config with its own rules", t, func() {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Rules = []scoring.Rule{{Metric: model.MetricF1, Tolerance: 0.1, Weight: 50}}
		log := newRecordingLogger()

		g := newTestGrader(cfg, WithLogger(log))

		Convey("Then they replace the defaults without a warning", func() {
			So(g.scorer.Policy().Rules, ShouldResemble, cfg.Rules)
			So(*log.warnings, ShouldBeEmpty)
		})
	})
}
