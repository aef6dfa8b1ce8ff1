package candidate_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/mlgrade/internal/candidate"
	"github.com/okian/mlgrade/internal/domain/model"
	"github.com/okian/mlgrade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeCandidate is a configurable stand-in for a submitted service.
type fakeCandidate struct {
	mu       sync.Mutex
	received []model.Event
	calls    []string

	eventsStatus int
	metricsType  string
	metricsBody  string
	alertsStatus int
	alertsBody   string
	schemaType   string
	delay        time.Duration
}

func newFakeCandidate() *fakeCandidate {
	return &fakeCandidate{
		eventsStatus: http.StatusAccepted,
		metricsType:  "application/json",
		metricsBody:  `{"count_1h": 10, "prediction_mean": 0.5, "model": "v2", "healthy": true}`,
		alertsStatus: http.StatusOK,
		alertsBody:   `[{"rule": "feature_drift"}]`,
		schemaType:   "application/json; charset=utf-8",
	}
}

func (f *fakeCandidate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	switch r.URL.Path {
	case "/events":
		var evs []model.Event
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &evs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.received = append(f.received, evs...)
		f.mu.Unlock()
		w.WriteHeader(f.eventsStatus)
	case "/metrics":
		w.Header().Set("Content-Type", f.metricsType)
		_, _ = io.WriteString(w, f.metricsBody)
	case "/alerts":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.alertsStatus)
		_, _ = io.WriteString(w, f.alertsBody)
	case "/openapi.json", "/docs/schema.json":
		w.Header().Set("Content-Type", f.schemaType)
		_, _ = io.WriteString(w, `{"openapi": "3.0.3"}`)
	default:
		http.NotFound(w, r)
	}
}

func newClient(url string, opts ...candidate.Option) *candidate.Client {
	return candidate.New(url, append([]candidate.Option{candidate.WithLogger(logger.Nop())}, opts...)...)
}

func TestClientQuery(t *testing.T) {
	Convey("Given a well-behaved candidate", t, func() {
		fake := newFakeCandidate()
		srv := httptest.NewServer(fake)
		defer srv.Close()
		client := newClient(srv.URL + "/")

		events := []model.Event{
			{Timestamp: "2024-06-01T00:00:01Z", Prediction: 0.7, Label: model.IntPtr(1)},
			{Timestamp: "2024-06-01T00:00:02Z", Prediction: 0.2, FeatureVector: []float64{0.1, 0.2}},
		}

		Convey("When the client queries it", func() {
			obs := client.Query(context.Background(), events)

			Convey("Then calls happen in order, ingest first", func() {
				So(fake.calls, ShouldResemble, []string{
					"POST /events", "GET /metrics", "GET /alerts", "GET /openapi.json",
				})
			})

			Convey("Then the whole batch is posted as one array", func() {
				So(obs.Ingest.OK, ShouldBeTrue)
				So(obs.Ingest.StatusCode, ShouldEqual, http.StatusAccepted)
				So(fake.received, ShouldResemble, events)
			})

			Convey("Then numeric metrics are kept and the rest dropped", func() {
				So(obs.Metrics.OK, ShouldBeTrue)
				So(obs.Metrics.Metrics, ShouldResemble, model.Metrics{"count_1h": 10, "prediction_mean": 0.5})
			})

			Convey("Then alerts and schema are accepted", func() {
				So(obs.Alerts.Present, ShouldBeTrue)
				So(obs.Alerts.HasStructured(), ShouldBeTrue)
				So(obs.Schema.OK, ShouldBeTrue)
				So(obs.Schema.Err, ShouldBeNil)
			})
		})
	})
}

func TestClientFailures(t *testing.T) {
	ctx := context.Background()

	Convey("Given a candidate with broken endpoints", t, func() {
		fake := newFakeCandidate()
		srv := httptest.NewServer(fake)
		defer srv.Close()
		client := newClient(srv.URL)

		Convey("When ingestion answers with a redirect-class status", func() {
			fake.eventsStatus = http.StatusMultipleChoices
			out := client.SubmitEvents(ctx, nil)
			So(out.OK, ShouldBeFalse)
			So(errors.Is(out.Err, candidate.ErrStatus), ShouldBeTrue)
		})

		Convey("When metrics is not a JSON object", func() {
			fake.metricsBody = `[1, 2, 3]`
			out := client.FetchMetrics(ctx)
			So(out.OK, ShouldBeFalse)
			So(errors.Is(out.Err, candidate.ErrDecode), ShouldBeTrue)
			So(len(out.Metrics), ShouldEqual, 0)
		})

		Convey("When alerts is an object instead of an array", func() {
			fake.alertsBody = `{"alerts": []}`
			So(client.FetchAlerts(ctx).Present, ShouldBeFalse)
		})

		Convey("When alerts is JSON null", func() {
			fake.alertsBody = `null`
			So(client.FetchAlerts(ctx).Present, ShouldBeFalse)
		})

		Convey("When alerts returns a server error", func() {
			fake.alertsStatus = http.StatusInternalServerError
			fake.alertsBody = `[]`
			So(client.FetchAlerts(ctx).Present, ShouldBeFalse)
		})

		Convey("When alerts is an empty array", func() {
			fake.alertsBody = `[]`
			alerts := client.FetchAlerts(ctx)
			So(alerts.Present, ShouldBeTrue)
			So(alerts.HasStructured(), ShouldBeFalse)
		})

		Convey("When alerts holds only strings", func() {
			fake.alertsBody = `["drift detected"]`
			alerts := client.FetchAlerts(ctx)
			So(alerts.Present, ShouldBeTrue)
			So(alerts.HasStructured(), ShouldBeFalse)
		})

		Convey("When the schema is served as YAML", func() {
			fake.schemaType = "application/yaml"
			out := client.FetchSchema(ctx)
			So(out.OK, ShouldBeFalse)
			So(errors.Is(out.Err, candidate.ErrContentType), ShouldBeTrue)
		})

		Convey("When the schema lives at a custom path", func() {
			out := newClient(srv.URL, candidate.WithSchemaPath("/docs/schema.json")).FetchSchema(ctx)
			So(out.OK, ShouldBeTrue)
		})
	})

	Convey("Given a candidate that is not listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		obs := newClient(url).Query(ctx, nil)

		Convey("Then every call fails without panicking", func() {
			So(obs.Ingest.OK, ShouldBeFalse)
			So(obs.Ingest.Err, ShouldNotBeNil)
			So(obs.Metrics.OK, ShouldBeFalse)
			So(obs.Metrics.Metrics, ShouldNotBeNil)
			So(obs.Alerts.Present, ShouldBeFalse)
			So(obs.Schema.OK, ShouldBeFalse)
		})
	})

	Convey("Given a slow candidate", t, func() {
		fake := newFakeCandidate()
		fake.delay = 200 * time.Millisecond
		srv := httptest.NewServer(fake)
		defer srv.Close()

		client := newClient(srv.URL, candidate.WithTimeouts(candidate.Timeouts{Metrics: 20 * time.Millisecond}))

		Convey("Then only the call with a short budget times out", func() {
			So(client.Timeouts().Metrics, ShouldEqual, 20*time.Millisecond)
			So(client.Timeouts().Schema, ShouldEqual, 5*time.Second)

			out := client.FetchMetrics(ctx)
			So(out.OK, ShouldBeFalse)
			So(errors.Is(out.Err, context.DeadlineExceeded), ShouldBeTrue)
			So(client.FetchSchema(ctx).OK, ShouldBeTrue)
		})
	})
}

func TestParseMetrics(t *testing.T) {
	Convey("Given a Prometheus exposition body", t, func() {
		body := `# HELP count_1h Events in the last hour.
# TYPE count_1h counter
count_1h{model="a"} 6
count_1h{model="b"} 4
# TYPE prediction_mean gauge
prediction_mean 0.51
# TYPE go_goroutines gauge
go_goroutines 12
`
		m, err := candidate.ParseMetrics("text/plain; version=0.0.4", []byte(body))

		Convey("Then known families are summed and others ignored", func() {
			So(err, ShouldBeNil)
			So(m, ShouldResemble, model.Metrics{"count_1h": 10, "prediction_mean": 0.51})
		})
	})

	Convey("Given a garbage text body", t, func() {
		_, err := candidate.ParseMetrics("text/plain", []byte("{not prometheus"))
		So(errors.Is(err, candidate.ErrDecode), ShouldBeTrue)
	})

	Convey("Given JSON without a content type", t, func() {
		m, err := candidate.ParseMetrics("", []byte(`{"f1": 0.8, "labels": [1, 2]}`))
		So(err, ShouldBeNil)
		So(m, ShouldResemble, model.Metrics{"f1": 0.8})
	})

	Convey("Given a JSON object labelled as plain text", t, func() {
		m, err := candidate.ParseMetrics("text/plain; charset=utf-8", []byte("{\"count_1h\": 10, \"f1\": 0.8}\n"))
		So(err, ShouldBeNil)
		So(m, ShouldResemble, model.Metrics{"count_1h": 10, "f1": 0.8})
	})

	Convey("Given a JSON array labelled as plain text", t, func() {
		_, err := candidate.ParseMetrics("text/plain", []byte(`[1, 2]`))
		So(errors.Is(err, candidate.ErrDecode), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "JSON object")
	})
}

func TestFetchMetricsWithoutContentType(t *testing.T) {
	Convey("Given a candidate that encodes metrics without setting a content type", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]float64{"count_1h": 10, "prediction_mean": 0.5})
		}))
		defer srv.Close()

		out := newClient(srv.URL).FetchMetrics(context.Background())

		Convey("Then the sniffed text/plain body is still read as JSON", func() {
			So(out.OK, ShouldBeTrue)
			So(out.Err, ShouldBeNil)
			So(out.Metrics, ShouldResemble, model.Metrics{"count_1h": 10, "prediction_mean": 0.5})
		})
	})
}
