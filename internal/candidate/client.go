// Package candidate talks to the service under test.
//
// Each call is bounded by its own timeout, never retried, and reports its
// result as an outcome value rather than an error so that one failing
// endpoint never prevents the others from being graded.
package candidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/mlgrade/internal/domain/model"
	"github.com/okian/mlgrade/pkg/logger"
	"github.com/okian/mlgrade/pkg/metrics"
)

// Call names used in logs and metrics.
const (
	CallIngest  = "ingest"
	CallMetrics = "metrics"
	CallAlerts  = "alerts"
	CallSchema  = "schema"
)

// Endpoint paths on the candidate.
const (
	PathEvents  = "/events"
	PathMetrics = "/metrics"
	PathAlerts  = "/alerts"
	PathSchema  = "/openapi.json"
)

const maxBodyBytes = 8 << 20

// IngestOutcome is the result of submitting the event batch.
type IngestOutcome struct {
	OK         bool
	StatusCode int
	Err        error
	Duration   time.Duration
}

// MetricsOutcome is the result of fetching the candidate's metrics.
type MetricsOutcome struct {
	OK         bool
	StatusCode int
	Metrics    model.Metrics
	Err        error
	Duration   time.Duration
}

// SchemaOutcome is the result of fetching the candidate's API schema.
type SchemaOutcome struct {
	OK          bool
	StatusCode  int
	ContentType string
	Err         error
	Duration    time.Duration
}

// Observations groups everything learned from the candidate in one run.
type Observations struct {
	Ingest  IngestOutcome
	Metrics MetricsOutcome
	Alerts  model.AlertList
	Schema  SchemaOutcome
}

// Client queries a candidate monitoring service.
type Client struct {
	baseURL    string
	http       *http.Client
	timeouts   Timeouts
	schemaPath string
	log        logger.Logger
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		timeouts:   DefaultTimeouts(),
		schemaPath: PathSchema,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("candidate")
	}
	return c
}

// Timeouts returns the effective per-call budgets.
func (c *Client) Timeouts() Timeouts { return c.timeouts }

// Query runs the four calls in order: ingest first so the candidate has
// data before it is asked for metrics and alerts.
func (c *Client) Query(ctx context.Context, events []model.Event) Observations {
	return Observations{
		Ingest:  c.SubmitEvents(ctx, events),
		Metrics: c.FetchMetrics(ctx),
		Alerts:  c.FetchAlerts(ctx),
		Schema:  c.FetchSchema(ctx),
	}
}

// SubmitEvents posts the whole batch as one JSON array.
// Success means the transport worked and the status is below 300.
func (c *Client) SubmitEvents(ctx context.Context, events []model.Event) IngestOutcome {
	start := time.Now()
	out := IngestOutcome{}
	defer func() {
		out.Duration = time.Since(start)
		c.observe(ctx, CallIngest, out.OK, out.StatusCode, out.Err, out.Duration)
	}()

	if events == nil {
		events = []model.Event{}
	}
	body, err := json.Marshal(events)
	if err != nil {
		out.Err = fmt.Errorf("marshal events: %w", err)
		return out
	}

	resp, err := c.do(ctx, c.timeouts.Ingest, http.MethodPost, PathEvents, body)
	if err != nil {
		out.Err = err
		return out
	}
	out.StatusCode = resp.status
	if resp.status >= http.StatusMultipleChoices {
		out.Err = fmt.Errorf("%w: %d", ErrStatus, resp.status)
		return out
	}
	out.OK = true
	return out
}

// FetchMetrics reads the candidate's computed statistics.
func (c *Client) FetchMetrics(ctx context.Context) MetricsOutcome {
	start := time.Now()
	out := MetricsOutcome{Metrics: model.Metrics{}}
	defer func() {
		out.Duration = time.Since(start)
		c.observe(ctx, CallMetrics, out.OK, out.StatusCode, out.Err, out.Duration)
	}()

	resp, err := c.do(ctx, c.timeouts.Metrics, http.MethodGet, PathMetrics, nil)
	if err != nil {
		out.Err = err
		return out
	}
	out.StatusCode = resp.status
	if resp.status >= http.StatusBadRequest {
		out.Err = fmt.Errorf("%w: %d", ErrStatus, resp.status)
		return out
	}
	m, err := ParseMetrics(resp.contentType, resp.body)
	if err != nil {
		out.Err = err
		return out
	}
	out.Metrics = m
	out.OK = true
	return out
}

// FetchAlerts reads the candidate's alert list.
// The result is Present only when the status is below 400 and the body is a JSON array.
func (c *Client) FetchAlerts(ctx context.Context) model.AlertList {
	start := time.Now()
	var (
		out    model.AlertList
		status int
		err    error
	)
	defer func() {
		c.observe(ctx, CallAlerts, out.Present, status, err, time.Since(start))
	}()

	var resp *response
	resp, err = c.do(ctx, c.timeouts.Alerts, http.MethodGet, PathAlerts, nil)
	if err != nil {
		return out
	}
	status = resp.status
	if resp.status >= http.StatusBadRequest {
		err = fmt.Errorf("%w: %d", ErrStatus, resp.status)
		return out
	}
	var items []json.RawMessage
	if jerr := json.Unmarshal(resp.body, &items); jerr != nil || items == nil {
		err = fmt.Errorf("%w: alerts must be a JSON array", ErrDecode)
		return out
	}
	out = model.AlertList{Present: true, Items: items}
	return out
}

// FetchSchema checks that the candidate serves a JSON API schema.
func (c *Client) FetchSchema(ctx context.Context) SchemaOutcome {
	start := time.Now()
	out := SchemaOutcome{}
	defer func() {
		out.Duration = time.Since(start)
		c.observe(ctx, CallSchema, out.OK, out.StatusCode, out.Err, out.Duration)
	}()

	resp, err := c.do(ctx, c.timeouts.Schema, http.MethodGet, c.schemaPath, nil)
	if err != nil {
		out.Err = err
		return out
	}
	out.StatusCode = resp.status
	out.ContentType = resp.contentType
	if resp.status >= http.StatusBadRequest {
		out.Err = fmt.Errorf("%w: %d", ErrStatus, resp.status)
		return out
	}
	if !strings.HasPrefix(resp.contentType, "application/json") {
		out.Err = fmt.Errorf("%w: %q", ErrContentType, resp.contentType)
		return out
	}
	out.OK = true
	return out
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// do performs one bounded request and reads the capped body.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body []byte) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s", ErrBodyTooLarge, path)
	}
	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        b,
	}, nil
}

func (c *Client) observe(ctx context.Context, call string, ok bool, status int, err error, d time.Duration) {
	metrics.RecordCandidateCall(call, ok, float64(d.Microseconds())/1000)
	fields := []logger.Field{
		logger.String("call", call),
		logger.Bool("ok", ok),
		logger.Int("status", status),
		logger.Duration("duration", d),
	}
	if ok {
		c.log.Info(ctx, "candidate call", fields...)
		return
	}
	metrics.RecordCandidateFailure(call, failureReason(err))
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	c.log.Warn(ctx, "candidate call failed", fields...)
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrContentType):
		return "content_type"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
