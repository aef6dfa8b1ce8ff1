package candidate

import (
	"net/http"
	"time"

	"github.com/okian/mlgrade/pkg/logger"
)

// Timeouts bounds each candidate call independently.
type Timeouts struct {
	Ingest  time.Duration
	Metrics time.Duration
	Alerts  time.Duration
	Schema  time.Duration
}

// DefaultTimeouts returns the per-call budgets used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ingest:  15 * time.Second,
		Metrics: 10 * time.Second,
		Alerts:  10 * time.Second,
		Schema:  5 * time.Second,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeouts sets per-call timeouts. Zero fields keep their defaults.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		if t.Ingest > 0 {
			c.timeouts.Ingest = t.Ingest
		}
		if t.Metrics > 0 {
			c.timeouts.Metrics = t.Metrics
		}
		if t.Alerts > 0 {
			c.timeouts.Alerts = t.Alerts
		}
		if t.Schema > 0 {
			c.timeouts.Schema = t.Schema
		}
	}
}

// WithSchemaPath overrides the path of the API schema endpoint.
func WithSchemaPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.schemaPath = p
		}
	}
}

// WithLogger sets the logger used for per-call log lines.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
