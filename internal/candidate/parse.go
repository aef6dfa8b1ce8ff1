package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/okian/mlgrade/internal/domain/model"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ParseMetrics decodes a /metrics body into Metrics.
//
// A JSON object keeps its numeric values and drops the rest, whatever the
// Content-Type says. Otherwise a text/plain body is read as a Prometheus
// exposition; every family named after a known metric contributes the sum
// of its samples.
func ParseMetrics(contentType string, body []byte) (model.Metrics, error) {
	m, err := parseJSONMetrics(body)
	if err == nil || !strings.HasPrefix(contentType, "text/plain") || looksLikeJSON(body) {
		return m, err
	}
	return parseExposition(body)
}

// looksLikeJSON reports whether body is syntactically JSON of any kind.
func looksLikeJSON(body []byte) bool {
	return json.Valid(bytes.TrimSpace(body))
}

func parseJSONMetrics(body []byte) (model.Metrics, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return model.Metrics{}, fmt.Errorf("%w: metrics must be a JSON object", ErrDecode)
	}
	out := make(model.Metrics, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out, nil
}

func parseExposition(body []byte) (model.Metrics, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil && len(mfs) == 0 {
		return model.Metrics{}, fmt.Errorf("%w: parse prometheus text: %w", ErrDecode, err)
	}
	out := model.Metrics{}
	for name, mf := range mfs {
		if !model.IsKnownMetric(name) {
			continue
		}
		// NaN and Inf have no JSON form and can never agree with an expected value.
		if v := sumFamily(mf); !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[name] = v
		}
	}
	return out, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
