package model

import "sort"

// Metric names shared by the calculator, the candidate client and the scorer.
const (
	MetricCount1h            = "count_1h"
	MetricCount24h           = "count_24h"
	MetricPredictionMean     = "prediction_mean"
	MetricPredictionStd      = "prediction_std"
	MetricLatencyP50         = "latency_ms_p50"
	MetricLatencyP95         = "latency_ms_p95"
	MetricLatencyP99         = "latency_ms_p99"
	MetricAccuracy           = "accuracy"
	MetricPrecision          = "precision"
	MetricRecall             = "recall"
	MetricF1                 = "f1"
	MetricFeatureDriftPValue = "feature_drift_pvalue"
)

// KnownMetrics lists every metric name the grader understands.
var KnownMetrics = []string{
	MetricCount1h,
	MetricCount24h,
	MetricPredictionMean,
	MetricPredictionStd,
	MetricLatencyP50,
	MetricLatencyP95,
	MetricLatencyP99,
	MetricAccuracy,
	MetricPrecision,
	MetricRecall,
	MetricF1,
	MetricFeatureDriftPValue,
}

// IsKnownMetric reports whether name is one of KnownMetrics.
func IsKnownMetric(name string) bool {
	for _, m := range KnownMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// Metrics maps metric names to values. A missing key means the metric was
// not computed (or not reported), which is distinct from a present zero.
type Metrics map[string]float64

// Lookup returns the value for name and whether it is present.
func (m Metrics) Lookup(name string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[name]
	return v, ok
}

// Has reports whether name is present.
func (m Metrics) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Names returns the present metric names in sorted order.
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
