// Package expected computes the statistics a correct monitoring service is
// expected to report for a batch of events.
//
// Calculate is a pure function: it performs no I/O and takes the current
// time explicitly so latency figures are reproducible in tests.
package expected

import (
	"math"
	"time"

	"github.com/okian/mlgrade/internal/domain/model"
)

// Calculation constants.
const (
	// DecisionThreshold binarizes predictions: >= threshold is positive.
	DecisionThreshold = 0.5

	// fallbackFeatureStd replaces a missing or zero reference std.
	fallbackFeatureStd = 0.1

	// minFeatureStd floors the std so the z-score never divides by zero.
	minFeatureStd = 1e-9

	millisecondsPerSecond = 1000
)

// Latency percentiles reported by Calculate.
var latencyPercentiles = []struct {
	name string
	q    float64
}{
	{model.MetricLatencyP50, 50},
	{model.MetricLatencyP95, 95},
	{model.MetricLatencyP99, 99},
}

// Calculate derives the expected metrics mapping from events and the
// reference baseline.
//
// Keys are conditional: latency percentiles need at least one event,
// classification metrics need at least one labeled event and the drift
// p-value needs at least one feature vector.
//
// count_1h and count_24h both equal the batch size. The dataset carries no
// notion of "now minus one hour" beyond the batch itself, so no wall-clock
// windowing is applied.
func Calculate(events []model.Event, ref model.ReferenceStatistics, now time.Time) model.Metrics {
	preds := make([]float64, len(events))
	for i, e := range events {
		preds[i] = e.Prediction
	}

	out := model.Metrics{
		model.MetricCount1h:        float64(len(events)),
		model.MetricCount24h:       float64(len(events)),
		model.MetricPredictionMean: Mean(preds),
		model.MetricPredictionStd:  PopulationStdDev(preds),
	}

	if len(events) > 0 {
		latencies := Latencies(events, now)
		for _, p := range latencyPercentiles {
			out[p.name] = Percentile(latencies, p.q)
		}
	}

	if c, ok := Classify(events, DecisionThreshold); ok {
		out[model.MetricAccuracy] = c.Accuracy()
		out[model.MetricPrecision] = c.Precision()
		out[model.MetricRecall] = c.Recall()
		out[model.MetricF1] = c.F1()
	}

	if hasFeatures(events) {
		out[model.MetricFeatureDriftPValue] = DriftPValue(events, ref)
	}

	return out
}

// Latencies returns (now - event time) in milliseconds for every event.
// Unparsable timestamps fall back to now, yielding a latency of zero.
// Negative values are kept when clocks disagree.
func Latencies(events []model.Event, now time.Time) []float64 {
	out := make([]float64, len(events))
	for i, e := range events {
		ts, err := e.Time()
		if err != nil {
			ts = now
		}
		out[i] = now.Sub(ts).Seconds() * millisecondsPerSecond
	}
	return out
}

// DriftPValue returns the smallest per-feature pseudo p-value.
//
// For each feature index shared by every event vector and the reference
// means, z = |mean(column) - ref_mean| / ref_std and p = exp(-z). This is a
// loose heuristic, not a calibrated statistical test. The result is 1.0
// when there is nothing to compare.
func DriftPValue(events []model.Event, ref model.ReferenceStatistics) float64 {
	dims := -1
	var vectors [][]float64
	for _, e := range events {
		if !e.HasFeatures() {
			continue
		}
		vectors = append(vectors, e.FeatureVector)
		if dims < 0 || len(e.FeatureVector) < dims {
			dims = len(e.FeatureVector)
		}
	}
	if len(vectors) == 0 {
		return 1.0
	}
	if len(ref.FeatureMeans) < dims {
		dims = len(ref.FeatureMeans)
	}

	minP := 1.0
	col := make([]float64, len(vectors))
	for idx := 0; idx < dims; idx++ {
		for i, v := range vectors {
			col[i] = v[idx]
		}
		z := math.Abs(Mean(col)-ref.FeatureMeans[idx]) / featureStd(ref, idx)
		if p := math.Exp(-z); p < minP {
			minP = p
		}
	}
	return minP
}

func featureStd(ref model.ReferenceStatistics, idx int) float64 {
	std := fallbackFeatureStd
	if idx < len(ref.FeatureStds) && ref.FeatureStds[idx] != 0 {
		std = ref.FeatureStds[idx]
	}
	return math.Max(std, minFeatureStd)
}

func hasFeatures(events []model.Event) bool {
	for _, e := range events {
		if e.HasFeatures() {
			return true
		}
	}
	return false
}
