package reference

import "github.com/okian/mlgrade/internal/domain/model"

var fallbackEvents = []model.Event{
	{Timestamp: "2024-06-01T00:00:01Z", Prediction: 0.42, FeatureVector: []float64{0.22, -0.04, 0.55}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:02Z", Prediction: 0.58, FeatureVector: []float64{0.25, -0.01, 0.48}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:03Z", Prediction: 0.35, FeatureVector: []float64{0.19, -0.02, 0.52}, Label: model.IntPtr(0)},
	{Timestamp: "2024-06-01T00:00:04Z", Prediction: 0.61, FeatureVector: []float64{0.28, -0.08, 0.5}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:05Z", Prediction: 0.47, FeatureVector: []float64{0.21, -0.06, 0.53}, Label: model.IntPtr(0)},
	{Timestamp: "2024-06-01T00:00:06Z", Prediction: 0.72, FeatureVector: []float64{0.32, -0.1, 0.49}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:07Z", Prediction: 0.55, FeatureVector: []float64{0.26, -0.03, 0.46}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:08Z", Prediction: 0.29, FeatureVector: []float64{0.18, 0.01, 0.5}, Label: model.IntPtr(0)},
	{Timestamp: "2024-06-01T00:00:09Z", Prediction: 0.64, FeatureVector: []float64{0.27, -0.05, 0.47}, Label: model.IntPtr(1)},
	{Timestamp: "2024-06-01T00:00:10Z", Prediction: 0.39, FeatureVector: []float64{0.2, 0.0, 0.51}, Label: model.IntPtr(0)},
}

var fallbackReference = model.ReferenceStatistics{
	PredictionMean: 0.5,
	PredictionStd:  0.15,
	PredictionHistogram: []model.HistogramBin{
		{Bin: [2]float64{0.0, 0.2}, Prob: 0.15},
		{Bin: [2]float64{0.2, 0.4}, Prob: 0.25},
		{Bin: [2]float64{0.4, 0.6}, Prob: 0.3},
		{Bin: [2]float64{0.6, 0.8}, Prob: 0.2},
		{Bin: [2]float64{0.8, 1.0}, Prob: 0.1},
	},
	FeatureMeans: []float64{0.2, -0.05, 0.5},
	FeatureStds:  []float64{0.1, 0.2, 0.15},
}

// FallbackEvents returns a fresh copy of the built-in event dataset.
func FallbackEvents() []model.Event {
	out := make([]model.Event, len(fallbackEvents))
	for i, e := range fallbackEvents {
		out[i] = model.Event{
			Timestamp:     e.Timestamp,
			Prediction:    e.Prediction,
			FeatureVector: append([]float64(nil), e.FeatureVector...),
		}
		if e.Label != nil {
			out[i].Label = model.IntPtr(*e.Label)
		}
	}
	return out
}

// FallbackReference returns a fresh copy of the built-in reference statistics.
func FallbackReference() model.ReferenceStatistics {
	r := fallbackReference
	r.PredictionHistogram = append([]model.HistogramBin(nil), fallbackReference.PredictionHistogram...)
	r.FeatureMeans = append([]float64(nil), fallbackReference.FeatureMeans...)
	r.FeatureStds = append([]float64(nil), fallbackReference.FeatureStds...)
	return r
}
