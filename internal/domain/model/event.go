// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event represents one scored prediction observed by the monitored model.
// Fields mirror the JSON shape posted to the candidate's /events endpoint.
type Event struct {
	Timestamp     string    `json:"timestamp"`                // ISO-8601, second resolution; kept raw
	Prediction    float64   `json:"prediction"`               // model score in [0,1]
	FeatureVector []float64 `json:"feature_vector,omitempty"` // optional, fixed dimensionality
	Label         *int      `json:"label,omitempty"`          // optional ground truth (0 or 1)
}

// HasLabel reports whether the event carries a ground-truth label.
func (e Event) HasLabel() bool { return e.Label != nil }

// HasFeatures reports whether the event carries a feature vector.
func (e Event) HasFeatures() bool { return len(e.FeatureVector) > 0 }

// Time parses the event timestamp as RFC 3339.
func (e Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, e.Timestamp)
}

// IntPtr is a small helper for building labeled events.
func IntPtr(v int) *int { return &v }

// HistogramBin is one [Lower, Upper) bucket of the reference prediction histogram.
type HistogramBin struct {
	Bin  [2]float64 `json:"bin"`
	Prob float64    `json:"prob"`
}

// Lower returns the inclusive lower bound of the bin.
func (b HistogramBin) Lower() float64 { return b.Bin[0] }

// Upper returns the exclusive upper bound of the bin.
func (b HistogramBin) Upper() float64 { return b.Bin[1] }

// ReferenceStatistics describes the expected behavior of a healthy model.
type ReferenceStatistics struct {
	PredictionMean      float64        `json:"prediction_mean"`
	PredictionStd       float64        `json:"prediction_std"`
	PredictionHistogram []HistogramBin `json:"prediction_histogram"`
	FeatureMeans        []float64      `json:"feature_means"`
	FeatureStds         []float64      `json:"feature_stds"`
}

// AlertList is the decoded body of a candidate's /alerts endpoint.
// Present is false when the call failed or the body was not a JSON array.
type AlertList struct {
	Present bool
	Items   []json.RawMessage
}

// HasStructured reports whether at least one alert is a JSON object
// rather than a bare string or number.
func (a AlertList) HasStructured() bool {
	for _, item := range a.Items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return true
		}
	}
	return false
}
