// Package dataset generates synthetic labeled event datasets for exercising
// graders and candidate services.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/mlgrade/internal/domain/model"
	"github.com/okian/mlgrade/pkg/logger"
)

// Constants for value rounding.
const (
	predictionDecimals = 100
	featureDecimals    = 1000
)

// Options controls the shape of a generated dataset.
type Options struct {
	// Count is the number of events.
	Count int
	// Start is the timestamp of the first event; later events are Interval apart.
	Start    time.Time
	Interval time.Duration
	// Reference is the baseline events are drawn around.
	Reference model.ReferenceStatistics
	// FeatureShift moves every feature mean by this many reference stds.
	FeatureShift float64
	// PredictionShift is added to the reference prediction mean.
	PredictionShift float64
	// Unlabeled drops labels from every event.
	Unlabeled bool
	// Seed makes the output reproducible.
	Seed uint64
	// Logger receives progress lines; nil discards them.
	Logger logger.Logger
}

// Generate draws events around opts.Reference. Predictions are clamped to
// [0, 1] and labels are sampled as Bernoulli(prediction).
func Generate(ctx context.Context, opts Options) ([]model.Event, error) {
	if opts.Count < 0 {
		return nil, fmt.Errorf("count must not be negative: %d", opts.Count)
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	ref := opts.Reference

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log.Debug(ctx, "generating events",
		logger.Int("count", opts.Count),
		logger.Float64("featureShift", opts.FeatureShift),
		logger.Float64("predictionShift", opts.PredictionShift),
	)

	events := make([]model.Event, opts.Count)
	for i := range events {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		pred := clamp01(ref.PredictionMean + opts.PredictionShift + rng.NormFloat64()*ref.PredictionStd)
		pred = math.Round(pred*predictionDecimals) / predictionDecimals

		ev := model.Event{
			Timestamp:  opts.Start.Add(time.Duration(i) * opts.Interval).UTC().Format(time.RFC3339),
			Prediction: pred,
		}
		if len(ref.FeatureMeans) > 0 {
			ev.FeatureVector = make([]float64, len(ref.FeatureMeans))
			for j, mean := range ref.FeatureMeans {
				std := stdAt(ref, j)
				v := mean + opts.FeatureShift*std + rng.NormFloat64()*std
				ev.FeatureVector[j] = math.Round(v*featureDecimals) / featureDecimals
			}
		}
		if !opts.Unlabeled {
			label := 0
			if rng.Float64() < pred {
				label = 1
			}
			ev.Label = model.IntPtr(label)
		}
		events[i] = ev
	}
	return events, nil
}

// WriteJSONL writes one JSON event per line.
func WriteJSONL(w io.Writer, events []model.Event) error {
	enc := json.NewEncoder(w)
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return nil
}

// WriteReference writes ref as an indented JSON document.
func WriteReference(w io.Writer, ref model.ReferenceStatistics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ref); err != nil {
		return fmt.Errorf("encode reference: %w", err)
	}
	return nil
}

func stdAt(ref model.ReferenceStatistics, idx int) float64 {
	if idx < len(ref.FeatureStds) && ref.FeatureStds[idx] > 0 {
		return ref.FeatureStds[idx]
	}
	return 0.1
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
