package main

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/mlgrade/internal/dataset"
	"github.com/okian/mlgrade/internal/reference"
	"github.com/spf13/cobra"
)

type genEventsFlags struct {
	count           int
	seed            uint64
	featureShift    float64
	predictionShift float64
	unlabeled       bool
	out             string
	referenceIn     string
	referenceOut    string
}

// newGenEventsCmd writes a synthetic event dataset, optionally with the
// reference document it was drawn from.
func newGenEventsCmd(stdout io.Writer) *cobra.Command {
	var gf genEventsFlags

	cmd := &cobra.Command{
		Use:   "gen-events",
		Short: "Generate a synthetic JSONL event dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, _, err := reference.LoadReference(cmd.Context(), gf.referenceIn)
			if err != nil {
				return err
			}
			events, err := dataset.Generate(cmd.Context(), dataset.Options{
				Count:           gf.count,
				Reference:       ref,
				FeatureShift:    gf.featureShift,
				PredictionShift: gf.predictionShift,
				Unlabeled:       gf.unlabeled,
				Seed:            gf.seed,
			})
			if err != nil {
				return err
			}

			if err := writeTo(gf.out, stdout, func(w io.Writer) error { return dataset.WriteJSONL(w, events) }); err != nil {
				return err
			}
			if gf.referenceOut != "" {
				if err := writeTo(gf.referenceOut, stdout, func(w io.Writer) error { return dataset.WriteReference(w, ref) }); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&gf.count, "count", "n", 100, "number of events")
	f.Uint64Var(&gf.seed, "seed", 1, "random seed")
	f.Float64Var(&gf.featureShift, "feature-shift", 0, "shift feature means by this many reference stds")
	f.Float64Var(&gf.predictionShift, "prediction-shift", 0, "shift the prediction mean by this amount")
	f.BoolVar(&gf.unlabeled, "unlabeled", false, "omit labels")
	f.StringVarP(&gf.out, "out", "o", "-", "output file, - for stdout")
	f.StringVar(&gf.referenceIn, "reference", "", "baseline to draw from (default built-in)")
	f.StringVar(&gf.referenceOut, "reference-out", "", "also write the baseline to this file")
	return cmd
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
