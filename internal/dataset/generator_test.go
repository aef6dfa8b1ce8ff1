package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/mlgrade/internal/domain/expected"
	"github.com/okian/mlgrade/internal/reference"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	ref := reference.FallbackReference()

	Convey("Given generator options around the fallback baseline", t, func() {
		opts := Options{Count: 2000, Reference: ref, Seed: 7}

		Convey("When generating twice with the same seed", func() {
			a, errA := Generate(ctx, opts)
			b, errB := Generate(ctx, opts)

			Convey("Then the output is reproducible", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})

			Convey("Then events are well formed", func() {
				So(len(a), ShouldEqual, 2000)
				So(a[0].Timestamp, ShouldEqual, "2024-06-01T00:00:01Z")
				So(a[1].Timestamp, ShouldEqual, "2024-06-01T00:00:02Z")
				for _, ev := range a {
					So(ev.Prediction, ShouldBeBetweenOrEqual, 0.0, 1.0)
					So(len(ev.FeatureVector), ShouldEqual, 3)
					So(ev.HasLabel(), ShouldBeTrue)
				}
			})

			Convey("Then an unshifted dataset does not look drifted", func() {
				So(expected.DriftPValue(a, ref), ShouldBeGreaterThan, 0.5)
			})
		})

		Convey("When features are shifted by three stds", func() {
			opts.FeatureShift = 3
			events, err := Generate(ctx, opts)
			So(err, ShouldBeNil)

			Convey("Then drift is obvious", func() {
				So(expected.DriftPValue(events, ref), ShouldBeLessThan, 0.1)
			})
		})

		Convey("When labels are disabled and the start is custom", func() {
			opts.Count = 3
			opts.Unlabeled = true
			opts.Start = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
			opts.Interval = time.Minute
			events, err := Generate(ctx, opts)
			So(err, ShouldBeNil)
			So(events[0].HasLabel(), ShouldBeFalse)
			So(events[2].Timestamp, ShouldEqual, "2025-01-02T03:06:05Z")
		})

		Convey("When the count is negative", func() {
			opts.Count = -1
			_, err := Generate(ctx, opts)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestWriteJSONL(t *testing.T) {
	ctx := context.Background()

	Convey("Given a generated dataset written to disk", t, func() {
		events, err := Generate(ctx, Options{Count: 25, Reference: reference.FallbackReference(), Seed: 1})
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(WriteJSONL(&buf, events), ShouldBeNil)
		path := filepath.Join(t.TempDir(), "events.jsonl")
		So(os.WriteFile(path, buf.Bytes(), 0o600), ShouldBeNil)

		Convey("Then the reference loader reads it back unchanged", func() {
			loaded, src, err := reference.LoadEvents(ctx, path)
			So(err, ShouldBeNil)
			So(src, ShouldEqual, reference.SourceFile)
			So(loaded, ShouldResemble, events)
		})
	})

	Convey("Given a reference document written to disk", t, func() {
		var buf bytes.Buffer
		So(WriteReference(&buf, reference.FallbackReference()), ShouldBeNil)
		path := filepath.Join(t.TempDir(), "ref.json")
		So(os.WriteFile(path, buf.Bytes(), 0o600), ShouldBeNil)

		Convey("Then it validates and loads", func() {
			got, src, err := reference.LoadReference(ctx, path)
			So(err, ShouldBeNil)
			So(src, ShouldEqual, reference.SourceFile)
			So(got, ShouldResemble, reference.FallbackReference())
		})
	})
}
