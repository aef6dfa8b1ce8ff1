package expected

import (
	"math"
	"sort"

	"github.com/okian/mlgrade/internal/domain/model"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population standard deviation, or 0 when
// fewer than two values are given.
func PopulationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mu := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// Percentile returns the q-th percentile (0..100) using linear
// interpolation between closest ranks. The input is not modified.
// An empty slice yields 0.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	switch {
	case q <= 0:
		return sorted[0]
	case q >= 100:
		return sorted[len(sorted)-1]
	}

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Confusion is a binary confusion matrix.
type Confusion struct {
	TP, TN, FP, FN int
}

// Total returns the number of labeled observations.
func (c Confusion) Total() int { return c.TP + c.TN + c.FP + c.FN }

// Accuracy is (TP+TN)/total, 0 when empty.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

// Precision is TP/(TP+FP), 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

// Recall is TP/(TP+FN), 0 when no label is positive.
func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Classify builds a confusion matrix from labeled events, pairing each
// label with the prediction of the same event. Predictions >= threshold
// count as positive. ok is false when no event carries a label.
func Classify(events []model.Event, threshold float64) (c Confusion, ok bool) {
	for _, e := range events {
		if !e.HasLabel() {
			continue
		}
		ok = true
		predicted := e.Prediction >= threshold
		actual := *e.Label == 1
		switch {
		case predicted && actual:
			c.TP++
		case !predicted && !actual:
			c.TN++
		case predicted && !actual:
			c.FP++
		default:
			c.FN++
		}
	}
	return c, ok
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
