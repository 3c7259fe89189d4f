package outrights

import "sort"

// isotonicCalibrator maps a raw score to a calibrated probability via a
// monotone (non-decreasing) step function fit by the pool-adjacent-
// violators algorithm (PAVA). gonum has no isotonic-regression routine, so
// this is the one genuinely novel numerical routine in the repository (see
// DESIGN.md for why no library in the example corpus covers it).
//
// When skipped (fewer than 3 positive training examples, spec.md §4.4/§7
// CalibrationSkipped), Identity is true and Predict returns x unchanged.
type isotonicCalibrator struct {
	x        []float64 // knot x-values, ascending
	y        []float64 // knot y-values, non-decreasing
	Identity bool
}

// fitIsotonic fits a monotone map from x to y using PAVA. x and y must have
// equal, positive length.
func fitIsotonic(x, y []float64) *isotonicCalibrator {
	n := len(x)
	type pt struct{ x, y, w float64 }
	pts := make([]pt, n)
	for i := range x {
		pts[i] = pt{x[i], y[i], 1}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	// Pool-adjacent-violators: maintain a stack of pooled blocks, merging
	// whenever the next block's mean would violate monotonicity.
	type block struct {
		xMin, xMax float64
		sum, w     float64
	}
	var stack []block
	for _, p := range pts {
		cur := block{xMin: p.x, xMax: p.x, sum: p.y * p.w, w: p.w}
		stack = append(stack, cur)
		for len(stack) > 1 {
			last := stack[len(stack)-1]
			prev := stack[len(stack)-2]
			if prev.sum/prev.w <= last.sum/last.w {
				break
			}
			merged := block{
				xMin: prev.xMin,
				xMax: last.xMax,
				sum:  prev.sum + last.sum,
				w:    prev.w + last.w,
			}
			stack = stack[:len(stack)-2]
			stack = append(stack, merged)
		}
	}

	cal := &isotonicCalibrator{x: make([]float64, len(stack)), y: make([]float64, len(stack))}
	for i, b := range stack {
		cal.x[i] = b.xMax
		cal.y[i] = b.sum / b.w
	}
	return cal
}

// identityCalibrator returns a calibrator whose Predict is the identity
// function, used when calibration is skipped per spec.md §7
// CalibrationSkipped.
func identityCalibrator() *isotonicCalibrator {
	return &isotonicCalibrator{Identity: true}
}

// Predict returns the calibrated value for a raw score v, by locating the
// first knot whose x is >= v and returning its y (right-continuous step
// function), clamping to the first/last knot outside the fitted range.
func (c *isotonicCalibrator) Predict(v float64) float64 {
	if c.Identity || len(c.x) == 0 {
		return v
	}
	idx := sort.SearchFloat64s(c.x, v)
	if idx >= len(c.x) {
		return c.y[len(c.y)-1]
	}
	return c.y[idx]
}
