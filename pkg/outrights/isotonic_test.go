package outrights

import "testing"

func TestFitIsotonicIsNonDecreasing(t *testing.T) {
	x := []float64{0.1, 0.5, 0.5, 0.9, 0.2, 0.8}
	y := []float64{0.0, 1.0, 0.0, 1.0, 1.0, 0.0}
	cal := fitIsotonic(x, y)

	var prev float64 = -1
	for _, v := range cal.y {
		if v < prev {
			t.Errorf("calibrator knots are not non-decreasing: %v", cal.y)
		}
		prev = v
	}
}

func TestFitIsotonicPredictClampsToRange(t *testing.T) {
	cal := fitIsotonic([]float64{0.2, 0.5, 0.8}, []float64{0.1, 0.5, 0.9})
	if got := cal.Predict(-1); got != cal.y[0] {
		t.Errorf("Predict below range = %v, want first knot %v", got, cal.y[0])
	}
	if got := cal.Predict(2); got != cal.y[len(cal.y)-1] {
		t.Errorf("Predict above range = %v, want last knot %v", got, cal.y[len(cal.y)-1])
	}
}

func TestIdentityCalibratorIsPassthrough(t *testing.T) {
	cal := identityCalibrator()
	for _, v := range []float64{0, 0.3, 1} {
		if got := cal.Predict(v); got != v {
			t.Errorf("identity calibrator Predict(%v) = %v, want %v", v, got, v)
		}
	}
}
