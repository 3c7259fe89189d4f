package outrights

import (
	"math"
	"testing"
)

func TestSigmoidBounds(t *testing.T) {
	if s := sigmoid(50); s != 1.0 {
		t.Errorf("sigmoid(50) = %v, want 1.0", s)
	}
	if s := sigmoid(-50); s != 0.0 {
		t.Errorf("sigmoid(-50) = %v, want 0.0", s)
	}
	if s := sigmoid(0); math.Abs(s-0.5) > 1e-9 {
		t.Errorf("sigmoid(0) = %v, want 0.5", s)
	}
}

func TestFitLogisticSeparatesLinearlySeparableData(t *testing.T) {
	X := [][]float64{
		{1, 2}, {1, 3}, {1, 4},
		{1, -2}, {1, -3}, {1, -4},
	}
	y := []float64{1, 1, 1, 0, 0, 0}

	model, err := fitLogistic(X, y, nil, 0.01)
	if err != nil {
		t.Fatalf("fitLogistic returned error: %v", err)
	}
	if !model.Converged {
		t.Error("expected convergence on a linearly separable toy problem")
	}
	if p := model.predict([]float64{1, 3}); p < 0.5 {
		t.Errorf("predict(positive example) = %v, want > 0.5", p)
	}
	if p := model.predict([]float64{1, -3}); p > 0.5 {
		t.Errorf("predict(negative example) = %v, want < 0.5", p)
	}
}

func TestFitLogisticRejectsEmptyInput(t *testing.T) {
	if _, err := fitLogistic(nil, nil, nil, 1.0); err == nil {
		t.Error("expected an error fitting on no samples")
	}
}
