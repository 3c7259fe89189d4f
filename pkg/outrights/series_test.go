package outrights

import (
	"math"
	"testing"
)

func TestSeriesModelPredictsBaseRateBeforeFit(t *testing.T) {
	sm := NewSeriesModel()
	for round := 1; round <= 4; round++ {
		p, err := sm.PredictWinProb(0, 0, round)
		if err != nil {
			t.Fatalf("PredictWinProb returned error: %v", err)
		}
		want := baseRoundRates[round-1]
		if math.Abs(p-want) > 1e-9 {
			t.Errorf("round %d: PredictWinProb(0,0) = %v, want base rate %v", round, p, want)
		}
	}
}

func TestSeriesModelRejectsRoundOutOfRange(t *testing.T) {
	sm := NewSeriesModel()
	if _, err := sm.PredictWinProb(0, 0, 0); err == nil {
		t.Error("expected an error for round 0")
	}
	if _, err := sm.PredictWinProb(0, 0, 5); err == nil {
		t.Error("expected an error for round 5")
	}
}

func TestSeriesModelFitRejectsEmptyObservations(t *testing.T) {
	sm := NewSeriesModel()
	if err := sm.Fit(nil); err == nil {
		t.Error("expected an error fitting on no observations")
	}
}

func TestSeriesModelFitRejectsRoundOutOfRange(t *testing.T) {
	sm := NewSeriesModel()
	obs := []SeriesObservation{{StrengthDiff: 1, Round: 9, HigherSeedWon: true, Weight: 1}}
	if err := sm.Fit(obs); err == nil {
		t.Error("expected an error fitting an observation with an out-of-range round")
	}
}

func TestSeriesModelFitFavorsStrongerTeam(t *testing.T) {
	var obs []SeriesObservation
	for i := 0; i < 30; i++ {
		obs = append(obs,
			SeriesObservation{StrengthDiff: 2.0, ExperienceDiff: 0.5, Round: 1, HigherSeedWon: true, Weight: 1},
			SeriesObservation{StrengthDiff: -2.0, ExperienceDiff: -0.5, Round: 1, HigherSeedWon: false, Weight: 1},
		)
	}
	sm := NewSeriesModel()
	if err := sm.Fit(obs); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	pFavored, err := sm.PredictWinProb(2.0, 0.5, 1)
	if err != nil {
		t.Fatalf("PredictWinProb returned error: %v", err)
	}
	pUnfavored, err := sm.PredictWinProb(-2.0, -0.5, 1)
	if err != nil {
		t.Fatalf("PredictWinProb returned error: %v", err)
	}
	if pFavored <= pUnfavored {
		t.Errorf("expected the team with positive strength/experience diff to have a higher win probability: %v vs %v", pFavored, pUnfavored)
	}
}
