package outrights

import (
	"math"
	"testing"
)

func fv(values [featureCount]float64) FeatureVector {
	return FeatureVector{Values: values}
}

func TestWeightOptimizerFitProducesSimplex(t *testing.T) {
	features := []FeatureVector{
		fv([featureCount]float64{2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		fv([featureCount]float64{-1, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		fv([featureCount]float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		fv([featureCount]float64{-2, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
	}
	labels := []Labels{
		{Qualified: true, ReachedFinal: true, WonCup: true},
		{},
		{Qualified: true},
		{},
	}

	wo := NewWeightOptimizer()
	weights, _, err := wo.Fit(features, labels, nil)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	var sum float64
	for name, w := range weights {
		if w < 0 {
			t.Errorf("feature %q has negative weight %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights should sum to 1, got %v", sum)
	}
}

func TestWeightOptimizerScoreBeforeFit(t *testing.T) {
	wo := NewWeightOptimizer()
	if _, err := wo.Score(fv([featureCount]float64{})); err == nil {
		t.Error("expected an error scoring before Fit")
	}
}

func TestRecencyWeightsDisabledIsUniform(t *testing.T) {
	w := RecencyWeights([]string{"2019-20", "2020-21", "2021-22"}, true, []bool{true, false, false}, 0)
	for i, v := range w {
		if v != 1.0 {
			t.Errorf("weight[%d] = %v, want 1.0 when recency weighting disabled", i, v)
		}
	}
}

func TestRecencyWeightsFavorsRecentSeasons(t *testing.T) {
	w := RecencyWeights([]string{"2019-20", "2021-22"}, false, []bool{false, false}, 0.15)
	if w[1] <= w[0] {
		t.Errorf("expected the more recent season to carry a higher weight, got %v vs %v", w[1], w[0])
	}
}

func TestSeasonRanksFallsBackToLexicographicOrder(t *testing.T) {
	ranks := seasonRanks([]string{"season-b", "season-a", "season-c"})
	if ranks[1] >= ranks[0] || ranks[0] >= ranks[2] {
		t.Errorf("expected lexicographic rank order a<b<c, got %v", ranks)
	}
}
