package outrights

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FeatureBuilder maps a TeamSeason to a FeatureVector in two phases: Fit
// learns per-feature median-imputation values and a whitening transform from
// a training set, and Transform applies that transform to any TeamSeason
// (training or current-season). Re-calling Fit replaces all prior state.
//
// The raw-feature constructions below follow the table in spec.md §4.2; the
// whitening step itself (median-impute, then center-and-scale by the
// training distribution) is applied uniformly to every feature, which is
// the mechanism spec.md calls out as preventing the raw metrics'
// correlation (~0.9 between possession share and expected-goal share) from
// dominating the features WeightOptimizer later learns over.
type FeatureBuilder struct {
	fitted bool

	// rawMedians/rawScales are the training-set median and standard
	// deviation of each feature's pre-whitening raw value, learned at Fit
	// time. A raw value that is NaN at Transform time (a "missing input")
	// is replaced by rawMedians[i] before centering/scaling, satisfying
	// spec.md §3's imputation invariant.
	rawMedians [featureCount]float64
	rawScales  [featureCount]float64

	// League-wide constants needed to compute certain raw features,
	// likewise fixed at Fit time.
	leagueMeanPP              float64
	leagueMeanPK              float64
	leagueSustainabilityPoint float64
}

// NewFeatureBuilder returns an unfitted FeatureBuilder.
func NewFeatureBuilder() *FeatureBuilder {
	return &FeatureBuilder{}
}

// Fit learns the median-imputation values and whitening transform from a
// training corpus. It is an error to call Transform before Fit.
func (fb *FeatureBuilder) Fit(training []TeamSeason) error {
	if len(training) == 0 {
		return newError(KindInsufficientData, "FeatureBuilder.Fit called with no training records")
	}

	fb.leagueMeanPP = meanFinite(mapTeamSeasons(training, func(ts TeamSeason) float64 { return ts.PowerPlayPct }))
	fb.leagueMeanPK = meanFinite(mapTeamSeasons(training, func(ts TeamSeason) float64 { return ts.PenaltyKillPct }))
	fb.leagueSustainabilityPoint = meanFinite(mapTeamSeasons(training, func(ts TeamSeason) float64 { return ts.ShootingPlusSavePct }))

	raws := make([][featureCount]float64, len(training))
	for i, ts := range training {
		raws[i] = fb.rawFeatures(ts)
	}

	for f := 0; f < featureCount; f++ {
		col := make([]float64, 0, len(raws))
		for _, r := range raws {
			if !math.IsNaN(r[f]) {
				col = append(col, r[f])
			}
		}
		if len(col) == 0 {
			return newError(KindInsufficientData, "feature has no finite training observations",
				"feature", FeatureNames[f])
		}
		median := medianOf(col)
		sd := stat.StdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1 // degenerate (constant) feature: do not divide by zero
		}
		fb.rawMedians[f] = median
		fb.rawScales[f] = sd
	}

	fb.fitted = true
	return nil
}

// Transform produces a FeatureVector for one TeamSeason using the transform
// learned by Fit. Every returned value is finite.
func (fb *FeatureBuilder) Transform(ts TeamSeason) (FeatureVector, error) {
	if !fb.fitted {
		return FeatureVector{}, newError(KindInsufficientData, "FeatureBuilder.Transform called before Fit")
	}
	raw := fb.rawFeatures(ts)
	var fv FeatureVector
	fv.Team = ts.Team
	fv.Season = ts.Season
	for i := 0; i < featureCount; i++ {
		v := raw[i]
		if math.IsNaN(v) {
			v = fb.rawMedians[i]
		}
		fv.Values[i] = (v - fb.rawMedians[i]) / fb.rawScales[i]
		if math.IsNaN(fv.Values[i]) || math.IsInf(fv.Values[i], 0) {
			fv.Values[i] = 0
		}
	}
	return fv, nil
}

// rawFeatures computes the 13 pre-whitening raw feature values for a
// TeamSeason, in the fixed order of FeatureNames. A raw value is NaN when
// its required inputs cannot be computed (e.g. zero games played).
func (fb *FeatureBuilder) rawFeatures(ts TeamSeason) [featureCount]float64 {
	var r [featureCount]float64

	gp := float64(ts.GamesPlayed)

	// 1. goal-differential rate
	r[0] = safeDiv(float64(ts.GoalsFor-ts.GoalsAgainst), gp)

	// 2. territorial dominance: possession + high-danger share combo
	r[1] = 0.6*ts.ShotAttemptShare + 0.4*ts.HighDangerShare

	// 3. shot-quality premium: actual-vs-expected goal differential rate
	r[2] = r[0] - ts.ExpectedGoalDiff

	// 4. goaltending quality: starter GSAx plus bounded backup contribution
	backup := clamp(ts.BackupSavePctVsExpected, -0.02, 0.02) * 0.3
	r[3] = ts.StarterSavePctVsExpected + backup

	// 5. special-teams composite
	r[4] = (ts.PowerPlayPct - fb.leagueMeanPP) + (ts.PenaltyKillPct - fb.leagueMeanPK)

	// 6. road performance: road point rate minus home point rate
	homeGames := gp - float64(ts.RoadGames)
	homePoints := float64(ts.Points - ts.RoadPoints)
	roadRate := safeDiv(float64(ts.RoadPoints), 2*float64(ts.RoadGames))
	homeRate := safeDiv(homePoints, 2*homeGames)
	r[5] = roadRate - homeRate

	// 7. recent form
	r[6] = ts.RecentPointsRate

	// 8. roster depth
	r[7] = float64(ts.DepthScorerCount) + ts.TopScorerPointRate

	// 9. star power, bounded
	r[8] = clamp(ts.TopScorerPointRate, 0, 2.5)

	// 10. clutch performance
	oneGoalRate := safeDiv(float64(ts.OneGoalWins), float64(ts.OneGoalWins+ts.OneGoalLosses))
	otRate := safeDiv(float64(ts.OvertimeWins), float64(ts.OvertimeGames))
	comebackRatio := safeDiv(float64(ts.Comebacks), float64(ts.Comebacks+ts.BlownLeads))
	r[9] = 0.35*oneGoalRate + 0.35*otRate + 0.30*comebackRatio

	// 11. sustainability: signed distance from league mean shooting+save%
	r[10] = ts.ShootingPlusSavePct - fb.leagueSustainabilityPoint

	// 12. playoff experience (3-year window)
	h3 := ts.PlayoffHistory3y
	r[11] = 0.3*float64(h3.Appearances) + 0.4*float64(maxInt(h3.RoundsWon-1, 0)) + 0.3*float64(h3.Championships)

	// 13. dynasty score (5-year window)
	h5 := ts.PlayoffHistory5y
	r[12] = float64(h5.Championships)*1.0 + float64(h5.Finals)*0.3

	return r
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func mapTeamSeasons(ts []TeamSeason, f func(TeamSeason) float64) []float64 {
	out := make([]float64, 0, len(ts))
	for _, t := range ts {
		v := f(t)
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func meanFinite(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// medianOf returns the median of xs via gonum/stat.Quantile, which requires
// a sorted copy.
func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
