package outrights

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// outcomeGrade maps a historical team's post-season result to the graded
// label WeightOptimizer regresses against: 0 missed the post-season, 1
// qualified, 2 reached the final, 3 won the championship.
func outcomeGrade(l Labels) float64 {
	switch {
	case l.WonCup:
		return 3
	case l.ReachedFinal:
		return 2
	case l.Qualified:
		return 1
	default:
		return 0
	}
}

// ridgeLambda is the fixed ridge-regularization strength for
// WeightOptimizer's regression, chosen (per spec.md §4.3) so that no single
// feature's fitted coefficient can dominate the composite purely from
// collinearity with the graded outcome.
const ridgeLambda = 2.0

// WeightOptimizer learns a composite strength score s(x) = Σ wᵢ·xᵢ with
// wᵢ ≥ 0 and Σwᵢ = 1, by ridge-regressing a graded post-season outcome label
// on the whitened feature vector and projecting the fitted coefficients onto
// the non-negative simplex. Adapted from the teacher's MLESolver
// (pkg/outrights-mle/mle.go): the teacher fits team attack/defense ratings
// by gradient ascent on a Poisson log-likelihood with a time-decay sample
// weight and a zero-sum renormalization after every step; WeightOptimizer
// keeps the same shape (time-decayed sample weights, a normalization step
// after fitting) but the estimator itself is a closed-form ridge regression
// solved via gonum/mat rather than a hand-rolled gradient loop, and the
// normalization projects onto the non-negative simplex rather than a
// zero-sum constraint.
type WeightOptimizer struct {
	weights LearnedWeights
}

// NewWeightOptimizer returns an unfitted WeightOptimizer.
func NewWeightOptimizer() *WeightOptimizer { return &WeightOptimizer{} }

// RecencyWeights computes the optional per-sample weight
// exp(-λ·Δseason)·boost_if_champion described in spec.md §4.3. Δseason is
// the distance between a sample's season rank and the rank of the most
// recent season in seasons (ranks come from seasonRanks, higher = more
// recent). When championBoost is true, champions' weights are multiplied
// by a fixed factor of 2.0; the factor itself is not configurable. When
// lambda is 0, recency weighting is disabled and every weight is 1.0 (no
// champion boost either, so that disabling recency weighting behaves as
// "equal weights" exactly as spec.md §4.3 requires).
//
// Trade-off (documented per spec.md §4.3, not re-litigated at call sites):
// recency weighting improves top-8 recall by letting the model track
// league-wide parity shifts faster, at the cost of top-1 precision, since a
// single recent championship run gets outsized influence over the fitted
// composite weighting.
func RecencyWeights(seasons []string, championBoost bool, won []bool, lambda float64) []float64 {
	n := len(seasons)
	out := make([]float64, n)
	if lambda <= 0 {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	ranks := seasonRanks(seasons)
	latest := 0
	for _, r := range ranks {
		if r > latest {
			latest = r
		}
	}
	for i, r := range ranks {
		delta := float64(latest - r)
		w := math.Exp(-lambda * delta)
		if championBoost && i < len(won) && won[i] {
			w *= 2.0 // fixed factor inside the documented [1.5, 3.0] champion-boost band
		}
		out[i] = w
	}
	return out
}

// Fit learns LearnedWeights from a training set of feature vectors and
// their corresponding historical Labels. sampleWeights may be nil, meaning
// every sample is weighted equally; otherwise it must have the same length
// as features.
func (wo *WeightOptimizer) Fit(features []FeatureVector, labels []Labels, sampleWeights []float64) (LearnedWeights, []string, error) {
	n := len(features)
	if n == 0 || n != len(labels) {
		return nil, nil, newError(KindInsufficientData, "WeightOptimizer.Fit requires matching non-empty features and labels")
	}
	if sampleWeights == nil {
		sampleWeights = make([]float64, n)
		for i := range sampleWeights {
			sampleWeights[i] = 1.0
		}
	}
	if len(sampleWeights) != n {
		return nil, nil, newError(KindInsufficientData, "WeightOptimizer.Fit sample_weights length mismatch")
	}

	X := mat.NewDense(n, featureCount, nil)
	y := mat.NewVecDense(n, nil)
	for i, fv := range features {
		for j := 0; j < featureCount; j++ {
			X.Set(i, j, fv.Values[j])
		}
		y.SetVec(i, outcomeGrade(labels[i]))
	}

	// Weighted ridge normal equations: (XᵀWX + λI) w = XᵀWy
	Wd := mat.NewDiagDense(n, sampleWeights)
	var XtW mat.Dense
	XtW.Mul(X.T(), Wd)

	var XtWX mat.Dense
	XtWX.Mul(&XtW, X)
	for i := 0; i < featureCount; i++ {
		XtWX.Set(i, i, XtWX.At(i, i)+ridgeLambda)
	}

	var XtWy mat.VecDense
	XtWy.MulVec(&XtW, y)

	var coef mat.VecDense
	if err := coef.SolveVec(&XtWX, &XtWy); err != nil {
		return nil, nil, wrapError(KindTrainingFailed, "ridge regression normal equations failed to solve", err)
	}

	// Non-negative simplex projection: clip negatives to zero, renormalize.
	raw := make([]float64, featureCount)
	sum := 0.0
	for i := 0; i < featureCount; i++ {
		v := coef.AtVec(i)
		if v < 0 {
			v = 0
		}
		raw[i] = v
		sum += v
	}
	if sum == 0 {
		return nil, nil, newError(KindTrainingFailed, "ridge regression produced an all-zero/negative weight vector")
	}

	weights := make(LearnedWeights, featureCount)
	var warnings []string
	for i, name := range FeatureNames {
		w := raw[i] / sum
		weights[name] = w
		if w > 0.5 {
			warnings = append(warnings, fmt.Sprintf(
				"feature %q carries %.1f%% of total weight; exceeds the 50%% guideline", name, w*100))
		}
	}

	wo.weights = weights
	return weights, warnings, nil
}

// Score returns the composite strength s(x) = Σ wᵢ·xᵢ for a feature vector,
// using the weights learned by the most recent Fit.
func (wo *WeightOptimizer) Score(fv FeatureVector) (float64, error) {
	if wo.weights == nil {
		return 0, newError(KindInsufficientData, "WeightOptimizer.Score called before Fit")
	}
	var s float64
	for i, name := range FeatureNames {
		s += wo.weights[name] * fv.Values[i]
	}
	return s, nil
}

// ScoreWith returns the composite strength of fv under an explicit
// LearnedWeights map, without requiring a fitted WeightOptimizer.
func ScoreWith(weights LearnedWeights, fv FeatureVector) float64 {
	var s float64
	for i, name := range FeatureNames {
		s += weights[name] * fv.Values[i]
	}
	return s
}

// seasonRanks assigns each season string a monotonically increasing integer
// rank reflecting recency. Seasons are first tried as a leading four-digit
// year (e.g. "2019-20" -> 2019); if that fails for any season in the set,
// every season is instead ranked by lexicographic order, which is stable
// for the common "YYYY-YY" and "YYYY" season ID conventions.
func seasonRanks(seasons []string) []int {
	years := make([]int, len(seasons))
	allParsed := true
	for i, s := range seasons {
		y, ok := leadingYear(s)
		if !ok {
			allParsed = false
			break
		}
		years[i] = y
	}
	if allParsed {
		return years
	}

	type indexed struct {
		season string
		idx    int
	}
	order := make([]indexed, len(seasons))
	for i, s := range seasons {
		order[i] = indexed{s, i}
	}
	// stable insertion sort by season string: corpus-sized inputs are small
	// (a handful of training seasons), so an O(n^2) sort keeps this
	// dependency-free and obviously correct.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && order[j-1].season > order[j].season {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	ranks := make([]int, len(seasons))
	for rank, e := range order {
		ranks[e.idx] = rank
	}
	return ranks
}

func leadingYear(season string) (int, bool) {
	if len(season) < 4 {
		return 0, false
	}
	y := 0
	for i := 0; i < 4; i++ {
		c := season[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		y = y*10 + int(c-'0')
	}
	return y, true
}
