package outrights

import "math"

const (
	minPositiveForCalibration = 3
	classifierCVFolds         = 5
	playoffTargetCount        = 16.0
	playoffTargetTolerance    = 1.5
)

// PlayoffClassifier produces a calibrated probability that a team qualifies
// for the post-season: a logistic regression over the whitened feature
// vector, isotonic-calibrated by cross-validation. Grounded on the
// teacher's MLESolver shape (iterative fit reporting Converged/Iterations,
// pkg/outrights-mle/mle.go) for the underlying estimator, generalized from
// a Poisson scoring model to a logistic qualification model and wrapped in
// the isotonic calibrator new to this specification.
type PlayoffClassifier struct {
	model      logisticModel
	calibrator *isotonicCalibrator
}

// NewPlayoffClassifier returns an unfitted PlayoffClassifier.
func NewPlayoffClassifier() *PlayoffClassifier { return &PlayoffClassifier{} }

func designRow(fv FeatureVector) []float64 {
	row := make([]float64, featureCount+1)
	row[0] = 1.0
	copy(row[1:], fv.Values[:])
	return row
}

// Fit trains the logistic regression and its isotonic calibrator. When
// fewer than minPositiveForCalibration positive examples are present,
// calibration is skipped (identity map) and a CalibrationSkipped warning is
// returned rather than an error, per spec.md §7.
func (pc *PlayoffClassifier) Fit(features []FeatureVector, labels []Labels, sampleWeights []float64) ([]string, error) {
	n := len(features)
	if n == 0 || n != len(labels) {
		return nil, newError(KindInsufficientData, "PlayoffClassifier.Fit requires matching non-empty features and labels")
	}
	if sampleWeights == nil {
		sampleWeights = make([]float64, n)
		for i := range sampleWeights {
			sampleWeights[i] = 1.0
		}
	}

	X := make([][]float64, n)
	y := make([]float64, n)
	positives := 0
	for i, fv := range features {
		X[i] = designRow(fv)
		if labels[i].Qualified {
			y[i] = 1.0
			positives++
		}
	}

	model, err := fitLogistic(X, y, sampleWeights, ridgeLambda)
	if err != nil {
		return nil, err
	}
	pc.model = model

	var warnings []string
	if positives < minPositiveForCalibration {
		pc.calibrator = identityCalibrator()
		warnings = append(warnings, newError(KindCalibrationSkipped,
			"fewer than 3 positive examples; isotonic calibration skipped, identity map used").Error())
		return warnings, nil
	}

	oofRaw, oofY, err := crossValidatedPredictions(X, y, sampleWeights, classifierCVFolds)
	if err != nil {
		return nil, err
	}
	pc.calibrator = fitIsotonic(oofRaw, oofY)
	return warnings, nil
}

// crossValidatedPredictions partitions samples into k folds, fits a
// logistic model on k-1 folds, and predicts the held-out fold, returning
// the pooled out-of-fold predictions and their true labels in the original
// sample order. Used to fit the isotonic calibrator without it seeing a
// sample's own fitted probability.
func crossValidatedPredictions(X [][]float64, y, weights []float64, folds int) ([]float64, []float64, error) {
	n := len(X)
	if folds > n {
		folds = n
	}
	if folds < 2 {
		// Too little data to cross-validate meaningfully; fall back to
		// in-sample predictions from a single fit.
		model, err := fitLogistic(X, y, weights, ridgeLambda)
		if err != nil {
			return nil, nil, err
		}
		preds := make([]float64, n)
		for i := range X {
			preds[i] = model.predict(X[i])
		}
		return preds, y, nil
	}

	preds := make([]float64, n)
	for f := 0; f < folds; f++ {
		var trainX [][]float64
		var trainY, trainW []float64
		var heldOut []int
		for i := 0; i < n; i++ {
			if i%folds == f {
				heldOut = append(heldOut, i)
				continue
			}
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
			trainW = append(trainW, weights[i])
		}
		if len(trainX) == 0 || len(heldOut) == 0 {
			continue
		}
		model, err := fitLogistic(trainX, trainY, trainW, ridgeLambda)
		if err != nil {
			return nil, nil, err
		}
		for _, idx := range heldOut {
			preds[idx] = model.predict(X[idx])
		}
	}
	return preds, y, nil
}

// PredictProba returns the calibrated qualification probability for fv.
func (pc *PlayoffClassifier) PredictProba(fv FeatureVector) (float64, error) {
	if pc.model.Coef == nil {
		return 0, newError(KindInsufficientData, "PlayoffClassifier.PredictProba called before Fit")
	}
	raw := pc.model.predict(designRow(fv))
	return pc.calibrator.Predict(raw), nil
}

// ShrinkToTarget applies the spec.md §4.4 uniform-shrinkage rule: if the sum
// of probs deviates from target by more than tolerance, every probability
// is shrunk (or grown) uniformly toward target/len(probs) so the new sum
// equals target exactly. If probs already sums within tolerance, it is
// returned unchanged.
func ShrinkToTarget(probs []float64, target, tolerance float64) []float64 {
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-target) <= tolerance || sum == 0 {
		return probs
	}
	perTeamTarget := target / float64(len(probs))
	out := make([]float64, len(probs))
	for i, p := range probs {
		share := p / sum
		blended := share*target*0.5 + perTeamTarget*0.5
		out[i] = blended
	}
	// Renormalize the blended values to sum exactly to target.
	blendedSum := 0.0
	for _, v := range out {
		blendedSum += v
	}
	if blendedSum == 0 {
		return out
	}
	scale := target / blendedSum
	for i := range out {
		out[i] *= scale
		out[i] = clamp(out[i], 0, 1)
	}
	return out
}
