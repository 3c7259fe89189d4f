package outrights

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// logisticModel is a fitted logistic regression: P(y=1|x) = sigmoid(coef·x),
// where x's first element is always the intercept term 1.0. Used by
// PlayoffClassifier; SeriesModel runs its own offset logistic fit and
// shares only sigmoid and dotProduct from this file.
//
// The teacher's own predictor (pkg/outrights-mle/mle.go) fits its Poisson
// attack/defense ratings with a hand-rolled gradient-ascent loop that
// tracks log-likelihood each iteration and reports Converged/Iterations on
// a fixed iteration budget. logisticModel keeps that same observable shape
// (Converged, Iterations) but delegates the actual step-taking to
// gonum/optimize's BFGS solver instead of a hand-rolled learning-rate loop,
// so non-convergence is detected from optimize.Result.Status rather than a
// hard-coded iteration cap.
type logisticModel struct {
	Coef       []float64
	Converged  bool
	Iterations int
}

func sigmoid(z float64) float64 {
	if z > 30 {
		return 1.0
	}
	if z < -30 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func dotProduct(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// fitLogistic fits a weighted logistic regression by minimizing the
// sample-weighted negative log-likelihood plus an L2 penalty on the
// non-intercept coefficients, via gonum/optimize's BFGS method.
func fitLogistic(X [][]float64, y []float64, weights []float64, l2 float64) (logisticModel, error) {
	n := len(X)
	if n == 0 {
		return logisticModel{}, newError(KindInsufficientData, "fitLogistic called with no samples")
	}
	dim := len(X[0])
	if weights == nil {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1.0
		}
	}

	negLogLikelihood := func(coef []float64) float64 {
		var nll float64
		for i := range X {
			z := dotProduct(coef, X[i])
			p := sigmoid(z)
			const eps = 1e-12
			p = clamp(p, eps, 1-eps)
			nll -= weights[i] * (y[i]*math.Log(p) + (1-y[i])*math.Log(1-p))
		}
		for j := 1; j < dim; j++ { // skip intercept in the penalty
			nll += l2 * coef[j] * coef[j]
		}
		return nll
	}
	gradient := func(grad, coef []float64) {
		for j := range grad {
			grad[j] = 0
		}
		for i := range X {
			z := dotProduct(coef, X[i])
			p := sigmoid(z)
			errTerm := weights[i] * (p - y[i])
			for j := 0; j < dim; j++ {
				grad[j] += errTerm * X[i][j]
			}
		}
		for j := 1; j < dim; j++ {
			grad[j] += 2 * l2 * coef[j]
		}
	}

	problem := optimize.Problem{
		Func: negLogLikelihood,
		Grad: gradient,
	}
	init := make([]float64, dim)
	result, err := optimize.Minimize(problem, init, &optimize.Settings{
		MajorIterations: 500,
	}, &optimize.BFGS{})
	if err != nil && result == nil {
		return logisticModel{}, wrapError(KindTrainingFailed, "logistic regression optimizer failed", err)
	}

	converged := result.Status == optimize.Success || result.Status == optimize.FunctionConvergence ||
		result.Status == optimize.GradientThreshold
	if !converged {
		return logisticModel{Coef: result.X, Converged: false, Iterations: result.Stats.MajorIterations},
			newError(KindTrainingFailed, "logistic regression did not converge within budget",
				"status", result.Status.String())
	}

	return logisticModel{
		Coef:       result.X,
		Converged:  true,
		Iterations: result.Stats.MajorIterations,
	}, nil
}

func (m logisticModel) predict(x []float64) float64 {
	return sigmoid(dotProduct(m.Coef, x))
}
