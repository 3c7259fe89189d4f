package outrights

import (
	"math"
	"sort"
)

// qualificationGateFloor is the full-gate threshold (spec.md §4.6): a
// team's BracketSimulator round probabilities are scaled by
// min(1, qualProb/qualificationGateFloor), so a team the classifier rates
// confidently in (qualProb >= 0.5) passes the bracket simulation through
// unscaled, while a marginal team's bracket-derived probabilities are
// damped toward zero.
const qualificationGateFloor = 0.5

// qualificationZeroFloor is the hard cutoff below which a team's
// post-season probabilities are zeroed outright rather than merely damped
// (spec.md §4.6), since a bracket simulation that assumed a near-impossible
// qualification produces a number with no practical meaning.
const qualificationZeroFloor = 0.1

const (
	tierEliteShare     = 0.125
	tierContenderShare = 0.25
	tierBubbleShare    = 0.25
)

// Ensemble combines a PlayoffClassifier's qualification probabilities with
// a BracketSimulator's round-advancement probabilities into the final
// per-team Prediction set: gating bracket output by qualification
// confidence, isotonic-calibrating the raw Cup probability against
// historical tournament outcomes, renormalizing Cup probabilities to sum to
// 1, and assigning percentile-based Tiers. Grounded on the teacher's
// marks.go/markets.go (combining a Poisson scoreline distribution into
// market-facing probabilities and normalizing overround away), generalized
// from odds-market normalization to this pipeline's qualification-gate and
// calibration steps.
type Ensemble struct {
	cupCalibrator *isotonicCalibrator
}

// NewEnsemble returns an Ensemble with an identity Cup-probability
// calibrator; call FitCupCalibration to learn one from history.
func NewEnsemble() *Ensemble {
	return &Ensemble{cupCalibrator: identityCalibrator()}
}

// FitCupCalibration fits the isotonic calibrator mapping a raw simulated
// Cup probability to a historically-realized frequency, from paired
// (rawProb, won) historical observations. Calibration is skipped (identity)
// when fewer than 3 championships are represented in the training history,
// matching PlayoffClassifier's CalibrationSkipped threshold.
func (e *Ensemble) FitCupCalibration(rawProbs []float64, won []bool) []string {
	positives := 0
	y := make([]float64, len(won))
	for i, w := range won {
		if w {
			y[i] = 1
			positives++
		}
	}
	if positives < minPositiveForCalibration {
		e.cupCalibrator = identityCalibrator()
		return []string{newError(KindCalibrationSkipped,
			"fewer than 3 historical champions; Cup probability calibration skipped, identity map used").Error()}
	}
	e.cupCalibrator = fitIsotonic(rawProbs, y)
	return nil
}

// Combine applies the qualification gate, Cup calibration, renormalization,
// and tier assignment to a batch of Predictions (expected to be the full
// current season's teams) given each team's qualification probability from
// PlayoffClassifier. Combine mutates and returns preds; qualProbs must have
// an entry for every prediction's Team.
func (e *Ensemble) Combine(preds []Prediction, qualProbs map[string]float64) ([]Prediction, error) {
	if len(preds) == 0 {
		return preds, newError(KindInsufficientData, "Ensemble.Combine called with no predictions")
	}

	for i := range preds {
		team := preds[i].Team
		q, ok := qualProbs[team]
		if !ok {
			return nil, newError(KindMissingData, "no qualification probability for team", "team", team)
		}
		gate := math.Min(1, q/qualificationGateFloor)
		if q < qualificationZeroFloor {
			gate = 0
		}

		preds[i].PlayoffProb = q
		preds[i].Round1 = preds[i].Round1 * gate
		preds[i].Round2 = preds[i].Round2 * gate
		preds[i].Round3 = preds[i].Round3 * gate

		calibrated := e.cupCalibrator.Predict(preds[i].CupProb)
		preds[i].Round4 = calibrated * gate
		preds[i].CupProb = calibrated * gate
		preds[i].CupCILo = clamp(e.cupCalibrator.Predict(preds[i].CupCILo)*gate, 0, 1)
		preds[i].CupCIHi = clamp(e.cupCalibrator.Predict(preds[i].CupCIHi)*gate, 0, 1)
	}

	renormalizeCupProb(preds)
	assignTiers(preds)
	return preds, nil
}

// renormalizeCupProb rescales every prediction's CupProb so the batch sums
// to exactly 1, per spec.md §4.6. Round4 and the Cup confidence interval
// bounds are derived from the same pre-renormalization Cup probability
// (ensemble.Combine sets Round4 == CupProb before this runs), so they are
// rescaled by the identical factor to preserve the
// cup_prob <= round4 <= round3 <= ... invariant (spec.md §3). No-op if
// every prediction was gated to 0.
func renormalizeCupProb(preds []Prediction) {
	sum := 0.0
	for _, p := range preds {
		sum += p.CupProb
	}
	if sum <= 0 {
		return
	}
	for i := range preds {
		preds[i].CupProb /= sum
		preds[i].Round4 /= sum
		preds[i].CupCILo = clamp(preds[i].CupCILo/sum, 0, 1)
		preds[i].CupCIHi = clamp(preds[i].CupCIHi/sum, 0, 1)
	}
}

// assignTiers assigns a percentile-based Tier to each prediction, ranked by
// Strength descending with CupProb as a tiebreak, per spec.md §4.6's
// Elite/Contender/Bubble/Longshot shares.
func assignTiers(preds []Prediction) {
	order := make([]int, len(preds))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := preds[order[i]], preds[order[j]]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		return a.CupProb > b.CupProb
	})

	n := len(order)
	eliteCut := ceilShare(n, tierEliteShare)
	contenderCut := eliteCut + ceilShare(n, tierContenderShare)
	bubbleCut := contenderCut + ceilShare(n, tierBubbleShare)

	for rank, idx := range order {
		switch {
		case rank < eliteCut:
			preds[idx].Tier = TierElite
		case rank < contenderCut:
			preds[idx].Tier = TierContender
		case rank < bubbleCut:
			preds[idx].Tier = TierBubble
		default:
			preds[idx].Tier = TierLongshot
		}
	}
}

func ceilShare(n int, share float64) int {
	return int(math.Ceil(float64(n) * share))
}
