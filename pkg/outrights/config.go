package outrights

import "fmt"

// BracketPolicy selects how qualified teams are paired into the post-season
// bracket.
type BracketPolicy string

const (
	BracketPolicyDivisional      BracketPolicy = "divisional"
	BracketPolicyConferenceReseed BracketPolicy = "conference-reseed"
)

// Config is the explicit, validated configuration record for one pipeline
// invocation, replacing the teacher's duck-typed option dictionaries
// (spec.md §9 Design Notes). Every recognized option from spec.md §6 is a
// named field; Validate rejects the struct as a whole rather than letting
// downstream code discover a bad value mid-run.
type Config struct {
	NumTrials        int
	RecencyDecayRate float64
	CupWinnerBoost   float64
	RecentFormWindow int
	Seed             *int64
	BracketPolicy    BracketPolicy
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		NumTrials:        10000,
		RecencyDecayRate: 0.0,
		CupWinnerBoost:   1.0,
		RecentFormWindow: 10,
		Seed:             nil,
		BracketPolicy:    BracketPolicyDivisional,
	}
}

// Validate checks every field against the bounds in spec.md §6 and returns a
// single aggregated error describing every violation found, rather than
// stopping at the first one.
func (c Config) Validate() error {
	var errs []*PipelineError
	if c.NumTrials < 1000 {
		errs = append(errs, newError(KindMalformedData,
			fmt.Sprintf("num_trials must be >= 1000, got %d", c.NumTrials), "field", "num_trials"))
	}
	if c.RecencyDecayRate < 0.0 || c.RecencyDecayRate > 0.5 {
		errs = append(errs, newError(KindMalformedData,
			fmt.Sprintf("recency_decay_rate must be in [0.0, 0.5], got %g", c.RecencyDecayRate), "field", "recency_decay_rate"))
	}
	if c.CupWinnerBoost < 1.0 || c.CupWinnerBoost > 5.0 {
		errs = append(errs, newError(KindMalformedData,
			fmt.Sprintf("cup_winner_boost must be in [1.0, 5.0], got %g", c.CupWinnerBoost), "field", "cup_winner_boost"))
	}
	if c.RecentFormWindow < 1 {
		errs = append(errs, newError(KindMalformedData,
			fmt.Sprintf("recent_form_window must be >= 1, got %d", c.RecentFormWindow), "field", "recent_form_window"))
	}
	switch c.BracketPolicy {
	case BracketPolicyDivisional, BracketPolicyConferenceReseed:
	default:
		errs = append(errs, newError(KindMalformedData,
			fmt.Sprintf("unrecognized bracket_policy %q", c.BracketPolicy), "field", "bracket_policy"))
	}
	if len(errs) == 0 {
		return nil
	}
	return &Errors{Errors: errs}
}

// recencyLambda returns the effective decay rate used by WeightOptimizer,
// clamped into spec.md §4.3's documented [0.10, 0.20] band whenever recency
// weighting is enabled (RecencyDecayRate > 0). A decay rate of exactly 0
// disables recency weighting entirely (equal sample weights).
func (c Config) recencyLambda() float64 {
	if c.RecencyDecayRate <= 0 {
		return 0
	}
	lambda := c.RecencyDecayRate
	if lambda < 0.10 {
		lambda = 0.10
	}
	if lambda > 0.20 {
		lambda = 0.20
	}
	return lambda
}
