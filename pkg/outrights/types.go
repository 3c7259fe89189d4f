// Package outrights implements a batch prediction pipeline for a professional
// hockey league's post-season: per-team qualification, finals, and
// championship probabilities, trained on historical team-season records.
package outrights

import "time"

// Labels holds the post-season outcome for a historical TeamSeason. All three
// fields are nil/unset on a current-season TeamSeason returned by
// DataLoader.LoadCurrent.
type Labels struct {
	Qualified    bool `json:"qualified"`
	ReachedFinal bool `json:"reached_final"`
	WonCup       bool `json:"won_cup"`
}

// PlayoffHistory summarizes a team's post-season results over a trailing
// window of seasons, used by the playoff-experience and dynasty-score
// features.
type PlayoffHistory struct {
	Appearances int `json:"appearances"`
	RoundsWon   int `json:"rounds_won"`
	Finals      int `json:"finals"`
	Championships int `json:"championships"`
}

// TeamSeason is an immutable snapshot of one team at one point in one
// season. Records are created by DataLoader and never mutated afterward.
type TeamSeason struct {
	Team       string `json:"team"`
	Season     string `json:"season"`
	Conference string `json:"conference"`
	Division   string `json:"division"`

	GamesPlayed    int `json:"games_played"`
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
	OvertimeLosses int `json:"overtime_losses"`
	Points         int `json:"points"`
	GoalsFor       int `json:"goals_for"`
	GoalsAgainst   int `json:"goals_against"`

	ShotAttemptShare      float64 `json:"shot_attempt_share"`
	HighDangerShare       float64 `json:"high_danger_share"`
	ExpectedGoalDiff      float64 `json:"expected_goal_diff"`
	ExpectedGoalSaveRate  float64 `json:"expected_goal_save_rate"`
	PowerPlayPct          float64 `json:"power_play_pct"`
	PenaltyKillPct        float64 `json:"penalty_kill_pct"`
	ShootingPlusSavePct   float64 `json:"shooting_plus_save_pct"`

	RecentPointsRate float64 `json:"recent_points_rate"`
	RecentGoalDiff   float64 `json:"recent_goal_diff"`

	StarterSavePctVsExpected float64 `json:"starter_save_pct_vs_expected"`
	BackupSavePctVsExpected  float64 `json:"backup_save_pct_vs_expected"`

	TopScorerPointRate float64 `json:"top_scorer_point_rate"`
	DepthScorerCount   int     `json:"depth_scorer_count"`

	RoadPoints int `json:"road_points"`
	RoadGames  int `json:"road_games"`

	OneGoalWins      int `json:"one_goal_wins"`
	OneGoalLosses    int `json:"one_goal_losses"`
	OvertimeWins     int `json:"overtime_wins"`
	OvertimeGames    int `json:"overtime_games"`
	Comebacks        int `json:"comebacks"`
	BlownLeads       int `json:"blown_leads"`

	PlayoffHistory3y PlayoffHistory `json:"playoff_history_3y"`
	PlayoffHistory5y PlayoffHistory `json:"playoff_history_5y"`

	// Labels is non-nil only for historical TeamSeason records returned by
	// DataLoader.LoadTraining; DataLoader.LoadCurrent returns records with
	// Labels nil.
	Labels *Labels `json:"labels,omitempty"`
}

// featureCount is the fixed length of a FeatureVector, order fixed by
// spec.md §3.
const featureCount = 13

// FeatureNames is the fixed, ordered list of canonical feature names. Index i
// here corresponds to FeatureVector.Values[i].
var FeatureNames = [featureCount]string{
	"goal_differential_rate",
	"territorial_dominance",
	"shot_quality_premium",
	"goaltending_quality",
	"special_teams_composite",
	"road_performance",
	"recent_form",
	"roster_depth",
	"star_power",
	"clutch_performance",
	"sustainability",
	"playoff_experience",
	"dynasty_score",
}

// FeatureVector is the fixed-length ordered tuple of engineered features
// produced by FeatureBuilder.Transform for one TeamSeason. Every value is
// finite by construction (see FeatureBuilder).
type FeatureVector struct {
	Team   string
	Season string
	Values [featureCount]float64
}

// Get returns the value of the named feature, or (0, false) if name is not a
// canonical feature name.
func (fv FeatureVector) Get(name string) (float64, bool) {
	for i, n := range FeatureNames {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// LearnedWeights maps each canonical feature name to a non-negative weight;
// weights sum to 1. Produced by WeightOptimizer.Fit.
type LearnedWeights map[string]float64

// Tier is a coarse qualitative label assigned to a team's composite strength
// relative to the rest of the league in a given season.
type Tier string

const (
	TierElite     Tier = "Elite"
	TierContender Tier = "Contender"
	TierBubble    Tier = "Bubble"
	TierLongshot  Tier = "Longshot"
)

// Prediction is the per-team output of one pipeline invocation.
type Prediction struct {
	Team   string `json:"team"`
	Season string `json:"season"`

	Strength float64 `json:"strength"`

	PlayoffProb float64 `json:"playoff_prob"`

	Round1 float64 `json:"round1"`
	Round2 float64 `json:"round2"`
	Round3 float64 `json:"round3"`
	Round4 float64 `json:"round4"`

	CupProb  float64 `json:"cup_prob"`
	CupCILo  float64 `json:"cup_ci_lo"`
	CupCIHi  float64 `json:"cup_ci_hi"`

	Tier Tier `json:"tier"`

	// Partial is true when the prediction was computed from a
	// cancelled/partial BracketSimulator run (see §5 cancellation contract).
	Partial bool `json:"partial,omitempty"`
}

// RoundAt returns the round-r advancement probability for r in 1..4.
func (p Prediction) RoundAt(r int) float64 {
	switch r {
	case 1:
		return p.Round1
	case 2:
		return p.Round2
	case 3:
		return p.Round3
	case 4:
		return p.Round4
	default:
		return 0
	}
}

// PipelineArtifact is the top-level object emitted by a pipeline invocation:
// per-team predictions plus metadata about the model that produced them.
type PipelineArtifact struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	ModelVersion string           `json:"model_version"`
	Season       string           `json:"season"`
	Weights      LearnedWeights   `json:"weights"`
	Predictions  []Prediction     `json:"predictions"`
	Backtest     *BacktestReport  `json:"backtest,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}
