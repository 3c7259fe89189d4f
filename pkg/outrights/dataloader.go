package outrights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// DataLoader is the collaborator boundary named in spec.md §6: the core
// makes no assumption about the data's physical format, only that it can
// produce TeamSeason records on demand.
type DataLoader interface {
	// LoadTraining returns every historical TeamSeason the pipeline should
	// train on, with Labels populated on every record.
	LoadTraining(ctx context.Context) ([]TeamSeason, error)
	// LoadCurrent returns the 32 current-season TeamSeason records for
	// seasonID, with Labels unset.
	LoadCurrent(ctx context.Context, seasonID string) ([]TeamSeason, error)
}

// StaticLoader is a DataLoader backed by an in-memory or file-sourced set of
// TeamSeason records, grounded on the teacher's loadEventsFromFile JSON-
// decode pattern (demo.go) generalized from MatchResult to TeamSeason.
// Network ingestion is explicitly out of this specification's scope
// (spec.md §1); StaticLoader is the one concrete implementation shipped
// alongside the DataLoader interface.
type StaticLoader struct {
	alias *AliasTable

	// bySeason holds every season's records, keyed by season ID.
	bySeason map[string][]TeamSeason
	// provenance records a human-readable data-source description per
	// season; DataLoader.LoadTraining refuses to proceed (spec.md §9 Open
	// Question 1) if a configured season's provenance is empty.
	provenance map[string]string
	// requiredTrainingSeasons, if non-empty, is the declared set of seasons
	// that must be present for LoadTraining to succeed; a season missing
	// from bySeason surfaces MissingData.
	requiredTrainingSeasons []string
}

// NewStaticLoader constructs an empty StaticLoader. Use AddSeason to
// populate it, or LoadSeasonsFromJSON to read from files.
func NewStaticLoader(alias *AliasTable) *StaticLoader {
	if alias == nil {
		alias = DefaultAliasTable()
	}
	return &StaticLoader{
		alias:      alias,
		bySeason:   make(map[string][]TeamSeason),
		provenance: make(map[string]string),
	}
}

// RequireTrainingSeasons declares the set of season IDs that LoadTraining
// must find data for.
func (l *StaticLoader) RequireTrainingSeasons(seasons ...string) {
	l.requiredTrainingSeasons = append(l.requiredTrainingSeasons, seasons...)
}

// AddSeason registers a season's raw TeamSeason records, after team-code
// normalization (AliasTable, applied once here) and validation (every
// numeric field finite and within plausible bounds; no duplicate team code
// within the season). provenance is a free-form description of where this
// season's data came from (spec.md §9 Open Question 1).
func (l *StaticLoader) AddSeason(seasonID, provenance string, records []TeamSeason) error {
	seen := make(map[string]bool, len(records))
	normalized := make([]TeamSeason, 0, len(records))
	for _, r := range records {
		r.Team = l.alias.Normalize(r.Team)
		if seen[r.Team] {
			return newError(KindIdentifierConflict,
				fmt.Sprintf("team %q appears twice in season %q", r.Team, seasonID),
				"season", seasonID, "team", r.Team)
		}
		seen[r.Team] = true
		if err := validateTeamSeason(r); err != nil {
			return err
		}
		normalized = append(normalized, r)
	}
	l.bySeason[seasonID] = normalized
	l.provenance[seasonID] = provenance
	return nil
}

// LoadSeasonsFromJSON reads a JSON file containing a map of season ID to
// provenance-tagged record list and registers each season via AddSeason.
// The file format is:
//
//	{"2022-23": {"provenance": "league office export", "teams": [...]}}
func (l *StaticLoader) LoadSeasonsFromJSON(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapError(KindMissingData, "opening season data file", err, "path", path)
	}
	defer f.Close()

	var payload map[string]struct {
		Provenance string       `json:"provenance"`
		Teams      []TeamSeason `json:"teams"`
	}
	if err := json.NewDecoder(f).Decode(&payload); err != nil {
		return wrapError(KindMalformedData, "decoding season data JSON", err, "path", path)
	}
	for season, block := range payload {
		if err := l.AddSeason(season, block.Provenance, block.Teams); err != nil {
			return err
		}
	}
	return nil
}

func (l *StaticLoader) LoadTraining(ctx context.Context) ([]TeamSeason, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "context cancelled before loading training data")
	}
	for _, season := range l.requiredTrainingSeasons {
		records, ok := l.bySeason[season]
		if !ok {
			return nil, newError(KindMissingData,
				fmt.Sprintf("configured training season %q has no data", season), "season", season)
		}
		if l.provenance[season] == "" {
			return nil, newError(KindMissingData,
				fmt.Sprintf("training season %q has no recorded provenance", season), "season", season)
		}
	}
	var out []TeamSeason
	for season, records := range l.bySeason {
		if l.provenance[season] == "" {
			continue
		}
		for _, r := range records {
			if r.Labels == nil {
				return nil, newError(KindMalformedData,
					fmt.Sprintf("training season %q team %q is missing labels", season, r.Team),
					"season", season, "team", r.Team)
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *StaticLoader) LoadCurrent(ctx context.Context, seasonID string) ([]TeamSeason, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "context cancelled before loading current season")
	}
	records, ok := l.bySeason[seasonID]
	if !ok {
		return nil, newError(KindMissingData,
			fmt.Sprintf("current season %q has no data", seasonID), "season", seasonID)
	}
	out := make([]TeamSeason, len(records))
	for i, r := range records {
		r.Labels = nil
		out[i] = r
	}
	return out, nil
}

// validateTeamSeason applies the validation rules of spec.md §4.1: every
// numeric field must be finite, and a handful of rate fields must fall
// within plausible bounds. Rules are expressed generically (loop over a
// table of field accessors and bounds) rather than one hard-coded branch per
// field, per the "flagged by validation rules, not hard-coded per-field"
// language of spec.md §4.1.
func validateTeamSeason(ts TeamSeason) error {
	type boundedField struct {
		name     string
		value    float64
		lo, hi   float64
	}
	fields := []boundedField{
		{"shot_attempt_share", ts.ShotAttemptShare, 0, 1},
		{"high_danger_share", ts.HighDangerShare, 0, 1},
		{"expected_goal_save_rate", ts.ExpectedGoalSaveRate, -1, 1},
		{"power_play_pct", ts.PowerPlayPct, 0, 1},
		{"penalty_kill_pct", ts.PenaltyKillPct, 0, 1},
		{"shooting_plus_save_pct", ts.ShootingPlusSavePct, 0, 2},
		{"starter_save_pct_vs_expected", ts.StarterSavePctVsExpected, -1, 1},
		{"backup_save_pct_vs_expected", ts.BackupSavePctVsExpected, -1, 1},
		{"top_scorer_point_rate", ts.TopScorerPointRate, 0, 5},
		{"expected_goal_diff", ts.ExpectedGoalDiff, -5, 5},
		{"recent_points_rate", ts.RecentPointsRate, 0, 2},
		{"recent_goal_diff", ts.RecentGoalDiff, -10, 10},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return newError(KindMalformedData,
				fmt.Sprintf("field %q is not finite", f.name),
				"season", ts.Season, "team", ts.Team, "field", f.name)
		}
		if f.value < f.lo || f.value > f.hi {
			return newError(KindMalformedData,
				fmt.Sprintf("field %q value %g is outside plausible range [%g, %g]", f.name, f.value, f.lo, f.hi),
				"season", ts.Season, "team", ts.Team, "field", f.name)
		}
	}
	if ts.GamesPlayed < 0 {
		return newError(KindMalformedData, "games_played is negative", "season", ts.Season, "team", ts.Team)
	}
	return nil
}
