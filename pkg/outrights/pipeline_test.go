package outrights

import (
	"context"
	"testing"
)

// synthSeason builds a well-formed 16-team post-season field (2 conferences,
// 2 divisions each, 4 teams per division) for one season, with goal
// differential spread across teams so FeatureBuilder/WeightOptimizer have
// something to discriminate on. finalists names the two conference-final
// participants and champion the Cup winner (must be one of finalists).
func synthSeason(season string, finalists [2]string, champion string) []TeamSeason {
	type slot struct {
		conf, div, team string
	}
	slots := []slot{
		{"East", "Atlantic", "BOS"}, {"East", "Atlantic", "TOR"}, {"East", "Atlantic", "TBL"}, {"East", "Atlantic", "FLA"},
		{"East", "Metro", "CAR"}, {"East", "Metro", "NYR"}, {"East", "Metro", "NYI"}, {"East", "Metro", "WSH"},
		{"West", "Central", "COL"}, {"West", "Central", "DAL"}, {"West", "Central", "WPG"}, {"West", "Central", "MIN"},
		{"West", "Pacific", "VGK"}, {"West", "Pacific", "EDM"}, {"West", "Pacific", "LAK"}, {"West", "Pacific", "SEA"},
	}

	out := make([]TeamSeason, len(slots))
	for i, s := range slots {
		gf := 260 - i*3
		ga := 200 + i*2
		reachedFinal := s.team == finalists[0] || s.team == finalists[1]
		wonCup := s.team == champion
		out[i] = TeamSeason{
			Team:                s.team,
			Season:              season,
			Conference:          s.conf,
			Division:            s.div,
			GamesPlayed:         82,
			Wins:                50 - i,
			Losses:              20 + i,
			Points:              100 - i,
			GoalsFor:            gf,
			GoalsAgainst:        ga,
			ShotAttemptShare:    0.55 - float64(i)*0.005,
			HighDangerShare:     0.53 - float64(i)*0.004,
			ExpectedGoalDiff:    0.4 - float64(i)*0.04,
			PowerPlayPct:        0.24 - float64(i)*0.003,
			PenaltyKillPct:      0.83 - float64(i)*0.003,
			ShootingPlusSavePct: 1.02 - float64(i)*0.001,
			RecentPointsRate:    0.65 - float64(i)*0.01,
			TopScorerPointRate:  1.2 - float64(i)*0.02,
			DepthScorerCount:    6 - i/4,
			RoadGames:           41,
			RoadPoints:          45 - i,
			OneGoalWins:         12,
			OneGoalLosses:       8,
			OvertimeWins:        4,
			OvertimeGames:       8,
			Comebacks:           5,
			BlownLeads:          3,
			PlayoffHistory3y:    PlayoffHistory{Appearances: 2, RoundsWon: 3, Finals: 1, Championships: 0},
			Labels: &Labels{
				Qualified:    true,
				ReachedFinal: reachedFinal,
				WonCup:       wonCup,
			},
		}
	}
	return out
}

func synthCurrentSeason(season string) []TeamSeason {
	records := synthSeason(season, [2]string{"BOS", "COL"}, "BOS")
	for i := range records {
		records[i].Labels = nil
	}
	return records
}

func buildTestLoader() *StaticLoader {
	loader := NewStaticLoader(nil)
	_ = loader.AddSeason("2021-22", "test fixture", synthSeason("2021-22", [2]string{"TOR", "DAL"}, "DAL"))
	_ = loader.AddSeason("2022-23", "test fixture", synthSeason("2022-23", [2]string{"FLA", "VGK"}, "VGK"))
	_ = loader.AddSeason("2023-24", "test fixture", synthSeason("2023-24", [2]string{"BOS", "COL"}, "BOS"))
	_ = loader.AddSeason("2024-25", "", synthCurrentSeason("2024-25"))
	return loader
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NumTrials = 1000
	seed := int64(99)
	cfg.Seed = &seed
	return cfg
}

func TestPipelinePredictBeforeFit(t *testing.T) {
	loader := buildTestLoader()
	p, err := NewPipeline(testConfig(), loader, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline returned error: %v", err)
	}
	if _, err := p.Predict(context.Background(), "2024-25"); err == nil {
		t.Error("expected an error calling Predict before Fit")
	}
}

func TestPipelineFitAndPredictProducesFullArtifact(t *testing.T) {
	loader := buildTestLoader()
	p, err := NewPipeline(testConfig(), loader, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline returned error: %v", err)
	}

	if _, err := p.Fit(context.Background()); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	artifact, err := p.Predict(context.Background(), "2024-25")
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if artifact.ModelVersion != ModelVersion {
		t.Errorf("ModelVersion = %q, want %q", artifact.ModelVersion, ModelVersion)
	}
	if len(artifact.Predictions) != 16 {
		t.Errorf("expected 16 predictions, got %d", len(artifact.Predictions))
	}

	var sum float64
	for _, pred := range artifact.Predictions {
		sum += pred.CupProb
	}
	if sum < 0.98 || sum > 1.02 {
		t.Errorf("Cup probabilities sum to %v, want ~1.0", sum)
	}
}

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	loader := buildTestLoader()
	cfg := DefaultConfig()
	cfg.NumTrials = 1 // below the 1000 minimum
	if _, err := NewPipeline(cfg, loader, nil, nil); err == nil {
		t.Error("expected an error constructing a Pipeline with an invalid Config")
	}
}

func TestNewPipelineRejectsNilLoader(t *testing.T) {
	if _, err := NewPipeline(testConfig(), nil, nil, nil); err == nil {
		t.Error("expected an error constructing a Pipeline with a nil DataLoader")
	}
}
