package outrights

import (
	"context"
	"testing"
)

func sampleBracketTeams() []BracketTeam {
	var teams []BracketTeam
	confs := []string{"East", "West"}
	divs := map[string][2]string{"East": {"Atlantic", "Metro"}, "West": {"Central", "Pacific"}}
	strength := 8.0
	confSeed := 1
	for _, conf := range confs {
		for _, div := range divs[conf] {
			for seed := 1; seed <= 4; seed++ {
				teams = append(teams, BracketTeam{
					Team:           conf + "-" + div + "-" + string(rune('A'+seed-1)),
					Conference:     conf,
					Division:       div,
					Seed:           seed,
					ConferenceSeed: confSeed,
					Strength:       strength,
					Experience:     0.5,
				})
				strength -= 0.3
				confSeed++
			}
		}
		confSeed = 1
	}
	return teams
}

func TestBuildBracketPlanRejectsWrongTeamCount(t *testing.T) {
	teams := sampleBracketTeams()[:15]
	if _, err := buildBracketPlan(teams); err == nil {
		t.Error("expected an error with fewer than 16 teams")
	} else if !IsKind(err, KindSeedingInfeasible) {
		t.Errorf("expected KindSeedingInfeasible, got %v", err)
	}
}

func TestBuildBracketPlanAcceptsWellFormedInput(t *testing.T) {
	teams := sampleBracketTeams()
	plan, err := buildBracketPlan(teams)
	if err != nil {
		t.Fatalf("buildBracketPlan returned error: %v", err)
	}
	if len(plan.conferences) != 2 {
		t.Errorf("expected 2 conferences, got %d", len(plan.conferences))
	}
}

func TestBuildBracketPlanRepairsDuplicateSeeds(t *testing.T) {
	teams := sampleBracketTeams()
	// Break the first division's seeding: duplicate seed 1, no seed 4.
	teams[0].Seed = 1
	teams[1].Seed = 1
	teams[2].Seed = 2
	teams[3].Seed = 3

	plan, err := buildBracketPlan(teams)
	if err != nil {
		t.Fatalf("buildBracketPlan should repair duplicate seeds via Strength order, got error: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a non-nil repaired plan")
	}
}

func TestBracketSimulatorCupProbabilitiesSumToOne(t *testing.T) {
	sm := NewSeriesModel()
	bs := NewBracketSimulator(sm, BracketPolicyDivisional)
	teams := sampleBracketTeams()

	result, err := bs.Simulate(context.Background(), teams, 500, 42)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if result.Partial {
		t.Error("did not expect a partial result with no cancellation")
	}
	if result.TrialsCompleted != 500 {
		t.Errorf("TrialsCompleted = %d, want 500", result.TrialsCompleted)
	}

	var sum float64
	for _, tr := range result.Teams {
		sum += tr.CupProb
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("Cup probabilities across all teams sum to %v, want ~1.0", sum)
	}
}

func TestBracketSimulatorConferenceReseedPolicyRuns(t *testing.T) {
	sm := NewSeriesModel()
	bs := NewBracketSimulator(sm, BracketPolicyConferenceReseed)
	teams := sampleBracketTeams()

	result, err := bs.Simulate(context.Background(), teams, 200, 7)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if len(result.Teams) != 16 {
		t.Errorf("expected results for all 16 teams, got %d", len(result.Teams))
	}
}

func TestBracketSimulatorRespectsCancellation(t *testing.T) {
	sm := NewSeriesModel()
	bs := NewBracketSimulator(sm, BracketPolicyDivisional)
	teams := sampleBracketTeams()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := bs.Simulate(ctx, teams, 100000, 1)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if !result.Partial {
		t.Error("expected a partial result after immediate cancellation")
	}
	if result.TrialsCompleted >= result.TrialsRequested {
		t.Errorf("expected fewer completed trials than requested, got %d of %d", result.TrialsCompleted, result.TrialsRequested)
	}
}

func TestConfidenceInterval90Bounds(t *testing.T) {
	lo, hi := confidenceInterval90(0.5, 100)
	if lo < 0 || hi > 1 || lo >= hi {
		t.Errorf("confidenceInterval90(0.5, 100) = [%v, %v], want a valid sub-interval of [0,1]", lo, hi)
	}
	lo, hi = confidenceInterval90(0.5, 0)
	if lo != 0 || hi != 1 {
		t.Errorf("confidenceInterval90 with n=0 should return the full [0,1] range, got [%v, %v]", lo, hi)
	}
}
