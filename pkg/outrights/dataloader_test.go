package outrights

import (
	"context"
	"testing"
)

func TestStaticLoaderAddSeasonRejectsDuplicateTeam(t *testing.T) {
	loader := NewStaticLoader(nil)
	records := []TeamSeason{
		sampleTeamSeason("BOS", 260, 200, 82),
		sampleTeamSeason("BOS", 240, 210, 82),
	}
	if err := loader.AddSeason("2022-23", "test", records); err == nil {
		t.Error("expected an error adding a season with a duplicate team code")
	} else if !IsKind(err, KindIdentifierConflict) {
		t.Errorf("expected KindIdentifierConflict, got %v", err)
	}
}

func TestStaticLoaderAddSeasonNormalizesAliases(t *testing.T) {
	loader := NewStaticLoader(nil)
	records := []TeamSeason{sampleTeamSeason("phx", 230, 220, 82)}
	if err := loader.AddSeason("2019-20", "test", records); err != nil {
		t.Fatalf("AddSeason returned error: %v", err)
	}
	ts := loader.bySeason["2019-20"][0]
	if ts.Team != "ARI" {
		t.Errorf("expected alias normalization phx -> ARI, got %q", ts.Team)
	}
}

func TestStaticLoaderAddSeasonRejectsOutOfBoundsField(t *testing.T) {
	loader := NewStaticLoader(nil)
	bad := sampleTeamSeason("BOS", 260, 200, 82)
	bad.ShotAttemptShare = 1.5
	if err := loader.AddSeason("2022-23", "test", []TeamSeason{bad}); err == nil {
		t.Error("expected an error for a field value outside its plausible range")
	} else if !IsKind(err, KindMalformedData) {
		t.Errorf("expected KindMalformedData, got %v", err)
	}
}

func TestStaticLoaderLoadTrainingSkipsSeasonsWithoutProvenance(t *testing.T) {
	loader := NewStaticLoader(nil)
	labeled := sampleTeamSeason("BOS", 260, 200, 82)
	labeled.Labels = &Labels{Qualified: true}
	if err := loader.AddSeason("2022-23", "", []TeamSeason{labeled}); err != nil {
		t.Fatalf("AddSeason returned error: %v", err)
	}

	out, err := loader.LoadTraining(context.Background())
	if err != nil {
		t.Fatalf("LoadTraining returned error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no training records from an unprovenanced season, got %d", len(out))
	}
}

func TestStaticLoaderLoadTrainingRequiresLabels(t *testing.T) {
	loader := NewStaticLoader(nil)
	unlabeled := sampleTeamSeason("BOS", 260, 200, 82)
	if err := loader.AddSeason("2022-23", "test", []TeamSeason{unlabeled}); err != nil {
		t.Fatalf("AddSeason returned error: %v", err)
	}
	if _, err := loader.LoadTraining(context.Background()); err == nil {
		t.Error("expected an error when a training record has no Labels")
	}
}

func TestStaticLoaderLoadCurrentStripsLabels(t *testing.T) {
	loader := NewStaticLoader(nil)
	labeled := sampleTeamSeason("BOS", 260, 200, 82)
	labeled.Labels = &Labels{Qualified: true}
	if err := loader.AddSeason("2024-25", "test", []TeamSeason{labeled}); err != nil {
		t.Fatalf("AddSeason returned error: %v", err)
	}

	out, err := loader.LoadCurrent(context.Background(), "2024-25")
	if err != nil {
		t.Fatalf("LoadCurrent returned error: %v", err)
	}
	if out[0].Labels != nil {
		t.Error("expected LoadCurrent to strip Labels")
	}
}

func TestStaticLoaderRequireTrainingSeasonsFailsOnMissingSeason(t *testing.T) {
	loader := NewStaticLoader(nil)
	loader.RequireTrainingSeasons("2099-00")
	if _, err := loader.LoadTraining(context.Background()); err == nil {
		t.Error("expected an error when a required training season has no data")
	} else if !IsKind(err, KindMissingData) {
		t.Errorf("expected KindMissingData, got %v", err)
	}
}
