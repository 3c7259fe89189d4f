package outrights

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ModelVersion identifies the fitted-model shape this package produces;
// bumped whenever the feature set, estimator choice, or calibration scheme
// changes in a way that would make two PipelineArtifacts incomparable.
const ModelVersion = "outrights-predict/1"

// ProgressFunc receives a stage name and a human-readable detail string as
// Pipeline moves through Fit/Predict. A nil ProgressFunc is replaced with a
// no-op. Grounded on the teacher's api.go progress-logging calls at each
// pipeline stage, generalized into an explicit callback type rather than a
// direct log call, so callers (internal/telemetry, tests) can capture it.
type ProgressFunc func(stage, detail string)

// SeriesHistoryLoader is an optional DataLoader capability: a loader that
// can also produce individual historical playoff series outcomes, richer
// than the season-level Labels every DataLoader provides. When the
// configured DataLoader does not implement it, Pipeline.Fit leaves
// SeriesModel unfit and relies solely on its fixed per-round base rates
// (spec.md §4.5), which is a documented, not a silent, degradation.
type SeriesHistoryLoader interface {
	LoadSeriesObservations(ctx context.Context) ([]SeriesObservation, error)
}

// Pipeline orchestrates every stage of spec.md §4 into a single Fit/Predict
// contract: it owns one instance of each stage's estimator and wires their
// inputs and outputs together. Grounded on the teacher's api.go, which plays
// the same connecting role between MLESolver, the simulator, and market
// construction.
type Pipeline struct {
	config   Config
	loader   DataLoader
	progress ProgressFunc

	aliases         *AliasTable
	featureBuilder  *FeatureBuilder
	weightOptimizer *WeightOptimizer
	classifier      *PlayoffClassifier
	series          *SeriesModel
	bracket         *BracketSimulator
	ensemble        *Ensemble

	fitted   bool
	training []TeamSeason
}

// NewPipeline validates cfg and returns an unfitted Pipeline reading from
// loader. progress may be nil.
func NewPipeline(cfg Config, loader DataLoader, aliases *AliasTable, progress ProgressFunc) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, newError(KindMissingData, "NewPipeline requires a non-nil DataLoader")
	}
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	if progress == nil {
		progress = func(string, string) {}
	}
	series := NewSeriesModel()
	return &Pipeline{
		config:          cfg,
		loader:          loader,
		progress:        progress,
		aliases:         aliases,
		featureBuilder:  NewFeatureBuilder(),
		weightOptimizer: NewWeightOptimizer(),
		classifier:      NewPlayoffClassifier(),
		series:          series,
		bracket:         NewBracketSimulator(series, cfg.BracketPolicy),
		ensemble:        NewEnsemble(),
	}, nil
}

// Fit trains every stage of the pipeline from the loader's training corpus
// and returns any non-fatal warnings surfaced along the way (e.g.
// CalibrationSkipped, an over-concentrated learned weight).
func (p *Pipeline) Fit(ctx context.Context) ([]string, error) {
	p.progress("load", "loading training data")
	training, err := p.loader.LoadTraining(ctx)
	if err != nil {
		return nil, err
	}
	if len(training) == 0 {
		return nil, newError(KindInsufficientData, "no training data returned by DataLoader")
	}
	p.training = training

	p.progress("features", "fitting feature transform")
	if err := p.featureBuilder.Fit(training); err != nil {
		return nil, err
	}

	features := make([]FeatureVector, len(training))
	labels := make([]Labels, len(training))
	seasons := make([]string, len(training))
	won := make([]bool, len(training))
	for i, ts := range training {
		fv, err := p.featureBuilder.Transform(ts)
		if err != nil {
			return nil, err
		}
		features[i] = fv
		labels[i] = *ts.Labels
		seasons[i] = ts.Season
		won[i] = ts.Labels.WonCup
	}

	var warnings []string
	sampleWeights := RecencyWeights(seasons, p.config.CupWinnerBoost > 1.0, won, p.config.recencyLambda())

	p.progress("weights", "fitting composite strength weights")
	if _, warn, err := p.weightOptimizer.Fit(features, labels, sampleWeights); err != nil {
		return nil, err
	} else {
		warnings = append(warnings, warn...)
	}

	p.progress("classifier", "fitting playoff qualification classifier")
	if warn, err := p.classifier.Fit(features, labels, sampleWeights); err != nil {
		return nil, err
	} else {
		warnings = append(warnings, warn...)
	}

	p.progress("series", "fitting series win-probability model")
	if historian, ok := p.loader.(SeriesHistoryLoader); ok {
		obs, err := historian.LoadSeriesObservations(ctx)
		if err != nil {
			return nil, err
		}
		if len(obs) > 0 {
			if err := p.series.Fit(obs); err != nil {
				return nil, err
			}
		} else {
			warnings = append(warnings, "SeriesHistoryLoader returned no observations; using fixed base rates only")
		}
	} else {
		warnings = append(warnings, "DataLoader has no series-level history; SeriesModel uses fixed base rates only")
	}
	p.bracket = NewBracketSimulator(p.series, p.config.BracketPolicy)

	p.progress("calibration", "retrospectively simulating historical brackets for Cup calibration")
	rawProbs, actualWon, calWarnings := p.retrospectiveCalibrationSample(ctx, training, features)
	warnings = append(warnings, calWarnings...)
	warnings = append(warnings, p.ensemble.FitCupCalibration(rawProbs, actualWon)...)

	p.fitted = true
	return warnings, nil
}

// retrospectiveCalibrationSample reconstructs each training season's
// post-season bracket (seeding teams by fitted Strength within the
// division/conference grouping already on each TeamSeason) and simulates
// it, pairing the resulting raw Cup probability with whether that team
// actually won the championship that season. Seasons that do not resolve to
// a well-formed 16-team bracket are skipped with a warning rather than
// failing the whole fit.
func (p *Pipeline) retrospectiveCalibrationSample(ctx context.Context, training []TeamSeason, features []FeatureVector) ([]float64, []bool, []string) {
	bySeason := make(map[string][]int)
	for i, ts := range training {
		bySeason[ts.Season] = append(bySeason[ts.Season], i)
	}

	var rawProbs []float64
	var actualWon []bool
	var warnings []string

	seasonIDs := make([]string, 0, len(bySeason))
	for s := range bySeason {
		seasonIDs = append(seasonIDs, s)
	}
	sort.Strings(seasonIDs)

	for _, season := range seasonIDs {
		idxs := bySeason[season]
		var qualified []int
		for _, i := range idxs {
			if training[i].Labels != nil && training[i].Labels.Qualified {
				qualified = append(qualified, i)
			}
		}
		if len(qualified) != 16 {
			warnings = append(warnings, fmt.Sprintf(
				"season %q has %d qualified teams, not 16; skipped for Cup calibration", season, len(qualified)))
			continue
		}

		teams := make([]BracketTeam, 0, 16)
		for _, i := range qualified {
			strength, err := p.weightOptimizer.Score(features[i])
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("season %q: %v; skipped for Cup calibration", season, err))
				teams = nil
				break
			}
			exp, _ := features[i].Get("playoff_experience")
			teams = append(teams, BracketTeam{
				Team:       training[i].Team,
				Conference: training[i].Conference,
				Division:   training[i].Division,
				Strength:   strength,
				Experience: exp,
			})
		}
		if teams == nil {
			continue
		}
		assignSeedsByStrength(teams)

		seed := splitSeed(0, "calibration-"+season)
		result, err := p.bracket.Simulate(ctx, teams, 2000, seed)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("season %q bracket reconstruction failed: %v; skipped", season, err))
			continue
		}
		for _, i := range qualified {
			tr, ok := result.Teams[training[i].Team]
			if !ok {
				continue
			}
			rawProbs = append(rawProbs, tr.CupProb)
			actualWon = append(actualWon, training[i].Labels.WonCup)
		}
	}
	return rawProbs, actualWon, warnings
}

// assignSeedsByStrength fills in Seed (1-4 within Division) and
// ConferenceSeed (1-8 within Conference) for a 16-team bracket input by
// ranking on Strength, since historical TeamSeason records carry no
// separately-recorded seed number.
func assignSeedsByStrength(teams []BracketTeam) {
	byDivision := make(map[string][]int)
	byConference := make(map[string][]int)
	for i, t := range teams {
		byDivision[t.Division] = append(byDivision[t.Division], i)
		byConference[t.Conference] = append(byConference[t.Conference], i)
	}
	for _, idxs := range byDivision {
		sort.Slice(idxs, func(a, b int) bool { return teams[idxs[a]].Strength > teams[idxs[b]].Strength })
		for rank, i := range idxs {
			teams[i].Seed = rank + 1
		}
	}
	for _, idxs := range byConference {
		sort.Slice(idxs, func(a, b int) bool { return teams[idxs[a]].Strength > teams[idxs[b]].Strength })
		for rank, i := range idxs {
			teams[i].ConferenceSeed = rank + 1
		}
	}
}

// Predict produces a PipelineArtifact for seasonID's current-season teams.
// Pipeline must have been Fit first.
func (p *Pipeline) Predict(ctx context.Context, seasonID string) (*PipelineArtifact, error) {
	if !p.fitted {
		return nil, newError(KindInsufficientData, "Pipeline.Predict called before Fit")
	}
	p.progress("load", "loading current season data")
	current, err := p.loader.LoadCurrent(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, newError(KindInsufficientData, "no current-season data returned by DataLoader", "season", seasonID)
	}

	features := make([]FeatureVector, len(current))
	strengths := make([]float64, len(current))
	qualRaw := make([]float64, len(current))
	var warnings []string

	p.progress("score", "scoring current-season teams")
	for i, ts := range current {
		fv, err := p.featureBuilder.Transform(ts)
		if err != nil {
			return nil, err
		}
		features[i] = fv
		s, err := p.weightOptimizer.Score(fv)
		if err != nil {
			return nil, err
		}
		strengths[i] = s
		q, err := p.classifier.PredictProba(fv)
		if err != nil {
			return nil, err
		}
		qualRaw[i] = q
	}

	qualShrunk := ShrinkToTarget(qualRaw, playoffTargetCount, playoffTargetTolerance)
	qualProbs := make(map[string]float64, len(current))
	for i, ts := range current {
		qualProbs[ts.Team] = qualShrunk[i]
	}

	order := make([]int, len(current))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return qualShrunk[order[a]] > qualShrunk[order[b]] })

	bracketSize := 16
	if len(order) < bracketSize {
		bracketSize = len(order)
	}
	teams := make([]BracketTeam, 0, bracketSize)
	for _, i := range order[:bracketSize] {
		exp, _ := features[i].Get("playoff_experience")
		teams = append(teams, BracketTeam{
			Team:       current[i].Team,
			Conference: current[i].Conference,
			Division:   current[i].Division,
			Strength:   strengths[i],
			Experience: exp,
		})
	}
	assignSeedsByStrength(teams)

	p.progress("simulate", fmt.Sprintf("simulating %d bracket trials", p.config.NumTrials))
	seed := int64(0)
	if p.config.Seed != nil {
		seed = *p.config.Seed
	} else {
		seed = splitSeed(0, seasonID)
	}
	bracketResult, err := p.bracket.Simulate(ctx, teams, p.config.NumTrials, splitSeed(seed, "bracket"))
	if err != nil {
		return nil, err
	}
	if bracketResult.Partial {
		warnings = append(warnings, fmt.Sprintf(
			"bracket simulation cancelled after %d/%d trials; probabilities are widened-CI estimates",
			bracketResult.TrialsCompleted, bracketResult.TrialsRequested))
	}

	predictions := make([]Prediction, len(current))
	for i, ts := range current {
		tr := bracketResult.Teams[ts.Team]
		predictions[i] = Prediction{
			Team:     ts.Team,
			Season:   seasonID,
			Strength: strengths[i],
			Round1:   tr.Round1Prob,
			Round2:   tr.Round2Prob,
			Round3:   tr.Round3Prob,
			Round4:   tr.Round4Prob,
			CupProb:  tr.CupProb,
			CupCILo:  tr.CupCILo,
			CupCIHi:  tr.CupCIHi,
			Partial:  bracketResult.Partial,
		}
	}

	p.progress("ensemble", "combining qualification gate and Cup calibration")
	predictions, err = p.ensemble.Combine(predictions, qualProbs)
	if err != nil {
		return nil, err
	}

	return &PipelineArtifact{
		GeneratedAt:  time.Now().UTC(),
		ModelVersion: ModelVersion,
		Season:       seasonID,
		Weights:      p.weightOptimizer.weights,
		Predictions:  predictions,
		Warnings:     warnings,
	}, nil
}
