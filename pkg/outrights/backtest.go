package outrights

import (
	"context"
	"math"
	"sort"
)

// backtestTopKs are the recall cutoffs reported per spec.md §4.7.
var backtestTopKs = []int{1, 3, 5, 8, 10}

// calibrationBins is the number of equal-width probability bins used to
// compute the expected calibration error.
const calibrationBins = 10

// SeasonResult is the scored outcome of refitting the pipeline with one
// season held out and predicting that season.
type SeasonResult struct {
	Season           string
	BrierScore       float64
	LogLoss          float64
	CalibrationError float64
	TopKRecall       map[int]float64
	WinnerRank       int
	Warnings         []string
}

// Summary aggregates SeasonResults across every held-out season by simple
// mean.
type Summary struct {
	BrierScore       float64
	LogLoss          float64
	CalibrationError float64
	TopKRecall       map[int]float64
	MeanWinnerRank   float64
	MedianWinnerRank float64
}

// BacktestReport is the full leave-one-season-out evaluation, referenced
// from PipelineArtifact.
type BacktestReport struct {
	PerSeason []SeasonResult
	Aggregate Summary
}

// heldOutLoader adapts a fixed in-memory training corpus into a DataLoader
// that excludes one season from LoadTraining and serves that season
// (labels stripped) from LoadCurrent, letting Backtester reuse Pipeline
// unmodified for each fold.
type heldOutLoader struct {
	all     []TeamSeason
	exclude string
}

func (h *heldOutLoader) LoadTraining(ctx context.Context) ([]TeamSeason, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "context cancelled before loading backtest training fold")
	}
	var out []TeamSeason
	for _, ts := range h.all {
		if ts.Season == h.exclude {
			continue
		}
		out = append(out, ts)
	}
	if len(out) == 0 {
		return nil, newError(KindInsufficientData, "no training data remains after excluding season", "season", h.exclude)
	}
	return out, nil
}

func (h *heldOutLoader) LoadCurrent(ctx context.Context, seasonID string) ([]TeamSeason, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "context cancelled before loading backtest current fold")
	}
	var out []TeamSeason
	for _, ts := range h.all {
		if ts.Season != seasonID {
			continue
		}
		cp := ts
		cp.Labels = nil
		out = append(out, cp)
	}
	if len(out) == 0 {
		return nil, newError(KindMissingData, "season has no data", "season", seasonID)
	}
	return out, nil
}

// Backtester runs leave-one-season-out evaluation of the full pipeline,
// refitting from scratch for every held-out season so no information from a
// season leaks into its own prediction. Grounded on the teacher's
// validation.go harness structure (iterate over a fixed corpus, aggregate
// per-item diagnostics into one report) generalized from per-record field
// validation to per-season predictive backtesting.
type Backtester struct {
	config   Config
	aliases  *AliasTable
	progress ProgressFunc
}

// NewBacktester returns a Backtester that will fit cfg-configured Pipelines.
func NewBacktester(cfg Config, aliases *AliasTable, progress ProgressFunc) *Backtester {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	if progress == nil {
		progress = func(string, string) {}
	}
	return &Backtester{config: cfg, aliases: aliases, progress: progress}
}

// Run evaluates every season present in source with Labels set, skipping
// any season whose fold fails with an InsufficientData or SeedingInfeasible
// error; any other fold error aborts the run.
func (b *Backtester) Run(ctx context.Context, source []TeamSeason) (*BacktestReport, error) {
	seasons := make(map[string]bool)
	for _, ts := range source {
		if ts.Labels != nil {
			seasons[ts.Season] = true
		}
	}
	if len(seasons) < 2 {
		return nil, newError(KindInsufficientData, "backtesting requires at least 2 labeled seasons")
	}
	seasonIDs := make([]string, 0, len(seasons))
	for s := range seasons {
		seasonIDs = append(seasonIDs, s)
	}
	sort.Strings(seasonIDs)

	report := &BacktestReport{Aggregate: Summary{TopKRecall: map[int]float64{}}}
	for _, season := range seasonIDs {
		b.progress("backtest", "holding out season "+season)
		result, err := b.runFold(ctx, source, season)
		if err != nil {
			if IsKind(err, KindInsufficientData) || IsKind(err, KindSeedingInfeasible) {
				continue
			}
			return nil, err
		}
		report.PerSeason = append(report.PerSeason, *result)
	}
	if len(report.PerSeason) == 0 {
		return nil, newError(KindInsufficientData, "no season could be scored during backtesting")
	}
	report.Aggregate = aggregateSeasonResults(report.PerSeason)
	return report, nil
}

func (b *Backtester) runFold(ctx context.Context, source []TeamSeason, season string) (*SeasonResult, error) {
	loader := &heldOutLoader{all: source, exclude: season}
	pipeline, err := NewPipeline(b.config, loader, b.aliases, nil)
	if err != nil {
		return nil, err
	}
	if _, err := pipeline.Fit(ctx); err != nil {
		return nil, err
	}
	artifact, err := pipeline.Predict(ctx, season)
	if err != nil {
		return nil, err
	}

	actual := make(map[string]TeamSeason, len(source))
	for _, ts := range source {
		if ts.Season == season {
			actual[ts.Team] = ts
		}
	}

	return scoreSeasonPredictions(season, artifact.Predictions, actual)
}

func scoreSeasonPredictions(season string, preds []Prediction, actual map[string]TeamSeason) (*SeasonResult, error) {
	n := len(preds)
	if n == 0 {
		return nil, newError(KindInsufficientData, "no predictions to score", "season", season)
	}

	var brier, logLoss float64
	var championTeam string
	for _, p := range preds {
		ts, ok := actual[p.Team]
		if !ok || ts.Labels == nil {
			return nil, newError(KindMissingData, "no historical label for predicted team", "team", p.Team, "season", season)
		}
		y := 0.0
		if ts.Labels.Qualified {
			y = 1.0
		}
		brier += (p.PlayoffProb - y) * (p.PlayoffProb - y)
		pc := clamp(p.PlayoffProb, 1e-9, 1-1e-9)
		logLoss -= y*math.Log(pc) + (1-y)*math.Log(1-pc)
		if ts.Labels.WonCup {
			championTeam = p.Team
		}
	}
	brier /= float64(n)
	logLoss /= float64(n)

	calErr := calibrationError(preds, actual)

	ranked := append([]Prediction(nil), preds...)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].CupProb > ranked[j].CupProb })
	winnerRank := n
	for i, p := range ranked {
		if p.Team == championTeam {
			winnerRank = i + 1
			break
		}
	}

	topK := map[int]float64{}
	for _, k := range backtestTopKs {
		limit := k
		if limit > n {
			limit = n
		}
		hit := 0.0
		for _, p := range ranked[:limit] {
			if p.Team == championTeam {
				hit = 1.0
				break
			}
		}
		topK[k] = hit
	}

	return &SeasonResult{
		Season:           season,
		BrierScore:       brier,
		LogLoss:          logLoss,
		CalibrationError: calErr,
		TopKRecall:       topK,
		WinnerRank:       winnerRank,
	}, nil
}

// calibrationError bins predictions by PlayoffProb into calibrationBins
// equal-width buckets and returns the bucket-size-weighted mean absolute gap
// between each bucket's average predicted probability and its observed
// qualification rate.
func calibrationError(preds []Prediction, actual map[string]TeamSeason) float64 {
	type bucket struct {
		sumPred, sumActual float64
		count              int
	}
	buckets := make([]bucket, calibrationBins)
	for _, p := range preds {
		ts, ok := actual[p.Team]
		if !ok || ts.Labels == nil {
			continue
		}
		idx := int(p.PlayoffProb * float64(calibrationBins))
		if idx >= calibrationBins {
			idx = calibrationBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		y := 0.0
		if ts.Labels.Qualified {
			y = 1.0
		}
		buckets[idx].sumPred += p.PlayoffProb
		buckets[idx].sumActual += y
		buckets[idx].count++
	}
	total := len(preds)
	if total == 0 {
		return 0
	}
	var ece float64
	for _, b := range buckets {
		if b.count == 0 {
			continue
		}
		avgPred := b.sumPred / float64(b.count)
		avgActual := b.sumActual / float64(b.count)
		weight := float64(b.count) / float64(total)
		ece += weight * math.Abs(avgPred-avgActual)
	}
	return ece
}

func aggregateSeasonResults(results []SeasonResult) Summary {
	n := float64(len(results))
	summary := Summary{TopKRecall: map[int]float64{}}
	ranks := make([]int, 0, len(results))
	for _, r := range results {
		summary.BrierScore += r.BrierScore / n
		summary.LogLoss += r.LogLoss / n
		summary.CalibrationError += r.CalibrationError / n
		summary.MeanWinnerRank += float64(r.WinnerRank) / n
		ranks = append(ranks, r.WinnerRank)
		for _, k := range backtestTopKs {
			summary.TopKRecall[k] += r.TopKRecall[k] / n
		}
	}
	sort.Ints(ranks)
	summary.MedianWinnerRank = medianOfInts(ranks)
	return summary
}

func medianOfInts(xs []int) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(xs[n/2])
	}
	return float64(xs[n/2-1]+xs[n/2]) / 2.0
}
