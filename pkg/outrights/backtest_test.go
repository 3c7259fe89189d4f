package outrights

import (
	"context"
	"testing"
)

func backtestFixture() []TeamSeason {
	var all []TeamSeason
	all = append(all, synthSeason("2020-21", [2]string{"TOR", "DAL"}, "DAL")...)
	all = append(all, synthSeason("2021-22", [2]string{"FLA", "VGK"}, "VGK")...)
	all = append(all, synthSeason("2022-23", [2]string{"BOS", "COL"}, "BOS")...)
	return all
}

func TestBacktesterRunProducesPerSeasonResults(t *testing.T) {
	source := backtestFixture()
	bt := NewBacktester(testConfig(), nil, nil)

	report, err := bt.Run(context.Background(), source)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.PerSeason) != 3 {
		t.Errorf("expected 3 scored seasons, got %d", len(report.PerSeason))
	}
	for _, r := range report.PerSeason {
		if r.BrierScore < 0 || r.BrierScore > 1 {
			t.Errorf("season %s: BrierScore out of [0,1]: %v", r.Season, r.BrierScore)
		}
		if r.WinnerRank < 1 || r.WinnerRank > 16 {
			t.Errorf("season %s: WinnerRank out of [1,16]: %v", r.Season, r.WinnerRank)
		}
	}
}

func TestBacktesterRunRejectsFewerThanTwoSeasons(t *testing.T) {
	source := synthSeason("2020-21", [2]string{"TOR", "DAL"}, "DAL")
	bt := NewBacktester(testConfig(), nil, nil)
	if _, err := bt.Run(context.Background(), source); err == nil {
		t.Error("expected an error backtesting with fewer than 2 labeled seasons")
	}
}

func TestAggregateSeasonResultsAveragesAcrossSeasons(t *testing.T) {
	results := []SeasonResult{
		{Season: "a", BrierScore: 0.1, WinnerRank: 1, TopKRecall: map[int]float64{1: 1}},
		{Season: "b", BrierScore: 0.3, WinnerRank: 3, TopKRecall: map[int]float64{1: 0}},
	}
	summary := aggregateSeasonResults(results)
	if summary.BrierScore < 0.19 || summary.BrierScore > 0.21 {
		t.Errorf("BrierScore average = %v, want ~0.2", summary.BrierScore)
	}
	if summary.MedianWinnerRank != 2 {
		t.Errorf("MedianWinnerRank = %v, want 2", summary.MedianWinnerRank)
	}
}

func TestMedianOfIntsEvenAndOdd(t *testing.T) {
	if got := medianOfInts([]int{1, 2, 3}); got != 2 {
		t.Errorf("median of [1,2,3] = %v, want 2", got)
	}
	if got := medianOfInts([]int{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("median of [1,2,3,4] = %v, want 2.5", got)
	}
	if got := medianOfInts(nil); got != 0 {
		t.Errorf("median of empty slice = %v, want 0", got)
	}
}
