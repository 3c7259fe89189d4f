package outrights

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxReseedAttempts bounds how many times BracketSimulator tries to repair a
// malformed bracket (missing or duplicate seed assignments) before giving up
// with SeedingInfeasible, per spec.md §5.
const maxReseedAttempts = 50

// cancellationCheckInterval is how often (in trials) each worker polls
// ctx.Err(), balancing cancellation latency against the cost of a context
// check in the simulation hot loop.
const cancellationCheckInterval = 500

// BracketTeam is one of the 16 post-season-qualified teams entering
// BracketSimulator, carrying everything a series matchup needs: its
// division/conference grouping for bracket construction, its two
// within-group seed numbers, and the strength/experience differentials
// SeriesModel consumes.
type BracketTeam struct {
	Team       string
	Conference string
	Division   string

	// Seed is the team's rank (1-4, 1 best) within its Division, used to
	// pair Round-1 matchups under either bracket policy.
	Seed int
	// ConferenceSeed is the team's rank (1-8, 1 best) within its
	// Conference, used to re-pair Round-2 matchups under
	// BracketPolicyConferenceReseed.
	ConferenceSeed int

	Strength   float64
	Experience float64
}

// TeamTournamentResult is one team's simulated post-season outcome,
// aggregated across every completed Monte Carlo trial.
type TeamTournamentResult struct {
	Team string

	Round1Prob float64
	Round2Prob float64
	Round3Prob float64
	Round4Prob float64

	CupProb float64
	CupCILo float64
	CupCIHi float64
}

// BracketResult is the output of one BracketSimulator.Simulate call.
type BracketResult struct {
	Teams           map[string]TeamTournamentResult
	TrialsRequested int
	TrialsCompleted int
	// Partial is true when Simulate returned early due to context
	// cancellation; TrialsCompleted < TrialsRequested and the confidence
	// intervals in Teams are correspondingly wider.
	Partial bool
}

// BracketSimulator runs a Monte Carlo simulation of the post-season bracket:
// each of T trials draws every series outcome from SeriesModel and advances
// the winners round by round, accumulating each team's advancement and
// championship frequency. Grounded on the teacher's simulator.go (a
// sequential per-path Monte Carlo loop with no shared mutable state),
// split here across a worker pool over disjoint trial ranges, and
// generalized from single-match outcome simulation to a four-round
// elimination bracket.
type BracketSimulator struct {
	series  *SeriesModel
	policy  BracketPolicy
	workers int
}

// NewBracketSimulator returns a BracketSimulator using series to resolve
// individual matchups and policy to construct Round-2 pairings.
func NewBracketSimulator(series *SeriesModel, policy BracketPolicy) *BracketSimulator {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	return &BracketSimulator{series: series, policy: policy, workers: workers}
}

// splitSeed derives a child seed from base and salt via FNV-1a, giving
// BracketSimulator's per-worker PRNGs deterministic, well-separated streams
// from a single top-level seed (spec.md §5's seed-splitting contract).
func splitSeed(base int64, salt string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(base))
	h.Write(buf[:])
	h.Write([]byte(salt))
	return int64(h.Sum64())
}

type divisionGroup struct {
	conference string
	division   string
	teams      [4]BracketTeam // sorted ascending by Seed
}

type bracketPlan struct {
	conferences      [2]string
	divisionsByConf  map[string][2]divisionGroup
}

// buildBracketPlan validates and groups teams into the 2-conference,
// 2-division-per-conference, 4-team-per-division structure the simulator
// requires, repairing missing/duplicate seed numbers by re-deriving them
// from Strength order. Structural defects (wrong team/division/conference
// counts) are not repairable and fail immediately; seed-assignment defects
// are retried up to maxReseedAttempts times against successive repair
// strategies before SeedingInfeasible.
func buildBracketPlan(teams []BracketTeam) (*bracketPlan, error) {
	if len(teams) != 16 {
		return nil, newError(KindSeedingInfeasible,
			fmt.Sprintf("bracket requires exactly 16 qualified teams, got %d", len(teams)))
	}

	byConf := make(map[string]map[string][]BracketTeam)
	for _, t := range teams {
		if byConf[t.Conference] == nil {
			byConf[t.Conference] = make(map[string][]BracketTeam)
		}
		byConf[t.Conference][t.Division] = append(byConf[t.Conference][t.Division], t)
	}
	if len(byConf) != 2 {
		return nil, newError(KindSeedingInfeasible,
			fmt.Sprintf("bracket requires exactly 2 conferences, got %d", len(byConf)))
	}
	var confNames []string
	for c := range byConf {
		confNames = append(confNames, c)
	}
	sort.Strings(confNames)

	for _, c := range confNames {
		if len(byConf[c]) != 2 {
			return nil, newError(KindSeedingInfeasible,
				fmt.Sprintf("conference %q requires exactly 2 divisions, got %d", c, len(byConf[c])))
		}
		for d, ts := range byConf[c] {
			if len(ts) != 4 {
				return nil, newError(KindSeedingInfeasible,
					fmt.Sprintf("division %q requires exactly 4 teams, got %d", d, len(ts)))
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxReseedAttempts; attempt++ {
		plan := &bracketPlan{divisionsByConf: make(map[string][2]divisionGroup)}
		copy(plan.conferences[:], confNames)

		ok := true
		for _, c := range confNames {
			var divNames []string
			for d := range byConf[c] {
				divNames = append(divNames, d)
			}
			sort.Strings(divNames)

			var groups [2]divisionGroup
			for gi, d := range divNames {
				ts := append([]BracketTeam(nil), byConf[c][d]...)
				if attempt > 0 {
					// Repair strategy: re-derive division Seed from
					// Strength order (1 = strongest) rather than trusting
					// caller-supplied seeds.
					sort.Slice(ts, func(i, j int) bool { return ts[i].Strength > ts[j].Strength })
					for i := range ts {
						ts[i].Seed = i + 1
					}
				}
				sort.Slice(ts, func(i, j int) bool { return ts[i].Seed < ts[j].Seed })
				seen := map[int]bool{}
				for _, t := range ts {
					if t.Seed < 1 || t.Seed > 4 || seen[t.Seed] {
						ok = false
					}
					seen[t.Seed] = true
				}
				groups[gi] = divisionGroup{conference: c, division: d, teams: [4]BracketTeam(ts)}
			}
			plan.divisionsByConf[c] = groups
		}

		if attempt > 1 {
			// From the second repair attempt onward also re-derive
			// ConferenceSeed (needed only by the reseed policy) from
			// Strength order across the whole conference.
			for _, c := range confNames {
				groups := plan.divisionsByConf[c]
				var all []BracketTeam
				for _, g := range groups {
					all = append(all, g.teams[:]...)
				}
				sort.Slice(all, func(i, j int) bool { return all[i].Strength > all[j].Strength })
				rank := make(map[string]int, len(all))
				for i, t := range all {
					rank[t.Team] = i + 1
				}
				for gi, g := range groups {
					for ti, t := range g.teams {
						t.ConferenceSeed = rank[t.Team]
						g.teams[ti] = t
					}
					groups[gi] = g
				}
				plan.divisionsByConf[c] = groups
			}
		}

		if ok {
			return plan, nil
		}
		lastErr = newError(KindSeedingInfeasible, "bracket seed assignment invalid after repair attempt",
			"attempt", fmt.Sprintf("%d", attempt))
	}
	return nil, lastErr
}

// seriesWinner draws the outcome of a single series between a and b at the
// given round, returning the winner. Strength/experience differentials are
// computed from a's perspective; SeriesModel's fixed per-round base rate
// keeps the prediction anchored even when the two teams are evenly matched.
// The draw itself is a distuv.Bernoulli(pAWins) sourced from the worker's own
// rng, so the sequence of coin flips stays reproducible from the top-level
// seed.
func (bs *BracketSimulator) seriesWinner(rng *rand.Rand, a, b BracketTeam, round int) (BracketTeam, error) {
	pAWins, err := bs.series.PredictWinProb(a.Strength-b.Strength, a.Experience-b.Experience, round)
	if err != nil {
		return BracketTeam{}, err
	}
	draw := distuv.Bernoulli{P: pAWins, Src: rng}
	if draw.Rand() == 1 {
		return a, nil
	}
	return b, nil
}

type trialTally struct {
	round1, round2, round3, round4 map[string]int
	completed                      int
}

func newTrialTally() *trialTally {
	return &trialTally{
		round1: map[string]int{}, round2: map[string]int{},
		round3: map[string]int{}, round4: map[string]int{},
	}
}

func (bs *BracketSimulator) simulateOne(rng *rand.Rand, plan *bracketPlan, tally *trialTally) error {
	round2Pool := make(map[string][]BracketTeam, 2)

	for _, conf := range plan.conferences {
		groups := plan.divisionsByConf[conf]
		for _, g := range groups {
			w1, err := bs.seriesWinner(rng, g.teams[0], g.teams[3], 1)
			if err != nil {
				return err
			}
			w2, err := bs.seriesWinner(rng, g.teams[1], g.teams[2], 1)
			if err != nil {
				return err
			}
			tally.round1[w1.Team]++
			tally.round1[w2.Team]++

			if bs.policy == BracketPolicyDivisional {
				winner, err := bs.seriesWinner(rng, w1, w2, 2)
				if err != nil {
					return err
				}
				tally.round2[winner.Team]++
				round2Pool[conf] = append(round2Pool[conf], winner)
			} else {
				round2Pool[conf] = append(round2Pool[conf], w1, w2)
			}
		}

		if bs.policy == BracketPolicyConferenceReseed {
			pool := round2Pool[conf]
			sort.Slice(pool, func(i, j int) bool { return pool[i].ConferenceSeed < pool[j].ConferenceSeed })
			if len(pool) != 4 {
				return newError(KindSeedingInfeasible, "conference-reseed pool did not contain 4 teams")
			}
			w1, err := bs.seriesWinner(rng, pool[0], pool[3], 2)
			if err != nil {
				return err
			}
			w2, err := bs.seriesWinner(rng, pool[1], pool[2], 2)
			if err != nil {
				return err
			}
			tally.round2[w1.Team]++
			tally.round2[w2.Team]++
			round2Pool[conf] = []BracketTeam{w1, w2}
		}
	}

	var conferenceChamps []BracketTeam
	for _, conf := range plan.conferences {
		finalists := round2Pool[conf]
		if len(finalists) != 2 {
			return newError(KindSeedingInfeasible, "conference final did not have exactly 2 finalists")
		}
		champ, err := bs.seriesWinner(rng, finalists[0], finalists[1], 3)
		if err != nil {
			return err
		}
		tally.round3[champ.Team]++
		conferenceChamps = append(conferenceChamps, champ)
	}

	cupWinner, err := bs.seriesWinner(rng, conferenceChamps[0], conferenceChamps[1], 4)
	if err != nil {
		return err
	}
	tally.round4[cupWinner.Team]++
	tally.completed++
	return nil
}

// confidenceInterval90 returns the 90% normal-approximation confidence
// interval for a binomial proportion p estimated from n trials, per
// spec.md §5: p ± 1.645·sqrt(p(1-p)/n).
func confidenceInterval90(p float64, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	margin := 1.645 * math.Sqrt(p*(1-p)/float64(n))
	return clamp(p-margin, 0, 1), clamp(p+margin, 0, 1)
}

// Simulate runs trials Monte Carlo replications of the post-season bracket
// formed from teams, using seed as the top-level PRNG seed for this
// component. Work is split into disjoint trial ranges across a fixed
// worker pool; each worker owns an independently-seeded *rand.Rand and
// writes only to its own tally, so no locking is needed during simulation.
// ctx is polled roughly every cancellationCheckInterval trials per worker;
// on cancellation, Simulate returns a partial BracketResult (Partial=true)
// computed from whatever trials completed, rather than an error.
func (bs *BracketSimulator) Simulate(ctx context.Context, teams []BracketTeam, trials int, seed int64) (*BracketResult, error) {
	if trials < 1 {
		return nil, newError(KindMalformedData, "trials must be >= 1")
	}
	plan, err := buildBracketPlan(teams)
	if err != nil {
		return nil, err
	}

	workers := bs.workers
	if workers > trials {
		workers = trials
	}
	chunk := trials / workers
	remainder := trials % workers

	tallies := make([]*trialTally, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		n := chunk
		if w < remainder {
			n++
		}
		workerSeed := splitSeed(seed, fmt.Sprintf("bracket-worker-%d", w))
		wg.Add(1)
		go func(workerIdx, trialCount int, workerSeed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(uint64(workerSeed)))
			tally := newTrialTally()
			tallies[workerIdx] = tally
			for i := 0; i < trialCount; i++ {
				if i%cancellationCheckInterval == 0 && ctx.Err() != nil {
					return
				}
				if err := bs.simulateOne(rng, plan, tally); err != nil {
					return
				}
			}
		}(w, n, workerSeed)
	}
	wg.Wait()

	merged := newTrialTally()
	for _, t := range tallies {
		if t == nil {
			continue
		}
		merged.completed += t.completed
		for k, v := range t.round1 {
			merged.round1[k] += v
		}
		for k, v := range t.round2 {
			merged.round2[k] += v
		}
		for k, v := range t.round3 {
			merged.round3[k] += v
		}
		for k, v := range t.round4 {
			merged.round4[k] += v
		}
	}

	result := &BracketResult{
		Teams:           make(map[string]TeamTournamentResult, len(teams)),
		TrialsRequested: trials,
		TrialsCompleted: merged.completed,
		Partial:         merged.completed < trials,
	}
	n := merged.completed
	for _, t := range teams {
		cupProb := 0.0
		if n > 0 {
			cupProb = float64(merged.round4[t.Team]) / float64(n)
		}
		lo, hi := confidenceInterval90(cupProb, n)
		tr := TeamTournamentResult{
			Team:    t.Team,
			CupProb: cupProb,
			CupCILo: lo,
			CupCIHi: hi,
		}
		if n > 0 {
			tr.Round1Prob = float64(merged.round1[t.Team]) / float64(n)
			tr.Round2Prob = float64(merged.round2[t.Team]) / float64(n)
			tr.Round3Prob = float64(merged.round3[t.Team]) / float64(n)
			tr.Round4Prob = cupProb
		}
		result.Teams[t.Team] = tr
	}
	return result, nil
}
