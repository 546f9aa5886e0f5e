// Package assessor runs a team of bot archetypes over a level and turns
// their simulated play into a single difficulty verdict: one
// simulator.Run per archetype, run concurrently, merged onto a single
// channel with channerics so the aggregation step never has to know how
// many producers there were.
package assessor

import (
	"context"
	"math"
	"sort"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/rs/zerolog"

	"github.com/tilebench/core/internal/boardmodel"
	"github.com/tilebench/core/internal/botpolicy"
	"github.com/tilebench/core/internal/simstats"
	"github.com/tilebench/core/internal/simulator"
)

// Grade is the five-tier difficulty letter.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// TeamConfig controls one multi-bot assessment.
type TeamConfig struct {
	Archetypes       []botpolicy.Archetype
	IterationsPerBot int
	BaseSeed         int64
	InitialStateSeed int64
	MaxMoves         int

	// TargetDifficulty, when non-nil, requests a match-score evaluation
	// against the target clear-rate curve for that difficulty in [0,1].
	TargetDifficulty *float64

	Logger *zerolog.Logger
}

func (c TeamConfig) logger() zerolog.Logger {
	if c.Logger != nil {
		return c.Logger.With().Logger()
	}
	return zerolog.Nop()
}

// BotResult is one archetype's aggregated simulation plus its per-bot
// difficulty contribution.
type BotResult struct {
	Archetype  botpolicy.Archetype
	Aggregate  simulator.AggregateResult
	Difficulty float64
}

// Result is the full multi-bot assessment: per-bot records, the combined
// difficulty verdict, audience/balance diagnostics, and, when a target
// difficulty was requested, the gap against its clear-rate curve.
type Result struct {
	BotResults        []BotResult
	OverallDifficulty float64
	Grade             Grade
	TargetAudience    botpolicy.Archetype
	BalanceScore      float64
	Recommendations   []string
	RecommendedMoves  int

	// Set only when TeamConfig.TargetDifficulty was provided.
	TargetClearRates map[botpolicy.Archetype]float64
	MatchScore       float64
	AvgGap           float64
	MaxGap           float64
}

// Assess runs cfg's team of archetypes against level and produces the
// combined difficulty verdict. Each archetype's episodes run under
// simulator.Run concurrently; results are fanned in with channerics so
// aggregation never blocks on the slowest-to-start producer.
func Assess(ctx context.Context, level *boardmodel.Level, cfg TeamConfig) (Result, error) {
	archetypes := cfg.Archetypes
	if len(archetypes) == 0 {
		archetypes = botpolicy.DefaultTeam()
	}
	maxMoves := cfg.MaxMoves
	if maxMoves <= 0 {
		maxMoves = level.MaxMoves
	}

	done := make(chan struct{})
	defer close(done)

	type producer = <-chan BotResult
	workers := make([]producer, 0, len(archetypes))
	for i, a := range archetypes {
		workers = append(workers, runArchetype(ctx, level, a, cfg, int64(i), maxMoves, done))
	}

	merged := channerics.Merge(done, workers...)

	results := make([]BotResult, 0, len(archetypes))
	for br := range merged {
		results = append(results, br)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Archetype < results[j].Archetype })

	overall := weightedDifficulty(results)
	res := Result{
		BotResults:        results,
		OverallDifficulty: overall,
		Grade:             scoreToGrade(overall),
		TargetAudience:    TargetAudience(results),
		BalanceScore:      BalanceScore(results),
		Recommendations:   Recommendations(results),
		RecommendedMoves:  RecommendedMoves(results, maxMoves),
	}

	if cfg.TargetDifficulty != nil {
		curve := TargetClearRates(*cfg.TargetDifficulty, cfg.Logger)
		actual := make(map[botpolicy.Archetype]float64, len(results))
		res.TargetClearRates = make(map[botpolicy.Archetype]float64, len(results))
		for _, r := range results {
			actual[r.Archetype] = r.Aggregate.ClearRate
			res.TargetClearRates[r.Archetype] = curve[r.Archetype]
		}
		res.MatchScore, res.AvgGap, res.MaxGap = MatchScore(actual, res.TargetClearRates)
	}

	return res, nil
}

func runArchetype(ctx context.Context, level *boardmodel.Level, a botpolicy.Archetype, cfg TeamConfig, idx int64, maxMoves int, done <-chan struct{}) <-chan BotResult {
	out := make(chan BotResult, 1)
	go func() {
		defer close(out)
		simCfg := simulator.Config{
			Iterations:       cfg.IterationsPerBot,
			BaseSeed:         cfg.BaseSeed + idx*int64(cfg.IterationsPerBot+1),
			InitialStateSeed: cfg.InitialStateSeed,
		}
		_, agg, err := simulator.Run(ctx, level, botpolicy.Profiles[a], simCfg)
		if err != nil {
			lg := cfg.logger()
			lg.Error().Err(err).Str("archetype", a.String()).Msg("simulation batch failed")
			return
		}
		br := BotResult{
			Archetype:  a,
			Aggregate:  agg,
			Difficulty: botDifficulty(agg, maxMoves),
		}
		select {
		case out <- br:
		case <-done:
		}
	}()
	return out
}

// botDifficulty blends failure rate, move-budget consumption, and
// variance into one per-bot score:
// 60*(1-clearRate) + 30*min(1, avgMoves/maxMoves) + 10*min(1, stdMoves/10).
func botDifficulty(agg simulator.AggregateResult, maxMoves int) float64 {
	clearDifficulty := (1 - agg.ClearRate) * 60
	moveFactor := 1.0
	if maxMoves > 0 {
		moveFactor = agg.AvgMoves / float64(maxMoves)
	}
	moveDifficulty := math.Min(1, moveFactor) * 30
	varianceDifficulty := math.Min(1, agg.StdMoves/10) * 10
	return math.Min(100, clearDifficulty+moveDifficulty+varianceDifficulty)
}

// weightedDifficulty averages per-bot difficulty by Profile.Weight.
func weightedDifficulty(results []BotResult) float64 {
	var totalWeight, weighted float64
	for _, r := range results {
		w := botpolicy.Profiles[r.Archetype].Weight
		weighted += r.Difficulty * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 50
	}
	return weighted / totalWeight
}

func scoreToGrade(score float64) Grade {
	switch {
	case score <= 20:
		return GradeS
	case score <= 40:
		return GradeA
	case score <= 60:
		return GradeB
	case score <= 80:
		return GradeC
	default:
		return GradeD
	}
}

func findBot(results []BotResult, a botpolicy.Archetype) (BotResult, bool) {
	for _, r := range results {
		if r.Archetype == a {
			return r, true
		}
	}
	return BotResult{}, false
}

// TargetAudience returns the archetype whose clear rate is closest to
// 0.70, the sweet spot between frustration and boredom.
func TargetAudience(results []BotResult) botpolicy.Archetype {
	const target = 0.70
	best := botpolicy.Average
	bestDiff := math.Inf(1)
	for _, r := range results {
		diff := math.Abs(r.Aggregate.ClearRate - target)
		if diff < bestDiff {
			bestDiff = diff
			best = r.Archetype
		}
	}
	return best
}

// idealClearRates is the per-archetype curve a well-balanced level
// tracks.
var idealClearRates = map[botpolicy.Archetype]float64{
	botpolicy.Novice:  0.40,
	botpolicy.Casual:  0.60,
	botpolicy.Average: 0.75,
	botpolicy.Expert:  0.90,
	botpolicy.Optimal: 0.98,
}

// BalanceScore reports how close results track the ideal per-archetype
// clear-rate curve, in [0,1]; 1.0 is perfectly balanced.
func BalanceScore(results []BotResult) float64 {
	if len(results) < 2 {
		return 1.0
	}
	var totalDeviation float64
	for _, r := range results {
		ideal, ok := idealClearRates[r.Archetype]
		if !ok {
			ideal = 0.70
		}
		totalDeviation += math.Abs(r.Aggregate.ClearRate - ideal)
	}
	avgDeviation := totalDeviation / float64(len(results))
	score := 1 - avgDeviation*2
	if score < 0 {
		score = 0
	}
	return score
}

// Recommendations produces textual diagnostics from fixed thresholds on
// the per-archetype clear rates.
func Recommendations(results []BotResult) []string {
	var recs []string

	if expert, ok := findBot(results, botpolicy.Expert); ok && expert.Aggregate.ClearRate > 0.95 {
		recs = append(recs, "too easy for experts")
	}
	if casual, ok := findBot(results, botpolicy.Casual); ok && casual.Aggregate.ClearRate < 0.3 {
		recs = append(recs, "too hard for casual")
	}
	novice, noviceOK := findBot(results, botpolicy.Novice)
	average, averageOK := findBot(results, botpolicy.Average)
	if noviceOK && averageOK {
		if gap := average.Aggregate.ClearRate - novice.Aggregate.ClearRate; gap > 0.5 {
			recs = append(recs, "novice/average gap")
		}
	}
	if expert, okE := findBot(results, botpolicy.Expert); okE {
		if casual, okC := findBot(results, botpolicy.Casual); okC {
			if gap := expert.Aggregate.ClearRate - casual.Aggregate.ClearRate; gap > 0.4 {
				recs = append(recs, "skill gap")
			}
		}
	}

	return recs
}

// RecommendedMoves derives a suggested move budget from the Average
// bot's clear rate: tighten when the level is a walkover, loosen when it
// stonewalls.
func RecommendedMoves(results []BotResult, maxMoves int) int {
	average, ok := findBot(results, botpolicy.Average)
	if !ok {
		if len(results) == 0 {
			return maxMoves
		}
		var sum float64
		for _, r := range results {
			sum += r.Aggregate.AvgMoves
		}
		return int(sum / float64(len(results)))
	}

	switch {
	case average.Aggregate.ClearRate > 0.8:
		v := int(average.Aggregate.AvgMoves * 0.9)
		if v < 15 {
			v = 15
		}
		return v
	case average.Aggregate.ClearRate < 0.6:
		v := int(average.Aggregate.AvgMoves * 1.2)
		if v > 50 {
			v = 50
		}
		return v
	default:
		return int(average.Aggregate.AvgMoves)
	}
}

// TargetClearRates maps a requested difficulty in [0,1] to a
// per-archetype clear-rate curve via piecewise easy/medium/hard
// interpolation. Rates are clamped to [0.01, 0.99]; clamping is logged
// at warn level when a logger is provided.
func TargetClearRates(targetDifficulty float64, logger *zerolog.Logger) map[botpolicy.Archetype]float64 {
	rates := rawTargetClearRates(targetDifficulty)
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Logger()
	}
	for a, v := range rates {
		clamped := math.Max(0.01, math.Min(0.99, v))
		if clamped != v {
			log.Warn().Str("archetype", a.String()).Float64("raw", v).Float64("clamped", clamped).Msg("target clear rate clamped")
		}
		rates[a] = clamped
	}
	return rates
}

func rawTargetClearRates(d float64) map[botpolicy.Archetype]float64 {
	switch {
	case d <= 0.4:
		t := d / 0.4
		return map[botpolicy.Archetype]float64{
			botpolicy.Novice:  0.99 - t*0.20,
			botpolicy.Casual:  0.99 - t*0.15,
			botpolicy.Average: 0.99 - t*0.10,
			botpolicy.Expert:  0.99 - t*0.05,
			botpolicy.Optimal: 0.99 - t*0.01,
		}
	case d <= 0.6:
		t := (d - 0.4) / 0.2
		start := map[botpolicy.Archetype]float64{
			botpolicy.Novice: 0.79, botpolicy.Casual: 0.84, botpolicy.Average: 0.89,
			botpolicy.Expert: 0.94, botpolicy.Optimal: 0.98,
		}
		end := map[botpolicy.Archetype]float64{
			botpolicy.Novice: 0.55, botpolicy.Casual: 0.70, botpolicy.Average: 0.82,
			botpolicy.Expert: 0.92, botpolicy.Optimal: 0.98,
		}
		return lerpRates(start, end, t)
	default:
		t := (d - 0.6) / 0.4
		start := map[botpolicy.Archetype]float64{
			botpolicy.Novice: 0.55, botpolicy.Casual: 0.70, botpolicy.Average: 0.82,
			botpolicy.Expert: 0.92, botpolicy.Optimal: 0.98,
		}
		end := map[botpolicy.Archetype]float64{
			botpolicy.Novice: 0.10, botpolicy.Casual: 0.25, botpolicy.Average: 0.50,
			botpolicy.Expert: 0.75, botpolicy.Optimal: 0.88,
		}
		return lerpRates(start, end, t)
	}
}

func lerpRates(start, end map[botpolicy.Archetype]float64, t float64) map[botpolicy.Archetype]float64 {
	out := make(map[botpolicy.Archetype]float64, len(start))
	for a, s := range start {
		e := end[a]
		out[a] = s - t*(s-e)
	}
	return out
}

// MatchScore compares actual clear rates against a target curve,
// returning the scalar match score plus the average and maximum
// per-archetype gap, each in percentage points.
func MatchScore(actual, target map[botpolicy.Archetype]float64) (score, avgGap, maxGap float64) {
	if len(target) == 0 {
		return 100, 0, 0
	}
	var gaps []float64
	for a, t := range target {
		gap := math.Abs(actual[a]-t) * 100
		gaps = append(gaps, gap)
	}
	sum := simstats.Summarize(gaps)
	avgGap = sum.Mean
	maxGap = sum.Max
	weightedGap := avgGap*0.6 + maxGap*0.4
	score = math.Max(0, 100-weightedGap*2)
	return score, avgGap, maxGap
}
