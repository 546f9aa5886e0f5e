// Package simulator runs N independent episodes of a single
// (Level, Profile) pair and aggregates the results: an errgroup-managed
// worker pool, one independent RNG per episode, results written into a
// pre-sized slice by index so ordering survives concurrency.
package simulator

import (
	"context"
	"io"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tilebench/core/internal/boardmodel"
	"github.com/tilebench/core/internal/botpolicy"
	"github.com/tilebench/core/internal/rules"
	"github.com/tilebench/core/internal/simstats"
)

// Outcome classifies how an episode ended.
type Outcome int

const (
	OutcomeCleared Outcome = iota
	OutcomeFailed
	OutcomeInternalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleared:
		return "cleared"
	case OutcomeFailed:
		return "failed"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// EpisodeResult is one episode's outcome record.
type EpisodeResult struct {
	Outcome           Outcome
	FailReason        boardmodel.FailReason // FailNone unless Outcome is OutcomeFailed
	MovesUsed         int
	TilesCleared      int
	ComboCount        int
	FinalGoalCounters map[string]int
	Trace             []*rules.MoveRecord
	Err               error // set only when Outcome == OutcomeInternalError
}

// Config controls one simulation batch.
type Config struct {
	Iterations       int
	BaseSeed         int64
	InitialStateSeed int64
	RecordTrace      bool
	Logger           *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// RunEpisode plays level to completion with profile and returns its
// outcome. The episode's behavior RNG is seeded independently of
// initialStateSeed, so identical initial tiles across bots in one
// assessment never leak into identical bot behavior.
func RunEpisode(level *boardmodel.Level, profile botpolicy.Profile, initialStateSeed, behaviorSeed int64, recordTrace bool, logger *log.Logger) EpisodeResult {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	}
	s := boardmodel.NewSimulationState(level, initialStateSeed)
	behaviorRNG := boardmodel.NewRNG(behaviorSeed)

	rules.CheckTerminal(s)

	var trace []*rules.MoveRecord
	for !s.Cleared && !s.Failed {
		moves := rules.LegalMoves(s)
		if len(moves) == 0 {
			logger.Debug("no legal moves but state not yet terminal; forcing terminal check", "moves_used", s.MovesUsed)
			rules.CheckTerminal(s)
			break
		}

		mv := botpolicy.SelectMove(s, moves, profile, behaviorRNG)
		rec, err := rules.ApplyMove(s, mv)
		if err != nil {
			logger.Error("internal invariant violation applying move", "error", err, "moves_used", s.MovesUsed)
			return EpisodeResult{
				Outcome:           OutcomeInternalError,
				MovesUsed:         s.MovesUsed,
				TilesCleared:      s.TilesClearedCount,
				ComboCount:        s.ComboCount,
				FinalGoalCounters: copyGoals(s.GoalsRemaining),
				Err:               err,
			}
		}
		if recordTrace {
			rec.Effects = rules.SnapshotEffects(s)
			trace = append(trace, rec)
		}
	}

	outcome := OutcomeFailed
	if s.Cleared {
		outcome = OutcomeCleared
	}
	logger.Debug("episode terminated", "outcome", outcome.String(), "moves_used", s.MovesUsed)

	return EpisodeResult{
		Outcome:           outcome,
		FailReason:        s.FailCause,
		MovesUsed:         s.MovesUsed,
		TilesCleared:      s.TilesClearedCount,
		ComboCount:        s.ComboCount,
		FinalGoalCounters: copyGoals(s.GoalsRemaining),
		Trace:             trace,
	}
}

func copyGoals(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AggregateResult summarizes one batch of episodes.
type AggregateResult struct {
	ClearRate       float64
	AvgMoves        float64
	MinMoves        float64
	MaxMoves        float64
	StdMoves        float64
	AvgCombo        float64
	AvgTilesCleared float64
	Iterations      int
	InternalErrors  int
}

// Run executes cfg.Iterations independent episodes of (level, profile) in
// parallel and returns both the per-episode results (canonical order: by
// episode index, regardless of goroutine completion order) and their
// aggregate. No shared mutable state crosses workers: each episode owns
// its SimulationState and RNG.
func Run(ctx context.Context, level *boardmodel.Level, profile botpolicy.Profile, cfg Config) ([]EpisodeResult, AggregateResult, error) {
	logger := cfg.logger()
	results := make([]EpisodeResult, cfg.Iterations)

	g, _ := errgroup.WithContext(ctx)
	workers := runtime.NumCPU()
	if workers > cfg.Iterations {
		workers = cfg.Iterations
	}
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < cfg.Iterations; i++ {
		i := i
		g.Go(func() error {
			behaviorSeed := cfg.BaseSeed + int64(i)
			results[i] = RunEpisode(level, profile, cfg.InitialStateSeed, behaviorSeed, cfg.RecordTrace, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, AggregateResult{}, err
	}

	return results, aggregate(results), nil
}

func aggregate(results []EpisodeResult) AggregateResult {
	var moves, combos, tilesCleared []float64
	cleared := 0
	internalErrors := 0
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCleared:
			cleared++
		case OutcomeInternalError:
			internalErrors++
			continue
		}
		moves = append(moves, float64(r.MovesUsed))
		combos = append(combos, float64(r.ComboCount))
		tilesCleared = append(tilesCleared, float64(r.TilesCleared))
	}

	scored := len(results) - internalErrors
	movesSummary := simstats.Summarize(moves)
	comboSummary := simstats.Summarize(combos)
	tilesSummary := simstats.Summarize(tilesCleared)

	return AggregateResult{
		ClearRate:       simstats.Rate(cleared, scored),
		AvgMoves:        movesSummary.Mean,
		MinMoves:        movesSummary.Min,
		MaxMoves:        movesSummary.Max,
		StdMoves:        movesSummary.StdDev,
		AvgCombo:        comboSummary.Mean,
		AvgTilesCleared: tilesSummary.Mean,
		Iterations:      len(results),
		InternalErrors:  internalErrors,
	}
}
