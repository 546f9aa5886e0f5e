package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilebench/core/internal/boardmodel"
	"github.com/tilebench/core/internal/botpolicy"
	"github.com/tilebench/core/internal/leveltest"
)

func trivialLevel(t *testing.T) *boardmodel.Level {
	t.Helper()
	return leveltest.SingleLayer(t, 3, 1, 10, 6, 1, map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Plain("t1"),
		leveltest.P(1, 0): leveltest.Plain("t1"),
		leveltest.P(2, 0): leveltest.Plain("t1"),
	})
}

func TestRunEpisode_ClearsTrivialLevel(t *testing.T) {
	lvl := trivialLevel(t)
	result := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Optimal], 1, 1, true, nil)

	assert.Equal(t, OutcomeCleared, result.Outcome)
	assert.Equal(t, 3, result.MovesUsed)
	assert.Equal(t, 3, result.TilesCleared)
	assert.NotEmpty(t, result.Trace)
}

func TestRunEpisode_NoInternalErrorsAcrossArchetypes(t *testing.T) {
	lvl := trivialLevel(t)
	for _, a := range botpolicy.AllArchetypes() {
		result := RunEpisode(lvl, botpolicy.Profiles[a], 1, 42, false, nil)
		require.NotEqual(t, OutcomeInternalError, result.Outcome, "archetype %v", a)
	}
}

func TestRunEpisode_IsDeterministicForFixedSeeds(t *testing.T) {
	lvl := trivialLevel(t)
	a := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Average], 1, 7, true, nil)
	b := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Average], 1, 7, true, nil)

	assert.Equal(t, a.Outcome, b.Outcome)
	assert.Equal(t, a.MovesUsed, b.MovesUsed)
	assert.Equal(t, len(a.Trace), len(b.Trace))
	for i := range a.Trace {
		assert.Equal(t, a.Trace[i].Primary, b.Trace[i].Primary)
	}
}

func TestRun_ParallelAggregation(t *testing.T) {
	lvl := trivialLevel(t)
	cfg := Config{Iterations: 20, BaseSeed: 100, InitialStateSeed: 1}

	results, agg, err := Run(context.Background(), lvl, botpolicy.Profiles[botpolicy.Optimal], cfg)
	require.NoError(t, err)
	require.Len(t, results, 20)

	assert.Equal(t, 1.0, agg.ClearRate)
	assert.Equal(t, 0, agg.InternalErrors)
	assert.InDelta(t, 3.0, agg.AvgMoves, 1e-9)
	assert.Equal(t, 20, agg.Iterations)
}

func TestRunEpisode_ReportsFailReason(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{}
	for x, typ := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"} {
		tiles[leveltest.P(x, 0)] = leveltest.Plain(typ)
	}
	lvl := leveltest.SingleLayer(t, 7, 1, 20, 6, 2, tiles)

	result := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Optimal], 1, 1, false, nil)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, boardmodel.FailNoMoves, result.FailReason, "seven distinct singletons fill the dock, then strand it with no legal move")
}

func TestRunEpisode_TraceCarriesEffectSnapshots(t *testing.T) {
	lvl := trivialLevel(t)
	result := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Optimal], 1, 1, true, nil)

	require.NotEmpty(t, result.Trace)
	for _, rec := range result.Trace {
		require.NotNil(t, rec.Effects)
	}
}

func TestRun_EpisodesAreIndependentlySeeded(t *testing.T) {
	lvl := trivialLevel(t)
	cfg := Config{Iterations: 8, BaseSeed: 0, InitialStateSeed: 1}

	results, _, err := Run(context.Background(), lvl, botpolicy.Profiles[botpolicy.Average], cfg)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		want := RunEpisode(lvl, botpolicy.Profiles[botpolicy.Average], cfg.InitialStateSeed, cfg.BaseSeed+int64(i), false, nil)
		assert.Equal(t, want, r, "episode %d is seeded with BaseSeed+%d", i, i)
	}
}
