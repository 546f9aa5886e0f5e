package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilebench/core/internal/boardmodel"
	"github.com/tilebench/core/internal/leveltest"
	"github.com/tilebench/core/internal/rules"
)

func moveFor(t *testing.T, moves []rules.Move, layer int, pos boardmodel.Pos) rules.Move {
	t.Helper()
	for _, mv := range moves {
		if mv.Primary.Layer == layer && mv.Primary.Pos == pos {
			return mv
		}
	}
	require.FailNowf(t, "move not found", "layer=%d pos=%v", layer, pos)
	return rules.Move{}
}

// TestAccessibility_HigherLayerBlocks: a position is accessible only
// through its topmost unpicked tile.
func TestAccessibility_HigherLayerBlocks(t *testing.T) {
	lvl := leveltest.MultiLayer(t, []boardmodel.LayerSpec{
		{Cols: 1, Rows: 1, Tiles: map[boardmodel.Pos]boardmodel.TileDescriptor{
			leveltest.P(0, 0): leveltest.Plain("t1"),
		}},
		{Cols: 1, Rows: 1, Tiles: map[boardmodel.Pos]boardmodel.TileDescriptor{
			leveltest.P(0, 0): leveltest.Plain("t2"),
		}},
	}, 10, 6, 1)
	s := boardmodel.NewSimulationState(lvl, 0)

	moves := rules.LegalMoves(s)
	require.Len(t, moves, 1)
	assert.Equal(t, 1, moves[0].Primary.Layer, "only the top layer tile is accessible")

	mv := moves[0]
	_, err := rules.ApplyMove(s, mv)
	require.NoError(t, err)

	moves = rules.LegalMoves(s)
	require.Len(t, moves, 1)
	assert.Equal(t, 0, moves[0].Primary.Layer, "layer 0 becomes accessible once layer 1 is picked")
}

// TestApplyMove_MatchResolutionAndGrouping exercises the dock
// same-type-grouping insertion rule and three-in-a-row resolution.
func TestApplyMove_MatchResolutionAndGrouping(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Plain("t1"),
		leveltest.P(1, 0): leveltest.Plain("t2"),
		leveltest.P(2, 0): leveltest.Plain("t1"),
		leveltest.P(0, 1): leveltest.Plain("t2"),
		leveltest.P(1, 1): leveltest.Plain("t1"),
		leveltest.P(2, 1): leveltest.Plain("t2"),
	}
	lvl := leveltest.SingleLayer(t, 3, 2, 10, 6, 1, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	pick := func(pos boardmodel.Pos) {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}

	pick(leveltest.P(0, 0)) // t1
	pick(leveltest.P(1, 0)) // t2 -> dock: t1 t2
	pick(leveltest.P(2, 0)) // t1 -> dock must group: t1 t1 t2
	require.Len(t, s.Dock, 3)
	assert.Equal(t, boardmodel.Tile1, s.Dock[0].Type)
	assert.Equal(t, boardmodel.Tile1, s.Dock[1].Type)
	assert.Equal(t, boardmodel.Tile2, s.Dock[2].Type)

	pick(leveltest.P(1, 1)) // third t1 -> triggers match, removing the t1 run
	require.Len(t, s.Dock, 1, "the t1 triple resolves, leaving only the t2")
	assert.Equal(t, boardmodel.Tile2, s.Dock[0].Type)
	assert.Equal(t, 3, s.TilesClearedCount)
}

// TestApplyMove_DockOverflowFails: no type appears more than twice, so
// no triple can ever form and the dock overflows.
func TestApplyMove_DockOverflowFails(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{}
	for i := 1; i <= 8; i++ {
		x := (i - 1) % 4
		y := (i - 1) / 4
		typ := "t1"
		switch i {
		case 1:
			typ = "t1"
		case 2:
			typ = "t2"
		case 3:
			typ = "t3"
		case 4:
			typ = "t4"
		case 5:
			typ = "t5"
		case 6:
			typ = "t6"
		case 7:
			typ = "t1" // seventh and eighth tiles repeat t1 and t2, to push past 7 without matching
		case 8:
			typ = "t2"
		}
		tiles[leveltest.P(x, y)] = leveltest.Plain(typ)
	}
	lvl := leveltest.SingleLayer(t, 4, 2, 20, 6, 1, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	for i := 0; i < 8 && !s.Failed; i++ {
		moves := rules.LegalMoves(s)
		require.NotEmpty(t, moves)
		_, err := rules.ApplyMove(s, moves[0])
		require.NoError(t, err)
	}
	assert.True(t, s.Failed, "eight never-matching picks must overflow the 7-capacity dock")
	assert.False(t, s.Cleared)
	assert.Equal(t, boardmodel.FailDockOverflow, s.FailCause)
}

// TestApplyMove_IceClearsOnAdjacentMatch: an iced tile is not directly
// pickable but loses a layer when a neighboring tile is removed.
func TestApplyMove_IceClearsOnAdjacentMatch(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Ice("t1"),
		leveltest.P(1, 0): leveltest.Plain("t2"),
		leveltest.P(1, 1): leveltest.Plain("t2"),
		leveltest.P(2, 1): leveltest.Plain("t2"),
	}
	lvl := leveltest.SingleLayer(t, 3, 2, 10, 6, 1, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	moves := rules.LegalMoves(s)
	for _, mv := range moves {
		assert.NotEqual(t, leveltest.P(0, 0), mv.Primary.Pos, "an iced tile is never directly pickable")
	}

	for _, pos := range []boardmodel.Pos{leveltest.P(1, 0), leveltest.P(1, 1), leveltest.P(2, 1)} {
		moves = rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}

	ice := s.Tiles[0][leveltest.P(0, 0)]
	require.NotNil(t, ice)
	assert.Equal(t, 2, ice.Effect.Remaining, "one adjacent match removes exactly one ice layer")
}

// TestApplyMove_BombDetonationFails: an exposed bomb that reaches zero
// fails the episode.
func TestApplyMove_BombDetonationFails(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Bomb("t1", 3),
		leveltest.P(1, 0): leveltest.Plain("t2"),
		leveltest.P(2, 0): leveltest.Plain("t2"),
		leveltest.P(0, 1): leveltest.Plain("t2"),
	}
	lvl := leveltest.SingleLayer(t, 3, 2, 20, 6, 1, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	for i, pos := range []boardmodel.Pos{leveltest.P(1, 0), leveltest.P(2, 0), leveltest.P(0, 1)} {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
		if i == 0 {
			snap := rules.SnapshotEffects(s)
			bombKey := boardmodel.LayerPos{Layer: 0, Pos: leveltest.P(0, 0)}.String()
			assert.Equal(t, 2, snap.BombCountdowns[bombKey], "snapshot reflects the decremented countdown")
		}
		if i < 2 {
			assert.False(t, s.Failed, "bomb should not detonate before its countdown reaches zero")
		}
	}
	assert.True(t, s.Failed, "bomb countdown reaching zero fails the episode")
	assert.Equal(t, boardmodel.FailBombDetonated, s.FailCause)
}

// TestApplyMove_CraftBoxFiresAndDecrementsGoal: a craft box's goal
// counter reaches zero exactly when it has fired its full interior.
func TestApplyMove_CraftBoxFiresAndDecrementsGoal(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.CraftBox(t, "e", 3),
		leveltest.P(1, 0): leveltest.Plain("t3"),
		leveltest.P(2, 0): leveltest.Plain("t3"),
		leveltest.P(3, 0): leveltest.Plain("t3"),
	}
	lvl := leveltest.SingleLayer(t, 4, 1, 20, 6, 1, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	goalKey := "craft_e"
	require.Equal(t, 3, s.GoalsRemaining[goalKey])

	// The craft box never becomes directly pickable; picking its
	// neighbors clears its adjacent cell and lets it fire repeatedly.
	for i := 0; i < 6; i++ {
		moves := rules.LegalMoves(s)
		if len(moves) == 0 {
			break
		}
		_, err := rules.ApplyMove(s, moves[0])
		require.NoError(t, err)
	}

	assert.Equal(t, 0, s.GoalsRemaining[goalKey])
	assert.Equal(t, 3, s.EmittedTiles)
}

// TestApplyMove_TeleportShuffleRecordsOverrides: the third teleport pick
// shuffles accessible non-obstacle tile types and records the
// permutation, preserving the type multiset.
func TestApplyMove_TeleportShuffleRecordsOverrides(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Teleport("t1"),
		leveltest.P(1, 0): leveltest.Teleport("t2"),
		leveltest.P(2, 0): leveltest.Teleport("t3"),
		leveltest.P(0, 1): leveltest.Plain("t4"),
		leveltest.P(1, 1): leveltest.Plain("t5"),
		leveltest.P(2, 1): leveltest.Plain("t6"),
	}
	lvl := leveltest.SingleLayer(t, 3, 2, 20, 6, 42, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	for _, pos := range []boardmodel.Pos{leveltest.P(0, 0), leveltest.P(1, 0), leveltest.P(2, 0)} {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, s.TeleportClickCount)
	assert.NotEmpty(t, s.TileTypeOverrides, "the third teleport click must trigger a shuffle")

	after := map[boardmodel.TileType]int{}
	for _, layer := range s.Tiles {
		for _, ts := range layer {
			if !ts.Picked {
				after[ts.Type]++
			}
		}
	}
	remainingBefore := map[boardmodel.TileType]int{
		boardmodel.Tile4: 1, boardmodel.Tile5: 1, boardmodel.Tile6: 1,
	}
	assert.Equal(t, remainingBefore, after, "shuffle only permutes types among unpicked tiles, preserving the multiset")
}

// TestCheckTerminal_ClearedRequiresEmptyBoardAndDock: cleared implies
// every goal is zero, no unpicked tiles remain, and the dock is empty.
func TestCheckTerminal_ClearedRequiresEmptyBoardAndDock(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Plain("t1"),
		leveltest.P(1, 0): leveltest.Plain("t1"),
		leveltest.P(2, 0): leveltest.Plain("t1"),
	}
	lvl := leveltest.SingleLayer(t, 3, 1, 5, 6, 0, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)
	rules.CheckTerminal(s)
	require.False(t, s.Cleared)

	for _, pos := range []boardmodel.Pos{leveltest.P(0, 0), leveltest.P(1, 0), leveltest.P(2, 0)} {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}

	assert.True(t, s.Cleared)
	assert.False(t, s.Failed)
	assert.Empty(t, s.Dock)
}

// TestCheckTerminal_ClearOnFinalMoveWins pins the precedence between the
// two terminal verdicts: a board emptied on the last allowed move is
// cleared, not exhausted.
func TestCheckTerminal_ClearOnFinalMoveWins(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Plain("t1"),
		leveltest.P(1, 0): leveltest.Plain("t1"),
		leveltest.P(2, 0): leveltest.Plain("t1"),
	}
	lvl := leveltest.SingleLayer(t, 3, 1, 3, 6, 0, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)

	for _, pos := range []boardmodel.Pos{leveltest.P(0, 0), leveltest.P(1, 0), leveltest.P(2, 0)} {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, s.MovesUsed)
	assert.True(t, s.Cleared)
	assert.False(t, s.Failed)
	assert.Equal(t, boardmodel.FailNone, s.FailCause)
}

// TestApplyMove_RejectsTerminalState guards against silently mutating a
// finished episode.
func TestApplyMove_RejectsTerminalState(t *testing.T) {
	tiles := map[boardmodel.Pos]boardmodel.TileDescriptor{
		leveltest.P(0, 0): leveltest.Plain("t1"),
		leveltest.P(1, 0): leveltest.Plain("t1"),
		leveltest.P(2, 0): leveltest.Plain("t1"),
	}
	lvl := leveltest.SingleLayer(t, 3, 1, 5, 6, 0, tiles)
	s := boardmodel.NewSimulationState(lvl, 0)
	for _, pos := range []boardmodel.Pos{leveltest.P(0, 0), leveltest.P(1, 0), leveltest.P(2, 0)} {
		moves := rules.LegalMoves(s)
		mv := moveFor(t, moves, 0, pos)
		_, err := rules.ApplyMove(s, mv)
		require.NoError(t, err)
	}
	require.True(t, s.Cleared)

	_, err := rules.ApplyMove(s, rules.Move{})
	assert.Error(t, err)
}
