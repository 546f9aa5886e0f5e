package rules

import (
	"fmt"

	"github.com/tilebench/core/internal/boardmodel"
)

// TeleportShuffleThreshold is the N-th teleport click that triggers a
// shuffle.
const TeleportShuffleThreshold = 3

// cardinals are the four directions adjacency effects (ice, grass, chain)
// propagate across.
var cardinals = []boardmodel.Direction{boardmodel.DirN, boardmodel.DirS, boardmodel.DirE, boardmodel.DirW}

// MoveRecord captures what one ApplyMove call did, sufficient to replay
// or render the move.
type MoveRecord struct {
	MoveNumber      int
	Primary         boardmodel.LayerPos
	PickedType      boardmodel.TileType
	Linked          []boardmodel.LayerPos
	Matched         []boardmodel.DockEntry
	DockAfter       []boardmodel.DockEntry
	GoalsAfter      map[string]int
	TeleportShuffle bool

	// Effects is filled in by trace-recording callers via SnapshotEffects;
	// ApplyMove leaves it nil so non-tracing episodes skip the board walk.
	Effects *EffectSnapshot
}

// ApplyMove atomically applies mv to s: picks the primary and linked
// tiles, inserts them into the dock, resolves matches, propagates obstacle
// effects in a fixed order (bombs, ice/grass/chain, curtains, frogs,
// teleport), fires stack/craft boxes, and evaluates terminal conditions.
// s must not already be terminal.
func ApplyMove(s *boardmodel.SimulationState, mv Move) (*MoveRecord, error) {
	if s.Cleared || s.Failed {
		return nil, fmt.Errorf("rules: ApplyMove called on a terminal state")
	}

	preBombs := snapshotExposed(s, boardmodel.EffectBomb)
	preCurtains := snapshotExposed(s, boardmodel.EffectCurtain)

	picks := append([]boardmodel.LayerPos{mv.Primary}, mv.Linked...)

	rec := &MoveRecord{
		Primary:    mv.Primary,
		PickedType: mv.Type,
		Linked:     mv.Linked,
	}

	teleportFired := false
	for _, lp := range picks {
		ts := tileAt(s, lp)
		if ts == nil {
			return nil, fmt.Errorf("rules: move references vanished tile %s", lp)
		}
		ts.Picked = true
		s.Dock = insertDock(s.Dock, boardmodel.DockEntry{
			Type:        ts.Type,
			OriginLayer: lp.Layer,
			OriginPos:   lp.Pos,
		})
		if ts.Effect.Kind == boardmodel.EffectTeleport {
			s.TeleportClickCount++
			if s.TeleportClickCount%TeleportShuffleThreshold == 0 {
				teleportFired = true
			}
		}
	}

	matchedTiles := resolveMatches(s, rec)

	if len(s.Dock) > s.Level.DockCapacity {
		s.Fail(boardmodel.FailDockOverflow)
	}

	propagateBombs(s, preBombs)
	propagateIceAndGrassAndChain(s, picks)
	propagateCurtains(s, preCurtains)
	if matchedTiles > 0 {
		moveFrogs(s)
	}
	if teleportFired {
		triggerShuffle(s)
		rec.TeleportShuffle = true
	}

	fireBoxes(s)

	s.MovesUsed++
	CheckTerminal(s)

	rec.MoveNumber = s.MovesUsed
	rec.DockAfter = append([]boardmodel.DockEntry(nil), s.Dock...)
	rec.GoalsAfter = make(map[string]int, len(s.GoalsRemaining))
	for k, v := range s.GoalsRemaining {
		rec.GoalsAfter[k] = v
	}

	return rec, nil
}

// insertDock returns dock with entry inserted per the "same-type grouping"
// rule: right after the last existing entry of entry.Type, or appended if
// none exists.
func insertDock(dock []boardmodel.DockEntry, entry boardmodel.DockEntry) []boardmodel.DockEntry {
	insertAt := len(dock)
	for i, d := range dock {
		if d.Type == entry.Type {
			insertAt = i + 1
		}
	}
	out := make([]boardmodel.DockEntry, 0, len(dock)+1)
	out = append(out, dock[:insertAt]...)
	out = append(out, entry)
	out = append(out, dock[insertAt:]...)
	return out
}

// resolveMatches repeatedly removes the leftmost contiguous run of three or
// more same-type dock entries until none remain, decrementing goal
// counters, and increments the combo counter once when the call removes
// four or more tiles. It returns the number of tiles removed by matching
// this call.
func resolveMatches(s *boardmodel.SimulationState, rec *MoveRecord) int {
	removedTotal := 0
	for {
		start, ok := leftmostRun(s.Dock, 3)
		if !ok {
			break
		}
		removed := append([]boardmodel.DockEntry(nil), s.Dock[start:start+3]...)
		rec.Matched = append(rec.Matched, removed...)
		s.Dock = append(append([]boardmodel.DockEntry(nil), s.Dock[:start]...), s.Dock[start+3:]...)
		removedTotal += 3
		s.TilesClearedCount += 3
		decrementGoalForType(s, removed[0].Type)
	}
	if removedTotal >= 4 {
		s.ComboCount++
	}
	return removedTotal
}

// leftmostRun finds the first index of a contiguous run of at least min
// same-type dock entries.
func leftmostRun(dock []boardmodel.DockEntry, min int) (int, bool) {
	i := 0
	for i < len(dock) {
		j := i
		for j < len(dock) && dock[j].Type == dock[i].Type {
			j++
		}
		if j-i >= min {
			return i, true
		}
		i = j
	}
	return 0, false
}

func decrementGoalForType(s *boardmodel.SimulationState, t boardmodel.TileType) {
	key := t.String()
	if v, ok := s.GoalsRemaining[key]; ok && v > 0 {
		s.GoalsRemaining[key] = v - 1
	}
}

// snapshotExposed returns the accessible, unpicked tiles of kind at the
// moment it is called. ApplyMove calls this before mutating state, so the
// resulting set is frozen against the move about to be applied.
func snapshotExposed(s *boardmodel.SimulationState, kind boardmodel.EffectKind) []boardmodel.LayerPos {
	acc := accessible(s)
	var out []boardmodel.LayerPos
	for _, lp := range acc {
		ts := tileAt(s, lp)
		if ts != nil && !ts.Picked && ts.Effect.Kind == kind {
			out = append(out, lp)
		}
	}
	return out
}

// propagateBombs decrements every pre-snapshotted bomb still on the board
// and still exposed; a bomb reaching zero fails the episode.
func propagateBombs(s *boardmodel.SimulationState, preBombs []boardmodel.LayerPos) {
	stillExposed := map[boardmodel.Pos]boardmodel.LayerPos{}
	for _, lp := range accessible(s) {
		stillExposed[lp.Pos] = lp
	}
	for _, lp := range preBombs {
		ts := tileAt(s, lp)
		if ts == nil || ts.Picked {
			continue // removed by this move, no longer a hazard
		}
		if occ, ok := stillExposed[lp.Pos]; !ok || occ != lp {
			continue // covered since the snapshot
		}
		ts.Effect.BombCountdown--
		if ts.Effect.BombCountdown <= 0 {
			s.Fail(boardmodel.FailBombDetonated)
		}
	}
}

// propagateIceAndGrassAndChain applies adjacency effects: every tile
// 4-connected to a tile removed (picked) this turn loses one Ice/Grass
// layer, or has its Chain unlocked.
func propagateIceAndGrassAndChain(s *boardmodel.SimulationState, picks []boardmodel.LayerPos) {
	for _, rp := range picks {
		for _, d := range cardinals {
			np, ok := rp.Pos.Translate(d)
			if !ok {
				continue
			}
			ts := tileAt(s, boardmodel.LayerPos{Layer: rp.Layer, Pos: np})
			if ts == nil || ts.Picked {
				continue
			}
			switch ts.Effect.Kind {
			case boardmodel.EffectIce:
				ts.Effect.Remaining--
				if ts.Effect.Remaining <= 0 {
					ts.Effect.Kind = boardmodel.EffectNone
				}
			case boardmodel.EffectGrass:
				ts.Effect.Remaining--
				if ts.Effect.Remaining <= 0 {
					ts.Effect.Kind = boardmodel.EffectNone
				}
			case boardmodel.EffectChain:
				ts.Effect.Unlocked = true
			}
		}
	}
}

// propagateCurtains toggles every pre-snapshotted curtain that survived
// this move (i.e. was not itself picked).
func propagateCurtains(s *boardmodel.SimulationState, preCurtains []boardmodel.LayerPos) {
	for _, lp := range preCurtains {
		ts := tileAt(s, lp)
		if ts == nil || ts.Picked {
			continue
		}
		ts.Effect.IsOpen = !ts.Effect.IsOpen
	}
}

// moveFrogs advances every active frog one step. A frog occupies one of
// the board's Frog-tagged tiles at a time (Effect.FrogHere); if no frog is
// yet active, the canonically-first Frog tile becomes its starting
// position without moving this turn. The frog's movement domain is the
// set of Frog-tagged tiles reachable by one 4-connected step; it steps to
// the canonically smallest unpicked candidate, or stays if none exists.
func moveFrogs(s *boardmodel.SimulationState) {
	frogTiles := map[boardmodel.LayerPos]*boardmodel.TileState{}
	for li, layer := range s.Tiles {
		for pos, ts := range layer {
			if ts.Effect.Kind == boardmodel.EffectFrog {
				frogTiles[boardmodel.LayerPos{Layer: li, Pos: pos}] = ts
			}
		}
	}
	if len(frogTiles) == 0 {
		return
	}

	var active []boardmodel.LayerPos
	for lp, ts := range frogTiles {
		if ts.Effect.FrogHere {
			active = append(active, lp)
		}
	}

	if len(active) == 0 {
		first := canonicalFirst(frogTiles)
		frogTiles[first].Effect.FrogHere = true
		return
	}

	sortLayerPosSlice(active)
	for _, cur := range active {
		var candidates []boardmodel.LayerPos
		for _, d := range cardinals {
			np, ok := cur.Pos.Translate(d)
			if !ok {
				continue
			}
			nlp := boardmodel.LayerPos{Layer: cur.Layer, Pos: np}
			ts, ok := frogTiles[nlp]
			if !ok || ts.Picked || ts.Effect.FrogHere {
				continue
			}
			candidates = append(candidates, nlp)
		}
		if len(candidates) == 0 {
			continue
		}
		sortLayerPosSlice(candidates)
		next := candidates[0]
		frogTiles[cur].Effect.FrogHere = false
		frogTiles[next].Effect.FrogHere = true
	}
}

func canonicalFirst(m map[boardmodel.LayerPos]*boardmodel.TileState) boardmodel.LayerPos {
	var keys []boardmodel.LayerPos
	for k := range m {
		keys = append(keys, k)
	}
	sortLayerPosSlice(keys)
	return keys[0]
}

func sortLayerPosSlice(s []boardmodel.LayerPos) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0; j-- {
			if less(s[j], s[j-1]) {
				s[j], s[j-1] = s[j-1], s[j]
			} else {
				break
			}
		}
	}
}

func less(a, b boardmodel.LayerPos) bool {
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}
	return a.Pos.Less(b.Pos)
}

// triggerShuffle permutes the resolved tile types of every currently
// accessible, non-obstacle tile using the episode RNG, recording the
// change in TileTypeOverrides.
func triggerShuffle(s *boardmodel.SimulationState) {
	acc := accessible(s)
	var positions []boardmodel.LayerPos
	for _, lp := range sortedLayerPositions(acc) {
		ts := tileAt(s, lp)
		if ts == nil || ts.Picked || !ts.Type.IsMatchable() || ts.Effect.Kind != boardmodel.EffectNone {
			continue
		}
		positions = append(positions, lp)
	}
	if len(positions) < 2 {
		return
	}
	types := make([]boardmodel.TileType, len(positions))
	for i, lp := range positions {
		types[i] = tileAt(s, lp).Type
	}
	s.RNG.Shuffle(len(types), func(i, j int) { types[i], types[j] = types[j], types[i] })
	for i, lp := range positions {
		tileAt(s, lp).Type = types[i]
		s.TileTypeOverrides[lp.String()] = types[i]
	}
}

// fireBoxes pops the top interior tile of every stack/craft box whose
// adjacent cell (in its declared direction) is empty, decrementing the
// box's goal counter. Firing can cascade, so boxes are re-scanned until a
// pass produces no change. Diagonal box directions follow the same
// adjacency rule as cardinals.
func fireBoxes(s *boardmodel.SimulationState) {
	for pass, changed := 0, true; changed && pass < 1000; pass++ {
		changed = false
		for _, lp := range sortedBoxPositions(s) {
			ts := tileAt(s, lp)
			if ts == nil || len(ts.Effect.Interior) == 0 {
				continue
			}
			adjPos, ok := lp.Pos.Translate(ts.Effect.BoxDir)
			if !ok {
				continue
			}
			adjLP := boardmodel.LayerPos{Layer: lp.Layer, Pos: adjPos}
			if adj := tileAt(s, adjLP); adj != nil && !adj.Picked {
				continue
			}
			n := len(ts.Effect.Interior)
			top := ts.Effect.Interior[n-1]
			ts.Effect.Interior = ts.Effect.Interior[:n-1]
			s.Tiles[lp.Layer][adjPos] = &boardmodel.TileState{
				Type:   top,
				Effect: boardmodel.EffectState{Kind: boardmodel.EffectNone},
			}
			s.EmittedTiles++
			if v, ok := s.GoalsRemaining[ts.Effect.GoalKey]; ok && v > 0 {
				s.GoalsRemaining[ts.Effect.GoalKey] = v - 1
			}
			if len(ts.Effect.Interior) == 0 {
				// An emptied box leaves the board; it is never matchable, so
				// it is retired directly rather than through the dock.
				ts.Picked = true
			}
			changed = true
		}
	}
}

func sortedBoxPositions(s *boardmodel.SimulationState) []boardmodel.LayerPos {
	var out []boardmodel.LayerPos
	for _, lp := range s.CraftBoxes {
		out = append(out, lp)
	}
	sortLayerPosSlice(out)
	return out
}
