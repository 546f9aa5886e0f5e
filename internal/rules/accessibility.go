// Package rules implements the pure state-transition functions over a
// boardmodel.SimulationState: move enumeration, atomic move application,
// and terminal-state detection. Nothing here is thread-safe across a
// shared state; each SimulationState is owned by exactly one caller.
package rules

import (
	"sort"

	"github.com/tilebench/core/internal/boardmodel"
)

// accessible returns, for every populated layer position, the topmost
// unpicked tile at that (x,y). A position absent from the result has no
// unpicked tile left at any layer.
func accessible(s *boardmodel.SimulationState) map[boardmodel.Pos]boardmodel.LayerPos {
	occupied := make(map[boardmodel.Pos]boardmodel.LayerPos, 64)
	taken := make(map[boardmodel.Pos]bool, 64)
	for li := len(s.Tiles) - 1; li >= 0; li-- {
		for pos, ts := range s.Tiles[li] {
			if ts.Picked || taken[pos] {
				continue
			}
			taken[pos] = true
			occupied[pos] = boardmodel.LayerPos{Layer: li, Pos: pos}
		}
	}
	return occupied
}

func tileAt(s *boardmodel.SimulationState, lp boardmodel.LayerPos) *boardmodel.TileState {
	layerTiles := s.Tiles[lp.Layer]
	if layerTiles == nil {
		return nil
	}
	return layerTiles[lp.Pos]
}

// isDirectlyPickable reports whether the given accessible tile can be
// picked this turn, independent of any link companion.
func isDirectlyPickable(ts *boardmodel.TileState) bool {
	if ts.Picked {
		return false
	}
	if !ts.Type.IsMatchable() {
		return false
	}
	switch ts.Effect.Kind {
	case boardmodel.EffectChain:
		return ts.Effect.Unlocked
	case boardmodel.EffectIce:
		return false
	case boardmodel.EffectCurtain:
		return ts.Effect.IsOpen
	case boardmodel.EffectGrass:
		return ts.Effect.Remaining <= 0
	case boardmodel.EffectFrog:
		return !ts.Effect.FrogHere
	default:
		return true
	}
}

// sortedLayerPositions returns LayerPos keys of m in canonical order:
// ascending layer, then lexicographic (x,y).
func sortedLayerPositions(m map[boardmodel.Pos]boardmodel.LayerPos) []boardmodel.LayerPos {
	out := make([]boardmodel.LayerPos, 0, len(m))
	for _, lp := range m {
		out = append(out, lp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Pos.Less(out[j].Pos)
	})
	return out
}
