package rules

import "github.com/tilebench/core/internal/boardmodel"

// Move describes one candidate pick: a primary tile plus any linked
// companions picked simultaneously. Bot-specific scoring is layered on
// top by the botpolicy package; Move itself carries only the facts the
// rules engine can compute without knowledge of a bot profile.
type Move struct {
	Primary boardmodel.LayerPos
	Type    boardmodel.TileType
	Effect  boardmodel.EffectKind
	Linked  []boardmodel.LayerPos

	// DockSameTypeCount is the number of Type-matching entries already in
	// the dock before this move would be applied.
	DockSameTypeCount int
	// TilesToAdd is 1 + len(Linked).
	TilesToAdd int
	// WillMatch reports whether applying this move would complete a
	// three-or-more run for Type.
	WillMatch bool
	// MatchCountHint is the predicted post-insert run length for Type.
	MatchCountHint int
}

// LegalMoves enumerates every legal move in s. Order is canonical
// (ascending layer, then lexicographic (x,y)) so callers get
// reproducible iteration, though the contract only requires a set.
func LegalMoves(s *boardmodel.SimulationState) []Move {
	acc := accessible(s)
	dockCounts := dockTypeCounts(s)

	// Build a forward link index: source -> target, for accessible,
	// currently-linked tiles whose target is itself accessible.
	linkTarget := make(map[boardmodel.LayerPos]boardmodel.LayerPos)
	for _, lp := range acc {
		ts := tileAt(s, lp)
		if ts.Effect.Kind != boardmodel.EffectLink || len(ts.Effect.LinkedPositions) == 0 {
			continue
		}
		target := ts.Effect.LinkedPositions[0]
		if targetTile := tileAt(s, target); targetTile != nil && !targetTile.Picked {
			if accLP, ok := acc[target.Pos]; ok && accLP == target {
				linkTarget[lp] = target
			}
		}
	}
	// Reverse index for "pick from the other end" moves.
	linkSource := make(map[boardmodel.LayerPos]boardmodel.LayerPos)
	for src, tgt := range linkTarget {
		linkSource[tgt] = src
	}

	var moves []Move
	for _, lp := range sortedLayerPositions(acc) {
		ts := tileAt(s, lp)
		if !isDirectlyPickable(ts) {
			continue
		}

		var linked []boardmodel.LayerPos
		if tgt, ok := linkTarget[lp]; ok {
			if tgtTile := tileAt(s, tgt); tgtTile != nil && isDirectlyPickable(tgtTile) {
				linked = append(linked, tgt)
			}
		}
		if src, ok := linkSource[lp]; ok {
			already := false
			for _, l := range linked {
				if l == src {
					already = true
				}
			}
			if !already {
				if srcTile := tileAt(s, src); srcTile != nil && isDirectlyPickable(srcTile) {
					linked = append(linked, src)
				}
			}
		}

		tilesToAdd := 1 + len(linked)
		sameType := dockCounts[ts.Type]
		matchHint := sameType + 1
		for _, l := range linked {
			if tileAt(s, l).Type == ts.Type {
				matchHint++
			}
		}

		moves = append(moves, Move{
			Primary:           lp,
			Type:              ts.Type,
			Effect:            ts.Effect.Kind,
			Linked:            linked,
			DockSameTypeCount: sameType,
			TilesToAdd:        tilesToAdd,
			WillMatch:         matchHint >= 3,
			MatchCountHint:    matchHint,
		})
	}
	return moves
}

func dockTypeCounts(s *boardmodel.SimulationState) map[boardmodel.TileType]int {
	counts := make(map[boardmodel.TileType]int, len(s.Dock))
	for _, d := range s.Dock {
		counts[d.Type]++
	}
	return counts
}
