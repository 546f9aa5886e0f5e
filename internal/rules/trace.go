package rules

import "github.com/tilebench/core/internal/boardmodel"

// EffectSnapshot captures the obstacle state of every live effect tile
// after a move, keyed by LayerPos.String(). Replay and rendering consumers
// read these instead of walking the board themselves; the engine never
// reads a snapshot back.
type EffectSnapshot struct {
	BombCountdowns map[string]int
	CurtainsOpen   map[string]bool
	IceRemaining   map[string]int
	GrassRemaining map[string]int
	ChainsUnlocked map[string]bool
	FrogAt         []boardmodel.LayerPos
	TeleportClicks int
	TypeOverrides  map[string]boardmodel.TileType
}

// SnapshotEffects walks s and records the current state of every unpicked
// effect-carrying tile. It is called by trace-recording drivers after each
// ApplyMove; the engine itself never depends on it, so non-tracing batches
// pay nothing.
func SnapshotEffects(s *boardmodel.SimulationState) *EffectSnapshot {
	snap := &EffectSnapshot{
		BombCountdowns: map[string]int{},
		CurtainsOpen:   map[string]bool{},
		IceRemaining:   map[string]int{},
		GrassRemaining: map[string]int{},
		ChainsUnlocked: map[string]bool{},
		TeleportClicks: s.TeleportClickCount,
		TypeOverrides:  map[string]boardmodel.TileType{},
	}
	for k, v := range s.TileTypeOverrides {
		snap.TypeOverrides[k] = v
	}
	for li, layer := range s.Tiles {
		for pos, ts := range layer {
			if ts.Picked {
				continue
			}
			lp := boardmodel.LayerPos{Layer: li, Pos: pos}
			switch ts.Effect.Kind {
			case boardmodel.EffectBomb:
				snap.BombCountdowns[lp.String()] = ts.Effect.BombCountdown
			case boardmodel.EffectCurtain:
				snap.CurtainsOpen[lp.String()] = ts.Effect.IsOpen
			case boardmodel.EffectIce:
				snap.IceRemaining[lp.String()] = ts.Effect.Remaining
			case boardmodel.EffectGrass:
				snap.GrassRemaining[lp.String()] = ts.Effect.Remaining
			case boardmodel.EffectChain:
				snap.ChainsUnlocked[lp.String()] = ts.Effect.Unlocked
			case boardmodel.EffectFrog:
				if ts.Effect.FrogHere {
					snap.FrogAt = append(snap.FrogAt, lp)
				}
			}
		}
	}
	sortLayerPosSlice(snap.FrogAt)
	return snap
}
