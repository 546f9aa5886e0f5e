// Package boardmodel defines the immutable Level description and the
// mutable per-episode SimulationState expanded from it.
package boardmodel

import "fmt"

// TileType identifies the matchable kind of a tile after t0 resolution.
// Raw source tokens are t0..t15 plus compound goal tokens. NewLevel only
// validates them; the Level keeps the raw strings, and they are converted
// into this enum each time NewSimulationState expands the Level.
type TileType int

const (
	TileUnresolved TileType = iota // t0, replaced during state construction
	Tile1
	Tile2
	Tile3
	Tile4
	Tile5
	Tile6
	Tile7
	Tile8
	Tile9
	Tile10
	Tile11
	Tile12
	Tile13
	Tile14
	Tile15
	TileCraft
	TileStack
)

func (t TileType) String() string {
	switch t {
	case TileUnresolved:
		return "t0"
	case TileCraft:
		return "craft"
	case TileStack:
		return "stack"
	default:
		return fmt.Sprintf("t%d", int(t))
	}
}

// IsMatchable reports whether a tile of this type can ever sit in the dock.
// Goal boxes (craft/stack) are board fixtures, not matchable entries.
func (t TileType) IsMatchable() bool {
	return t >= Tile1 && t <= Tile15
}

// paletteType returns the concrete tile type for the k-th (1-indexed)
// entry of the resolution palette t1..tK.
func paletteType(k int) TileType {
	return TileType(k)
}

// Direction is one of the eight compass directions used by link tags and
// stack/craft box emission.
type Direction int

const (
	DirNone Direction = iota
	DirN
	DirS
	DirE
	DirW
	DirNE
	DirNW
	DirSE
	DirSW
)

var directionDeltas = map[Direction][2]int{
	DirN:  {0, -1},
	DirS:  {0, 1},
	DirE:  {1, 0},
	DirW:  {-1, 0},
	DirNE: {1, -1},
	DirNW: {-1, -1},
	DirSE: {1, 1},
	DirSW: {-1, 1},
}

// IsCardinal reports whether the direction is one of the four that every
// emission and link rule is guaranteed to support.
func (d Direction) IsCardinal() bool {
	switch d {
	case DirN, DirS, DirE, DirW:
		return true
	default:
		return false
	}
}

func (d Direction) String() string {
	switch d {
	case DirN:
		return "n"
	case DirS:
		return "s"
	case DirE:
		return "e"
	case DirW:
		return "w"
	case DirNE:
		return "ne"
	case DirNW:
		return "nw"
	case DirSE:
		return "se"
	case DirSW:
		return "sw"
	default:
		return "none"
	}
}

// ParseDirection maps the lowercase source suffix to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "n":
		return DirN, true
	case "s":
		return DirS, true
	case "e":
		return DirE, true
	case "w":
		return DirW, true
	case "ne":
		return DirNE, true
	case "nw":
		return DirNW, true
	case "se":
		return DirSE, true
	case "sw":
		return DirSW, true
	default:
		return DirNone, false
	}
}

// EffectKind enumerates the obstacle mechanics a tile may carry.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectChain
	EffectIce
	EffectGrass
	EffectLink
	EffectFrog
	EffectBomb
	EffectCurtain
	EffectTeleport
	EffectUnknown
	EffectStackBox
	EffectCraftBox
)

func (e EffectKind) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectChain:
		return "chain"
	case EffectIce:
		return "ice"
	case EffectGrass:
		return "grass"
	case EffectLink:
		return "link"
	case EffectFrog:
		return "frog"
	case EffectBomb:
		return "bomb"
	case EffectCurtain:
		return "curtain"
	case EffectTeleport:
		return "teleport"
	case EffectUnknown:
		return "unknown"
	case EffectStackBox:
		return "stack_box"
	case EffectCraftBox:
		return "craft_box"
	default:
		return "invalid"
	}
}

// Pos is a layer-local grid coordinate.
type Pos struct {
	X, Y int
}

// String renders the position in its "x_y" key form. Positions sort
// lexicographically by this string, which is the canonical tie-break
// ordering pinned by the rules engine.
func (p Pos) String() string {
	return fmt.Sprintf("%d_%d", p.X, p.Y)
}

// Less implements the canonical ordering: ascending layer handled by the
// caller, then lexicographic (x,y) as source-form strings.
func (p Pos) Less(other Pos) bool {
	return p.String() < other.String()
}

// Translate returns the neighbor position one step in direction d.
func (p Pos) Translate(d Direction) (Pos, bool) {
	delta, ok := directionDeltas[d]
	if !ok {
		return Pos{}, false
	}
	return Pos{X: p.X + delta[0], Y: p.Y + delta[1]}, true
}

// LayerPos addresses a tile uniquely within a SimulationState.
type LayerPos struct {
	Layer int
	Pos   Pos
}

func (lp LayerPos) String() string {
	return fmt.Sprintf("%d_%d_%d", lp.Layer, lp.Pos.X, lp.Pos.Y)
}
