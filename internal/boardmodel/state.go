package boardmodel

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// EffectState holds the mutable obstacle state attached to one tile. It is
// a tagged union: only the fields relevant to Kind are meaningful. Kept as
// a flat struct rather than an interface because every rule in the engine
// needs to branch on Kind anyway, and the field set is small and fixed.
type EffectState struct {
	Kind EffectKind

	// Ice / Grass
	Remaining int

	// Chain
	Unlocked bool

	// Bomb
	BombCountdown int

	// Curtain
	IsOpen bool

	// Frog
	FrogHere bool

	// Link
	LinkedPositions []LayerPos

	// Stack/Craft box
	BoxDir        Direction
	Interior      []TileType // bottom-to-top; pop from the end to fire
	GoalKey       string
}

// FailReason classifies why an episode failed, so a failed outcome can be
// reported with a reason code instead of a bare boolean.
type FailReason int

const (
	FailNone FailReason = iota
	FailDockOverflow
	FailBombDetonated
	FailExhausted
	FailNoMoves
)

func (r FailReason) String() string {
	switch r {
	case FailDockOverflow:
		return "dock_overflow"
	case FailBombDetonated:
		return "bomb_detonated"
	case FailExhausted:
		return "exhausted"
	case FailNoMoves:
		return "no_moves"
	default:
		return "none"
	}
}

// TileState is one board cell's resolved, mutable state within a
// SimulationState.
type TileState struct {
	Type   TileType
	Effect EffectState
	Picked bool
}

// DockEntry is one queued pick awaiting match resolution.
type DockEntry struct {
	Type        TileType
	OriginLayer int
	OriginPos   Pos
}

// SimulationState is the exclusively-owned, mutable per-episode state
// expanded from a Level. Only the rules engine mutates it, under a
// single-thread discipline.
type SimulationState struct {
	Level *Level

	// Tiles[layer][pos] mirrors the Level's sparse layer structure.
	Tiles []map[Pos]*TileState

	Dock []DockEntry

	GoalsRemaining map[string]int

	MovesUsed          int
	TeleportClickCount int
	ComboCount         int
	TilesClearedCount  int
	EmittedTiles       int

	BombTiles    map[string]LayerPos
	CurtainTiles map[string]LayerPos
	CraftBoxes   map[string]LayerPos

	Cleared bool
	Failed  bool
	// FailCause is the reason code attached to the first Fail call; it
	// stays FailNone on cleared or still-running states.
	FailCause FailReason

	// TileTypeOverrides records permanent type changes from teleport
	// shuffles, keyed by LayerPos.String(), for replay reproducibility.
	TileTypeOverrides map[string]TileType

	RNG *rand.Rand

	initialMatchableTiles int
}

// NewSimulationState deep-expands a Level into a fresh, independently
// owned SimulationState. Expansion is pure w.r.t. (level, initialStateSeed):
// t0 resolution and stack/craft interior assignment both draw from an RNG
// seeded with the level's RandSeed combined with initialStateSeed, walked
// in the pinned canonical order (ascending layer, then lexicographic (x,y)).
func NewSimulationState(level *Level, initialStateSeed int64) *SimulationState {
	expandRNG := NewRNG(level.RandSeed + initialStateSeed)

	s := &SimulationState{
		Level:             level,
		Tiles:             make([]map[Pos]*TileState, len(level.Layers)),
		GoalsRemaining:    map[string]int{},
		BombTiles:         map[string]LayerPos{},
		CurtainTiles:      map[string]LayerPos{},
		CraftBoxes:        map[string]LayerPos{},
		TileTypeOverrides: map[string]TileType{},
		RNG:               expandRNG,
	}

	for li, layer := range level.Layers {
		s.Tiles[li] = make(map[Pos]*TileState, len(layer.Tiles))
		for _, pos := range sortedPositions(layer.Tiles) {
			td := layer.Tiles[pos]
			ts := s.expandTile(li, pos, td, expandRNG)
			s.Tiles[li][pos] = ts
			s.indexEffect(li, pos, ts)
			if ts.Type.IsMatchable() && !ts.Picked {
				s.initialMatchableTiles++
			}
		}
	}

	s.extractGoals()
	return s
}

// NewRNG derives a rand/v2 generator from a single seed. Every
// episode-owned generator in the module (board expansion, bot behavior)
// is built through this, so nearby seeds still produce decorrelated
// streams: the two PCG words are put through a 64-bit finalizer rather
// than used raw.
func NewRNG(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(scramble(u), scramble(^u)))
}

func scramble(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Fail marks the state failed with reason. The first terminal verdict
// wins: a state that is already cleared or failed is left untouched.
func (s *SimulationState) Fail(reason FailReason) {
	if s.Cleared || s.Failed {
		return
	}
	s.Failed = true
	s.FailCause = reason
}

// InitialMatchableTiles returns the count of matchable tiles present on the
// board immediately after expansion, before any move is applied. Used to
// check tile conservation across an episode.
func (s *SimulationState) InitialMatchableTiles() int {
	return s.initialMatchableTiles
}

func (s *SimulationState) expandTile(layer int, pos Pos, td TileDescriptor, rng *rand.Rand) *TileState {
	ts := &TileState{}

	base, tokenDir, _ := splitTypeToken(td.Type)
	boxDir := td.BoxDir
	if boxDir == DirNone {
		boxDir = tokenDir
	}

	switch base {
	case "t0":
		ts.Type = paletteType(1 + rng.IntN(s.Level.UseTileCount))
	case "craft":
		ts.Type = TileCraft
	case "stack":
		ts.Type = TileStack
	default:
		ts.Type = parseStaticType(base)
	}

	ts.Effect = s.expandEffect(td, base, boxDir)
	if ts.Effect.Kind == EffectLink {
		linkDir := td.LinkDir
		if linkDir == DirNone && hasPrefix(td.Effect, "link_") {
			if d, ok := ParseDirection(td.Effect[len("link_"):]); ok {
				linkDir = d
			}
		}
		if linkDir != DirNone {
			if neighbor, ok := pos.Translate(linkDir); ok {
				ts.Effect.LinkedPositions = []LayerPos{{Layer: layer, Pos: neighbor}}
			}
		}
	}
	if ts.Effect.Kind == EffectCraftBox || ts.Effect.Kind == EffectStackBox {
		ts.Effect.Interior = make([]TileType, td.Extra.TotalCount)
		for i := range ts.Effect.Interior {
			ts.Effect.Interior[i] = paletteType(1 + rng.IntN(s.Level.UseTileCount))
		}
		ts.Effect.GoalKey = fmt.Sprintf("%s_%s", effectGoalPrefix(ts.Effect.Kind), boxDir)
	}
	return ts
}

func effectGoalPrefix(k EffectKind) string {
	if k == EffectCraftBox {
		return "craft"
	}
	return "stack"
}

func parseStaticType(token string) TileType {
	var n int
	if _, err := fmt.Sscanf(token, "t%d", &n); err == nil && n >= 1 && n <= 15 {
		return TileType(n)
	}
	return TileUnresolved
}

func (s *SimulationState) expandEffect(td TileDescriptor, base string, boxDir Direction) EffectState {
	switch base {
	case "craft":
		return EffectState{Kind: EffectCraftBox, BoxDir: boxDir}
	case "stack":
		return EffectState{Kind: EffectStackBox, BoxDir: boxDir}
	}

	switch effectFamily(td.Effect) {
	case "chain":
		return EffectState{Kind: EffectChain, Unlocked: false}
	case "ice":
		return EffectState{Kind: EffectIce, Remaining: 3}
	case "grass":
		remaining := 2
		if td.Extra.GrassLayer > 0 {
			remaining = td.Extra.GrassLayer
		} else if n := tagSuffixNum(td.Effect); n > 0 {
			remaining = n
		}
		return EffectState{Kind: EffectGrass, Remaining: remaining}
	case "link":
		return EffectState{Kind: EffectLink}
	case "frog":
		return EffectState{Kind: EffectFrog, FrogHere: false}
	case "bomb":
		countdown := td.Extra.BombCount
		if countdown == 0 {
			countdown = tagSuffixNum(td.Effect)
		}
		if countdown == 0 {
			countdown = 4
		}
		if countdown < 3 {
			countdown = 3
		}
		if countdown > 5 {
			countdown = 5
		}
		return EffectState{Kind: EffectBomb, BombCountdown: countdown}
	case "curtain":
		isOpen := td.Effect == "curtain_open"
		if td.Extra.IsOpen != nil {
			isOpen = *td.Extra.IsOpen
		}
		return EffectState{Kind: EffectCurtain, IsOpen: isOpen}
	case "teleport":
		return EffectState{Kind: EffectTeleport}
	case "unknown":
		return EffectState{Kind: EffectUnknown}
	default:
		return EffectState{Kind: EffectNone}
	}
}

// effectFamily strips numeric/open-close suffixes from a raw effect tag
// ("ice_2" -> "ice", "bomb_4" -> "bomb", "curtain_open" -> "curtain").
// A bare digit tag is shorthand for a bomb countdown.
func effectFamily(tag string) string {
	switch {
	case tag == "":
		return ""
	case isDigits(tag):
		return "bomb"
	case hasPrefix(tag, "ice"):
		return "ice"
	case hasPrefix(tag, "grass"):
		return "grass"
	case hasPrefix(tag, "link_"):
		return "link"
	case hasPrefix(tag, "bomb"):
		return "bomb"
	case hasPrefix(tag, "curtain"):
		return "curtain"
	case tag == "chain":
		return "chain"
	case tag == "frog":
		return "frog"
	case tag == "teleport":
		return "teleport"
	case tag == "unknown":
		return "unknown"
	default:
		return ""
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// tagSuffixNum extracts the numeric parameter from a suffixed tag
// ("bomb_4" -> 4) or a bare digit tag ("4" -> 4); 0 when absent.
func tagSuffixNum(tag string) int {
	if isDigits(tag) {
		n, _ := strconv.Atoi(tag)
		return n
	}
	for i := len(tag) - 1; i >= 0; i-- {
		if tag[i] == '_' {
			if isDigits(tag[i+1:]) {
				n, _ := strconv.Atoi(tag[i+1:])
				return n
			}
			return 0
		}
	}
	return 0
}

func (s *SimulationState) indexEffect(layer int, pos Pos, ts *TileState) {
	lp := LayerPos{Layer: layer, Pos: pos}
	switch ts.Effect.Kind {
	case EffectBomb:
		s.BombTiles[lp.String()] = lp
	case EffectCurtain:
		s.CurtainTiles[lp.String()] = lp
	case EffectCraftBox, EffectStackBox:
		s.CraftBoxes[lp.String()] = lp
	}
}

// extractGoals derives goal counters from an explicit override table when
// present, else from the sum of craft/stack box interiors on the board.
func (s *SimulationState) extractGoals() {
	if s.Level.GoalCounts != nil {
		for k, v := range s.Level.GoalCounts {
			s.GoalsRemaining[k] = v
		}
		return
	}
	for _, lp := range s.CraftBoxes {
		ts := s.Tiles[lp.Layer][lp.Pos]
		s.GoalsRemaining[ts.Effect.GoalKey] += len(ts.Effect.Interior)
	}
}
