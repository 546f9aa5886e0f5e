package boardmodel

import (
	"fmt"
	"sort"
)

// ExtraData carries the optional structured parameters a tile descriptor
// may attach: interior counts for stack/craft boxes, or initial effect
// parameters for ice/grass/bomb/curtain. Only the fields relevant to the
// descriptor's effect tag are meaningful; the rest are zero.
type ExtraData struct {
	TotalCount int
	GrassLayer int
	BombCount  int
	IsOpen     *bool
}

// TileDescriptor is the raw, as-authored shape of one tile slot on a
// Level, before t0 resolution or effect-state expansion.
type TileDescriptor struct {
	Type    string // raw token: "t0".."t15", "craft", "stack", "craft_<dir>", "stack_<dir>"
	Effect  string // raw effect tag, e.g. "ice_2", "bomb_4", "link_n", ""
	Extra   ExtraData
	LinkDir Direction // resolved only if Effect is a link_* tag
	BoxDir  Direction // resolved only if Type is craft/stack
}

// LayerSpec is one layer's extent plus its sparse tile descriptors.
type LayerSpec struct {
	Cols, Rows int
	Tiles      map[Pos]TileDescriptor
}

// Level is the immutable, shared input to every episode. It is parsed
// once; nothing downstream mutates it.
type Level struct {
	Layers        []LayerSpec
	DockCapacity  int
	MaxMoves      int
	UseTileCount  int
	RandSeed      int64
	GoalCounts    map[string]int // explicit override; nil means derive
}

// NewLevel validates raw layer specs and returns a Level ready for episode
// expansion. Validation failures are fatal to the whole request, never
// absorbed into an episode outcome.
func NewLevel(layers []LayerSpec, maxMoves int, useTileCount int, randSeed int64, goalCounts map[string]int) (*Level, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("boardmodel: level has no layers")
	}
	if len(layers) > 12 {
		return nil, fmt.Errorf("boardmodel: level has %d layers, max is 12", len(layers))
	}
	if useTileCount < 1 {
		useTileCount = 6
	}
	if maxMoves <= 0 {
		return nil, fmt.Errorf("boardmodel: max_moves must be positive, got %d", maxMoves)
	}

	lvl := &Level{
		Layers:       layers,
		DockCapacity: 7,
		MaxMoves:     maxMoves,
		UseTileCount: useTileCount,
		RandSeed:     randSeed,
		GoalCounts:   goalCounts,
	}
	if err := lvl.validate(); err != nil {
		return nil, err
	}
	return lvl, nil
}

func (l *Level) validate() error {
	for li, layer := range l.Layers {
		for pos, td := range layer.Tiles {
			if pos.X < 0 || pos.Y < 0 || pos.X >= layer.Cols || pos.Y >= layer.Rows {
				return fmt.Errorf("boardmodel: layer %d tile %s out of bounds (%dx%d)", li, pos, layer.Cols, layer.Rows)
			}
			if td.Type == "" {
				return fmt.Errorf("boardmodel: layer %d tile %s missing tile type", li, pos)
			}
			if _, _, ok := splitTypeToken(td.Type); !ok {
				return fmt.Errorf("boardmodel: layer %d tile %s has unknown tile type %q", li, pos, td.Type)
			}
			if td.LinkDir != DirNone {
				neighbor, ok := pos.Translate(td.LinkDir)
				if !ok {
					return fmt.Errorf("boardmodel: layer %d tile %s has unresolvable link direction", li, pos)
				}
				if _, exists := layer.Tiles[neighbor]; !exists {
					// A link pointing at an unpopulated cell is inert, not
					// an error.
					continue
				}
			}
			if td.Extra.TotalCount < 0 || td.Extra.GrassLayer < 0 || td.Extra.BombCount < 0 {
				return fmt.Errorf("boardmodel: layer %d tile %s has a negative count", li, pos)
			}
		}
	}
	for goal, count := range l.GoalCounts {
		if count < 0 {
			return fmt.Errorf("boardmodel: goal %q has negative count %d", goal, count)
		}
	}
	return nil
}

// splitTypeToken classifies a raw tile-type token into its base form
// ("t0".."t15", "craft", "stack") plus the box direction carried by a
// compound craft_<dir>/stack_<dir> token. ok is false for tokens outside
// the closed set, which NewLevel rejects.
func splitTypeToken(token string) (base string, dir Direction, ok bool) {
	switch {
	case token == "craft" || token == "stack":
		return token, DirNone, true
	case len(token) > 6 && token[:6] == "craft_":
		d, ok := ParseDirection(token[6:])
		return "craft", d, ok
	case len(token) > 6 && token[:6] == "stack_":
		d, ok := ParseDirection(token[6:])
		return "stack", d, ok
	default:
		var n int
		if _, err := fmt.Sscanf(token, "t%d", &n); err == nil && n >= 0 && n <= 15 && token == fmt.Sprintf("t%d", n) {
			return token, DirNone, true
		}
		return "", DirNone, false
	}
}

// sortedPositions returns a layer's populated positions in canonical
// order: lexicographic by the "x_y" source-form string. Every traversal
// that must be reproducible across (re-)expansion uses this helper.
func sortedPositions(tiles map[Pos]TileDescriptor) []Pos {
	out := make([]Pos, 0, len(tiles))
	for p := range tiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
