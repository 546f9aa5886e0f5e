// Package leveltest builds small, hand-authored boardmodel.Level fixtures
// for use from other packages' test files, so test boards read as
// declarative data rather than struct literals repeated across files.
package leveltest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tilebench/core/internal/boardmodel"
)

// P is shorthand for a layer-local position.
func P(x, y int) boardmodel.Pos { return boardmodel.Pos{X: x, Y: y} }

// Plain returns a tile descriptor with no effect.
func Plain(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType}
}

// Ice returns a tile descriptor under 3 layers of ice.
func Ice(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "ice"}
}

// Grass returns a tile descriptor under grass, with an explicit layer
// count when n > 0.
func Grass(tileType string, n int) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "grass", Extra: boardmodel.ExtraData{GrassLayer: n}}
}

// Bomb returns a tile descriptor with a bomb countdown.
func Bomb(tileType string, countdown int) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "bomb", Extra: boardmodel.ExtraData{BombCount: countdown}}
}

// Chain returns a tile descriptor locked behind a chain.
func Chain(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "chain"}
}

// Curtain returns a closed curtain tile descriptor.
func Curtain(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "curtain"}
}

// Frog returns a tile descriptor tagged as a frog perch.
func Frog(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "frog"}
}

// Teleport returns a tile descriptor tagged as a teleport tile.
func Teleport(tileType string) boardmodel.TileDescriptor {
	return boardmodel.TileDescriptor{Type: tileType, Effect: "teleport"}
}

// Link returns a tile descriptor linked to its neighbor in dir ("n",
// "s", "e", "w", ...).
func Link(t *testing.T, tileType, dir string) boardmodel.TileDescriptor {
	d, ok := boardmodel.ParseDirection(dir)
	require.True(t, ok, "bad direction %q", dir)
	return boardmodel.TileDescriptor{Type: tileType, Effect: "link_" + dir, LinkDir: d}
}

// CraftBox returns a craft-box descriptor emitting in dir with the given
// interior tile count.
func CraftBox(t *testing.T, dir string, count int) boardmodel.TileDescriptor {
	d, ok := boardmodel.ParseDirection(dir)
	require.True(t, ok, "bad direction %q", dir)
	return boardmodel.TileDescriptor{Type: "craft", BoxDir: d, Extra: boardmodel.ExtraData{TotalCount: count}}
}

// StackBox returns a stack-box descriptor emitting in dir with the given
// interior tile count.
func StackBox(t *testing.T, dir string, count int) boardmodel.TileDescriptor {
	d, ok := boardmodel.ParseDirection(dir)
	require.True(t, ok, "bad direction %q", dir)
	return boardmodel.TileDescriptor{Type: "stack", BoxDir: d, Extra: boardmodel.ExtraData{TotalCount: count}}
}

// SingleLayer builds a one-layer Level from a sparse tile map.
func SingleLayer(t *testing.T, cols, rows, maxMoves, useTileCount int, seed int64, tiles map[boardmodel.Pos]boardmodel.TileDescriptor) *boardmodel.Level {
	t.Helper()
	layer := boardmodel.LayerSpec{Cols: cols, Rows: rows, Tiles: tiles}
	lvl, err := boardmodel.NewLevel([]boardmodel.LayerSpec{layer}, maxMoves, useTileCount, seed, nil)
	require.NoError(t, err)
	return lvl
}

// MultiLayer builds a multi-layer Level from per-layer sparse tile maps.
func MultiLayer(t *testing.T, specs []boardmodel.LayerSpec, maxMoves, useTileCount int, seed int64) *boardmodel.Level {
	t.Helper()
	lvl, err := boardmodel.NewLevel(specs, maxMoves, useTileCount, seed, nil)
	require.NoError(t, err)
	return lvl
}
