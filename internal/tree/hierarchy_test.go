package tree

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openinglens/internal/catalog"
	"openinglens/internal/dataset"
)

const fixtureJSON = `{
	"blitz": {
		"1500-2000": [
			{
				"move": "e4",
				"name": "King's Pawn Game",
				"count": 600,
				"stats": [0.48, 0.07, 0.45],
				"children": [
					{
						"move": "e5",
						"count": 300,
						"stats": [0.47, 0.08, 0.45],
						"children": [
							{"move": "Nf3", "count": 200, "stats": [0.5, 0.1, 0.4]}
						]
					},
					{"move": "c5", "name": "Sicilian Defense", "count": 100, "stats": [0.5, 0.05, 0.45]}
				]
			},
			{"move": "d4", "count": 200, "stats": [0.49, 0.1, 0.41]}
		]
	}
}`

const fixtureCatalog = `{
	"All": "",
	"King's Knight": "1. e4 e5 2. Nf3",
	"Sicilian Defense": "1. e4 c5",
	"Queen's Gambit": "1. d4 d5 2. c4"
}`

func fixture(t *testing.T) (*dataset.Dataset, *catalog.Catalog) {
	t.Helper()
	d, err := dataset.Decode(strings.NewReader(fixtureJSON))
	require.NoError(t, err)
	c, err := catalog.Decode(strings.NewReader(fixtureCatalog))
	require.NoError(t, err)
	return d, c
}

func TestBuild(t *testing.T) {
	d, c := fixture(t)

	t.Run("full forest without opening filter", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
		require.NoError(t, err)

		assert.Equal(t, "", h.Root.Move, "synthetic root carries no move")
		require.Len(t, h.Root.Children, 2)
		assert.Equal(t, "e4", h.Root.Children[0].Move)
		assert.Equal(t, "d4", h.Root.Children[1].Move)
		assert.False(t, h.Partial)
	})

	t.Run("opening filter roots the subtree at the first prefix move", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", "King's Knight")
		require.NoError(t, err)

		assert.Equal(t, "e4", h.Root.Move)
		assert.False(t, h.Partial, "full prefix e4 e5 Nf3 exists in the data")
	})

	t.Run("partial prefix still builds", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", "Queen's Gambit")
		require.NoError(t, err)

		assert.Equal(t, "d4", h.Root.Move)
		assert.True(t, h.Partial, "d5 and c4 are absent from the data")
	})

	t.Run("opening with no matching first move", func(t *testing.T) {
		_, err := Build(d, c, "blitz", "1500-2000", "Unknown Opening")
		require.Error(t, err)
		assert.True(t, IsOpeningNotFound(err))
	})

	t.Run("missing slice propagates", func(t *testing.T) {
		_, err := Build(d, c, "rapid", "2000+", catalog.AllOpening)
		require.Error(t, err)
		assert.True(t, dataset.IsMissingSlice(err))
	})
}

func TestLayout(t *testing.T) {
	d, c := fixture(t)
	h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
	require.NoError(t, err)

	root := h.Root
	assert.InDelta(t, 0, root.X0, 1e-9)
	assert.InDelta(t, 2*math.Pi, root.X1, 1e-9)
	assert.Equal(t, 0, root.Depth)

	// e4 holds 600 of 800 games: three quarters of the circle.
	e4 := root.Children[0]
	assert.InDelta(t, 0, e4.X0, 1e-9)
	assert.InDelta(t, 1.5*math.Pi, e4.X1, 1e-9)
	assert.Equal(t, 1, e4.Depth)

	// d4 takes the remaining quarter, adjacent to e4.
	d4 := root.Children[1]
	assert.InDelta(t, 1.5*math.Pi, d4.X0, 1e-9)
	assert.InDelta(t, 2*math.Pi, d4.X1, 1e-9)

	// Children split the parent span by count: e5 300 of 400.
	e5 := e4.Children[0]
	assert.InDelta(t, e4.X0, e5.X0, 1e-9)
	assert.InDelta(t, e4.X0+(e4.X1-e4.X0)*0.75, e5.X1, 1e-9)
	assert.Equal(t, 2, e5.Depth)

	assert.Equal(t, 3, h.MaxDepth)
}

func TestNodePaths(t *testing.T) {
	d, c := fixture(t)
	h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
	require.NoError(t, err)

	nf3 := h.Root.Children[0].Children[0].Children[0]
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, nf3.Path)
	assert.Nil(t, h.Root.Path)
}

func TestFindNodeForSequence(t *testing.T) {
	d, c := fixture(t)

	t.Run("walks matching tokens", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
		require.NoError(t, err)

		n := h.FindNodeForSequence([]string{"e4", "e5"})
		require.NotNil(t, n)
		assert.Equal(t, "e5", n.Move)
	})

	t.Run("returns nil on the first unmatched token", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
		require.NoError(t, err)

		assert.Nil(t, h.FindNodeForSequence([]string{"c4"}))
		assert.Nil(t, h.FindNodeForSequence([]string{"e4", "c6"}))
	})

	t.Run("empty sequence resolves to the root", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
		require.NoError(t, err)

		assert.Same(t, h.Root, h.FindNodeForSequence(nil))
	})

	t.Run("subtree root skips its own move token", func(t *testing.T) {
		h, err := Build(d, c, "blitz", "1500-2000", "King's Knight")
		require.NoError(t, err)

		n := h.FindNodeForSequence([]string{"e4", "e5", "Nf3"})
		require.NotNil(t, n)
		assert.Equal(t, "Nf3", n.Move)
	})
}

func TestFindDeepestAncestor(t *testing.T) {
	d, c := fixture(t)
	h, err := Build(d, c, "blitz", "1500-2000", catalog.AllOpening)
	require.NoError(t, err)

	t.Run("stops at the last matched node", func(t *testing.T) {
		n := h.FindDeepestAncestor([]string{"e4", "e5", "Nf3", "Nc6", "Bb5"})
		require.NotNil(t, n)
		assert.Equal(t, "Nf3", n.Move)
	})

	t.Run("unmatched first token falls back to the root", func(t *testing.T) {
		assert.Same(t, h.Root, h.FindDeepestAncestor([]string{"c4"}))
	})
}
