package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
	"blitz": {
		"1500-2000": [
			{
				"move": "e4",
				"name": "King's Pawn Game",
				"count": 1200,
				"stats": [0.48, 0.07, 0.45],
				"children": [
					{"move": "e5", "count": 700, "stats": [0.47, 0.08, 0.45]},
					{"move": "c5", "name": "Sicilian Defense", "count": 500, "stats": [0.5, 0.05, 0.45]}
				]
			},
			{"move": "d4", "count": 800, "stats": [0.49, 0.1, 0.41]}
		]
	}
}`

func TestDecode(t *testing.T) {
	t.Run("accepts a valid dataset", func(t *testing.T) {
		d, err := Decode(strings.NewReader(validJSON))
		require.NoError(t, err)

		forest, err := d.Slice("blitz", "1500-2000")
		require.NoError(t, err)
		require.Len(t, forest, 2)
		assert.Equal(t, "e4", forest[0].Move)
		assert.Equal(t, "Sicilian Defense", forest[0].Children[1].Name)
	})

	t.Run("rejects unknown time control", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"correspondence": {}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown time control")
	})

	t.Run("rejects unknown elo bracket", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"0-100": []}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown elo bracket")
	})

	t.Run("rejects missing move", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [{"count": 1, "stats": [0.5, 0.2, 0.3]}]}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "move is required")
	})

	t.Run("rejects wrong stats arity", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [{"move": "e4", "count": 1, "stats": [0.5, 0.5]}]}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stats")
	})

	t.Run("rejects out-of-range rates", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [{"move": "e4", "count": 1, "stats": [1.5, 0, 0]}]}}`))
		require.Error(t, err)
	})

	t.Run("rejects zero count", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [{"move": "e4", "count": 0, "stats": [0.5, 0.2, 0.3]}]}}`))
		require.Error(t, err)
	})

	t.Run("rejects invalid child nodes", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [
			{"move": "e4", "count": 2, "stats": [0.5, 0.2, 0.3],
			 "children": [{"move": "", "count": 1, "stats": [0.5, 0.2, 0.3]}]}
		]}}`))
		require.Error(t, err)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"blitz": {"2000+": [{"move": "e4", "count": 1, "stats": [0.5, 0.2, 0.3], "winrate": 0.5}]}}`))
		require.Error(t, err)
	})
}

func TestSlice(t *testing.T) {
	d, err := Decode(strings.NewReader(validJSON))
	require.NoError(t, err)

	t.Run("missing time control", func(t *testing.T) {
		_, err := d.Slice("rapid", "1500-2000")
		require.Error(t, err)
		assert.True(t, IsMissingSlice(err))
	})

	t.Run("missing elo bracket", func(t *testing.T) {
		_, err := d.Slice("blitz", "2000+")
		require.Error(t, err)
		assert.True(t, IsMissingSlice(err))
	})
}
