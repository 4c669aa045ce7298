package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSquare(t *testing.T) {
	t.Run("valid squares", func(t *testing.T) {
		for _, s := range []string{"a1", "e4", "h8"} {
			sq, err := ParseSquare(s)
			require.NoError(t, err)
			assert.Equal(t, Square(s), sq)
		}
	})

	t.Run("invalid squares", func(t *testing.T) {
		for _, s := range []string{"", "e9", "i4", "e", "44", "E4"} {
			_, err := ParseSquare(s)
			assert.Error(t, err, "square %q", s)
		}
	})
}

func TestSquareCoordinates(t *testing.T) {
	assert.Equal(t, 0, Square("a1").File())
	assert.Equal(t, 0, Square("a1").Rank())
	assert.Equal(t, 4, Square("e2").File())
	assert.Equal(t, 1, Square("e2").Rank())
	assert.Equal(t, 7, Square("h8").File())
	assert.Equal(t, 7, Square("h8").Rank())
}

func TestEngineLoadMovetext(t *testing.T) {
	t.Run("replays valid movetext", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.LoadMovetext("1. e4 e5 2. Nf3"))

		assert.Equal(t, []string{"e4", "e5", "Nf3"}, e.History())
		assert.Equal(t, Black, e.Turn())
		assert.Equal(t, "1. e4 e5 2. Nf3", e.PositionAsMovetext())
	})

	t.Run("rejects illegal movetext and keeps prior position", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.LoadMovetext("1. e4"))

		err := e.LoadMovetext("1. e4 e4") // black cannot play e4
		require.Error(t, err)
		assert.True(t, IsMalformedMovetext(err))
		assert.Equal(t, []string{"e4"}, e.History(), "prior position must be untouched")
	})

	t.Run("empty movetext resets to the start", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.LoadMovetext(""))
		assert.Empty(t, e.History())
		assert.Equal(t, White, e.Turn())
	})
}

func TestEngineApplyMove(t *testing.T) {
	t.Run("applies a legal pawn move", func(t *testing.T) {
		e := NewEngine()
		mv, err := e.ApplyMove("e2", "e4", "")
		require.NoError(t, err)

		assert.Equal(t, Square("e2"), mv.From)
		assert.Equal(t, Square("e4"), mv.To)
		assert.Equal(t, "e4", mv.SAN)
		assert.Equal(t, Black, e.Turn())
	})

	t.Run("rejects an illegal move", func(t *testing.T) {
		e := NewEngine()
		_, err := e.ApplyMove("e2", "e5", "")
		require.Error(t, err)
		assert.True(t, IsIllegalMove(err))
		assert.Equal(t, White, e.Turn(), "turn must not advance")
	})

	t.Run("serializes to numbered movetext", func(t *testing.T) {
		e := NewEngine()
		_, err := e.ApplyMove("e2", "e4", "")
		require.NoError(t, err)
		_, err = e.ApplyMove("e7", "e5", "")
		require.NoError(t, err)
		_, err = e.ApplyMove("g1", "f3", "")
		require.NoError(t, err)

		assert.Equal(t, "1. e4 e5 2. Nf3", e.PositionAsMovetext())
	})
}

func TestEngineLegalDestinations(t *testing.T) {
	e := NewEngine()

	t.Run("pawn has two destinations from the start", func(t *testing.T) {
		assert.ElementsMatch(t, []Square{"e3", "e4"}, e.LegalDestinations("e2"))
	})

	t.Run("knight has two destinations from the start", func(t *testing.T) {
		assert.ElementsMatch(t, []Square{"f3", "h3"}, e.LegalDestinations("g1"))
	})

	t.Run("empty square has none", func(t *testing.T) {
		assert.Empty(t, e.LegalDestinations("e4"))
	})

	t.Run("opponent piece has none on our turn", func(t *testing.T) {
		assert.Empty(t, e.LegalDestinations("e7"))
	})
}

func TestEnginePieceAt(t *testing.T) {
	e := NewEngine()

	p, ok := e.PieceAt("e2")
	require.True(t, ok)
	assert.Equal(t, Piece{Color: White, Type: Pawn}, p)

	p, ok = e.PieceAt("g8")
	require.True(t, ok)
	assert.Equal(t, Piece{Color: Black, Type: Knight}, p)

	_, ok = e.PieceAt("e4")
	assert.False(t, ok)
}

func TestEnginePredicates(t *testing.T) {
	t.Run("scholar's mate", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.LoadMovetext("1. e4 e5 2. Bc4 Nc6 3. Qh5 Nf6 4. Qxf7#"))

		assert.True(t, e.IsMate())
		assert.True(t, e.InCheck())
		assert.False(t, e.IsStalemate())
	})

	t.Run("check without mate", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.LoadMovetext("1. e4 e5 2. Qh5 Nc6 3. Qxf7+"))
		assert.True(t, e.InCheck())
		assert.False(t, e.IsMate())
	})

	t.Run("starting position is quiet", func(t *testing.T) {
		e := NewEngine()
		assert.False(t, e.InCheck())
		assert.False(t, e.IsMate())
		assert.False(t, e.IsStalemate())
		assert.False(t, e.IsDraw())
	})
}

func TestEngineReset(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadMovetext("1. e4 e5"))

	e.Reset()

	assert.Empty(t, e.History())
	assert.Equal(t, White, e.Turn())
	assert.Equal(t, "", e.PositionAsMovetext())
}
