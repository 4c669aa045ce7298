// Package rules defines the chess legality collaborator used by the
// board controller. The engine is opaque to the rest of the system:
// components hand it movetext and candidate moves and receive validated
// positions back. The concrete implementation wraps notnil/chess; tests
// that only exercise synchronization logic substitute fakes.
package rules

import (
	"fmt"
	"regexp"
)

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// PieceType identifies a kind of piece, lowercase algebraic letter
// ("p", "n", "b", "r", "q", "k").
type PieceType string

const (
	Pawn   PieceType = "p"
	Knight PieceType = "n"
	Bishop PieceType = "b"
	Rook   PieceType = "r"
	Queen  PieceType = "q"
	King   PieceType = "k"
)

// Piece is a colored piece on a square.
type Piece struct {
	Color Color
	Type  PieceType
}

// Square is a board coordinate in algebraic form ("e4").
type Square string

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// ParseSquare validates s as an algebraic square coordinate.
func ParseSquare(s string) (Square, error) {
	if !squarePattern.MatchString(s) {
		return "", fmt.Errorf("invalid square %q: must match [a-h][1-8]", s)
	}
	return Square(s), nil
}

// File returns the zero-based file index (a=0 .. h=7).
func (sq Square) File() int { return int(sq[0] - 'a') }

// Rank returns the zero-based rank index (1=0 .. 8=7).
func (sq Square) Rank() int { return int(sq[1] - '1') }

// Move is a validated, applied move.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType // empty unless the move promotes
	SAN       string    // canonical algebraic notation, check/mate marks included
}

// Engine is the external rules-validation capability. Implementations
// own the authoritative position; callers never inspect it beyond the
// methods here.
//
// Engines are not safe for concurrent use.
type Engine interface {
	// Reset returns the engine to the standard starting position.
	Reset()

	// LoadMovetext replays movetext from the starting position.
	// All-or-nothing: on failure the prior position is untouched and a
	// MalformedMovetextError is returned.
	LoadMovetext(text string) error

	// ApplySAN applies a single move given in algebraic notation.
	ApplySAN(san string) (*Move, error)

	// ApplyMove applies a move by coordinates. An empty promotion
	// defaults to queen when the move promotes. Returns an
	// IllegalMoveError if no legal move matches.
	ApplyMove(from, to Square, promotion PieceType) (*Move, error)

	// LegalDestinations lists the squares the piece on from may move to.
	// Empty when the square is empty, holds an opponent piece, or the
	// piece has no legal moves.
	LegalDestinations(from Square) []Square

	// PieceAt reports the piece on a square, if any.
	PieceAt(sq Square) (Piece, bool)

	// Turn reports the side to move.
	Turn() Color

	// Position predicates.
	InCheck() bool
	IsMate() bool
	IsStalemate() bool
	IsDraw() bool

	// History returns the canonical SAN tokens of all moves played.
	History() []string

	// LastApplied returns the most recently applied move, or nil at the
	// starting position.
	LastApplied() *Move

	// PositionAsMovetext serializes the position's move history as
	// numbered movetext ("1. e4 e5 2. Nf3").
	PositionAsMovetext() string
}

// Factory produces fresh engines at the starting position. The board
// controller uses one to rebuild positions during replay.
type Factory func() Engine

// MalformedMovetextError indicates movetext that failed replay. The
// position that was current before the load attempt is preserved.
type MalformedMovetextError struct {
	Token string // the token that failed to apply
	Err   error
}

func (e *MalformedMovetextError) Error() string {
	return fmt.Sprintf("malformed movetext: token %q failed replay: %v", e.Token, e.Err)
}

func (e *MalformedMovetextError) Unwrap() error { return e.Err }

// IsMalformedMovetext returns true if the error is a MalformedMovetextError.
func IsMalformedMovetext(err error) bool {
	_, ok := err.(*MalformedMovetextError)
	return ok
}

// IllegalMoveError indicates a from/to pair with no matching legal move.
type IllegalMoveError struct {
	From Square
	To   Square
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move: %s-%s", e.From, e.To)
}

// IsIllegalMove returns true if the error is an IllegalMoveError.
func IsIllegalMove(err error) bool {
	_, ok := err.(*IllegalMoveError)
	return ok
}
