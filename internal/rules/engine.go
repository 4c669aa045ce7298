package rules

import (
	"strings"

	notnil "github.com/notnil/chess"

	"openinglens/pkg/line"
)

// engine adapts notnil/chess to the Engine interface.
type engine struct {
	game *notnil.Game
	sans []string // canonical SAN history, parallel to game.Moves()
	last *Move
}

// NewEngine returns an Engine at the standard starting position.
func NewEngine() Engine {
	return &engine{game: notnil.NewGame()}
}

func (e *engine) Reset() {
	e.game = notnil.NewGame()
	e.sans = nil
	e.last = nil
}

func (e *engine) LoadMovetext(text string) error {
	game := notnil.NewGame()
	var sans []string
	var last *Move
	for _, tok := range line.Tokens(line.Normalize(text)) {
		pos := game.Position()
		if err := game.MoveStr(tok); err != nil {
			return &MalformedMovetextError{Token: tok, Err: err}
		}
		moves := game.Moves()
		applied := moves[len(moves)-1]
		san := notnil.AlgebraicNotation{}.Encode(pos, applied)
		sans = append(sans, san)
		last = e.toMove(applied, san)
	}
	e.game = game
	e.sans = sans
	e.last = last
	return nil
}

func (e *engine) ApplySAN(san string) (*Move, error) {
	pos := e.game.Position()
	if err := e.game.MoveStr(san); err != nil {
		return nil, &MalformedMovetextError{Token: san, Err: err}
	}
	moves := e.game.Moves()
	applied := moves[len(moves)-1]
	canonical := notnil.AlgebraicNotation{}.Encode(pos, applied)
	e.sans = append(e.sans, canonical)
	e.last = e.toMove(applied, canonical)
	return e.last, nil
}

func (e *engine) ApplyMove(from, to Square, promotion PieceType) (*Move, error) {
	target := e.matchLegalMove(from, to, promotion)
	if target == nil {
		return nil, &IllegalMoveError{From: from, To: to}
	}

	pos := e.game.Position()
	canonical := notnil.AlgebraicNotation{}.Encode(pos, target)
	if err := e.game.Move(target); err != nil {
		return nil, &IllegalMoveError{From: from, To: to}
	}
	e.sans = append(e.sans, canonical)
	e.last = e.toMove(target, canonical)
	return e.last, nil
}

// matchLegalMove finds the legal move for a from/to pair. When the pair
// promotes and no promotion piece is given, queen is assumed.
func (e *engine) matchLegalMove(from, to Square, promotion PieceType) *notnil.Move {
	if promotion == "" {
		promotion = Queen
	}
	var plain, promoted *notnil.Move
	for _, mv := range e.game.ValidMoves() {
		if fromNotnilSquare(mv.S1()) != from || fromNotnilSquare(mv.S2()) != to {
			continue
		}
		if mv.Promo() == notnil.NoPieceType {
			plain = mv
		} else if fromNotnilPieceType(mv.Promo()) == promotion {
			promoted = mv
		}
	}
	if promoted != nil {
		return promoted
	}
	return plain
}

func (e *engine) LegalDestinations(from Square) []Square {
	var dests []Square
	seen := make(map[Square]bool)
	for _, mv := range e.game.ValidMoves() {
		if fromNotnilSquare(mv.S1()) != from {
			continue
		}
		to := fromNotnilSquare(mv.S2())
		if !seen[to] {
			seen[to] = true
			dests = append(dests, to)
		}
	}
	return dests
}

func (e *engine) PieceAt(sq Square) (Piece, bool) {
	p := e.game.Position().Board().Piece(toNotnilSquare(sq))
	if p == notnil.NoPiece {
		return Piece{}, false
	}
	return Piece{
		Color: fromNotnilColor(p.Color()),
		Type:  fromNotnilPieceType(p.Type()),
	}, true
}

func (e *engine) Turn() Color {
	return fromNotnilColor(e.game.Position().Turn())
}

func (e *engine) InCheck() bool {
	if len(e.sans) == 0 {
		return false
	}
	return strings.ContainsAny(e.sans[len(e.sans)-1], "+#")
}

func (e *engine) IsMate() bool {
	return e.game.Position().Status() == notnil.Checkmate
}

func (e *engine) IsStalemate() bool {
	return e.game.Position().Status() == notnil.Stalemate
}

func (e *engine) IsDraw() bool {
	return e.game.Outcome() == notnil.Draw
}

func (e *engine) LastApplied() *Move {
	return e.last
}

func (e *engine) History() []string {
	out := make([]string, len(e.sans))
	copy(out, e.sans)
	return out
}

func (e *engine) PositionAsMovetext() string {
	return line.Numbered(e.sans)
}

func (e *engine) toMove(mv *notnil.Move, san string) *Move {
	m := &Move{
		From: fromNotnilSquare(mv.S1()),
		To:   fromNotnilSquare(mv.S2()),
		SAN:  san,
	}
	if mv.Promo() != notnil.NoPieceType {
		m.Promotion = fromNotnilPieceType(mv.Promo())
	}
	return m
}

func toNotnilSquare(sq Square) notnil.Square {
	return notnil.Square(sq.Rank()*8 + sq.File())
}

func fromNotnilSquare(sq notnil.Square) Square {
	return Square(sq.String())
}

func fromNotnilColor(c notnil.Color) Color {
	if c == notnil.White {
		return White
	}
	return Black
}

func fromNotnilPieceType(t notnil.PieceType) PieceType {
	switch t {
	case notnil.King:
		return King
	case notnil.Queen:
		return Queen
	case notnil.Rook:
		return Rook
	case notnil.Bishop:
		return Bishop
	case notnil.Knight:
		return Knight
	default:
		return Pawn
	}
}
