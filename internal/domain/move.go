package domain

import (
	"errors"
	"strings"
)

var ErrBadSquare = errors.New("bad square")

// Square is a board coordinate in algebraic form, e.g. "e4".
type Square string

func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return "", ErrBadSquare
	}
	return Square(s), nil
}

func (s Square) Valid() bool {
	_, err := ParseSquare(string(s))
	return err == nil
}

// Rank returns 1..8, or 0 for an invalid square.
func (s Square) Rank() int {
	if !s.Valid() {
		return 0
	}
	return int(s[1] - '0')
}

type PieceKind string

const (
	NoPiece PieceKind = ""
	Pawn    PieceKind = "p"
	Knight  PieceKind = "n"
	Bishop  PieceKind = "b"
	Rook    PieceKind = "r"
	Queen   PieceKind = "q"
	King    PieceKind = "k"
)

func ParsePieceKind(s string) PieceKind {
	switch PieceKind(strings.ToLower(strings.TrimSpace(s))) {
	case Pawn:
		return Pawn
	case Knight:
		return Knight
	case Bishop:
		return Bishop
	case Rook:
		return Rook
	case Queen:
		return Queen
	case King:
		return King
	default:
		return NoPiece
	}
}

// MoveRequest is what the input surface submits. Piece is optional.
type MoveRequest struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Promotion PieceKind `json:"promotion,omitempty"`
	Piece     PieceKind `json:"piece,omitempty"`
}

// WithAutoPromotion annotates a pawn move to the last rank with a queen
// promotion when none was chosen.
func (r MoveRequest) WithAutoPromotion() MoveRequest {
	if r.Piece != Pawn || r.Promotion != NoPiece {
		return r
	}
	if rank := r.To.Rank(); rank == 1 || rank == 8 {
		r.Promotion = Queen
	}
	return r
}

// UCI renders the request as long algebraic notation, e.g. "e7e8q".
func (r MoveRequest) UCI() string {
	return string(r.From) + string(r.To) + string(r.Promotion)
}

// MoveRecord is a move after the rules engine accepted it.
type MoveRecord struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Promotion PieceKind `json:"promotion,omitempty"`
	SAN       string    `json:"san"`
	FEN       string    `json:"fen"`
	Capture   bool      `json:"capture"`
	Check     bool      `json:"check"`
}
