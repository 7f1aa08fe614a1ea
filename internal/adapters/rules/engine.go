// Package rules adapts github.com/corentings/chess/v2 to core.RulesEngine.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Engine is not safe for concurrent use; the session loop owns it.
type Engine struct {
	game *nchess.Game
}

func NewEngine() *Engine {
	return &Engine{game: nchess.NewGame()}
}

func (e *Engine) Turn() domain.Color {
	return colorFrom(e.game.Position().Turn())
}

func (e *Engine) Status() domain.GameStatus {
	st := domain.GameStatus{
		Turn:    e.Turn(),
		Outcome: domain.OutcomeNone,
	}
	st.Check = e.inCheck()
	if last := e.lastMove(); last != nil {
		st.LastCapture = last.HasTag(nchess.Capture) || last.HasTag(nchess.EnPassant)
	}
	switch e.game.Outcome() {
	case nchess.WhiteWon:
		st.Outcome = domain.OutcomeWhiteWon
	case nchess.BlackWon:
		st.Outcome = domain.OutcomeBlackWon
	case nchess.Draw:
		st.Outcome = domain.OutcomeDraw
	}
	switch e.game.Method() {
	case nchess.Checkmate:
		st.Checkmate = true
	case nchess.Stalemate:
		st.Stalemate = true
	}
	st.Draw = st.Outcome == domain.OutcomeDraw
	return st
}

func (e *Engine) PieceAt(sq domain.Square) (domain.PieceKind, domain.Color, bool) {
	csq, ok := toSquare(sq)
	if !ok {
		return domain.NoPiece, domain.White, false
	}
	piece := e.game.Position().Board().Piece(csq)
	if piece == nchess.NoPiece {
		return domain.NoPiece, domain.White, false
	}
	return kindFrom(piece.Type()), colorFrom(piece.Color()), true
}

// Apply plays req in long algebraic form.
func (e *Engine) Apply(req domain.MoveRequest) (domain.MoveRecord, error) {
	if !req.From.Valid() || !req.To.Valid() {
		return domain.MoveRecord{}, fmt.Errorf("%w: %s", core.ErrIllegalMove, req.UCI())
	}
	if err := e.game.PushNotationMove(req.UCI(), nchess.UCINotation{}, nil); err != nil {
		return domain.MoveRecord{}, fmt.Errorf("%w: %s: %v", core.ErrIllegalMove, req.UCI(), err)
	}
	return e.record(), nil
}

// ApplySAN accepts standard algebraic notation and falls back to long algebraic.
func (e *Engine) ApplySAN(san string) (domain.MoveRecord, error) {
	san = strings.TrimSpace(san)
	if san == "" {
		return domain.MoveRecord{}, fmt.Errorf("%w: empty notation", core.ErrIllegalMove)
	}
	err := e.game.PushNotationMove(san, nchess.AlgebraicNotation{}, nil)
	if err != nil {
		if uerr := e.game.PushNotationMove(strings.ToLower(san), nchess.UCINotation{}, nil); uerr != nil {
			return domain.MoveRecord{}, fmt.Errorf("%w: %s: %v", core.ErrIllegalMove, san, err)
		}
	}
	return e.record(), nil
}

// record describes the move just played.
func (e *Engine) record() domain.MoveRecord {
	moves := e.game.Moves()
	positions := e.game.Positions()
	mv := moves[len(moves)-1]
	before := positions[len(positions)-2]

	rec := domain.MoveRecord{
		From:    domain.Square(mv.S1().String()),
		To:      domain.Square(mv.S2().String()),
		SAN:     nchess.AlgebraicNotation{}.Encode(before, mv),
		FEN:     e.game.FEN(),
		Capture: mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
		Check:   mv.HasTag(nchess.Check),
	}
	if promo := mv.Promo(); promo != nchess.NoPieceType {
		rec.Promotion = kindFrom(promo)
	}
	return rec
}

// Undo replays every move but the last from the starting position, so a
// game loaded from FEN or PGN keeps its origin.
func (e *Engine) Undo() bool {
	moves := e.game.Moves()
	if len(moves) == 0 {
		return false
	}
	positions := e.game.Positions()
	game, err := fromPosition(positions[0].String())
	if err != nil {
		return false
	}
	for i, mv := range moves[:len(moves)-1] {
		uci := nchess.UCINotation{}.Encode(positions[i], mv)
		if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return false
		}
	}
	e.game = game
	return true
}

func (e *Engine) Reset() { e.game = nchess.NewGame() }

func (e *Engine) FEN() string { return e.game.FEN() }

func (e *Engine) LoadFEN(fen string) error {
	game, err := fromPosition(strings.TrimSpace(fen))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidLocator, err)
	}
	e.game = game
	return nil
}

func (e *Engine) PGN() string { return e.game.String() }

// LoadPGN replaces the game only when pgn parses.
func (e *Engine) LoadPGN(pgn string) error {
	if strings.TrimSpace(pgn) == "" {
		return fmt.Errorf("%w: empty", core.ErrInvalidPGN)
	}
	opt, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidPGN, err)
	}
	e.game = nchess.NewGame(opt)
	return nil
}

func (e *Engine) Plies() int { return len(e.game.Moves()) }

func (e *Engine) lastMove() *nchess.Move {
	moves := e.game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

// inCheck reports whether the side to move is attacked, however the
// position was reached. The attacker is given the move on a copy of the
// board without its own king, so none of its captures are filtered as
// self-check; any of them landing on the defending king means check.
func (e *Engine) inCheck() bool {
	pos := e.game.Position()
	defender := pos.Turn()
	squares := pos.Board().SquareMap()

	king, found := nchess.A1, false
	board := make(map[nchess.Square]nchess.Piece, len(squares))
	for sq, piece := range squares {
		switch {
		case piece.Type() == nchess.King && piece.Color() == defender:
			king, found = sq, true
		case piece.Type() == nchess.King:
			continue
		}
		board[sq] = piece
	}
	if !found {
		return false
	}

	fen := nchess.NewBoard(board).String() + " " + defender.Other().String() + " - - 0 1"
	opt, err := nchess.FEN(fen)
	if err != nil {
		return false
	}
	moves := nchess.NewGame(opt).ValidMoves()
	for i := range moves {
		if moves[i].S2() == king {
			return true
		}
	}
	return false
}

func fromPosition(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	game := nchess.NewGame(opt)
	if game.FEN() != startFEN {
		// keeps PGN exports replayable from the same origin
		game.AddTagPair("SetUp", "1")
		game.AddTagPair("FEN", game.FEN())
	}
	return game, nil
}

func toSquare(sq domain.Square) (nchess.Square, bool) {
	sq, err := domain.ParseSquare(string(sq))
	if err != nil {
		return nchess.A1, false
	}
	file := nchess.File(sq[0] - 'a')
	rank := nchess.Rank(sq[1] - '1')
	return nchess.NewSquare(file, rank), true
}

func colorFrom(c nchess.Color) domain.Color {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func kindFrom(pt nchess.PieceType) domain.PieceKind {
	switch pt {
	case nchess.Pawn:
		return domain.Pawn
	case nchess.Knight:
		return domain.Knight
	case nchess.Bishop:
		return domain.Bishop
	case nchess.Rook:
		return domain.Rook
	case nchess.Queen:
		return domain.Queen
	case nchess.King:
		return domain.King
	default:
		return domain.NoPiece
	}
}

var _ core.RulesEngine = (*Engine)(nil)
