package core

import "github.com/dkeye/peerchess/internal/domain"

// RulesEngine owns move legality and the game state. The synchronization
// layer only talks to it through this interface.
type RulesEngine interface {
	Turn() domain.Color
	Status() domain.GameStatus
	// PieceAt reports the piece standing on sq, if any.
	PieceAt(sq domain.Square) (domain.PieceKind, domain.Color, bool)
	// Apply validates and plays a move; ErrIllegalMove when rejected.
	Apply(req domain.MoveRequest) (domain.MoveRecord, error)
	// ApplySAN plays a move given in standard algebraic notation.
	ApplySAN(san string) (domain.MoveRecord, error)
	// Undo takes back the last ply; false when there is none.
	Undo() bool
	Reset()

	FEN() string
	LoadFEN(fen string) error
	PGN() string
	LoadPGN(pgn string) error
	Plies() int
}
