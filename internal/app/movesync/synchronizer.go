// Package movesync enforces turn order between two peers before moves reach
// the rules engine, and keeps both boards in step.
package movesync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dkeye/peerchess/internal/app/role"
	"github.com/dkeye/peerchess/internal/app/router"
	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

type Outcome int

const (
	Applied Outcome = iota
	Illegal
	OutOfTurn
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Illegal:
		return "illegal"
	case OutOfTurn:
		return "out_of_turn"
	default:
		return "unknown"
	}
}

// Recorder persists one navigation entry per accepted ply.
type Recorder interface {
	Record(ctx context.Context) error
}

// Sender writes a wire message to the peer.
type Sender interface {
	Send(m router.Message) error
}

// Synchronizer runs on the session loop.
type Synchronizer struct {
	rules     core.RulesEngine
	roles     *role.Assigner
	history   Recorder
	sender    Sender
	connected func() bool
	logger    zerolog.Logger
}

func New(rules core.RulesEngine, roles *role.Assigner, history Recorder, sender Sender, connected func() bool, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		rules:     rules,
		roles:     roles,
		history:   history,
		sender:    sender,
		connected: connected,
		logger:    logger.With().Str("module", "app.movesync").Logger(),
	}
}

// SubmitLocal plays a move from the local input surface. The returned error
// is only a send failure; the move is then already applied locally.
func (s *Synchronizer) SubmitLocal(ctx context.Context, req domain.MoveRequest) (domain.MoveRecord, Outcome, error) {
	online := s.connected()
	if online && !s.mayMove(true) {
		s.logger.Debug().Str("move", req.UCI()).Msg("local move out of turn")
		return domain.MoveRecord{}, OutOfTurn, nil
	}

	if req.Piece == domain.NoPiece {
		if kind, _, ok := s.rules.PieceAt(req.From); ok {
			req.Piece = kind
		}
	}
	rec, err := s.rules.Apply(req.WithAutoPromotion())
	if err != nil {
		if errors.Is(err, core.ErrIllegalMove) {
			s.logger.Debug().Err(err).Msg("local move rejected")
			return domain.MoveRecord{}, Illegal, nil
		}
		return domain.MoveRecord{}, Illegal, fmt.Errorf("apply local move: %w", err)
	}
	s.record(ctx, rec)
	return rec, Applied, s.deliver(online, rec)
}

// SubmitLocalSAN plays a move typed as notation, e.g. chat text "move:Nf3".
// It goes through the same turn checks as SubmitLocal and is sent only
// once accepted.
func (s *Synchronizer) SubmitLocalSAN(ctx context.Context, san string) (domain.MoveRecord, Outcome, error) {
	online := s.connected()
	if online && !s.mayMove(true) {
		s.logger.Debug().Str("san", san).Msg("local move out of turn")
		return domain.MoveRecord{}, OutOfTurn, nil
	}

	rec, err := s.applySAN(san)
	if err != nil {
		if errors.Is(err, core.ErrIllegalMove) {
			s.logger.Debug().Err(err).Msg("local move rejected")
			return domain.MoveRecord{}, Illegal, nil
		}
		return domain.MoveRecord{}, Illegal, fmt.Errorf("apply local move: %w", err)
	}
	s.record(ctx, rec)
	return rec, Applied, s.deliver(online, rec)
}

func (s *Synchronizer) deliver(online bool, rec domain.MoveRecord) error {
	if !online {
		return nil
	}
	if err := s.sender.Send(router.MoveMessage{SAN: rec.SAN}); err != nil {
		s.logger.Warn().Err(err).Str("san", rec.SAN).Msg("move applied but not delivered")
		return err
	}
	return nil
}

// ApplyRemote plays a move received from the peer. It is never echoed.
func (s *Synchronizer) ApplyRemote(ctx context.Context, san string) (domain.MoveRecord, Outcome) {
	if s.connected() && !s.mayMove(false) {
		s.logger.Warn().Str("san", san).Msg("remote move out of turn")
		return domain.MoveRecord{}, OutOfTurn
	}

	rec, err := s.applySAN(san)
	if err != nil {
		s.logger.Warn().Err(err).Msg("remote move rejected")
		return domain.MoveRecord{}, Illegal
	}
	s.record(ctx, rec)
	return rec, Applied
}

// applySAN retries a pawn move onto the last rank as a queen promotion.
func (s *Synchronizer) applySAN(san string) (domain.MoveRecord, error) {
	rec, err := s.rules.ApplySAN(san)
	if err == nil {
		return rec, nil
	}
	promoted, ok := queenPromotion(san)
	if !ok {
		return domain.MoveRecord{}, err
	}
	return s.rules.ApplySAN(promoted)
}

// mayMove resolves colors on first use and checks the mover against the turn.
func (s *Synchronizer) mayMove(isLocal bool) bool {
	return s.roles.MoverColor(isLocal) == s.rules.Turn()
}

func (s *Synchronizer) record(ctx context.Context, rec domain.MoveRecord) {
	if err := s.history.Record(ctx); err != nil {
		s.logger.Warn().Err(err).Str("san", rec.SAN).Msg("history entry lost")
	}
}

// queenPromotion appends "=Q" to a pawn move onto the last rank written
// without a promotion piece, e.g. "e8" or "dxe1+".
func queenPromotion(san string) (string, bool) {
	san = strings.TrimSpace(san)
	body := strings.TrimRight(san, "+#")
	suffix := san[len(body):]
	if len(body) < 2 || strings.Contains(body, "=") {
		return "", false
	}
	if c := body[0]; c < 'a' || c > 'h' {
		return "", false
	}
	if rank := body[len(body)-1]; rank != '1' && rank != '8' {
		return "", false
	}
	return body + "=Q" + suffix, true
}
