// Package history keeps the game addressable by locator and by per-ply
// navigation entries.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

// Rehydrator is owned by the session loop.
type Rehydrator struct {
	rules  core.RulesEngine
	nav    core.Navigator
	render func()
	logger zerolog.Logger
}

// New wires a rehydrator. render is called after every state reload and may be nil.
func New(rules core.RulesEngine, nav core.Navigator, render func(), logger zerolog.Logger) *Rehydrator {
	if render == nil {
		render = func() {}
	}
	return &Rehydrator{
		rules:  rules,
		nav:    nav,
		render: render,
		logger: logger.With().Str("module", "app.history").Logger(),
	}
}

// Frame describes the current position.
func (r *Rehydrator) Frame() domain.HistoryFrame {
	return domain.HistoryFrame{
		Locator: domain.EncodeLocator(r.rules.FEN()),
		PGN:     r.rules.PGN(),
	}
}

func (r *Rehydrator) Locator() domain.Locator { return domain.EncodeLocator(r.rules.FEN()) }

// LoadFromLocator drops the move list when the locator names another
// position. An empty locator only re-renders.
func (r *Rehydrator) LoadFromLocator(text string) error {
	defer r.render()

	fen := domain.DecodeLocator(text)
	if strings.TrimSpace(fen) == "" {
		return nil
	}
	if fen == r.rules.FEN() {
		return nil
	}
	if err := r.rules.LoadFEN(fen); err != nil {
		return err
	}
	r.logger.Info().Str("fen", fen).Msg("position loaded from locator")
	return nil
}

// RebuildFromPGN makes every ply of pgn a navigation entry, then leaves the
// full game active.
func (r *Rehydrator) RebuildFromPGN(ctx context.Context, pgn string) error {
	if err := r.rules.LoadPGN(pgn); err != nil {
		return err
	}
	defer r.render()

	frames := []domain.HistoryFrame{r.Frame()}
	for r.rules.Undo() {
		frames = append(frames, r.Frame())
	}
	// restore before touching the navigator so a push failure leaves the game loaded
	if err := r.rules.LoadPGN(pgn); err != nil {
		return err
	}
	for i := len(frames) - 1; i >= 0; i-- {
		if err := r.nav.Push(ctx, frames[i]); err != nil {
			return fmt.Errorf("push ply %d: %w", len(frames)-1-i, err)
		}
	}
	r.logger.Info().Int("plies", len(frames)-1).Msg("history rebuilt from pgn")
	return nil
}

// OnNavigate reloads a saved entry. A nil frame is ignored.
func (r *Rehydrator) OnNavigate(frame *domain.HistoryFrame) error {
	if frame == nil {
		return nil
	}
	if frame.PGN == "" {
		return r.LoadFromLocator(string(frame.Locator))
	}
	err := r.rules.LoadPGN(frame.PGN)
	if err == nil && (frame.Locator == "" || frame.Locator.FEN() == r.rules.FEN()) {
		r.render()
		return nil
	}
	if frame.Locator == "" {
		r.render()
		return err
	}
	// the saved notation does not reproduce its position; trust the locator
	r.logger.Warn().AnErr("pgn_err", err).Str("locator", string(frame.Locator)).Msg("entry pgn mismatch")
	return r.LoadFromLocator(string(frame.Locator))
}

// Record pushes the current position as a new entry.
func (r *Rehydrator) Record(ctx context.Context) error {
	if err := r.nav.Push(ctx, r.Frame()); err != nil {
		return fmt.Errorf("record ply %d: %w", r.rules.Plies(), err)
	}
	return nil
}

// Back returns false when already at the oldest entry.
func (r *Rehydrator) Back(ctx context.Context) (bool, error) {
	frame, err := r.nav.Back(ctx)
	if err != nil {
		return false, fmt.Errorf("history back: %w", err)
	}
	return frame != nil, r.OnNavigate(frame)
}

// Forward returns false when already at the newest entry.
func (r *Rehydrator) Forward(ctx context.Context) (bool, error) {
	frame, err := r.nav.Forward(ctx)
	if err != nil {
		return false, fmt.Errorf("history forward: %w", err)
	}
	return frame != nil, r.OnNavigate(frame)
}

// Restart clears the navigator and records the current position as its root.
func (r *Rehydrator) Restart(ctx context.Context) error {
	if err := r.nav.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return r.Record(ctx)
}
