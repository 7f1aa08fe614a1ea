package history

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerchess/internal/adapters/rules"
	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

const startLocator = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR_w_KQkq_-_0_1"

type fixture struct {
	rules   *rules.Engine
	nav     *MemoryNavigator
	r       *Rehydrator
	renders int
}

func newFixture() *fixture {
	f := &fixture{rules: rules.NewEngine(), nav: NewMemoryNavigator()}
	f.r = New(f.rules, f.nav, func() { f.renders++ }, zerolog.Nop())
	return f
}

func replay(t *testing.T, moves []string) string {
	t.Helper()
	e := rules.NewEngine()
	for _, mv := range moves {
		_, err := e.ApplySAN(mv)
		require.NoError(t, err)
	}
	return e.FEN()
}

func TestLoadFromLocator(t *testing.T) {
	f := newFixture()
	_, err := f.rules.ApplySAN("e4")
	require.NoError(t, err)

	require.NoError(t, f.r.LoadFromLocator("#"+startLocator))
	require.Equal(t, domain.DecodeLocator(startLocator), f.rules.FEN())
	require.Zero(t, f.rules.Plies())
	require.Equal(t, 1, f.renders)

	// same position: no reload, still a render
	_, err = f.rules.ApplySAN("d4")
	require.NoError(t, err)
	cur := string(f.r.Locator())
	require.NoError(t, f.r.LoadFromLocator(cur))
	require.Equal(t, 1, f.rules.Plies())
	require.Equal(t, 2, f.renders)
}

func TestLoadFromLocatorRejectsGarbage(t *testing.T) {
	f := newFixture()
	before := f.rules.FEN()

	require.ErrorIs(t, f.r.LoadFromLocator("not_a_board"), core.ErrInvalidLocator)
	require.Equal(t, before, f.rules.FEN())
	require.Equal(t, 1, f.renders)
}

func TestEmptyLocatorOnlyRenders(t *testing.T) {
	f := newFixture()
	_, err := f.rules.ApplySAN("e4")
	require.NoError(t, err)
	before := f.rules.FEN()

	require.NoError(t, f.r.LoadFromLocator("#"))
	require.NoError(t, f.r.LoadFromLocator(""))
	require.Equal(t, before, f.rules.FEN())
	require.Equal(t, 1, f.rules.Plies())
	require.Equal(t, 2, f.renders)
}

func TestRebuildFromPGNNavigatesEachPly(t *testing.T) {
	ctx := context.Background()
	moves := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}

	src := rules.NewEngine()
	for _, mv := range moves {
		_, err := src.ApplySAN(mv)
		require.NoError(t, err)
	}

	f := newFixture()
	require.NoError(t, f.r.RebuildFromPGN(ctx, src.PGN()))
	require.Equal(t, src.FEN(), f.rules.FEN())

	n, _ := f.nav.Len(ctx)
	require.Equal(t, len(moves)+1, n)

	// walk back to ply 0, checking every position against a fresh replay
	for k := len(moves) - 1; k >= 0; k-- {
		moved, err := f.r.Back(ctx)
		require.NoError(t, err)
		require.True(t, moved)
		want := replay(t, moves[:k])
		require.Equal(t, want, f.rules.FEN(), "ply %d", k)
		require.Equal(t, k, f.rules.Plies(), "ply %d", k)
	}
	moved, err := f.r.Back(ctx)
	require.NoError(t, err)
	require.False(t, moved)

	for k := 1; k <= len(moves); k++ {
		moved, err := f.r.Forward(ctx)
		require.NoError(t, err)
		require.True(t, moved)
		require.Equal(t, replay(t, moves[:k]), f.rules.FEN(), "ply %d", k)
	}
}

func TestRebuildFromPGNFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.rules.ApplySAN("c4")
	require.NoError(t, err)
	before := f.rules.FEN()

	require.ErrorIs(t, f.r.RebuildFromPGN(ctx, "1. e4 Ke7 Ke7 *"), core.ErrInvalidPGN)
	require.Equal(t, before, f.rules.FEN())
	n, _ := f.nav.Len(ctx)
	require.Zero(t, n)
	require.Zero(t, f.renders)
}

func TestOnNavigate(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.r.OnNavigate(nil))
	require.Zero(t, f.renders)

	_, err := f.rules.ApplySAN("e4")
	require.NoError(t, err)
	saved := f.r.Frame()
	_, err = f.rules.ApplySAN("e5")
	require.NoError(t, err)

	require.NoError(t, f.r.OnNavigate(&saved))
	require.Equal(t, saved.Locator.FEN(), f.rules.FEN())
	require.Equal(t, 1, f.rules.Plies())

	// locator-only entries load the bare position
	require.NoError(t, f.r.OnNavigate(&domain.HistoryFrame{Locator: startLocator}))
	require.Equal(t, domain.DecodeLocator(startLocator), f.rules.FEN())
	require.Equal(t, 2, f.renders)
}

func TestRecordAndRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.r.Restart(ctx))

	_, err := f.rules.ApplySAN("e4")
	require.NoError(t, err)
	require.NoError(t, f.r.Record(ctx))

	cur, _ := f.nav.Current(ctx)
	require.Equal(t, f.r.Locator(), cur.Locator)

	moved, err := f.r.Back(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	require.Zero(t, f.rules.Plies())

	f.rules.Reset()
	require.NoError(t, f.r.Restart(ctx))
	n, _ := f.nav.Len(ctx)
	require.Equal(t, 1, n)
}
