package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerchess/internal/adapters/rules"
	"github.com/dkeye/peerchess/internal/app"
	"github.com/dkeye/peerchess/internal/app/history"
	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/core/coretest"
	"github.com/dkeye/peerchess/internal/domain"
)

const waitFor = 2 * time.Second

type viewer struct {
	mu     sync.Mutex
	events []Event
	full   bool
	closed bool
}

func (v *viewer) TrySend(f core.Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.full {
		return core.ErrBackpressure
	}
	var e Event
	if err := json.Unmarshal(f, &e); err != nil {
		return err
	}
	v.events = append(v.events, e)
	return nil
}

func (v *viewer) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *viewer) types() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.events))
	for _, e := range v.events {
		out = append(out, e.Type)
	}
	return out
}

// pairedFactories hands out the two ends of a fresh in-memory pair per reset.
func pairedFactories() (core.TransportFactory, core.TransportFactory) {
	spare := make(chan *coretest.Transport, 8)
	initiator := func() (core.PeerTransport, error) {
		a, b := coretest.NewPair()
		spare <- b
		return a, nil
	}
	joiner := func() (core.PeerTransport, error) {
		return <-spare, nil
	}
	return initiator, joiner
}

func startSession(t *testing.T, ctx context.Context, factory core.TransportFactory, nav core.Navigator) *Session {
	t.Helper()
	if nav == nil {
		nav = history.NewMemoryNavigator()
	}
	s, err := New(Options{
		NewTransport: factory,
		Rules:        rules.NewEngine(),
		Navigator:    nav,
		Policy:       app.SimplePolicy{},
	})
	require.NoError(t, err)
	go s.Run(ctx)
	return s
}

func state(t *testing.T, s *Session) StateView {
	t.Helper()
	v, err := s.State(context.Background())
	require.NoError(t, err)
	return v
}

func connect(t *testing.T, ctx context.Context) (*Session, *Session) {
	t.Helper()
	fa, fb := pairedFactories()
	a := startSession(t, ctx, fa, nil)
	b := startSession(t, ctx, fb, nil)

	offer, err := a.Offer(ctx)
	require.NoError(t, err)
	require.Equal(t, "local_descriptor_ready", state(t, a).Session.State)

	answer, err := b.Answer(ctx, offer)
	require.NoError(t, err)
	require.Equal(t, "joiner", state(t, b).Session.Role)

	require.NoError(t, a.Complete(ctx, answer))
	require.Eventually(t, func() bool {
		return state(t, a).Session.State == "connected" && state(t, b).Session.State == "connected"
	}, waitFor, 5*time.Millisecond)
	return a, b
}

func TestSessionsPlayOverChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := connect(t, ctx)

	res, err := a.Move(ctx, domain.MoveRequest{From: "e2", To: "e4"})
	require.NoError(t, err)
	require.Equal(t, "applied", res.Outcome)
	require.Equal(t, "e4", res.Record.SAN)

	require.Eventually(t, func() bool {
		return state(t, b).FEN == state(t, a).FEN
	}, waitFor, 5*time.Millisecond)
	require.Equal(t, "white", state(t, a).Session.LocalColor)
	require.Equal(t, "black", state(t, b).Session.LocalColor)
	require.Equal(t, "e4", state(t, b).LastMove.SAN)

	res, err = a.Move(ctx, domain.MoveRequest{From: "d2", To: "d4"})
	require.NoError(t, err)
	require.Equal(t, "out_of_turn", res.Outcome)
	require.Nil(t, res.Record)

	res, err = b.Move(ctx, domain.MoveRequest{From: "e7", To: "e5"})
	require.NoError(t, err)
	require.Equal(t, "applied", res.Outcome)
	require.Eventually(t, func() bool {
		return state(t, a).Plies == 2
	}, waitFor, 5*time.Millisecond)
}

func TestChatReachesPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := connect(t, ctx)

	require.NoError(t, a.Chat(ctx, "hello there"))
	require.NoError(t, a.Chat(ctx, ""))

	require.Eventually(t, func() bool {
		for _, line := range state(t, b).Chat {
			if line.From == domain.FromPeer && line.Text == "hello there" {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond)

	mine := state(t, a).Chat
	require.Equal(t, domain.FromMe, mine[len(mine)-1].From)
	require.Equal(t, "hello there", mine[len(mine)-1].Text)
	require.Zero(t, state(t, b).Plies)
}

func TestChatMoveTextKeepsBoardsInStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := connect(t, ctx)

	require.NoError(t, a.Chat(ctx, "move:e4"))
	require.Eventually(t, func() bool {
		return state(t, b).Plies == 1
	}, waitFor, 5*time.Millisecond)
	va, vb := state(t, a), state(t, b)
	require.Equal(t, va.FEN, vb.FEN)
	require.Equal(t, "white", va.Session.LocalColor)
	require.Equal(t, "black", vb.Session.LocalColor)
	require.Equal(t, "e4", va.LastMove.SAN)

	// the next real move keeps both sides agreeing on whose turn it is
	require.ErrorIs(t, a.Chat(ctx, "move:d4"), core.ErrOutOfTurn)
	res, err := b.Move(ctx, domain.MoveRequest{From: "e7", To: "e5"})
	require.NoError(t, err)
	require.Equal(t, "applied", res.Outcome)
	require.Eventually(t, func() bool {
		return state(t, a).FEN == state(t, b).FEN
	}, waitFor, 5*time.Millisecond)

	require.ErrorIs(t, a.Chat(ctx, "move:Ke3"), core.ErrIllegalMove)
	require.ErrorIs(t, a.Chat(ctx, "Connected Succesfully !"), core.ErrReservedText)
	require.Equal(t, 2, state(t, a).Plies)
	require.Equal(t, 2, state(t, b).Plies)
}

func TestChatOfflineFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)

	require.ErrorIs(t, a.Chat(ctx, "anyone?"), core.ErrNotConnected)
}

func TestResetClosesPeerAndStartsFresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := connect(t, ctx)
	old := state(t, a).Session.ID

	require.NoError(t, a.Reset(ctx))
	v := state(t, a)
	require.Equal(t, "idle", v.Session.State)
	require.Equal(t, "uninitialized", v.Session.Role)
	require.NotEqual(t, old, v.Session.ID)

	require.Eventually(t, func() bool {
		return state(t, b).Session.State == "closed"
	}, waitFor, 5*time.Millisecond)
	require.ErrorIs(t, b.Chat(ctx, "still there?"), core.ErrChannelClosed)

	// a fresh handshake is allowed again
	_, err := a.Offer(ctx)
	require.NoError(t, err)
}

func TestOutOfOrderHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)

	require.ErrorIs(t, a.Complete(ctx, `{"type":"answer","sdp":"v=0"}`), core.ErrInvalidHandshakeState)
	_, err := a.Answer(ctx, "garbage")
	require.ErrorIs(t, err, core.ErrMalformedDescriptor)
	require.Equal(t, "idle", state(t, a).Session.State)
}

func TestOfflineGameAndHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)

	for _, mv := range [][2]domain.Square{{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}} {
		res, err := a.Move(ctx, domain.MoveRequest{From: mv[0], To: mv[1]})
		require.NoError(t, err)
		require.Equal(t, "applied", res.Outcome)
	}
	moved, err := a.Back(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	afterTwo := state(t, a).FEN
	require.Equal(t, 2, state(t, a).Plies)

	moved, err = a.Forward(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, 3, state(t, a).Plies)

	undone, err := a.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	require.Equal(t, afterTwo, state(t, a).FEN)

	require.NoError(t, a.NewGame(ctx))
	require.Zero(t, state(t, a).Plies)
	require.Equal(t, "White to move", state(t, a).Summary)
}

func TestLoadLocatorAndPGN(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)

	const loc = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR_w_KQkq_-_0_2"
	require.NoError(t, a.LoadLocator(ctx, "#"+loc))
	v := state(t, a)
	require.Equal(t, domain.Locator(loc), v.Locator)
	require.Zero(t, v.Plies)

	require.NoError(t, a.LoadLocator(ctx, "#"))
	require.Equal(t, domain.Locator(loc), state(t, a).Locator)
	require.ErrorIs(t, a.LoadLocator(ctx, "#not_a_board"), core.ErrInvalidLocator)

	moved, err := a.Back(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, domain.EncodeLocator(rules.NewEngine().FEN()), state(t, a).Locator)
	moved, err = a.Forward(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, domain.Locator(loc), state(t, a).Locator)

	require.NoError(t, a.LoadPGN(ctx, "1. d4 d5 2. c4 *"))
	require.Equal(t, 3, state(t, a).Plies)
	moved, err = a.Back(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, 2, state(t, a).Plies)

	require.ErrorIs(t, a.LoadPGN(ctx, "1. d4 d4 *"), core.ErrInvalidPGN)
	require.Equal(t, 2, state(t, a).Plies)
}

func TestRestoresFromNavigator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := rules.NewEngine()
	_, err := src.ApplySAN("e4")
	require.NoError(t, err)
	loc := domain.EncodeLocator(src.FEN())
	nav := history.NewMemoryNavigator()
	require.NoError(t, nav.Push(ctx, domain.HistoryFrame{Locator: loc, PGN: src.PGN()}))

	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nav)
	v := state(t, a)
	require.Equal(t, loc, v.Locator)
	require.Equal(t, 1, v.Plies)
}

func TestViewersReceiveEventsAndSlowOnesAreKicked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)

	fast := &viewer{}
	slow := &viewer{full: true}
	a.Viewers().Add("fast", fast)
	a.Viewers().Add("slow", slow)

	_, err := a.Move(ctx, domain.MoveRequest{From: "e2", To: "e4"})
	require.NoError(t, err)

	require.Contains(t, fast.types(), EventState)
	require.Equal(t, 1, a.Viewers().Count())
	slow.mu.Lock()
	require.True(t, slow.closed)
	slow.mu.Unlock()
}

func TestCallAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fa, _ := pairedFactories()
	a := startSession(t, ctx, fa, nil)
	state(t, a)
	cancel()

	require.Eventually(t, func() bool {
		_, err := a.State(context.Background())
		return err == ErrStopped
	}, waitFor, 5*time.Millisecond)
}
