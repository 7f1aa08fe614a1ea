// Package orch owns one playing session: the peer connection, the game and
// the chat log, all mutated from a single event loop.
package orch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerchess/internal/app"
	"github.com/dkeye/peerchess/internal/app/history"
	"github.com/dkeye/peerchess/internal/app/movesync"
	"github.com/dkeye/peerchess/internal/app/negotiate"
	"github.com/dkeye/peerchess/internal/app/role"
	"github.com/dkeye/peerchess/internal/app/router"
	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

var ErrStopped = errors.New("session stopped")

const (
	inboxSize  = 256
	chatLimit  = 200
	ackMessage = "Connected"
)

type Options struct {
	NewTransport core.TransportFactory
	Rules        core.RulesEngine
	Navigator    core.Navigator
	Viewers      core.ViewerHub
	Policy       app.Policy
	// GameID names the game across peer sessions; it scopes persisted history.
	GameID string
}

// Session is the explicit context every component hangs off. Only the loop
// goroutine touches the fields below inbox.
type Session struct {
	opts   Options
	logger zerolog.Logger
	inbox  chan func()
	done   chan struct{}
	ctx    context.Context

	peer      *domain.PeerSession
	transport core.PeerTransport
	neg       *negotiate.Negotiator
	roles     *role.Assigner
	rt        *router.Router
	sync      *movesync.Synchronizer
	hist      *history.Rehydrator
	chat      []domain.ChatLine
	lastMove  *domain.MoveRecord
}

func New(opts Options) (*Session, error) {
	if opts.NewTransport == nil || opts.Rules == nil || opts.Navigator == nil {
		return nil, errors.New("orch: transport factory, rules and navigator are required")
	}
	if opts.Viewers == nil {
		opts.Viewers = core.NewViewerHub()
	}
	if opts.GameID == "" {
		opts.GameID = string(domain.NewSessionID())
	}
	s := &Session{
		opts:   opts,
		logger: log.With().Str("module", "app.orch").Str("game", opts.GameID).Logger(),
		inbox:  make(chan func(), inboxSize),
		done:   make(chan struct{}),
		ctx:    context.Background(),
	}
	s.rt = router.New(router.Handlers{
		OnMove:    s.onRemoteMove,
		OnChat:    s.onRemoteChat,
		OnControl: s.onControl,
	}, s.logger)
	s.hist = history.New(opts.Rules, opts.Navigator, s.publishState, s.logger)
	if err := s.fresh(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Viewers() core.ViewerHub { return s.opts.Viewers }

// Run processes posted work until ctx ends. It restores the game from the
// navigator's current entry when there is one.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	s.restore(ctx)

	for {
		select {
		case <-ctx.Done():
			close(s.done)
			s.transport.Close()
			s.logger.Info().Msg("session loop stopped")
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Post implements core.Executor. It drops work once the loop has stopped.
func (s *Session) Post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// Call runs fn on the loop and waits for it.
func (s *Session) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.inbox <- job:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) restore(ctx context.Context) {
	frame, err := s.opts.Navigator.Current(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history unavailable")
	}
	if frame != nil {
		if err := s.hist.OnNavigate(frame); err != nil {
			s.logger.Warn().Err(err).Msg("stored position rejected")
		} else {
			s.logger.Info().Str("locator", string(frame.Locator)).Msg("game restored")
			return
		}
	}
	if err := s.hist.Record(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("history unavailable")
	}
}

// fresh builds a new peer session and the components bound to it.
func (s *Session) fresh() error {
	t, err := s.opts.NewTransport()
	if err != nil {
		return fmt.Errorf("new transport: %w", err)
	}
	peer := domain.NewPeerSession()
	s.peer = peer
	s.transport = t
	s.roles = role.NewAssigner()
	s.neg = negotiate.New(peer, t, s, s.logger)
	s.rt.Attach(t)
	s.sync = movesync.New(s.opts.Rules, s.roles, s.hist, s.rt, s.neg.Connected, s.logger)

	// callbacks come from transport goroutines; ignore them once reset
	t.OnOpen(func() {
		s.Post(func() {
			if s.peer == peer {
				s.onOpen()
			}
		})
	})
	t.OnMessage(func(f core.Frame) {
		s.Post(func() {
			if s.peer == peer {
				s.rt.Dispatch(string(f))
			}
		})
	})
	t.OnClosed(func() {
		s.Post(func() {
			if s.peer == peer {
				s.onClosed()
			}
		})
	})
	s.logger.Info().Str("sid", string(peer.ID)).Msg("peer session created")
	return nil
}

func (s *Session) onOpen() {
	s.neg.HandleOpen()
	s.rt.MarkOpen()
	if err := s.rt.Send(router.ControlMessage{Kind: router.HandshakeAck}); err != nil {
		s.logger.Warn().Err(err).Str("sid", string(s.peer.ID)).Msg("handshake ack not sent")
	}
	s.addChat(domain.FromSystem, "Channel open")
	s.publishSession()
}

func (s *Session) onClosed() {
	s.neg.HandleClose()
	s.rt.MarkClosed()
	s.addChat(domain.FromSystem, "Connection closed")
	s.publishSession()
}

func (s *Session) onControl(kind router.ControlKind) {
	if kind == router.HandshakeAck {
		s.neg.HandleAck()
		s.addChat(domain.FromSystem, ackMessage)
		s.publishSession()
	}
}

func (s *Session) onRemoteMove(san string) {
	rec, out := s.sync.ApplyRemote(s.ctx, san)
	if out != movesync.Applied {
		s.logger.Info().Str("sid", string(s.peer.ID)).Str("san", san).Str("outcome", out.String()).Msg("remote move ignored")
		return
	}
	s.lastMove = &rec
	s.publishState()
}

func (s *Session) onRemoteChat(text string) {
	if text == "" {
		return
	}
	s.addChat(domain.FromPeer, text)
}

func (s *Session) addChat(from domain.ChatSender, text string) {
	line := domain.ChatLine{From: from, Text: text, At: time.Now()}
	s.chat = append(s.chat, line)
	if len(s.chat) > chatLimit {
		s.chat = s.chat[len(s.chat)-chatLimit:]
	}
	s.publish(EventChat, line)
}

// Offer starts the initiator path and waits for the local descriptor.
func (s *Session) Offer(ctx context.Context) (string, error) {
	var (
		p   *negotiate.Pending
		err error
	)
	if cerr := s.Call(ctx, func() {
		p, err = s.neg.BeginOffer(s.ctx)
		s.publishSession()
	}); cerr != nil {
		return "", cerr
	}
	if err != nil {
		return "", err
	}
	return s.awaitDescriptor(ctx, p)
}

// Answer starts the joiner path from the peer's offer text.
func (s *Session) Answer(ctx context.Context, offer string) (string, error) {
	var (
		p   *negotiate.Pending
		err error
	)
	if cerr := s.Call(ctx, func() {
		p, err = s.neg.BeginAnswer(s.ctx, offer)
		s.publishSession()
	}); cerr != nil {
		return "", cerr
	}
	if err != nil {
		return "", err
	}
	return s.awaitDescriptor(ctx, p)
}

func (s *Session) awaitDescriptor(ctx context.Context, p *negotiate.Pending) (string, error) {
	text, err := p.Wait(ctx)
	s.Post(s.publishSession)
	return text, err
}

// Complete applies the joiner's answer on the initiator.
func (s *Session) Complete(ctx context.Context, answer string) error {
	var err error
	if cerr := s.Call(ctx, func() {
		if err = s.neg.CompleteWithRemoteAnswer(answer); err == nil {
			s.publishSession()
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

// Reset drops the current peer connection and colors; the game stays.
func (s *Session) Reset(ctx context.Context) error {
	var err error
	if cerr := s.Call(ctx, func() {
		old := s.transport
		s.neg.HandleClose()
		if err = s.fresh(); err != nil {
			return
		}
		old.Close()
		s.publishSession()
	}); cerr != nil {
		return cerr
	}
	return err
}

// Move submits a local move. A non-nil error with an applied outcome means
// the peer was not told.
func (s *Session) Move(ctx context.Context, req domain.MoveRequest) (MoveResult, error) {
	var (
		res MoveResult
		err error
	)
	if cerr := s.Call(ctx, func() {
		var (
			rec domain.MoveRecord
			out movesync.Outcome
		)
		rec, out, err = s.sync.SubmitLocal(ctx, req)
		res = s.localMoved(rec, out, err)
	}); cerr != nil {
		return MoveResult{}, cerr
	}
	return res, err
}

// localMoved publishes an accepted local move. Runs on the loop.
func (s *Session) localMoved(rec domain.MoveRecord, out movesync.Outcome, sendErr error) MoveResult {
	res := MoveResult{Outcome: out.String()}
	if out != movesync.Applied {
		return res
	}
	res.Record = &rec
	s.lastMove = &rec
	s.publishState()
	if sendErr != nil {
		s.addChat(domain.FromSystem, "Move not delivered: "+sendErr.Error())
	}
	return res
}

// Chat sends text to the peer and echoes it locally. Text the peer would read
// as a move is played as a move here first; handshake tokens are refused.
func (s *Session) Chat(ctx context.Context, text string) error {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil
	}
	switch m := router.Classify(text).(type) {
	case router.ControlMessage:
		return core.ErrReservedText
	case router.MoveMessage:
		return s.chatMove(ctx, m.SAN)
	}
	var err error
	if cerr := s.Call(ctx, func() {
		if err = s.rt.Send(router.ChatMessage{Text: text}); err == nil {
			s.addChat(domain.FromMe, text)
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

func (s *Session) chatMove(ctx context.Context, san string) error {
	var err error
	if cerr := s.Call(ctx, func() {
		var (
			rec domain.MoveRecord
			out movesync.Outcome
		)
		rec, out, err = s.sync.SubmitLocalSAN(ctx, san)
		s.localMoved(rec, out, err)
		switch {
		case err != nil:
		case out == movesync.Illegal:
			err = fmt.Errorf("%w: %s", core.ErrIllegalMove, san)
		case out == movesync.OutOfTurn:
			err = core.ErrOutOfTurn
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

// LoadLocator jumps to the position a locator names and records it as a
// navigation entry. An empty locator just re-renders.
func (s *Session) LoadLocator(ctx context.Context, text string) error {
	var err error
	if cerr := s.Call(ctx, func() {
		before := s.opts.Rules.FEN()
		if err = s.hist.LoadFromLocator(text); err != nil || s.opts.Rules.FEN() == before {
			return
		}
		s.lastMove = nil
		err = s.hist.Record(ctx)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (s *Session) LoadPGN(ctx context.Context, pgn string) error {
	var err error
	if cerr := s.Call(ctx, func() {
		if err = s.hist.RebuildFromPGN(ctx, pgn); err == nil {
			s.lastMove = nil
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

func (s *Session) Back(ctx context.Context) (bool, error) {
	return s.navigate(ctx, s.hist.Back)
}

func (s *Session) Forward(ctx context.Context) (bool, error) {
	return s.navigate(ctx, s.hist.Forward)
}

func (s *Session) navigate(ctx context.Context, step func(context.Context) (bool, error)) (bool, error) {
	var (
		moved bool
		err   error
	)
	if cerr := s.Call(ctx, func() {
		moved, err = step(ctx)
		if moved {
			s.lastMove = nil
		}
	}); cerr != nil {
		return false, cerr
	}
	return moved, err
}

// NewGame resets the board locally. The peer is not told.
func (s *Session) NewGame(ctx context.Context) error {
	var err error
	if cerr := s.Call(ctx, func() {
		s.opts.Rules.Reset()
		s.lastMove = nil
		err = s.hist.Record(ctx)
		s.publishState()
	}); cerr != nil {
		return cerr
	}
	return err
}

// Undo takes back one ply locally. The peer is not told.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	var undone bool
	if cerr := s.Call(ctx, func() {
		if undone = s.opts.Rules.Undo(); undone {
			s.lastMove = nil
			s.publishState()
		}
	}); cerr != nil {
		return false, cerr
	}
	return undone, nil
}

func (s *Session) State(ctx context.Context) (StateView, error) {
	var v StateView
	if err := s.Call(ctx, func() { v = s.stateView() }); err != nil {
		return StateView{}, err
	}
	return v, nil
}

func (s *Session) stateView() StateView {
	rules := s.opts.Rules
	st := rules.Status()
	return StateView{
		FEN:      rules.FEN(),
		Locator:  domain.EncodeLocator(rules.FEN()),
		PGN:      rules.PGN(),
		Turn:     st.Turn.String(),
		Summary:  st.Summary(),
		Status:   st,
		Plies:    rules.Plies(),
		LastMove: s.lastMove,
		Session:  s.sessionView(),
		Chat:     append([]domain.ChatLine(nil), s.chat...),
	}
}

func (s *Session) sessionView() SessionView {
	snap := s.neg.Snapshot()
	v := SessionView{
		ID:               snap.ID,
		Role:             snap.Role.String(),
		State:            snap.State.String(),
		LocalDescriptor:  snap.LocalDescriptor,
		RemoteDescriptor: snap.RemoteDescriptor,
	}
	if c, ok := s.roles.LocalColor(); ok {
		v.LocalColor = c.String()
	}
	return v
}
