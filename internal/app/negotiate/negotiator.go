// Package negotiate drives the offer/answer handshake of one peer session.
package negotiate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

// Pending resolves once the local descriptor has been generated.
type Pending struct {
	done chan struct{}
	text string
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(text string, err error) {
	p.text, p.err = text, err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Result blocks until Done is closed. Never call it from the session loop.
func (p *Pending) Result() (string, error) {
	<-p.done
	return p.text, p.err
}

// Wait is Result bounded by ctx.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.text, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Negotiator owns the PeerSession state machine.
// Every method must be called on the executor's goroutine.
type Negotiator struct {
	session   *domain.PeerSession
	transport core.PeerTransport
	exec      core.Executor
	logger    zerolog.Logger
}

func New(session *domain.PeerSession, t core.PeerTransport, exec core.Executor, logger zerolog.Logger) *Negotiator {
	return &Negotiator{
		session:   session,
		transport: t,
		exec:      exec,
		logger: logger.With().
			Str("module", "app.negotiate").
			Str("sid", string(session.ID)).
			Logger(),
	}
}

// BeginOffer starts the initiator path.
func (n *Negotiator) BeginOffer(ctx context.Context) (*Pending, error) {
	if n.session.State != domain.StateIdle {
		return nil, fmt.Errorf("%w: offer from %s", core.ErrInvalidHandshakeState, n.session.State)
	}
	n.session.Role = domain.RoleInitiator
	n.session.State = domain.StateOffering
	n.logger.Info().Msg("creating offer")

	p := newPending()
	go func() {
		desc, err := n.transport.CreateOffer(ctx)
		n.exec.Post(func() { n.finishLocal(p, domain.StateOffering, desc, err) })
	}()
	return p, nil
}

// BeginAnswer starts the joiner path from the initiator's pasted offer.
func (n *Negotiator) BeginAnswer(ctx context.Context, remoteText string) (*Pending, error) {
	if n.session.State != domain.StateIdle {
		return nil, fmt.Errorf("%w: answer from %s", core.ErrInvalidHandshakeState, n.session.State)
	}
	offer, err := DecodeAs(remoteText, webrtc.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	n.session.Role = domain.RoleJoiner
	n.session.State = domain.StateAnswering
	n.session.RemoteDescriptor = strings.TrimSpace(remoteText)
	n.logger.Info().Msg("creating answer")

	p := newPending()
	go func() {
		desc, err := n.transport.AcceptOffer(ctx, offer)
		n.exec.Post(func() { n.finishLocal(p, domain.StateAnswering, desc, err) })
	}()
	return p, nil
}

// finishLocal runs on the executor.
func (n *Negotiator) finishLocal(p *Pending, from domain.ConnState, desc *webrtc.SessionDescription, err error) {
	if n.session.State != from {
		// reset or closed while gathering
		p.resolve("", fmt.Errorf("%w: descriptor ready in %s", core.ErrInvalidHandshakeState, n.session.State))
		return
	}
	var text string
	if err == nil {
		if desc == nil {
			err = fmt.Errorf("%w: no local description", core.ErrMalformedDescriptor)
		} else {
			text, err = Encode(*desc)
		}
	}
	if err != nil {
		n.logger.Warn().Err(err).Str("state", from.String()).Msg("descriptor generation failed")
		n.session.State = domain.StateIdle
		n.session.Role = domain.RoleUninitialized
		n.session.RemoteDescriptor = ""
		p.resolve("", fmt.Errorf("generate descriptor: %w", err))
		return
	}
	n.session.LocalDescriptor = text
	n.session.State = domain.StateLocalDescriptorReady
	n.logger.Info().Str("role", n.session.Role.String()).Msg("local descriptor ready")
	p.resolve(text, nil)
}

// CompleteWithRemoteAnswer applies the joiner's answer on the initiator.
func (n *Negotiator) CompleteWithRemoteAnswer(remoteText string) error {
	if n.session.Role != domain.RoleInitiator || n.session.State != domain.StateLocalDescriptorReady {
		return fmt.Errorf("%w: complete as %s in %s",
			core.ErrInvalidHandshakeState, n.session.Role, n.session.State)
	}
	answer, err := DecodeAs(remoteText, webrtc.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := n.transport.ApplyAnswer(answer); err != nil {
		// the transport may already have torn down via HandleClose
		if n.session.State == domain.StateLocalDescriptorReady {
			n.logger.Warn().Err(err).Msg("remote answer rejected")
		}
		return fmt.Errorf("apply answer: %w", err)
	}
	n.session.RemoteDescriptor = strings.TrimSpace(remoteText)
	if n.session.State != domain.StateClosed {
		n.session.State = domain.StateConnected
	}
	n.logger.Info().Msg("remote answer applied")
	return nil
}

// HandleOpen is the channel-open event.
func (n *Negotiator) HandleOpen() {
	n.connect("channel open")
}

// HandleAck is the peer's handshake acknowledgement.
func (n *Negotiator) HandleAck() {
	n.connect("handshake ack")
}

func (n *Negotiator) connect(cause string) {
	switch n.session.State {
	case domain.StateClosed, domain.StateConnected:
		return
	}
	n.session.State = domain.StateConnected
	n.logger.Info().Str("cause", cause).Msg("connected")
}

// HandleClose is terminal. A new session is needed to play again.
func (n *Negotiator) HandleClose() {
	if n.session.State == domain.StateClosed {
		return
	}
	n.session.State = domain.StateClosed
	n.logger.Info().Msg("channel closed")
}

func (n *Negotiator) State() domain.ConnState { return n.session.State }

func (n *Negotiator) Connected() bool { return n.session.State == domain.StateConnected }

// Snapshot returns a copy safe to hand out of the loop.
func (n *Negotiator) Snapshot() domain.PeerSession { return *n.session }
