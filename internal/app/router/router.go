// Package router multiplexes moves, control tokens and chat over one text channel.
package router

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkeye/peerchess/internal/core"
)

// Handlers receives classified inbound messages. Exactly one is called per frame.
type Handlers struct {
	OnMove    func(san string)
	OnChat    func(text string)
	OnControl func(kind ControlKind)
}

// Router is owned by the session loop.
type Router struct {
	handlers Handlers
	logger   zerolog.Logger

	transport core.PeerTransport
	open      bool
	closed    bool
}

func New(h Handlers, logger zerolog.Logger) *Router {
	return &Router{handlers: h, logger: logger.With().Str("module", "app.router").Logger()}
}

// Attach binds the transport of the current peer session.
func (r *Router) Attach(t core.PeerTransport) {
	r.transport = t
	r.open = false
	r.closed = false
}

func (r *Router) MarkOpen() { r.open = true }

// MarkClosed is terminal for the attached transport.
func (r *Router) MarkClosed() {
	r.open = false
	r.closed = true
}

// Dispatch classifies raw and hands it to the matching handler.
func (r *Router) Dispatch(raw string) {
	switch msg := Classify(raw).(type) {
	case MoveMessage:
		r.logger.Debug().Str("san", msg.SAN).Msg("inbound move")
		if r.handlers.OnMove != nil {
			r.handlers.OnMove(msg.SAN)
		}
	case ControlMessage:
		r.logger.Debug().Str("kind", msg.Kind.String()).Msg("inbound control")
		if r.handlers.OnControl != nil {
			r.handlers.OnControl(msg.Kind)
		}
	case ChatMessage:
		if r.handlers.OnChat != nil {
			r.handlers.OnChat(msg.Text)
		}
	}
}

// Send frames m and writes it. Empty payloads are dropped without error.
func (r *Router) Send(m Message) error {
	if r.closed {
		return core.ErrChannelClosed
	}
	if r.transport == nil || !r.open {
		return core.ErrNotConnected
	}
	text, ok := Frame(m)
	if !ok {
		return nil
	}
	if err := r.transport.Send(core.Frame(text)); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}
