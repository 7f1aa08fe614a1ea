package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// PeerTransport is the ordered, reliable peer channel plus the handshake
// primitives that feed it. Event callbacks may fire on any goroutine.
type PeerTransport interface {
	// CreateOffer returns the local offer once candidate gathering completed.
	CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error)
	// AcceptOffer applies a remote offer and returns the gathered local answer.
	AcceptOffer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// ApplyAnswer finalizes the initiator side.
	ApplyAnswer(answer webrtc.SessionDescription) error
	// Send writes one text frame.
	Send(Frame) error
	OnOpen(func())
	OnMessage(func(Frame))
	OnClosed(func())
	// Close releases the connection; OnClosed fires at most once.
	Close()
}

// TransportFactory builds a fresh transport per peer session.
type TransportFactory func() (PeerTransport, error)
