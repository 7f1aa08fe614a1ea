// Package coretest provides in-process fakes of the core collaborators.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/peerchess/internal/core"
)

const fakeSDP = "v=0\r\n" +
	"o=- %d 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n"

// Transport is one end of an in-memory, ordered channel. Frames written by
// one end reach the other end's OnMessage synchronously, in order.
type Transport struct {
	mu       sync.Mutex
	id       int
	peer     *Transport
	open     bool
	closed   bool
	sent     []string
	gate     chan struct{}
	failNext error

	onOpen    func()
	onMessage func(core.Frame)
	onClosed  func()
}

// NewPair returns two connected ends. Nothing flows until the handshake completes.
func NewPair() (*Transport, *Transport) {
	a := &Transport{id: 1}
	b := &Transport{id: 2}
	a.peer, b.peer = b, a
	return a, b
}

// Hold makes the next descriptor generation block until Release.
func (t *Transport) Hold() {
	t.mu.Lock()
	t.gate = make(chan struct{})
	t.mu.Unlock()
}

func (t *Transport) Release() {
	t.mu.Lock()
	if t.gate != nil {
		close(t.gate)
		t.gate = nil
	}
	t.mu.Unlock()
}

// FailNext makes the next descriptor generation fail with err.
func (t *Transport) FailNext(err error) {
	t.mu.Lock()
	t.failNext = err
	t.mu.Unlock()
}

// Sent returns a copy of every frame written by this end.
func (t *Transport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *Transport) describe(ctx context.Context, typ webrtc.SDPType) (*webrtc.SessionDescription, error) {
	t.mu.Lock()
	gate, fail := t.gate, t.failNext
	t.failNext = nil
	t.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	return &webrtc.SessionDescription{Type: typ, SDP: fmt.Sprintf(fakeSDP, t.id)}, nil
}

func (t *Transport) CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	return t.describe(ctx, webrtc.SDPTypeOffer)
}

func (t *Transport) AcceptOffer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if offer.Type != webrtc.SDPTypeOffer {
		return nil, errors.New("coretest: not an offer")
	}
	return t.describe(ctx, webrtc.SDPTypeAnswer)
}

// ApplyAnswer opens both ends.
func (t *Transport) ApplyAnswer(answer webrtc.SessionDescription) error {
	if answer.Type != webrtc.SDPTypeAnswer {
		return errors.New("coretest: not an answer")
	}
	t.markOpen()
	t.peer.markOpen()
	return nil
}

func (t *Transport) markOpen() {
	t.mu.Lock()
	if t.open || t.closed {
		t.mu.Unlock()
		return
	}
	t.open = true
	fn := t.onOpen
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Transport) Send(f core.Frame) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return core.ErrChannelClosed
	}
	if !t.open {
		t.mu.Unlock()
		return core.ErrNotConnected
	}
	t.sent = append(t.sent, string(f))
	peer := t.peer
	t.mu.Unlock()
	peer.deliver(f)
	return nil
}

func (t *Transport) deliver(f core.Frame) {
	t.mu.Lock()
	fn, ok := t.onMessage, t.open && !t.closed
	t.mu.Unlock()
	if ok && fn != nil {
		fn(f)
	}
}

// Inject delivers raw as if the peer had sent it.
func (t *Transport) Inject(raw string) { t.deliver(core.Frame(raw)) }

func (t *Transport) OnOpen(fn func()) {
	t.mu.Lock()
	t.onOpen = fn
	t.mu.Unlock()
}

func (t *Transport) OnMessage(fn func(core.Frame)) {
	t.mu.Lock()
	t.onMessage = fn
	t.mu.Unlock()
}

func (t *Transport) OnClosed(fn func()) {
	t.mu.Lock()
	t.onClosed = fn
	t.mu.Unlock()
}

// Close closes both ends, like a data channel teardown.
func (t *Transport) Close() {
	t.closeOne()
	t.peer.closeOne()
}

func (t *Transport) closeOne() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.open = false
	fn := t.onClosed
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// InlineExecutor runs posted functions immediately on the caller's goroutine.
// Only for tests that drive a component from one goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Post(fn func()) { fn() }

var _ core.PeerTransport = (*Transport)(nil)
