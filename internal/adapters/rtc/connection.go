package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerchess/internal/core"
)

const DefaultLabel = "chess"

type Config struct {
	ICEServers []string
	Label      string
}

func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		iceServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: iceServers,
			},
		},
	}
}

// WebRTCConnection carries the game over one ordered, reliable data channel.
// The initiator creates the channel, the joiner receives it.
type WebRTCConnection struct {
	pc    *webrtc.PeerConnection
	tid   string
	label string

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	onOpen    func()
	onMessage func(core.Frame)
	onClosed  func()
	closeOnce sync.Once
}

func NewWebRTCConnection(cfg webrtc.Configuration, label string) (*WebRTCConnection, error) {
	if label == "" {
		label = DefaultLabel
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{pc: pc, tid: uuid.NewString()[:8], label: label}

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "adapters.rtc").Str("tid", c.tid).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != c.label {
			log.Warn().Str("module", "adapters.rtc").Str("tid", c.tid).Str("label", dc.Label()).Msg("unexpected data channel")
			return
		}
		c.bind(dc)
	})
	return c, nil
}

// NewFactory builds one connection per peer session.
func NewFactory(cfg Config) core.TransportFactory {
	return func() (core.PeerTransport, error) {
		return NewWebRTCConnection(DefaultWebRTCConfig(cfg.ICEServers), cfg.Label)
	}
}

func (c *WebRTCConnection) bind(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		log.Info().Str("module", "adapters.rtc").Str("tid", c.tid).Str("label", dc.Label()).Msg("data channel open")
		c.mu.Lock()
		fn := c.onOpen
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.mu.Lock()
		fn := c.onMessage
		c.mu.Unlock()
		if fn != nil {
			fn(core.Frame(msg.Data))
		}
	})
	dc.OnClose(c.fireClosed)
}

func (c *WebRTCConnection) fireClosed() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		fn := c.onClosed
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// gather sets desc as the local description and waits for candidate
// gathering so the returned descriptor is complete.
func (c *WebRTCConnection) gather(ctx context.Context, desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	done := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return nil, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	dc, err := c.pc.CreateDataChannel(c.label, nil)
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	c.bind(dc)

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return c.gather(ctx, offer)
}

func (c *WebRTCConnection) AcceptOffer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return c.gather(ctx, answer)
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) Send(f core.Frame) error {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return core.ErrNotConnected
	}
	return dc.SendText(string(f))
}

func (c *WebRTCConnection) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnMessage(fn func(core.Frame)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnClosed fires once, whichever of the channel, the peer connection or
// Close notices first.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

func (c *WebRTCConnection) Close() {
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "adapters.rtc").Str("tid", c.tid).Msg("close error")
		} else {
			log.Info().Str("module", "adapters.rtc").Str("tid", c.tid).Msg("closed")
		}
	}
	c.fireClosed()
}

var _ core.PeerTransport = (*WebRTCConnection)(nil)
