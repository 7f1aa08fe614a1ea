// Package signal serves the local UI over a WebSocket: commands in, session
// events out.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerchess/internal/app/orch"
	"github.com/dkeye/peerchess/internal/config"
	"github.com/dkeye/peerchess/internal/core"
)

var ErrConnClosed = errors.New("connection closed")

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

type SignalWSController struct {
	Session    *orch.Session
	Limiter    *RateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(sess *orch.Session, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Session:    sess,
		Limiter:    NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateInterval),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
}

type WsSignalConn struct {
	id   core.ViewerID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers the connection as a viewer.
// Several tabs of one browser share a client token, so the viewer id adds a
// per-connection suffix.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	id := core.ViewerID(token + ":" + uuid.NewString()[:8])
	log.Info().Str("module", "signal").Str("viewer", string(id)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		id:   id,
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}
	ctl.Session.Viewers().Add(id, conn)
	ctl.handleState(ctx, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
