package orch

import (
	"encoding/json"

	"github.com/dkeye/peerchess/internal/app"
	"github.com/dkeye/peerchess/internal/core"
)

func (s *Session) publishState()   { s.publish(EventState, s.stateView()) }
func (s *Session) publishSession() { s.publish(EventSession, s.sessionView()) }

// publish fans an event out to viewers and applies the policy to slow ones.
func (s *Session) publish(typ string, data any) {
	raw, err := json.Marshal(Event{Type: typ, Data: data})
	if err != nil {
		s.logger.Error().Err(err).Str("event", typ).Msg("encode event")
		return
	}
	res := s.opts.Viewers.Broadcast(core.Frame(raw))
	if s.opts.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch s.opts.Policy.OnBackPressure(s.opts.Viewers, slow) {
		case app.KickViewer:
			s.kick(slow)
		case app.DropFrame, app.NoAction:
		}
	}
}

func (s *Session) kick(id core.ViewerID) {
	conn, ok := s.opts.Viewers.Get(id)
	s.opts.Viewers.Remove(id)
	if ok {
		conn.Close()
	}
	s.logger.Info().Str("viewer", string(id)).Msg("slow viewer kicked")
}
