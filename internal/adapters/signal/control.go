package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerchess/internal/app/orch"
	"github.com/dkeye/peerchess/internal/domain"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleState(ctx context.Context, conn *WsSignalConn) {
	v, err := ctl.Session.State(ctx)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}
	ctl.sendJSON(conn, orch.Event{Type: orch.EventState, Data: v})
}

func (ctl *SignalWSController) handleMove(ctx context.Context, conn *WsSignalConn, data []byte) {
	type movePayload struct {
		Type      string `json:"type"`
		From      string `json:"from"`
		To        string `json:"to"`
		Promotion string `json:"promotion,omitempty"`
	}
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad move payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	from, err := domain.ParseSquare(p.From)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}
	to, err := domain.ParseSquare(p.To)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}

	res, err := ctl.Session.Move(ctx, domain.MoveRequest{
		From:      from,
		To:        to,
		Promotion: domain.ParsePieceKind(p.Promotion),
	})
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}
	if res.Record == nil {
		// applied moves show up through the state event
		ctl.sendError(conn, res.Outcome)
	}
}

func (ctl *SignalWSController) handleChat(ctx context.Context, conn *WsSignalConn, data []byte) {
	type chatPayload struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Session.Chat(ctx, p.Text); err != nil {
		ctl.sendError(conn, err.Error())
	}
}

func (ctl *SignalWSController) handleLocator(ctx context.Context, conn *WsSignalConn, data []byte) {
	type locatorPayload struct {
		Type    string `json:"type"`
		Locator string `json:"locator"`
	}
	var p locatorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad locator payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Session.LoadLocator(ctx, p.Locator); err != nil {
		ctl.sendError(conn, err.Error())
	}
}

func (ctl *SignalWSController) handleNavigate(ctx context.Context, conn *WsSignalConn, step func(context.Context) (bool, error)) {
	moved, err := step(ctx)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}
	if !moved {
		ctl.sendError(conn, "history_end")
	}
}
