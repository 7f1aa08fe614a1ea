package orch

import (
	"github.com/dkeye/peerchess/internal/domain"
)

// SessionView is the handshake state shown to the local UI.
type SessionView struct {
	ID               domain.SessionID `json:"id"`
	Role             string           `json:"role"`
	State            string           `json:"state"`
	LocalDescriptor  string           `json:"local_descriptor,omitempty"`
	RemoteDescriptor string           `json:"remote_descriptor,omitempty"`
	LocalColor       string           `json:"local_color,omitempty"`
}

// StateView is everything a board renderer needs.
type StateView struct {
	FEN      string             `json:"fen"`
	Locator  domain.Locator     `json:"locator"`
	PGN      string             `json:"pgn"`
	Turn     string             `json:"turn"`
	Summary  string             `json:"summary"`
	Status   domain.GameStatus  `json:"status"`
	Plies    int                `json:"plies"`
	LastMove *domain.MoveRecord `json:"last_move,omitempty"`
	Session  SessionView        `json:"session"`
	Chat     []domain.ChatLine  `json:"chat"`
}

// MoveResult reports how a submitted move was handled.
type MoveResult struct {
	Outcome string             `json:"outcome"`
	Record  *domain.MoveRecord `json:"record,omitempty"`
}

// Event is the envelope pushed to viewers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventState   = "state"
	EventChat    = "chat"
	EventSession = "session"
)
