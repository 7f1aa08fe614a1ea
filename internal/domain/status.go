package domain

import "time"

type Outcome string

const (
	OutcomeNone     Outcome = "*"
	OutcomeWhiteWon Outcome = "1-0"
	OutcomeBlackWon Outcome = "0-1"
	OutcomeDraw     Outcome = "1/2-1/2"
)

// GameStatus is the read-only view the rules engine reports after each change.
type GameStatus struct {
	Turn        Color   `json:"-"`
	Check       bool    `json:"check"`
	Checkmate   bool    `json:"checkmate"`
	Stalemate   bool    `json:"stalemate"`
	Draw        bool    `json:"draw"`
	Outcome     Outcome `json:"outcome"`
	LastCapture bool    `json:"last_capture"`
}

// Summary mirrors the status line of the browser client.
func (s GameStatus) Summary() string {
	switch {
	case s.Checkmate:
		return "Checkmate"
	case s.Check:
		return s.Turn.Title() + " is check"
	case s.Stalemate:
		return "Stalemate"
	case s.Draw:
		return "Draw"
	default:
		return s.Turn.Title() + " to move"
	}
}

type ChatSender string

const (
	FromMe     ChatSender = "me"
	FromPeer   ChatSender = "peer"
	FromSystem ChatSender = "system"
)

type ChatLine struct {
	From ChatSender `json:"from"`
	Text string     `json:"text"`
	At   time.Time  `json:"at"`
}
