package router

import (
	"strings"
)

const (
	movePrefix = "move:"
	terminator = "\n"
)

// ControlKind enumerates recognized control tokens.
type ControlKind int

const (
	// HandshakeAck is sent by both ends as soon as the channel opens.
	HandshakeAck ControlKind = iota + 1
)

// controlTokens maps wire text to kind. The ack keeps the browser client's spelling.
var controlTokens = map[string]ControlKind{
	"Connected Succesfully !": HandshakeAck,
}

func (k ControlKind) Token() string {
	for tok, kind := range controlTokens {
		if kind == k {
			return tok
		}
	}
	return ""
}

func (k ControlKind) String() string {
	switch k {
	case HandshakeAck:
		return "handshake_ack"
	default:
		return "unknown"
	}
}

// Message is the closed set of wire messages.
type Message interface{ isWireMessage() }

type MoveMessage struct {
	SAN string
}

func (MoveMessage) isWireMessage() {}

type ChatMessage struct {
	Text string
}

func (ChatMessage) isWireMessage() {}

type ControlMessage struct {
	Kind ControlKind
}

func (ControlMessage) isWireMessage() {}

// Classify never fails: anything that is not a well-formed move or a known
// control token is chat.
func Classify(raw string) Message {
	line := strings.TrimSuffix(raw, terminator)
	line = strings.TrimSuffix(line, "\r")

	if kind, ok := controlTokens[line]; ok {
		return ControlMessage{Kind: kind}
	}
	if san, ok := strings.CutPrefix(line, movePrefix); ok && validNotation(san) {
		return MoveMessage{SAN: san}
	}
	return ChatMessage{Text: line}
}

// validNotation accepts one non-empty token without whitespace.
func validNotation(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\r\n")
}

// Frame packages m as a single newline-terminated frame. Empty payloads are
// suppressed and reported with ok=false.
func Frame(m Message) (string, bool) {
	switch msg := m.(type) {
	case MoveMessage:
		if !validNotation(msg.SAN) {
			return "", false
		}
		return movePrefix + msg.SAN + terminator, true
	case ChatMessage:
		if msg.Text == "" {
			return "", false
		}
		return msg.Text + terminator, true
	case ControlMessage:
		tok := msg.Kind.Token()
		if tok == "" {
			return "", false
		}
		return tok + terminator, true
	default:
		return "", false
	}
}
