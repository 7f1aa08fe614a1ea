package core

import "errors"

var (
	ErrMalformedDescriptor   = errors.New("malformed session descriptor")
	ErrInvalidHandshakeState = errors.New("invalid handshake state")
	ErrChannelClosed         = errors.New("channel closed")
	ErrNotConnected          = errors.New("channel not open")
	ErrIllegalMove           = errors.New("illegal move")
	ErrOutOfTurn             = errors.New("not your turn")
	ErrReservedText          = errors.New("text is reserved for the handshake")
	ErrInvalidLocator        = errors.New("invalid locator")
	ErrInvalidPGN            = errors.New("invalid pgn")
	ErrBackpressure          = errors.New("backpressure")
)
