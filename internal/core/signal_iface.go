package core

// Frame is a raw text payload.
type Frame []byte

// SignalConnection abstracts a viewer-facing messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Executor runs fn on the session's single execution context.
type Executor interface {
	Post(fn func())
}
