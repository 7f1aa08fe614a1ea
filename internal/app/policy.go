package app

import "github.com/dkeye/peerchess/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickViewer
	DropFrame
)

// Policy decides what happens to a viewer whose outbound queue is full.
type Policy interface {
	OnBackPressure(hub core.ViewerHub, viewer core.ViewerID) BackpressureAction
}

// SimplePolicy kicks every slow viewer; a UI reconnects and asks for state.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.ViewerHub, core.ViewerID) BackpressureAction {
	return KickViewer
}
