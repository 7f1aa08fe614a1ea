// Package role resolves which peer plays white.
//
// The color is not negotiated. The side that originates the very first move
// of a connected session is White, its peer is Black, and the assignment is
// fixed for the rest of the session.
package role

import "github.com/dkeye/peerchess/internal/domain"

// Assigner is owned by a single session context and is not safe for
// concurrent use.
type Assigner struct {
	resolved     bool
	localIsWhite bool
}

func NewAssigner() *Assigner { return &Assigner{} }

// Resolve fixes the assignment on the first call and returns the cached
// value on every later call, whatever the argument.
func (a *Assigner) Resolve(isLocalOriginatedMove bool) bool {
	if !a.resolved {
		a.resolved = true
		a.localIsWhite = isLocalOriginatedMove
	}
	return a.localIsWhite
}

// Resolved reports the assignment and whether it has been made.
func (a *Assigner) Resolved() (localIsWhite bool, ok bool) {
	return a.localIsWhite, a.resolved
}

// MoverColor returns the color of the side originating a move.
// It resolves the assignment if needed.
func (a *Assigner) MoverColor(isLocalOriginatedMove bool) domain.Color {
	localIsWhite := a.Resolve(isLocalOriginatedMove)
	if isLocalOriginatedMove {
		return domain.ColorOf(localIsWhite)
	}
	return domain.ColorOf(!localIsWhite)
}

// LocalColor is the local side's color; ok is false while unresolved.
func (a *Assigner) LocalColor() (domain.Color, bool) {
	if !a.resolved {
		return domain.White, false
	}
	return domain.ColorOf(a.localIsWhite), true
}
