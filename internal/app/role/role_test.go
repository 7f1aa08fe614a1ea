package role

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerchess/internal/domain"
)

func TestResolve_Idempotent(t *testing.T) {
	for _, first := range []bool{true, false} {
		a := NewAssigner()
		got := a.Resolve(first)
		require.Equal(t, first, got)
		require.Equal(t, got, a.Resolve(!first))
		require.Equal(t, got, a.Resolve(first))
	}
}

func TestResolve_PairedSessionsGetOppositeColors(t *testing.T) {
	sender, receiver := NewAssigner(), NewAssigner()

	// A sends the first move; B receives it.
	require.True(t, sender.Resolve(true))
	require.False(t, receiver.Resolve(false))

	sc, _ := sender.LocalColor()
	rc, _ := receiver.LocalColor()
	require.Equal(t, domain.White, sc)
	require.Equal(t, domain.Black, rc)
	require.Equal(t, sc.Opposite(), rc)
}

func TestMoverColor(t *testing.T) {
	a := NewAssigner()
	_, ok := a.LocalColor()
	require.False(t, ok)

	// first event is an inbound move: the peer is white
	require.Equal(t, domain.White, a.MoverColor(false))
	require.Equal(t, domain.Black, a.MoverColor(true))
	white, ok := a.Resolved()
	require.True(t, ok)
	require.False(t, white)
}
