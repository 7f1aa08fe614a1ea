package core

import (
	"context"

	"github.com/dkeye/peerchess/internal/domain"
)

// Navigator is a browser-style history stack: Push drops every entry past
// the cursor, Back and Forward return nil at either end.
type Navigator interface {
	Push(ctx context.Context, frame domain.HistoryFrame) error
	Back(ctx context.Context) (*domain.HistoryFrame, error)
	Forward(ctx context.Context) (*domain.HistoryFrame, error)
	Current(ctx context.Context) (*domain.HistoryFrame, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
