package history

import (
	"context"
	"sync"

	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

// MemoryNavigator is the default when no Redis url is configured.
type MemoryNavigator struct {
	mu      sync.Mutex
	entries []domain.HistoryFrame
	cursor  int
}

func NewMemoryNavigator() *MemoryNavigator {
	return &MemoryNavigator{cursor: -1}
}

func (m *MemoryNavigator) Push(_ context.Context, frame domain.HistoryFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.cursor+1], frame)
	m.cursor++
	return nil
}

func (m *MemoryNavigator) Back(_ context.Context) (*domain.HistoryFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return nil, nil
	}
	m.cursor--
	return m.at(m.cursor), nil
}

func (m *MemoryNavigator) Forward(_ context.Context) (*domain.HistoryFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.entries)-1 {
		return nil, nil
	}
	m.cursor++
	return m.at(m.cursor), nil
}

func (m *MemoryNavigator) Current(_ context.Context) (*domain.HistoryFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return nil, nil
	}
	return m.at(m.cursor), nil
}

func (m *MemoryNavigator) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *MemoryNavigator) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.cursor = -1
	return nil
}

func (m *MemoryNavigator) at(i int) *domain.HistoryFrame {
	f := m.entries[i]
	return &f
}

var _ core.Navigator = (*MemoryNavigator)(nil)
