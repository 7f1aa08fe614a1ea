package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// viewerHub is a threadsafe in-memory viewer set.
// It never closes adapter-owned resources.
type viewerHub struct {
	mu   sync.RWMutex
	byID map[ViewerID]SignalConnection
}

func NewViewerHub() ViewerHub {
	return &viewerHub{byID: make(map[ViewerID]SignalConnection)}
}

func (h *viewerHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

func (h *viewerHub) Add(id ViewerID, conn SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[id] = conn
	log.Info().Str("module", "core.viewers").Str("viewer", string(id)).Msg("viewer added")
}

func (h *viewerHub) Remove(id ViewerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, id)
	log.Info().Str("module", "core.viewers").Str("viewer", string(id)).Msg("viewer removed")
}

func (h *viewerHub) Get(id ViewerID) (SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byID[id]
	return c, ok
}

func (h *viewerHub) Broadcast(data Frame) PublishResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := PublishResult{}
	for id, c := range h.byID {
		if err := c.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.viewers").Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
