package signal

import (
	"encoding/json"
	"sync"
)

// Hub tracks every live connection so custom events can be re-broadcast
// to everyone but their sender. It is transport-level on purpose: a
// connection participates in broadcasts even before it has relayed a
// single message.
type Hub struct {
	mu    sync.RWMutex
	conns map[*wsChannel]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*wsChannel]struct{})}
}

func (h *Hub) add(c *wsChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *wsChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// BroadcastOthers forwards an event verbatim to every connection except
// the sender. Delivery is best effort; a slow or closed connection just
// misses the event.
func (h *Hub) BroadcastOthers(from *wsChannel, event string, data []json.RawMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c == from {
			continue
		}
		_ = c.emitRaw(event, data)
	}
}
