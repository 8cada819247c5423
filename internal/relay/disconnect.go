package relay

import (
	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
)

// Disconnect unwinds everything a departed connection left behind:
// replays a deferred moderation shift, notifies every neighbor, removes
// reverse edges, promotes a successor when the departing identity was
// the armed session owner, and finally evicts the registry entry.
func (e *Engine) Disconnect(c *Client) {
	e.mu.Lock()

	// Replay the deferred moderation change first, while the graph is
	// intact, so its effects match a live relay.
	if msg := e.pending[c.userID]; msg != nil {
		delete(e.pending, c.userID)
		e.relayLocked(c, *msg)
	}

	if u := e.sessions[c.userID]; u != nil {
		var first core.Channel
		for _, id := range u.sortedNeighbors() {
			ch := u.ConnectedWith[id]
			if first == nil {
				first = ch
			}
			emit(ch, "user-disconnected", c.userID)

			// Peers that recorded the reverse edge get it removed and
			// are told again; clients tolerate the duplicate.
			if s := e.sessions[id]; s != nil {
				if _, ok := s.ConnectedWith[c.userID]; ok {
					delete(s.ConnectedWith, c.userID)
					emit(s.Channel, "user-disconnected", c.userID)
				}
			}
		}

		if u.ShiftModerationOnDeparture && first != nil {
			emit(first, "become-next-moderator", c.sessionID)
		}
	}

	delete(e.sessions, c.userID)
	userID := c.userID
	e.mu.Unlock()

	e.Metrics.ConnClosed()
	log.Info().Str("module", "relay").Str("userid", userID).Msg("session evicted")
}
