package relay

import "github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"

// connectLocked records the undirected edge sender↔remote and tells
// both sides. Idempotent: re-recording an existing edge just refreshes
// the stored channels. The remote may not exist yet, in which case a
// placeholder session is created for it; only sides with a live channel
// are notified.
func (e *Engine) connectLocked(senderCh core.Channel, senderID, remoteID string) {
	sender := e.sessions[senderID]
	if sender == nil {
		return
	}
	remote := e.sessions[remoteID]
	if remote == nil {
		remote = newSession(remoteID, nil)
		e.sessions[remoteID] = remote
	}

	sender.ConnectedWith[remoteID] = remote.Channel
	emit(sender.Channel, "user-connected", remoteID)

	remote.ConnectedWith[senderID] = senderCh
	if remote.Channel != nil {
		emit(remote.Channel, "user-connected", senderID)
	}
}

// DisconnectWith removes the edge between the caller and one named
// peer, notifying each side whose half of the edge existed. It succeeds
// even when the peer is unknown; the caller acks either way.
func (e *Engine) DisconnectWith(c *Client, remoteID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.sessions[c.userID]; s != nil {
		if _, ok := s.ConnectedWith[remoteID]; ok {
			delete(s.ConnectedWith, remoteID)
			emit(c.ch, "user-disconnected", remoteID)
		}
	}

	r := e.sessions[remoteID]
	if r == nil {
		return
	}
	if _, ok := r.ConnectedWith[c.userID]; ok {
		delete(r.ConnectedWith, c.userID)
		emit(r.Channel, "user-disconnected", c.userID)
	}
}

// Neighbors reports the peer ids currently recorded as connected with
// an identity, in stable order.
func (e *Engine) Neighbors(id string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[id]
	if s == nil {
		return nil
	}
	return s.sortedNeighbors()
}
