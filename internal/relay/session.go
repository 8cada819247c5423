package relay

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"
)

var emptyExtra = json.RawMessage("{}")

// Session is the server-side record of one identity. A session with a
// nil Channel is a placeholder: it was referenced as a join target
// before its owner connected.
type Session struct {
	ID      string
	Channel core.Channel

	// ConnectedWith maps a peer id to that peer's channel. The pair of
	// entries models an undirected edge; a nil value means the peer was
	// still a placeholder when the edge was recorded, and read paths
	// treat it the same as a missing edge.
	ConnectedWith map[string]core.Channel

	IsPublicModerator bool
	Extra             json.RawMessage
	MaxParticipants   int
	Password          string

	// ShiftModerationOnDeparture promotes the first remaining peer to
	// moderator when this identity disconnects.
	ShiftModerationOnDeparture bool
}

func newSession(id string, ch core.Channel) *Session {
	return &Session{
		ID:              id,
		Channel:         ch,
		ConnectedWith:   make(map[string]core.Channel),
		Extra:           emptyExtra,
		MaxParticipants: DefaultMaxParticipants,
	}
}

// sortedNeighbors returns the peer ids of a session in a stable order.
// The underlying map has no order of its own; sorting keeps "first
// neighbor" semantics deterministic within a process.
func (s *Session) sortedNeighbors() []string {
	ids := make([]string, 0, len(s.ConnectedWith))
	for id := range s.ConnectedWith {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateExtra replaces the caller's metadata and fans the change out to
// every connected peer that has a live channel.
func (e *Engine) UpdateExtra(c *Client, extra json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[c.userID]
	if s == nil {
		return
	}
	if len(extra) == 0 {
		extra = emptyExtra
	}
	s.Extra = extra

	for _, id := range s.sortedNeighbors() {
		peer := e.sessions[id]
		if peer == nil {
			continue
		}
		emit(peer.Channel, "extra-data-updated", c.userID, extra)
	}
}

// RemoteExtra fetches another identity's metadata.
func (e *Engine) RemoteExtra(remoteID string) (json.RawMessage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[remoteID]
	if s == nil {
		return nil, false
	}
	return s.Extra, true
}

// SetPublicModerator toggles discoverability of the caller as a
// joinable room owner.
func (e *Engine) SetPublicModerator(c *Client, public bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.sessions[c.userID]; s != nil {
		s.IsPublicModerator = public
	}
}

// PublicModerators lists discoverable room owners whose id starts with
// prefix, excluding the caller.
func (e *Engine) PublicModerators(c *Client, prefix string) []domain.PublicModerator {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.PublicModerator, 0)
	for id, s := range e.sessions {
		if !s.IsPublicModerator || id == c.userID || !strings.HasPrefix(id, prefix) {
			continue
		}
		out = append(out, domain.PublicModerator{UserID: id, Extra: s.Extra})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// SetPassword gates future join requests targeting the caller.
func (e *Engine) SetPassword(c *Client, password string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.sessions[c.userID]; s != nil {
		s.Password = password
	}
}

// CheckPresence reports whether an identity is known. Asking about
// yourself answers false, matching the legacy presence semantics.
func (e *Engine) CheckPresence(c *Client, id string) (bool, json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[id]
	if s == nil {
		return false, emptyExtra
	}
	return id != c.userID, s.Extra
}
