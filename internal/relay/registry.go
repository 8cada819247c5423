package relay

import (
	"encoding/json"
	"math/rand"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
)

// HandshakeParams carries the connection-scoped key/value parameters of
// the transport handshake.
type HandshakeParams struct {
	UserID       string
	SessionID    string
	MessageEvent string

	// AutoCloseSession holds the raw handshake value. Only the literal
	// "false", combined with the caller being its own session owner,
	// arms moderation handoff on departure.
	AutoCloseSession string

	MaxParticipants int
	Extra           json.RawMessage
}

// Connect registers a new transport connection under the requested
// identity and returns its Client handle. A collision with an already
// connected identity reassigns a fresh random numeric id and tells the
// caller; a placeholder entry is taken over silently.
func (e *Engine) Connect(p HandshakeParams, ch core.Channel) *Client {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := &Client{
		engine:       e,
		ch:           ch,
		sessionID:    p.SessionID,
		messageEvent: p.MessageEvent,
		params:       p,
	}

	userID := p.UserID
	if existing := e.sessions[userID]; existing != nil && existing.Channel != nil {
		taken := userID
		userID = randomNumericID()
		c.skipNextRename = true
		emit(ch, "userid-already-taken", taken, userID)
		log.Info().Str("module", "relay").Str("taken", taken).Str("assigned", userID).Msg("userid collision")
	}
	c.userID = userID

	e.registerLocked(c, p)

	if p.AutoCloseSession == "false" && p.SessionID == userID {
		e.sessions[userID].ShiftModerationOnDeparture = true
	}

	e.Metrics.ConnOpened()
	log.Info().Str("module", "relay").Str("userid", userID).Msg("session registered")
	return c
}

// registerLocked creates or refreshes the caller's session. Metadata of
// an existing entry survives unless the handshake supplies its own;
// edges do not, the connection starts with a clean graph node.
func (e *Engine) registerLocked(c *Client, p HandshakeParams) {
	extra := emptyExtra
	if existing := e.sessions[c.userID]; existing != nil && len(existing.Extra) > 0 {
		extra = existing.Extra
	}
	if len(p.Extra) > 0 {
		extra = p.Extra
	}

	s := newSession(c.userID, c.ch)
	s.Extra = extra
	if p.MaxParticipants > 0 {
		s.MaxParticipants = p.MaxParticipants
	}
	e.sessions[c.userID] = s
}

// Rename moves the caller's session under a new identity. It reports
// whether the change was applied, which is also whether the caller
// should be acked. Renaming to the current id is a silent no-op along
// with the one-shot suppression after a collision reassignment.
func (e *Engine) Rename(c *Client, newID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c.skipNextRename {
		c.skipNextRename = false
		return false
	}

	s := e.sessions[c.userID]
	if s != nil && s.Channel == c.ch {
		if newID == c.userID {
			return false
		}
		oldID := c.userID
		e.sessions[newID] = s
		s.ID = newID
		c.userID = newID
		delete(e.sessions, oldID)
		log.Info().Str("module", "relay").Str("old", oldID).Str("new", newID).Msg("session renamed")
		return true
	}

	// The session is gone or belongs to another connection: bind the
	// new id fresh, as if this were the initial registration.
	c.userID = newID
	e.registerLocked(c, c.params)
	return true
}

func randomNumericID() string {
	return strconv.Itoa(rand.Intn(100000000))
}
