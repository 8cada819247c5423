package relay

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/monitoring"
)

// handleJoinLocked runs the admission protocol for one join request.
//
// A target with a live channel is gated (password), capacity-checked
// and fanned out immediately. A target that is unknown or still a
// placeholder parks the request in the waiter, which re-checks once per
// tick until the target connects or the window closes.
func (e *Engine) handleJoinLocked(c *Client, msg domain.Message) {
	target := e.sessions[msg.RemoteUserID]

	if target != nil && target.Password != "" {
		switch e.gateLocked(c, target, msg.Password) {
		case gateTooMany:
			e.Metrics.JoinDenied(monitoring.DenialMaxTriesOver)
			emit(c.ch, "password-max-tries-over", msg.RemoteUserID)
			return
		case gateMissing:
			e.Metrics.JoinDenied(monitoring.DenialMissingPassword)
			emit(c.ch, "join-with-password", msg.RemoteUserID)
			return
		case gateMismatch:
			e.Metrics.JoinDenied(monitoring.DenialInvalidPassword)
			emit(c.ch, "invalid-password", msg.RemoteUserID, msg.Password)
			return
		case gateAllowed:
		}
	}

	if target != nil && target.Channel != nil {
		e.joinRoomLocked(c, msg)
		return
	}

	// Target not here yet. Make sure the joiner itself is registered,
	// then retry on a schedule; the waiter aborts silently if the
	// joiner disconnects first.
	e.ensureSenderLocked(c, msg.Sender)
	e.waitForTarget(c, msg)
}

// joinRoomLocked admits a joiner: every current room member, initiator
// included, receives the original request readdressed to itself. Edges
// are not created here; they form lazily as the invited parties relay
// their answers back. The capacity check counts the initiator's edges,
// not the joiner's.
func (e *Engine) joinRoomLocked(c *Client, msg domain.Message) {
	initiator := e.sessions[msg.RemoteUserID]
	if initiator == nil {
		return
	}

	if len(initiator.ConnectedWith) >= initiator.MaxParticipants {
		e.Metrics.JoinDenied(monitoring.DenialRoomFull)
		emit(c.ch, "room-full", msg.RemoteUserID)
		// A stale edge into a full room must not survive the denial.
		delete(initiator.ConnectedWith, c.userID)
		return
	}

	type invite struct {
		id string
		ch core.Channel
	}
	invites := []invite{{initiator.ID, initiator.Channel}}
	for _, id := range initiator.sortedNeighbors() {
		invites = append(invites, invite{id, initiator.ConnectedWith[id]})
	}

	seen := make(map[string]struct{}, len(invites))
	for _, inv := range invites {
		if inv.id == c.userID {
			continue
		}
		if _, dup := seen[inv.id]; dup {
			continue
		}
		seen[inv.id] = struct{}{}

		personalized := msg
		personalized.RemoteUserID = inv.id
		emit(inv.ch, c.messageEvent, personalized)
	}

	log.Info().Str("module", "relay").Str("joiner", c.userID).Str("room", initiator.ID).Int("invited", len(seen)).Msg("join admitted")
}

// waitForTarget polls for the join target on its own goroutine. No lock
// is held across the sleep; each tick re-acquires it, checks that the
// joiner is still registered and whether the target has come alive. On
// exhausting the window the joiner gets user-not-found.
func (e *Engine) waitForTarget(c *Client, msg domain.Message) {
	go func() {
		ticker := time.NewTicker(e.WaitInterval)
		defer ticker.Stop()

		for i := 0; i < e.WaitAttempts; i++ {
			<-ticker.C

			e.mu.Lock()
			if e.sessions[c.userID] == nil {
				e.mu.Unlock()
				return
			}
			if target := e.sessions[msg.RemoteUserID]; target != nil && target.Channel != nil {
				e.joinRoomLocked(c, msg)
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
		}

		e.mu.Lock()
		gone := e.sessions[c.userID] == nil
		e.mu.Unlock()
		if gone {
			return
		}
		e.Metrics.JoinDenied(monitoring.DenialNotFound)
		emit(c.ch, "user-not-found", msg.RemoteUserID)
	}()
}
