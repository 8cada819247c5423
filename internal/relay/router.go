package relay

import "github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"

// systemTarget is the reserved remote id legacy clients address
// presence probes to.
const systemTarget = "system"

// HandleMessage dispatches one inbound application-protocol message.
// Join requests go through admission, moderation-shift messages are
// relayed or deferred, presence probes are answered on the ack, and
// everything else takes the relay path.
func (e *Engine) HandleMessage(c *Client, msg domain.Message, ack AckFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A peer cannot target itself.
	if msg.RemoteUserID != "" && msg.RemoteUserID == c.userID {
		return
	}

	if msg.RemoteUserID != "" && msg.RemoteUserID != systemTarget && msg.Message.NewParticipationRequest {
		e.handleJoinLocked(c, msg)
		return
	}

	if msg.Message.ShiftedModerationControl {
		if !msg.Message.FiredOnLeave {
			e.relayLocked(c, msg)
			return
		}
		// Deferred until the sender actually leaves; at most one
		// pending per sender, newest wins.
		deferred := msg
		e.pending[msg.Sender] = &deferred
		return
	}

	if msg.RemoteUserID == systemTarget && msg.Message.DetectPresence {
		if ack == nil {
			return
		}
		if msg.Message.UserID == c.userID {
			ack(false, c.userID)
			return
		}
		ack(e.sessions[msg.Message.UserID] != nil, msg.Message.UserID)
		return
	}

	// Some deployments message before registering explicitly.
	e.ensureSenderLocked(c, msg.Sender)

	e.relayLocked(c, msg)
}

// ensureSenderLocked creates a session for a sender the registry has
// never seen, bound to this connection's channel.
func (e *Engine) ensureSenderLocked(c *Client, senderID string) {
	if senderID == "" || e.sessions[senderID] != nil {
		return
	}
	s := newSession(senderID, c.ch)
	if c.params.MaxParticipants > 0 {
		s.MaxParticipants = c.params.MaxParticipants
	}
	e.sessions[senderID] = s
}

// relayLocked forwards an opaque message from sender to remote. A
// missing edge is created first when the remote is a known identity and
// the message is not a departure notice; forwarding only happens over a
// live half-edge, stamped with the sender's current metadata.
func (e *Engine) relayLocked(c *Client, msg domain.Message) {
	sender := e.sessions[msg.Sender]
	if sender == nil {
		emit(c.ch, "user-not-found", msg.RemoteUserID)
		return
	}

	remote := e.sessions[msg.RemoteUserID]
	if !msg.Message.UserLeft && sender.ConnectedWith[msg.RemoteUserID] == nil && remote != nil {
		e.connectLocked(c.ch, msg.Sender, msg.RemoteUserID)
	}

	if ch := sender.ConnectedWith[msg.RemoteUserID]; ch != nil {
		if self := e.sessions[c.userID]; self != nil {
			msg.Extra = self.Extra
		}
		e.Metrics.Relayed()
		emit(ch, c.messageEvent, msg)
	}
}
