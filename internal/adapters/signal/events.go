package signal

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay"
)

// dispatch routes one inbound frame to the matching handler. Any fault
// inside a handler is confined to this connection: it is logged and the
// frame dropped, never allowed to take the serving task down.
func (p *peer) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Str("userid", p.client.UserID()).Msg("handler fault, frame dropped")
		}
	}()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad frame")
		return
	}
	p.ctl.Metrics.Event(env.Event)

	switch env.Event {
	case p.messageEvent:
		var msg domain.Message
		if len(env.Data) == 0 || json.Unmarshal(env.Data[0], &msg) != nil {
			log.Warn().Str("module", "signal").Msg("bad message payload")
			return
		}
		p.ctl.Engine.HandleMessage(p.client, msg, p.ackFunc(env.Ack))

	case "extra-data-updated":
		if len(env.Data) > 0 {
			p.ctl.Engine.UpdateExtra(p.client, json.RawMessage(env.Data[0]))
		}

	case "get-remote-user-extra-data":
		id := stringArg(env.Data, 0)
		ack := p.ackFunc(env.Ack)
		if ack == nil {
			return
		}
		if extra, ok := p.ctl.Engine.RemoteExtra(id); ok {
			ack(extra)
		} else {
			ack(fmt.Sprintf("remoteUserId (%s) does NOT exist.", id))
		}

	case "become-a-public-moderator":
		p.ctl.Engine.SetPublicModerator(p.client, true)

	case "dont-make-me-moderator":
		p.ctl.Engine.SetPublicModerator(p.client, false)

	case "get-public-moderators":
		if ack := p.ackFunc(env.Ack); ack != nil {
			ack(p.ctl.Engine.PublicModerators(p.client, stringArg(env.Data, 0)))
		}

	case "changed-uuid":
		if p.ctl.Engine.Rename(p.client, stringArg(env.Data, 0)) {
			if ack := p.ackFunc(env.Ack); ack != nil {
				ack()
			}
		}

	case "set-password":
		p.ctl.Engine.SetPassword(p.client, stringArg(env.Data, 0))

	case "disconnect-with":
		p.ctl.Engine.DisconnectWith(p.client, stringArg(env.Data, 0))
		if ack := p.ackFunc(env.Ack); ack != nil {
			ack()
		}

	case "close-entire-session":
		p.ctl.Engine.CloseSession(p.client)
		if ack := p.ackFunc(env.Ack); ack != nil {
			ack()
		}

	case "check-presence":
		id := stringArg(env.Data, 0)
		if ack := p.ackFunc(env.Ack); ack != nil {
			present, extra := p.ctl.Engine.CheckPresence(p.client, id)
			ack(present, id, extra)
		}

	case "shift-moderator-control-on-disconnect":
		p.ctl.Engine.ShiftModerationOnDeparture(p.client)

	case "set-custom-socket-event-listener":
		if name := stringArg(env.Data, 0); name != "" {
			p.customEvents[name] = struct{}{}
		}

	case "join-broadcast":
		if p.broadcastEnabled {
			p.ctl.Broadcast.Join(p.client.UserID(), stringArg(env.Data, 0))
		}

	default:
		if p.isCustomEvent(env.Event) {
			p.ctl.hub.BroadcastOthers(p.conn, env.Event, env.Data)
			return
		}
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown event")
	}
}

func (p *peer) isCustomEvent(event string) bool {
	if event == p.customEvent {
		return true
	}
	_, ok := p.customEvents[event]
	return ok
}

func (p *peer) ackFunc(id *uint64) relay.AckFunc {
	if id == nil {
		return nil
	}
	ackID := *id
	return func(args ...any) {
		if err := p.conn.emitAck(ackID, args...); err != nil {
			log.Debug().Err(err).Str("module", "signal").Msg("ack dropped")
		}
	}
}

func stringArg(data []json.RawMessage, i int) string {
	if i >= len(data) {
		return ""
	}
	var s string
	if err := json.Unmarshal(data[i], &s); err != nil {
		return ""
	}
	return s
}
