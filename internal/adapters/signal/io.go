package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

func (ctl *Controller) writePump(ctx context.Context, c *wsChannel) {
	pingPeriod := ctl.cfg.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = (pongWait * 9) / 10
	}
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pinger.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, p *peer) {
	defer func() {
		log.Info().Str("module", "signal").Str("userid", p.client.UserID()).Msg("connection closing")
		ctl.teardown(p)
	}()

	if ctl.cfg.ReadLimit > 0 {
		p.conn.ws.SetReadLimit(ctl.cfg.ReadLimit)
	}
	_ = p.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.ws.SetPongHandler(func(string) error {
		return p.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := p.conn.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("readPump read error")
				return
			}
			p.dispatch(data)
		}
	}
}

// teardown unwinds one lost connection: the hub forgets it, the
// broadcast extension reseats its viewers, and the engine cascades the
// departure through the session graph.
func (ctl *Controller) teardown(p *peer) {
	ctl.hub.remove(p.conn)
	if p.broadcastEnabled {
		ctl.Broadcast.Leave(p.client.UserID())
	}
	ctl.Engine.Disconnect(p.client)
	_ = p.conn.Close()
}
