// Package signal adapts gorilla/websocket connections to the relay
// engine's channel contract: a JSON named-event envelope in both
// directions, with optional acks for request/response events.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/config"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/monitoring"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay/broadcast"
)

// DefaultMessageEvent is the event name application messages travel
// under when the handshake does not pick its own.
const DefaultMessageEvent = "RTCMultiConnection-Message"

// DefaultCustomEvent is the connection-scoped broadcast event wired at
// setup unless the handshake overrides it.
const DefaultCustomEvent = "custom-message"

var (
	ErrBackpressure = errors.New("backpressure")
	errClosed       = errors.New("connection closed")
)

// Controller owns the websocket endpoint and fans established
// connections out to the relay engine and the broadcast extension.
type Controller struct {
	Engine    *relay.Engine
	Broadcast *broadcast.Manager
	Metrics   *monitoring.Metrics

	cfg      *config.Config
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewController(cfg *config.Config, engine *relay.Engine, bcast *broadcast.Manager, metrics *monitoring.Metrics) *Controller {
	return &Controller{
		Engine:    engine,
		Broadcast: bcast,
		Metrics:   metrics,
		cfg:       cfg,
		hub:       NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// wsChannel is the core.Channel over one websocket. Writes go through a
// buffered channel drained by the write pump; a full buffer drops the
// event rather than blocking the sender.
type wsChannel struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

type envelope struct {
	Event string            `json:"event"`
	Data  []json.RawMessage `json:"data,omitempty"`
	Ack   *uint64           `json:"ack,omitempty"`
}

func (c *wsChannel) Emit(event string, args ...any) error {
	env := envelope{Event: event}
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return err
		}
		env.Data = append(env.Data, b)
	}
	return c.trySend(env)
}

// emitRaw forwards already-encoded arguments, used when re-broadcasting
// custom events verbatim.
func (c *wsChannel) emitRaw(event string, data []json.RawMessage) error {
	return c.trySend(envelope{Event: event, Data: data})
}

func (c *wsChannel) emitAck(id uint64, args ...any) error {
	env := envelope{Event: "ack", Ack: &id}
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return err
		}
		env.Data = append(env.Data, b)
	}
	return c.trySend(env)
}

func (c *wsChannel) trySend(env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return c.ws.Close()
}

// peer is the adapter-side state of one connection: which event names it
// relays, which custom events it re-broadcasts, and its engine handle.
type peer struct {
	ctl    *Controller
	conn   *wsChannel
	client *relay.Client

	messageEvent     string
	customEvent      string
	customEvents     map[string]struct{} // registered listeners, read loop only
	broadcastEnabled bool
}

// Handle upgrades the request and runs the connection until transport
// loss.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	params, extras := parseHandshake(c)

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsChannel{
		ws:   ws,
		send: make(chan []byte, 64),
	}

	client := ctl.Engine.Connect(params, conn)

	p := &peer{
		ctl:              ctl,
		conn:             conn,
		client:           client,
		messageEvent:     params.MessageEvent,
		customEvent:      extras.customEvent,
		customEvents:     make(map[string]struct{}),
		broadcastEnabled: extras.enableBroadcast,
	}

	if p.broadcastEnabled {
		limit := extras.relayLimit
		if limit == 0 {
			limit = ctl.cfg.MaxRelayLimit
		}
		ctl.Broadcast.Attach(client.UserID(), conn, limit)
	}

	ctl.hub.add(conn)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, p)
	}()
}

// handshakeExtras are adapter-level parameters the engine never sees.
type handshakeExtras struct {
	customEvent     string
	enableBroadcast bool
	relayLimit      int
}

func parseHandshake(c *gin.Context) (relay.HandshakeParams, handshakeExtras) {
	q := c.Request.URL.Query()

	params := relay.HandshakeParams{
		UserID:           q.Get("userid"),
		SessionID:        q.Get("sessionid"),
		MessageEvent:     q.Get("msgEvent"),
		AutoCloseSession: q.Get("autoCloseEntireSession"),
		Extra:            parseExtra(q.Get("extra")),
	}
	if params.UserID == "" {
		params.UserID = c.GetString("client_token")
	}
	if params.UserID == "" {
		params.UserID = uuid.NewString()
	}
	if params.MessageEvent == "" {
		params.MessageEvent = DefaultMessageEvent
	}
	if n, err := strconv.Atoi(q.Get("maxParticipantsAllowed")); err == nil && n > 0 {
		params.MaxParticipants = n
	}

	extras := handshakeExtras{
		customEvent:     q.Get("socketCustomEvent"),
		enableBroadcast: q.Get("enableScalableBroadcast") != "" && q.Get("enableScalableBroadcast") != "false",
	}
	if extras.customEvent == "" {
		extras.customEvent = DefaultCustomEvent
	}
	if n, err := strconv.Atoi(q.Get("maxRelayLimitPerUser")); err == nil && n > 0 {
		extras.relayLimit = n
	}
	return params, extras
}

// parseExtra accepts either a JSON document or a bare string, the same
// leniency clients have always relied on.
func parseExtra(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return quoted
}
