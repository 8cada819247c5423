// Package relay implements the signaling relay engine: the registry of
// connected identities, the graph of who is connected with whom, room
// join admission, moderation handoff and the disconnect cascade. All
// state is in-memory and owned by a single Engine; transport adapters
// drive it through Client handles.
package relay

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/monitoring"
)

const (
	// DefaultMaxParticipants caps a room when the handshake does not
	// override it.
	DefaultMaxParticipants = 1000

	// maxPasswordAttempts failed or missing-password attempts are
	// tolerated per connection; the next attempt is rejected for the
	// rest of the connection's life.
	maxPasswordAttempts = 3

	defaultWaitInterval = time.Second
	defaultWaitAttempts = 600
)

// AckFunc answers a request/response style event back on the requesting
// connection.
type AckFunc func(args ...any)

// Engine holds every live Session behind one mutex. Operations lock,
// mutate, emit and unlock; the only multi-second suspension point (the
// join waiter) runs on its own goroutine and re-acquires the lock per
// tick, so no lock is ever held across a sleep.
type Engine struct {
	Metrics *monitoring.Metrics

	// WaitInterval and WaitAttempts bound the join waiter. Tests
	// shrink the interval; production keeps 600 ticks of one second.
	WaitInterval time.Duration
	WaitAttempts int

	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*domain.Message
}

func NewEngine(metrics *monitoring.Metrics) *Engine {
	return &Engine{
		Metrics:      metrics,
		WaitInterval: defaultWaitInterval,
		WaitAttempts: defaultWaitAttempts,
		sessions:     make(map[string]*Session),
		pending:      make(map[string]*domain.Message),
	}
}

// Client is the engine-side state of one transport connection. The
// password attempt counter lives here, not on the target session: the
// throttle is per connection, whatever rooms it knocks on.
type Client struct {
	engine *Engine
	ch     core.Channel

	userID        string // guarded by engine.mu
	sessionID     string
	messageEvent  string
	params        HandshakeParams
	passwordTries int

	// skipNextRename suppresses exactly one identity change after the
	// server reassigned the id on a collision, so a client acting on a
	// stale id cannot undo the reassignment.
	skipNextRename bool
}

// UserID reports the identity currently bound to this connection.
func (c *Client) UserID() string {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	return c.userID
}

// emit sends without caring whether the remote is still there. Stale
// channels surface as errors from the transport and are dropped here.
func emit(ch core.Channel, event string, args ...any) {
	if ch == nil {
		return
	}
	if err := ch.Emit(event, args...); err != nil {
		log.Debug().Err(err).Str("module", "relay").Str("event", event).Msg("emit to stale channel")
	}
}
