package relay_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/domain"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay"
)

type emitted struct {
	event string
	args  []any
}

// fakeChannel records everything emitted on it, standing in for one
// websocket connection.
type fakeChannel struct {
	mu     sync.Mutex
	events []emitted
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (f *fakeChannel) Emit(event string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.events = append(f.events, emitted{event: event, args: args})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.event)
	}
	return out
}

func (f *fakeChannel) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

// last returns the arguments of the most recent emission of event.
func (f *fakeChannel) last(event string) ([]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].event == event {
			return f.events[i].args, true
		}
	}
	return nil, false
}

const testMessageEvent = "RTCMultiConnection-Message"

func newTestEngine() *relay.Engine {
	return relay.NewEngine(nil)
}

// connect registers an identity on a fresh fake channel.
func connect(e *relay.Engine, id string) (*relay.Client, *fakeChannel) {
	ch := newFakeChannel()
	c := e.Connect(relay.HandshakeParams{UserID: id, MessageEvent: testMessageEvent}, ch)
	return c, ch
}

// connectWithCapacity registers an identity whose room is capped at max
// participants.
func connectWithCapacity(e *relay.Engine, id string, max int) (*relay.Client, *fakeChannel) {
	ch := newFakeChannel()
	c := e.Connect(relay.HandshakeParams{UserID: id, MessageEvent: testMessageEvent, MaxParticipants: max}, ch)
	return c, ch
}

func message(t *testing.T, sender, remote string, fields map[string]any) domain.Message {
	t.Helper()
	if fields == nil {
		fields = map[string]any{}
	}
	p, err := domain.NewPayload(fields)
	require.NoError(t, err)
	return domain.Message{Sender: sender, RemoteUserID: remote, Message: p}
}

// relayed pulls the most recent application message delivered to ch.
func relayed(t *testing.T, ch *fakeChannel) domain.Message {
	t.Helper()
	args, ok := ch.last(testMessageEvent)
	require.True(t, ok, "no message relayed")
	require.Len(t, args, 1)
	msg, ok := args[0].(domain.Message)
	require.True(t, ok)
	return msg
}
