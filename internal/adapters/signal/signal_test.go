package signal

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, c *wsChannel) envelope {
	t.Helper()
	select {
	case payload := <-c.send:
		var env envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	default:
		t.Fatal("no frame queued")
		return envelope{}
	}
}

func TestEmitEncodesNamedEventEnvelope(t *testing.T) {
	c := &wsChannel{send: make(chan []byte, 4)}

	require.NoError(t, c.Emit("userid-already-taken", "alice", "12345"))

	env := drain(t, c)
	assert.Equal(t, "userid-already-taken", env.Event)
	require.Len(t, env.Data, 2)
	assert.Equal(t, `"alice"`, string(env.Data[0]))
	assert.Equal(t, `"12345"`, string(env.Data[1]))
	assert.Nil(t, env.Ack)
}

func TestEmitAckCarriesRequestID(t *testing.T) {
	c := &wsChannel{send: make(chan []byte, 4)}

	require.NoError(t, c.emitAck(7, true, "alice"))

	env := drain(t, c)
	assert.Equal(t, "ack", env.Event)
	require.NotNil(t, env.Ack)
	assert.Equal(t, uint64(7), *env.Ack)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "true", string(env.Data[0]))
}

func TestEmitOnFullBufferReportsBackpressure(t *testing.T) {
	c := &wsChannel{send: make(chan []byte, 1)}

	require.NoError(t, c.Emit("first"))
	assert.ErrorIs(t, c.Emit("second"), ErrBackpressure)
}

func TestEmitOnClosedChannelFails(t *testing.T) {
	c := &wsChannel{send: make(chan []byte, 1), closed: true}

	assert.Error(t, c.Emit("anything"))
}

func TestParseHandshakeDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", "/ws", nil)

	params, extras := parseHandshake(ctx)

	assert.NotEmpty(t, params.UserID, "an identity is minted when none is supplied")
	assert.Equal(t, DefaultMessageEvent, params.MessageEvent)
	assert.Zero(t, params.MaxParticipants)
	assert.Equal(t, DefaultCustomEvent, extras.customEvent)
	assert.False(t, extras.enableBroadcast)
}

func TestParseHandshakeReadsQueryParameters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET",
		"/ws?userid=alice&sessionid=room-1&msgEvent=my-event"+
			"&autoCloseEntireSession=false&maxParticipantsAllowed=4"+
			"&extra=%7B%22name%22%3A%22Alice%22%7D"+
			"&socketCustomEvent=side-channel"+
			"&enableScalableBroadcast=true&maxRelayLimitPerUser=3", nil)

	params, extras := parseHandshake(ctx)

	assert.Equal(t, "alice", params.UserID)
	assert.Equal(t, "room-1", params.SessionID)
	assert.Equal(t, "my-event", params.MessageEvent)
	assert.Equal(t, "false", params.AutoCloseSession)
	assert.Equal(t, 4, params.MaxParticipants)
	assert.JSONEq(t, `{"name":"Alice"}`, string(params.Extra))
	assert.Equal(t, "side-channel", extras.customEvent)
	assert.True(t, extras.enableBroadcast)
	assert.Equal(t, 3, extras.relayLimit)
}

func TestParseHandshakeFallsBackToClientToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", "/ws", nil)
	ctx.Set("client_token", "tok-1")

	params, _ := parseHandshake(ctx)
	assert.Equal(t, "tok-1", params.UserID)
}

func TestParseExtra(t *testing.T) {
	assert.Nil(t, parseExtra(""))
	assert.Equal(t, json.RawMessage(`{"a":1}`), parseExtra(`{"a":1}`))
	assert.Equal(t, json.RawMessage(`"plain name"`), parseExtra("plain name"))
}

func TestStringArg(t *testing.T) {
	data := []json.RawMessage{json.RawMessage(`"alice"`), json.RawMessage(`42`)}

	assert.Equal(t, "alice", stringArg(data, 0))
	assert.Equal(t, "", stringArg(data, 1), "non-string arguments read as empty")
	assert.Equal(t, "", stringArg(data, 5))
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	h := NewHub()
	sender := &wsChannel{send: make(chan []byte, 4)}
	other := &wsChannel{send: make(chan []byte, 4)}
	h.add(sender)
	h.add(other)

	h.BroadcastOthers(sender, "custom-message", []json.RawMessage{json.RawMessage(`"hi"`)})

	env := drain(t, other)
	assert.Equal(t, "custom-message", env.Event)
	assert.Len(t, sender.send, 0)

	h.remove(other)
	h.BroadcastOthers(sender, "custom-message", nil)
	assert.Len(t, other.send, 0)
}
