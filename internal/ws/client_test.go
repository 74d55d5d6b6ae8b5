package ws

import (
	"encoding/json"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Stream string `json:"stream"`
	Data   any    `json:"data"`
}

func envelopeRouter(frame []byte) (string, []byte, bool) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(frame, &env); err != nil || env.Stream == "" {
		return "", nil, false
	}
	return env.Stream, []byte(env.Data), true
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(Config{
		URL:        "wss://example.invalid/stream",
		BufferSize: 2,
		Router:     envelopeRouter,
	}, zerolog.Nop())
	return c
}

func TestDispatchRoutesToSubscriber(t *testing.T) {
	c := newTestClient(t)
	ch := c.Subscribe("btcusdt@trade")

	frame, err := sonic.Marshal(envelope{Stream: "btcusdt@trade", Data: map[string]any{"p": "100"}})
	require.NoError(t, err)
	c.dispatch(frame)

	select {
	case payload := <-ch:
		assert.JSONEq(t, `{"p":"100"}`, string(payload))
	default:
		t.Fatal("no frame delivered")
	}
}

func TestDispatchIgnoresUnknownStream(t *testing.T) {
	c := newTestClient(t)
	ch := c.Subscribe("btcusdt@trade")

	frame, _ := sonic.Marshal(envelope{Stream: "ethusdt@trade", Data: map[string]any{}})
	c.dispatch(frame)

	assert.Empty(t, ch)
}

func TestDispatchDropsUnroutableFrames(t *testing.T) {
	c := newTestClient(t)
	ch := c.Subscribe("btcusdt@trade")

	c.dispatch([]byte(`{"result":null,"id":1}`))
	c.dispatch([]byte(`not json`))

	assert.Empty(t, ch)
}

func TestDispatchDropsWhenBufferFull(t *testing.T) {
	c := newTestClient(t)
	ch := c.Subscribe("btcusdt@trade")

	frame, _ := sonic.Marshal(envelope{Stream: "btcusdt@trade", Data: map[string]any{"x": 1}})
	for i := 0; i < 5; i++ {
		c.dispatch(frame)
	}
	// Buffer holds two; the rest were dropped, not blocked on.
	assert.Len(t, ch, 2)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	a := c.Subscribe("s")
	b := c.Subscribe("s")
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"s"}, c.Streams())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	c := newTestClient(t)
	ch := c.Subscribe("s")
	c.Unsubscribe("s")

	_, open := <-ch
	assert.False(t, open)
	assert.Empty(t, c.Streams())
}

func TestSendRequiresConnection(t *testing.T) {
	c := newTestClient(t)
	err := c.Send([]byte("x"))
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe("s")
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.state.Load())
}
