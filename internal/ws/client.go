// Package ws maintains a websocket connection to an exchange stream
// endpoint: connect, route frames to per-stream subscribers, reconnect
// with backoff, resubscribe. Frame interpretation belongs to the adapter;
// the client only needs a Router to pull the stream name out of a frame.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
)

// Router extracts the stream name and inner payload from a raw frame.
// ok is false for frames that belong to no stream (acks, pings).
type Router func(frame []byte) (stream string, payload []byte, ok bool)

// Config tunes one stream connection.
type Config struct {
	URL              string
	Reconnect        bool
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration
	BufferSize       int
	Router           Router
	// OnReconnect runs after a successful reconnect so the adapter can
	// resubscribe its streams.
	OnReconnect func(c *Client)
}

func (c *Config) fillDefaults() {
	if c.ReconnectBase == 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = 30 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.PongWait == 0 {
		c.PongWait = 20 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 256
	}
}

type subscription struct {
	stream  string
	dataCh  chan []byte
	closeCh chan struct{}
}

// Client is a routed websocket stream connection. Safe for concurrent use.
type Client struct {
	cfg    Config
	state  State
	logger zerolog.Logger

	mu        sync.RWMutex
	conn      *gws.Conn
	subs      map[string]*subscription
	readyCh   chan struct{}
	stopCh    chan struct{}
	attempts  int
	readersWG sync.WaitGroup
}

// NewClient creates a disconnected client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	cfg.fillDefaults()
	c := &Client{
		cfg:     cfg,
		logger:  logger,
		subs:    make(map[string]*subscription),
		readyCh: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
	c.state.Store(StateDisconnected)
	return c
}

type handler struct {
	gws.BuiltinEventHandler
	c *Client
}

func (h *handler) OnOpen(socket *gws.Conn) {
	h.c.state.Store(StateConnected)
	h.c.mu.Lock()
	h.c.attempts = 0
	select {
	case <-h.c.readyCh:
	default:
		close(h.c.readyCh)
	}
	h.c.mu.Unlock()
	h.c.logger.Info().Str("url", h.c.cfg.URL).Msg("stream connected")
	_ = socket.SetDeadline(time.Now().Add(h.c.cfg.PingInterval + h.c.cfg.PongWait))
}

func (h *handler) OnClose(socket *gws.Conn, err error) {
	h.c.state.Store(StateDisconnected)
	h.c.mu.Lock()
	h.c.readyCh = make(chan struct{})
	h.c.mu.Unlock()
	h.c.logger.Warn().Err(err).Str("url", h.c.cfg.URL).Msg("stream disconnected")

	if h.c.cfg.Reconnect {
		select {
		case <-h.c.stopCh:
		default:
			go h.c.reconnectLoop()
		}
	}
}

func (h *handler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.c.cfg.PingInterval + h.c.cfg.PongWait))
	_ = socket.WritePong(payload)
}

func (h *handler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.c.cfg.PingInterval + h.c.cfg.PongWait))
}

func (h *handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	frame := message.Bytes()
	if len(frame) == 0 {
		return
	}
	// The gws message buffer is pooled; copy before handing it off.
	owned := make([]byte, len(frame))
	copy(owned, frame)
	h.c.dispatch(owned)
}

func (c *Client) dispatch(frame []byte) {
	stream, payload := "", frame
	if c.cfg.Router != nil {
		var ok bool
		stream, payload, ok = c.cfg.Router(frame)
		if !ok {
			c.logger.Debug().Msg("unrouted stream frame")
			return
		}
	}

	c.mu.RLock()
	sub, found := c.subs[stream]
	c.mu.RUnlock()
	if !found {
		return
	}
	select {
	case <-sub.closeCh:
	case sub.dataCh <- payload:
	default:
		c.logger.Warn().Str("stream", stream).Msg("subscriber buffer full, dropping frame")
	}
}

// Connect dials the endpoint and waits for the open handshake.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		if c.state.Load() == StateConnected {
			return nil
		}
		return fmt.Errorf("connect in state %s", c.state.Load())
	}

	socket, _, err := gws.NewClient(&handler{c: c}, &gws.ClientOption{Addr: c.cfg.URL})
	if err != nil {
		c.state.Store(StateDisconnected)
		return fmt.Errorf("dial stream: %w", err)
	}

	c.mu.Lock()
	c.conn = socket
	ready := c.readyCh
	c.mu.Unlock()

	c.readersWG.Add(1)
	go func() {
		defer c.readersWG.Done()
		socket.ReadLoop()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		c.state.Store(StateDisconnected)
		return ctx.Err()
	case <-c.stopCh:
		_ = socket.NetConn().Close()
		c.state.Store(StateClosed)
		return fmt.Errorf("client closed")
	}
}

// Subscribe returns the delivery channel for a stream. Frames arriving
// for an unsubscribed stream are dropped.
func (c *Client) Subscribe(stream string) <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[stream]; ok {
		return sub.dataCh
	}
	sub := &subscription{
		stream:  stream,
		dataCh:  make(chan []byte, c.cfg.BufferSize),
		closeCh: make(chan struct{}),
	}
	c.subs[stream] = sub
	return sub.dataCh
}

// Unsubscribe drops a stream and closes its delivery channel.
func (c *Client) Unsubscribe(stream string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[stream]; ok {
		close(sub.closeCh)
		close(sub.dataCh)
		delete(c.subs, stream)
	}
}

// Streams lists the currently subscribed stream names.
func (c *Client) Streams() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subs))
	for s := range c.subs {
		out = append(out, s)
	}
	return out
}

// SendJSON marshals v and writes it as a text frame.
func (c *Client) SendJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}
	return c.Send(data)
}

// Send writes a raw text frame.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || c.state.Load() != StateConnected {
		return fmt.Errorf("stream not connected")
	}
	return conn.WriteMessage(gws.OpcodeText, data)
}

// Connected reports whether the connection is open.
func (c *Client) Connected() bool {
	return c.state.Load() == StateConnected
}

// Close shuts the connection down permanently and closes all subscriber
// channels.
func (c *Client) Close() error {
	prev := c.state.Load()
	c.state.Store(StateClosed)
	if prev == StateClosed {
		return nil
	}
	close(c.stopCh)

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.NetConn().Close()
	}
	for _, sub := range c.subs {
		close(sub.closeCh)
		close(sub.dataCh)
	}
	c.subs = make(map[string]*subscription)
	c.mu.Unlock()

	c.readersWG.Wait()
	return nil
}

func (c *Client) reconnectLoop() {
	if !c.state.CompareAndSwap(StateDisconnected, StateReconnecting) {
		return
	}
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.mu.Lock()
		attempt := c.attempts
		c.attempts++
		c.mu.Unlock()

		wait := min(c.cfg.ReconnectBase*time.Duration(1<<uint(attempt)), c.cfg.ReconnectMax)
		c.logger.Info().Dur("wait", wait).Int("attempt", attempt+1).Msg("stream reconnect")

		select {
		case <-time.After(wait):
		case <-c.stopCh:
			return
		}

		c.state.Store(StateDisconnected)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.Connect(ctx)
		cancel()
		if err != nil {
			c.logger.Error().Err(err).Int("attempt", attempt+1).Msg("stream reconnect failed")
			continue
		}
		if c.cfg.OnReconnect != nil {
			c.cfg.OnReconnect(c)
		}
		return
	}
}
