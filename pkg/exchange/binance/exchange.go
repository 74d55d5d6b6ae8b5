// Package binance adapts the Binance spot, USDT-margined and
// coin-margined APIs to the unified exchange interface. One instance
// serves all three families; the market attached to each call picks the
// host and endpoint.
package binance

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tradewire/internal/keyring"
	"tradewire/pkg/core"
	"tradewire/pkg/exchange"
	"tradewire/pkg/session"
)

// Exchange is the Binance adapter. All unified operations come from the
// embedded facade; Stream adds live market data.
type Exchange struct {
	*exchange.Client

	proto  *Protocol
	logger zerolog.Logger

	streamMu sync.Mutex
	streams  []*Stream
}

// Option configures the adapter.
type Option func(*options)

type options struct {
	ring   *keyring.Ring
	logger zerolog.Logger
}

// WithKeyring enables credential rotation across several API keys.
func WithKeyring(r *keyring.Ring) Option {
	return func(o *options) { o.ring = r }
}

// WithLogger sets the adapter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Binance adapter. A nil config gets the defaults; the
// config's sandbox flag routes every family to its testnet.
func New(cfg *core.Config, opts ...Option) (*Exchange, error) {
	if cfg == nil {
		cfg = core.DefaultConfig("binance")
	}

	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	proto := NewProtocol()
	proto.sandbox = cfg.Sandbox
	if cfg.RecvWindowMS > 0 {
		proto.recvWindow = cfg.RecvWindowMS
	}

	sessOpts := []session.Option{session.WithLogger(o.logger)}
	if o.ring != nil {
		sessOpts = append(sessOpts, session.WithKeyring(o.ring))
	}
	sess, err := session.New(cfg, proto, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Exchange{
		Client: exchange.NewClient("binance", sess),
		proto:  proto,
		logger: o.logger,
	}, nil
}

// Stream creates a live market data connection for one endpoint family.
// The stream shares the adapter's symbol mapping; call Connect before
// watching.
func (e *Exchange) Stream(segment string) *Stream {
	s := NewStream(StreamConfig{
		Segment: segment,
		Sandbox: e.Session().Config().Sandbox,
	}, e.proto.norm, e.logger)

	e.streamMu.Lock()
	e.streams = append(e.streams, s)
	e.streamMu.Unlock()
	return s
}

// Close shuts down every open stream and the REST session.
func (e *Exchange) Close() error {
	e.streamMu.Lock()
	streams := e.streams
	e.streams = nil
	e.streamMu.Unlock()

	var firstErr error
	for _, s := range streams {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.Client.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
