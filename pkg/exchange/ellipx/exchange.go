// Package ellipx adapts the EllipX spot API to the unified exchange
// interface. Requests are signed with Ed25519 over a null-byte
// delimited canonical payload.
package ellipx

import (
	"fmt"

	"github.com/rs/zerolog"

	"tradewire/internal/keyring"
	"tradewire/pkg/core"
	"tradewire/pkg/exchange"
	"tradewire/pkg/session"
)

// Exchange is the EllipX adapter.
type Exchange struct {
	*exchange.Client

	proto *Protocol
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

// New creates an EllipX adapter. A nil config gets the defaults.
func New(cfg *core.Config, opts ...Option) (*Exchange, error) {
	if cfg == nil {
		cfg = core.DefaultConfig("ellipx")
	}

	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	proto := NewProtocol()
	sessOpts := []session.Option{session.WithLogger(o.logger)}
	if o.ring != nil {
		sessOpts = append(sessOpts, session.WithKeyring(o.ring))
	}
	sess, err := session.New(cfg, proto, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Exchange{
		Client: exchange.NewClient("ellipx", sess),
		proto:  proto,
	}, nil
}
