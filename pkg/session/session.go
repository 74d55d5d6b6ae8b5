// Package session runs the request pipeline every unified operation goes
// through: build, cache lookup, circuit breaker, rate limit, sign,
// dispatch, classify, parse. Exchange adapters stay pure translators;
// everything stateful lives here.
package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tradewire/internal/circuitbreaker"
	"tradewire/internal/keyring"
	"tradewire/internal/ratelimit"
	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// MarketSources is implemented by protocols whose market catalog spans
// several endpoint families that must be fetched separately and merged.
type MarketSources interface {
	MarketParams() []core.Params
}

// RegistryAware is implemented by protocols that map native ids back to
// unified symbols while normalizing responses. The session hands them a
// read-only view of its registry at construction.
type RegistryAware interface {
	BindRegistry(*core.Registry)
}

// Session executes operations against one exchange.
type Session struct {
	cfg      *core.Config
	proto    core.Protocol
	client   *transport.Client
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.Breaker
	ring     *keyring.Ring
	cache    *ttlCache
	registry *core.Registry
	logger   zerolog.Logger
	closed   atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithKeyring enables credential rotation across multiple API keys.
func WithKeyring(r *keyring.Ring) Option {
	return func(s *Session) { s.ring = r }
}

// New validates the configuration and assembles a session for the
// protocol. Named rate limit buckets come from the protocol's RateLimits.
func New(cfg *core.Config, proto core.Protocol, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		proto:    proto,
		limiter:  ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitPeriod),
		cache:    newTTLCache(),
		registry: core.NewRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = transport.NewClient(cfg, s.logger)

	if ra, ok := proto.(RegistryAware); ok {
		ra.BindRegistry(s.registry)
	}

	for _, b := range proto.RateLimits() {
		s.limiter.Configure(b.Name, b.Limit, b.Period)
	}
	if cfg.CircuitBreakerEnabled {
		s.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    cfg.CircuitBreakerFailThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		})
	}
	return s, nil
}

// Registry exposes the loaded market catalog.
func (s *Session) Registry() *core.Registry {
	return s.registry
}

// Protocol returns the adapter the session drives.
func (s *Session) Protocol() core.Protocol {
	return s.proto
}

// Config returns the session configuration.
func (s *Session) Config() *core.Config {
	return s.cfg
}

// Do executes one unified operation end to end and returns the parsed
// entity. Every failure surfaces as a classified *ExchangeError or one of
// the package sentinels.
func (s *Session) Do(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	if s.closed.Load() {
		return nil, core.ErrSessionClosed
	}

	req, err := s.proto.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if req.BaseURL == "" {
		req.BaseURL = s.proto.BaseURL(s.cfg.Sandbox)
	}

	if s.cfg.CacheEnabled && req.CacheKey != "" {
		if v, ok := s.cache.get(req.CacheKey); ok {
			s.logger.Debug().Str("op", op.String()).Msg("cache hit")
			return v, nil
		}
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return nil, core.NewExchangeError(s.proto.Name(), core.ErrorTypeExchangeNotAvailable, 0,
			"circuit breaker open")
	}
	if err := s.limiter.Wait(ctx, req.Bucket, req.Weight); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	if req.RequireAuth {
		creds := s.credentials()
		if creds.Empty() {
			return nil, core.ErrNoCredentials
		}
		req, err = s.proto.Sign(req, creds)
		if err != nil {
			return nil, err
		}
		if s.ring != nil {
			s.ring.MarkUsed()
		}
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.record(false)
		e := core.NewExchangeError(s.proto.Name(), core.ErrorTypeNetwork, 0, err.Error())
		s.noteFailure(e)
		return nil, e
	}

	result, err := s.proto.ParseResponse(op, resp.StatusCode, resp.Body)
	if err != nil {
		s.record(!serverFault(err))
		s.noteFailure(err)
		if s.cfg.SuppressNoChange && core.IsErrorType(err, core.ErrorTypeNoChange) {
			s.logger.Debug().Str("op", op.String()).Msg("already in requested state")
			return nil, nil
		}
		return nil, err
	}
	s.record(true)

	if s.cfg.CacheEnabled && req.CacheKey != "" {
		s.cache.set(req.CacheKey, result, req.CacheTTL)
	}
	return result, nil
}

func (s *Session) credentials() *core.Credentials {
	if s.ring != nil {
		if c := s.ring.Current(); c != nil {
			return c
		}
	}
	return s.cfg.Credentials
}

func (s *Session) record(success bool) {
	if s.breaker != nil {
		s.breaker.Record(success)
	}
}

func (s *Session) noteFailure(err error) {
	if s.ring == nil {
		return
	}
	for _, t := range []core.ErrorType{
		core.ErrorTypeRateLimit,
		core.ErrorTypeDDoSProtection,
		core.ErrorTypeAuthentication,
	} {
		if core.IsErrorType(err, t) {
			s.ring.RecordFailure(t)
			return
		}
	}
}

// serverFault reports whether the classified failure counts against the
// circuit breaker. Caller mistakes (bad params, insufficient funds) do
// not open the breaker.
func serverFault(err error) bool {
	for _, t := range []core.ErrorType{
		core.ErrorTypeNetwork,
		core.ErrorTypeExchangeNotAvailable,
		core.ErrorTypeOnMaintenance,
		core.ErrorTypeDDoSProtection,
		core.ErrorTypeRateLimit,
	} {
		if core.IsErrorType(err, t) {
			return true
		}
	}
	return false
}

// LoadMarkets fetches the full market catalog and installs it in the
// registry. Protocols with several endpoint families are fetched
// concurrently and merged; a failure in any family fails the load.
func (s *Session) LoadMarkets(ctx context.Context) ([]*core.Market, error) {
	paramSets := []core.Params{nil}
	if ms, ok := s.proto.(MarketSources); ok {
		paramSets = ms.MarketParams()
	}

	results := make([][]*core.Market, len(paramSets))
	g, gctx := errgroup.WithContext(ctx)
	for i, params := range paramSets {
		i, params := i, params
		g.Go(func() error {
			v, err := s.Do(gctx, core.OpFetchMarkets, params)
			if err != nil {
				return err
			}
			markets, ok := v.([]*core.Market)
			if !ok {
				return fmt.Errorf("unexpected market list type %T", v)
			}
			results[i] = markets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*core.Market
	for _, part := range results {
		merged = append(merged, part...)
	}
	s.registry.Replace(merged)
	s.logger.Info().Int("markets", len(merged)).Msg("markets loaded")
	return merged, nil
}

// Resolve maps a unified symbol or native id to a market using the
// session's default market type as tiebreaker.
func (s *Session) Resolve(symbolOrID string) (*core.Market, error) {
	return s.registry.Resolve(symbolOrID, s.cfg.DefaultMarketType)
}

// Close shuts the session down. Subsequent calls to Do fail with
// ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cache.purge()
	return s.client.Close()
}
