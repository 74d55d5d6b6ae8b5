package core

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Credentials holds API authentication material. The Secret may be a
// shared HMAC key, a PEM-encoded RSA private key, or a base64url Ed25519
// seed; signers select the scheme from its shape. Credentials are never
// logged and never appear in error messages.
type Credentials struct {
	// APIKey is the public key identifier sent as a header.
	APIKey string `json:"api_key"`
	// Secret is the private signing material.
	Secret string `json:"secret"`
	// Passphrase is an additional credential some exchanges require.
	Passphrase string `json:"passphrase,omitempty"`
}

// Empty reports whether no usable credentials are present.
func (c *Credentials) Empty() bool {
	return c == nil || c.APIKey == "" || c.Secret == ""
}

// Config is the immutable per-client configuration, constructed once at
// client creation. Mutable state (market metadata, leverage brackets)
// lives in the session's caches with explicit reload semantics instead.
type Config struct {
	Exchange    string       `json:"exchange" validate:"required"`
	Sandbox     bool         `json:"sandbox"`
	Credentials *Credentials `json:"credentials,omitempty"`

	// DefaultMarketType disambiguates native ids that resolve to more
	// than one market.
	DefaultMarketType MarketType `json:"default_market_type"`
	// DefaultTimeInForce applies to limit orders without an explicit one.
	DefaultTimeInForce TimeInForce `json:"default_time_in_force"`
	// RecvWindowMS is the server-side tolerance for signed request age.
	RecvWindowMS int64 `json:"recv_window_ms" validate:"min=0"`
	// BrokerTag is attached to created orders when the exchange supports
	// a partner identifier.
	BrokerTag string `json:"broker_tag,omitempty"`
	// SuppressNoChange treats "already in requested state" rejections
	// (e.g. margin mode already set) as success.
	SuppressNoChange bool `json:"suppress_no_change"`

	Timeout      time.Duration `json:"timeout" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	CacheEnabled bool          `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold" validate:"min=0"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold" validate:"min=0"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout" validate:"min=0"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config with sensible defaults for the exchange:
// 10s timeout, 3 retries, 1200 requests/min, 5000ms recv window, cache and
// circuit breaker enabled.
func DefaultConfig(exchange string) *Config {
	return &Config{
		Exchange:     exchange,
		RecvWindowMS: 5000,

		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,

		RateLimitRequests: 1200,
		RateLimitPeriod:   time.Minute,

		CacheEnabled: true,
		CacheTTL:     1 * time.Second,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return NewRequestValidationError("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return NewRequestValidationError("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerTimeout <= 0 {
			return NewRequestValidationError("CircuitBreakerTimeout must be positive when enabled")
		}
	}
	return nil
}

// WithCredentials sets the API credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

// WithSandbox toggles sandbox mode and returns the config for chaining.
func (c *Config) WithSandbox(sandbox bool) *Config {
	c.Sandbox = sandbox
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRateLimit sets the rate limit parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithDefaultMarketType sets the resolution tiebreaker and returns the
// config for chaining.
func (c *Config) WithDefaultMarketType(mt MarketType) *Config {
	c.DefaultMarketType = mt
	return c
}
