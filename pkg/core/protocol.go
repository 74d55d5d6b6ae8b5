package core

import (
	"context"
	"time"
)

// RateLimitBucket describes one token bucket the session maintains for an
// exchange. Requests carry a bucket name and a weight; the session debits
// the matching bucket before dispatch.
type RateLimitBucket struct {
	Name   string
	Limit  int
	Period time.Duration
}

// Protocol translates unified operations into exchange-specific HTTP
// requests and parses exchange responses back into unified entities.
// Implementations must be stateless and safe for concurrent use; all
// per-call state travels through the Request and the returned values.
type Protocol interface {
	// Name returns the lowercase exchange identifier.
	Name() string

	// BaseURL returns the REST base for the given sandbox mode.
	BaseURL(sandbox bool) string

	// BuildRequest composes the unsigned request for an operation. It
	// returns ErrorTypeNotSupported when the exchange has no endpoint
	// for the operation and ErrorTypeRequestValidation when required
	// params are missing or malformed.
	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)

	// Sign returns a signed copy of the request. The input request is
	// never mutated; callers may retry with a fresh Sign after a
	// timestamp rejection.
	Sign(req *Request, creds *Credentials) (*Request, error)

	// ParseResponse decodes a raw exchange response body for the given
	// operation into the matching unified entity. A non-2xx status or an
	// error envelope in the body yields an *ExchangeError classified
	// through the protocol's Classifier.
	ParseResponse(op Operation, statusCode int, body []byte) (any, error)

	// Classifier returns the error classification tables for this exchange.
	Classifier() *Classifier

	// SupportedOperations lists the operations BuildRequest accepts.
	SupportedOperations() []Operation

	// RateLimits describes the token buckets the session should maintain.
	RateLimits() []RateLimitBucket
}
