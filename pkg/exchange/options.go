package exchange

import (
	"time"

	"tradewire/pkg/core"
)

// Option tunes a single call.
type Option func(*Options)

// Options holds per-call settings.
type Options struct {
	Limit      int
	Since      time.Time
	Until      time.Time
	MarketType core.MarketType
	HasType    bool
	Params     core.Params
}

// WithLimit caps the number of returned records.
func WithLimit(limit int) Option {
	return func(o *Options) { o.Limit = limit }
}

// WithSince sets the inclusive lower time bound for history queries.
func WithSince(since time.Time) Option {
	return func(o *Options) { o.Since = since }
}

// WithUntil sets the exclusive upper time bound for history queries.
func WithUntil(until time.Time) Option {
	return func(o *Options) { o.Until = until }
}

// WithMarketType targets a specific market segment for account-level
// calls (spot balance vs futures balance).
func WithMarketType(mt core.MarketType) Option {
	return func(o *Options) {
		o.MarketType = mt
		o.HasType = true
	}
}

// WithParams passes exchange-specific fields straight through.
func WithParams(params core.Params) Option {
	return func(o *Options) { o.Params = params }
}

// ApplyOptions folds the options into one settings record.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MergeInto copies the settings into a params map for BuildRequest.
func (o *Options) MergeInto(params core.Params) core.Params {
	if params == nil {
		params = make(core.Params)
	}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
	if !o.Since.IsZero() {
		params["since"] = o.Since.UnixMilli()
	}
	if !o.Until.IsZero() {
		params["until"] = o.Until.UnixMilli()
	}
	if o.HasType {
		params["marketType"] = o.MarketType
	}
	for k, v := range o.Params {
		params[k] = v
	}
	return params
}
