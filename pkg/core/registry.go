package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tradewire/pkg/precise"
)

// Registry holds the loaded market metadata for one exchange and resolves
// unified symbols and native ids to markets. Reads during a concurrent
// Replace may observe the previous snapshot, never a partial one.
type Registry struct {
	mu       sync.RWMutex
	bySymbol map[string]*Market
	byID     map[string][]*Market
	markets  []*Market
	loadedAt time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol: make(map[string]*Market),
		byID:     make(map[string][]*Market),
	}
}

// Replace swaps in a full market snapshot atomically.
func (r *Registry) Replace(markets []*Market) {
	bySymbol := make(map[string]*Market, len(markets))
	byID := make(map[string][]*Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
		byID[m.ID] = append(byID[m.ID], m)
	}
	r.mu.Lock()
	r.bySymbol = bySymbol
	r.byID = byID
	r.markets = markets
	r.loadedAt = time.Now()
	r.mu.Unlock()
}

// Loaded reports whether a snapshot has been installed.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.loadedAt.IsZero()
}

// LoadedAt returns the installation time of the current snapshot.
func (r *Registry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// All returns the current snapshot. Callers must not mutate the result.
func (r *Registry) All() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.markets
}

// BySymbol looks up a market by unified symbol.
func (r *Registry) BySymbol(symbol string) (*Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySymbol[symbol]
	return m, ok
}

// Resolve maps a unified symbol or native id to a single market.
// Resolution order:
//
//  1. exact unified symbol match
//  2. native id match, using defaultType to disambiguate when several
//     markets share the id
//  3. for ids shaped like expired option contracts, a synthesized
//     inactive option market
//
// Repeated calls with the same input return equal results while the
// snapshot is unchanged.
func (r *Registry) Resolve(symbolOrID string, defaultType MarketType) (*Market, error) {
	r.mu.RLock()
	if !r.loadedAt.IsZero() {
		if m, ok := r.bySymbol[symbolOrID]; ok {
			r.mu.RUnlock()
			return m, nil
		}
		if candidates, ok := r.byID[symbolOrID]; ok {
			if len(candidates) == 1 {
				m := candidates[0]
				r.mu.RUnlock()
				return m, nil
			}
			for _, m := range candidates {
				if m.Type == defaultType {
					r.mu.RUnlock()
					return m, nil
				}
			}
			m := candidates[0]
			r.mu.RUnlock()
			return m, nil
		}
		r.mu.RUnlock()
	} else {
		r.mu.RUnlock()
		return nil, ErrMarketsNotLoaded
	}

	if m := SynthesizeExpiredOption(symbolOrID); m != nil {
		return m, nil
	}
	return nil, NewBadSymbolError("", symbolOrID)
}

// SynthesizeExpiredOption builds an inactive option market from an id like
// "ETH-230211-1500-C" (base, YYMMDD expiry, strike, C or P). Expired
// contracts drop out of the live market list but still appear in order and
// trade history, so history parsing needs a market for them. Returns nil
// when the id does not match the shape.
func SynthesizeExpiredOption(id string) *Market {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return nil
	}
	base, date, strikeStr, letter := parts[0], parts[1], parts[2], parts[3]
	if base == "" || len(date) != 6 || strikeStr == "" {
		return nil
	}
	var optionType string
	switch letter {
	case "C":
		optionType = "call"
	case "P":
		optionType = "put"
	default:
		return nil
	}
	expiry, err := time.Parse("060102", date)
	if err != nil {
		return nil
	}
	strike, err := precise.Parse(strikeStr)
	if err != nil {
		return nil
	}
	quote := "USDT"
	settle := quote
	symbol := fmt.Sprintf("%s/%s:%s-%s-%s-%s", base, quote, settle, date, strikeStr, letter)
	one := precise.MustParse("1")
	return &Market{
		ID:         id,
		Symbol:     symbol,
		Base:       base,
		Quote:      quote,
		Settle:     settle,
		BaseID:     base,
		QuoteID:    quote,
		SettleID:   settle,
		Type:       MarketOption,
		Option:     true,
		Contract:   true,
		Active:     false,
		Expiry:     expiry.UTC(),
		Strike:     strike,
		OptionType: optionType,
		ContractSize: one,
		Precision: MarketPrecision{
			Amount: PrecisionUnknown,
			Price:  PrecisionUnknown,
		},
	}
}
