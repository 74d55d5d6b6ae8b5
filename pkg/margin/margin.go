// Package margin computes derivative risk figures the exchange reports
// only partially: liquidation prices, margin ratios and maintenance rates
// from leverage brackets. All arithmetic is decimal-exact; intermediate
// divisions truncate at a fixed working depth so results are reproducible.
package margin

import (
	"errors"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/core"
	"tradewire/pkg/precise"
)

// PositionInput carries the raw account figures a liquidation price is
// derived from. Contracts is the absolute position size.
type PositionInput struct {
	Side                  core.PositionSide
	Inverse               bool
	Contracts             *apd.Decimal
	ContractSize          *apd.Decimal
	EntryPrice            *apd.Decimal
	WalletBalance         *apd.Decimal
	MaintenanceMarginRate *apd.Decimal
	// PricePrecision rounds the result to the market tick precision.
	// Negative means unknown and leaves the raw value untruncated.
	PricePrecision int32
}

var errIncompleteInput = errors.New("incomplete position input")

// LiquidationPrice computes the price at which the position is liquidated.
// A nil result with nil error means the account balance covers the whole
// move and the position cannot be liquidated.
//
// The formulas invert the exchange's margin equations. Linear contracts:
//
//	walletBalance = (liqPrice * (s + mmr) + s*entryPrice) * contracts
//
// Inverse contracts:
//
//	walletBalance = contracts * contractSize * (s/entryPrice - s/liqPrice)
//
// with s = -1 for longs and +1 for shorts.
func LiquidationPrice(in PositionInput) (*apd.Decimal, error) {
	if in.Contracts == nil || in.EntryPrice == nil || in.WalletBalance == nil ||
		in.MaintenanceMarginRate == nil {
		return nil, errIncompleteInput
	}
	if in.Contracts.IsZero() {
		return nil, nil
	}

	var raw *apd.Decimal
	var err error
	if in.Inverse {
		raw, err = inverseLiquidation(in)
	} else {
		raw, err = linearLiquidation(in)
	}
	if err != nil {
		return nil, err
	}

	if in.PricePrecision >= 0 {
		raw = precise.RoundHalfUp(raw, in.PricePrecision)
	}
	if precise.IsNegative(raw) || raw.IsZero() {
		return nil, nil
	}
	return raw, nil
}

func linearLiquidation(in PositionInput) (*apd.Decimal, error) {
	onePlus, entrySigned := signedTerms(in.Side, in.MaintenanceMarginRate, in.EntryPrice, false)
	denom := precise.Mul(in.Contracts, onePlus)
	left, err := precise.Div(in.WalletBalance, denom, precise.DefaultDivPlaces)
	if err != nil {
		return nil, err
	}
	right, err := precise.Div(entrySigned, onePlus, precise.DefaultDivPlaces)
	if err != nil {
		return nil, err
	}
	return precise.Add(left, right), nil
}

func inverseLiquidation(in PositionInput) (*apd.Decimal, error) {
	if in.ContractSize == nil {
		return nil, errIncompleteInput
	}
	onePlus, entrySigned := signedTerms(in.Side, in.MaintenanceMarginRate, in.EntryPrice, true)
	size := precise.Mul(in.Contracts, in.ContractSize)
	left := precise.Mul(size, onePlus)
	invEntry, err := precise.Div(precise.MustParse("1"), entrySigned, precise.DefaultDivPlaces)
	if err != nil {
		return nil, err
	}
	right := precise.Sub(precise.Mul(invEntry, size), in.WalletBalance)
	return precise.Div(left, right, precise.DefaultDivPlaces)
}

// signedTerms returns (s + mmr) for linear or (s - mmr) for inverse, and
// the entry price with the sign s applied, where s is -1 for longs and
// +1 for shorts.
func signedTerms(side core.PositionSide, mmr, entry *apd.Decimal, inverse bool) (*apd.Decimal, *apd.Decimal) {
	one := precise.MustParse("1")
	if side == core.PositionShort {
		if inverse {
			return precise.Sub(one, mmr), entry
		}
		return precise.Add(one, mmr), entry
	}
	negOne := precise.MustParse("-1")
	if inverse {
		return precise.Sub(negOne, mmr), precise.Neg(entry)
	}
	return precise.Add(negOne, mmr), precise.Neg(entry)
}

// MarginRatio is maintenanceMargin / collateral rounded half up at four
// decimal places. A ratio at or above 1 means liquidation is imminent.
func MarginRatio(maintenanceMargin, collateral *apd.Decimal) (*apd.Decimal, error) {
	if maintenanceMargin == nil || collateral == nil {
		return nil, errIncompleteInput
	}
	r, err := precise.Div(maintenanceMargin, collateral, precise.DefaultDivPlaces)
	if err != nil {
		return nil, err
	}
	return precise.RoundHalfUp(r, 4), nil
}

// MaintenanceRate finds the leverage tier covering the notional and
// returns its maintenance margin rate. Brackets are checked in order;
// a notional past the last bracket uses the last bracket's rate.
func MaintenanceRate(tiers []core.LeverageTier, notional *apd.Decimal) (*apd.Decimal, error) {
	if len(tiers) == 0 || notional == nil {
		return nil, errIncompleteInput
	}
	for _, t := range tiers {
		if t.MaxNotional == nil || precise.Cmp(notional, t.MaxNotional) < 0 {
			return t.MaintenanceMarginRate, nil
		}
	}
	return tiers[len(tiers)-1].MaintenanceMarginRate, nil
}
