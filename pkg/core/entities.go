package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Entities are immutable value records constructed fresh per response.
// Numeric fields that may legitimately be absent from a raw payload are
// pointers so a consumer can distinguish "not provided" from zero; fields
// an exchange always reports are plain decimals. Every entity keeps the
// raw server payload in Info for debugging and pass-through.

// PrecisionUnknown marks a precision the exchange did not report.
const PrecisionUnknown int32 = -1

// MarketPrecision holds the decimal places allowed for amounts and prices,
// derived from the exchange's tick/step sizes.
type MarketPrecision struct {
	Amount int32 `json:"amount"`
	Price  int32 `json:"price"`
}

// MinMax bounds a value from both sides; nil means unbounded/unreported.
type MinMax struct {
	Min *apd.Decimal `json:"min,omitempty"`
	Max *apd.Decimal `json:"max,omitempty"`
}

// MarketLimits holds the order validation bounds for a market.
type MarketLimits struct {
	Amount MinMax `json:"amount"`
	Price  MinMax `json:"price"`
	Cost   MinMax `json:"cost"`
}

// Market identifies one tradable instrument on an exchange. The unified
// symbol has the form BASE/QUOTE for spot and BASE/QUOTE:SETTLE for
// derivatives; dated contracts and options append expiry (and strike/side)
// to the settle part. A symbol uniquely determines one market per exchange
// instance.
type Market struct {
	// ID is the exchange-native market identifier.
	ID string `json:"id"`
	// Symbol is the unified market identifier.
	Symbol string `json:"symbol"`

	Base   string `json:"base"`
	Quote  string `json:"quote"`
	Settle string `json:"settle,omitempty"`

	BaseID   string `json:"base_id"`
	QuoteID  string `json:"quote_id"`
	SettleID string `json:"settle_id,omitempty"`

	Type   MarketType `json:"type"`
	Active bool       `json:"active"`

	// Contract classification flags; Contract is true for swap, future
	// and option markets.
	Spot     bool `json:"spot"`
	Margin   bool `json:"margin"`
	Swap     bool `json:"swap"`
	Future   bool `json:"future"`
	Option   bool `json:"option"`
	Contract bool `json:"contract"`

	// Linear settles in the quote currency, Inverse in the base. Both are
	// false for non-contract markets.
	Linear  bool `json:"linear"`
	Inverse bool `json:"inverse"`

	ContractSize *apd.Decimal `json:"contract_size,omitempty"`

	// Expiry is zero for perpetuals and spot.
	Expiry time.Time `json:"expiry,omitempty"`
	// Strike and OptionType are set for options only; OptionType is
	// "call" or "put".
	Strike     *apd.Decimal `json:"strike,omitempty"`
	OptionType string       `json:"option_type,omitempty"`

	Precision MarketPrecision `json:"precision"`
	Limits    MarketLimits    `json:"limits"`

	// Maker and Taker are the fee rates for resting and crossing orders.
	Maker *apd.Decimal `json:"maker,omitempty"`
	Taker *apd.Decimal `json:"taker,omitempty"`

	Info any `json:"info,omitempty"`
}

// CurrencyNetwork describes deposit/withdraw support of one chain for a
// currency.
type CurrencyNetwork struct {
	ID       string       `json:"id"`
	Network  string       `json:"network"`
	Active   bool         `json:"active"`
	Deposit  bool         `json:"deposit"`
	Withdraw bool         `json:"withdraw"`
	Fee      *apd.Decimal `json:"fee,omitempty"`
	Limits   MarketLimits `json:"limits"`
}

// Currency is a tradable or withdrawable asset.
type Currency struct {
	ID        string                     `json:"id"`
	Code      string                     `json:"code"`
	Name      string                     `json:"name,omitempty"`
	Active    bool                       `json:"active"`
	Deposit   bool                       `json:"deposit"`
	Withdraw  bool                       `json:"withdraw"`
	Precision int32                      `json:"precision"`
	Fee       *apd.Decimal               `json:"fee,omitempty"`
	Networks  map[string]CurrencyNetwork `json:"networks,omitempty"`
	Limits    MarketLimits               `json:"limits"`
	Info      any                        `json:"info,omitempty"`
}

// Ticker is a 24-hour market statistics snapshot for one symbol.
type Ticker struct {
	Symbol      string       `json:"symbol"`
	Bid         *apd.Decimal `json:"bid,omitempty"`
	Ask         *apd.Decimal `json:"ask,omitempty"`
	Last        *apd.Decimal `json:"last,omitempty"`
	Open        *apd.Decimal `json:"open,omitempty"`
	High        *apd.Decimal `json:"high,omitempty"`
	Low         *apd.Decimal `json:"low,omitempty"`
	Volume      *apd.Decimal `json:"volume,omitempty"`
	QuoteVolume *apd.Decimal `json:"quote_volume,omitempty"`
	Change      *apd.Decimal `json:"change,omitempty"`
	Percentage  *apd.Decimal `json:"percentage,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Info        any          `json:"info,omitempty"`
}

// OrderBookLevel is a single price level.
type OrderBookLevel struct {
	Price  apd.Decimal `json:"price"`
	Amount apd.Decimal `json:"amount"`
}

// OrderBook is a depth snapshot: bids sorted descending, asks ascending.
type OrderBook struct {
	Symbol    string           `json:"symbol"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Nonce     int64            `json:"nonce,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Info      any              `json:"info,omitempty"`
}

// Fee is a charged or quoted fee.
type Fee struct {
	Currency string       `json:"currency,omitempty"`
	Cost     *apd.Decimal `json:"cost,omitempty"`
	Rate     *apd.Decimal `json:"rate,omitempty"`
}

// Trade is one executed fill, either from the public trade feed or from
// the caller's own execution history.
type Trade struct {
	ID           string       `json:"id"`
	OrderID      string       `json:"order_id,omitempty"`
	Symbol       string       `json:"symbol"`
	Side         OrderSide    `json:"side"`
	TakerOrMaker TakerOrMaker `json:"taker_or_maker,omitempty"`
	Price        apd.Decimal  `json:"price"`
	Amount       apd.Decimal  `json:"amount"`
	Cost         *apd.Decimal `json:"cost,omitempty"`
	Fee          *Fee         `json:"fee,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	Info         any          `json:"info,omitempty"`
}

// Order is a submitted trade instruction. Filled + Remaining equals
// Amount whenever both are known.
type Order struct {
	ID            string       `json:"id"`
	ClientOrderID string       `json:"client_order_id,omitempty"`
	Symbol        string       `json:"symbol"`
	Side          OrderSide    `json:"side"`
	Type          OrderType    `json:"type"`
	TimeInForce   TimeInForce  `json:"time_in_force"`
	Price         *apd.Decimal `json:"price,omitempty"`
	TriggerPrice  *apd.Decimal `json:"trigger_price,omitempty"`
	Amount        *apd.Decimal `json:"amount,omitempty"`
	Filled        *apd.Decimal `json:"filled,omitempty"`
	Remaining     *apd.Decimal `json:"remaining,omitempty"`
	Cost          *apd.Decimal `json:"cost,omitempty"`
	Average       *apd.Decimal `json:"average,omitempty"`
	Status        OrderStatus  `json:"status"`
	Fee           *Fee         `json:"fee,omitempty"`
	Trades        []Trade      `json:"trades,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	LastTradeAt   time.Time    `json:"last_trade_at,omitempty"`
	Info          any          `json:"info,omitempty"`
}

// Balance is a per-currency account snapshot; Total = Free + Used.
type Balance struct {
	Free  *apd.Decimal `json:"free,omitempty"`
	Used  *apd.Decimal `json:"used,omitempty"`
	Total *apd.Decimal `json:"total,omitempty"`
	// Debt is borrowed funds on margin accounts.
	Debt *apd.Decimal `json:"debt,omitempty"`
}

// Balances maps unified currency codes to balance records.
type Balances struct {
	Assets    map[string]Balance `json:"assets"`
	Timestamp time.Time          `json:"timestamp"`
	Info      any                `json:"info,omitempty"`
}

// Position is an open leveraged or derivative exposure.
type Position struct {
	Symbol                   string       `json:"symbol"`
	Side                     PositionSide `json:"side"`
	Hedged                   bool         `json:"hedged"`
	MarginMode               MarginMode   `json:"margin_mode"`
	Contracts                *apd.Decimal `json:"contracts,omitempty"`
	ContractSize             *apd.Decimal `json:"contract_size,omitempty"`
	EntryPrice               *apd.Decimal `json:"entry_price,omitempty"`
	MarkPrice                *apd.Decimal `json:"mark_price,omitempty"`
	Notional                 *apd.Decimal `json:"notional,omitempty"`
	Leverage                 *apd.Decimal `json:"leverage,omitempty"`
	Collateral               *apd.Decimal `json:"collateral,omitempty"`
	InitialMargin            *apd.Decimal `json:"initial_margin,omitempty"`
	MaintenanceMargin        *apd.Decimal `json:"maintenance_margin,omitempty"`
	InitialMarginPercent     *apd.Decimal `json:"initial_margin_percentage,omitempty"`
	MaintenanceMarginPercent *apd.Decimal `json:"maintenance_margin_percentage,omitempty"`
	UnrealizedPnl            *apd.Decimal `json:"unrealized_pnl,omitempty"`
	LiquidationPrice         *apd.Decimal `json:"liquidation_price,omitempty"`
	MarginRatio              *apd.Decimal `json:"margin_ratio,omitempty"`
	Timestamp                time.Time    `json:"timestamp,omitempty"`
	Info                     any          `json:"info,omitempty"`
}

// Transaction is a deposit or withdrawal.
type Transaction struct {
	ID        string            `json:"id"`
	TxID      string            `json:"txid,omitempty"`
	Currency  string            `json:"currency"`
	Network   string            `json:"network,omitempty"`
	Address   string            `json:"address,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Amount    *apd.Decimal      `json:"amount,omitempty"`
	Fee       *Fee              `json:"fee,omitempty"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	// Internal is true for transfers that never touched a chain.
	Internal  bool      `json:"internal"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Info      any       `json:"info,omitempty"`
}

// FundingRate is the current funding state of a perpetual market.
type FundingRate struct {
	Symbol               string       `json:"symbol"`
	MarkPrice            *apd.Decimal `json:"mark_price,omitempty"`
	IndexPrice           *apd.Decimal `json:"index_price,omitempty"`
	Rate                 *apd.Decimal `json:"rate,omitempty"`
	Timestamp            time.Time    `json:"timestamp"`
	NextFundingTimestamp time.Time    `json:"next_funding_timestamp,omitempty"`
	Info                 any          `json:"info,omitempty"`
}

// OpenInterest is the outstanding contract count of a derivative market.
type OpenInterest struct {
	Symbol    string       `json:"symbol"`
	Amount    *apd.Decimal `json:"amount,omitempty"`
	Value     *apd.Decimal `json:"value,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Info      any          `json:"info,omitempty"`
}

// LeverageTier is one notional bracket bounding maximum leverage and the
// maintenance margin rate for a derivative market.
type LeverageTier struct {
	Tier                  int          `json:"tier"`
	MinNotional           *apd.Decimal `json:"min_notional,omitempty"`
	MaxNotional           *apd.Decimal `json:"max_notional,omitempty"`
	MaintenanceMarginRate *apd.Decimal `json:"maintenance_margin_rate,omitempty"`
	MaxLeverage           *apd.Decimal `json:"max_leverage,omitempty"`
	Info                  any          `json:"info,omitempty"`
}

// OHLCV is one candlestick.
type OHLCV struct {
	Timestamp time.Time   `json:"timestamp"`
	Open      apd.Decimal `json:"open"`
	High      apd.Decimal `json:"high"`
	Low       apd.Decimal `json:"low"`
	Close     apd.Decimal `json:"close"`
	Volume    apd.Decimal `json:"volume"`
}
