package core

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both lowercase and uppercase forms.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buy"`, `"BUY"`:
		*s = SideBuy
	case `"sell"`, `"SELL"`:
		*s = SideSell
	}
	return nil
}

// OrderType represents the type of order to place on an exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeMarket executes immediately at the best available price.
	TypeMarket OrderType = iota
	// TypeLimit executes at a specified price or better.
	TypeLimit
	// TypeStopLoss triggers a market order when price reaches the trigger price.
	TypeStopLoss
	// TypeStopLossLimit triggers a limit order when price reaches the trigger price.
	TypeStopLossLimit
	// TypeTakeProfit triggers a market order when price reaches the target.
	TypeTakeProfit
	// TypeTakeProfitLimit triggers a limit order when price reaches the target.
	TypeTakeProfitLimit
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{"market", "limit", "stop_loss", "stop_loss_limit", "take_profit", "take_profit_limit"}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// OrderStatus represents the current state of an order in the shared
// status vocabulary. Transitions are driven entirely by exchange-reported
// status strings mapped through per-exchange lookup tables; the client
// never infers transitions locally.
type OrderStatus int

// Order status constants define the lifecycle state of an order.
// A partially filled order is still open.
const (
	// StatusUnknown indicates the exchange reported no recognizable status.
	StatusUnknown OrderStatus = iota
	// StatusOpen indicates the order is live, possibly partially filled.
	StatusOpen
	// StatusClosed indicates the order has been completely filled.
	StatusClosed
	// StatusCanceling indicates a cancel request has been submitted.
	StatusCanceling
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the exchange.
	StatusRejected
	// StatusExpired indicates the order expired before completion.
	StatusExpired
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"unknown", "open", "closed", "canceling", "canceled", "rejected", "expired"}[s]
}

// IsTerminal returns true if the order is in a terminal state.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCanceled || s == StatusRejected || s == StatusExpired
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// TimeInForce defines how long an order remains active.
type TimeInForce int

// Time in force constants define order lifetime behavior.
const (
	// GTC (Good Till Canceled) keeps the order active until filled or canceled.
	GTC TimeInForce = iota
	// IOC (Immediate Or Cancel) requires immediate execution; the unfilled portion is canceled.
	IOC
	// FOK (Fill Or Kill) requires complete immediate execution or cancellation.
	FOK
	// PostOnly rejects the order if it would take liquidity.
	PostOnly
)

// String returns the string representation of time in force.
func (t TimeInForce) String() string {
	return [...]string{"GTC", "IOC", "FOK", "PO"}[t]
}

// MarketType represents the classification of a tradable instrument.
type MarketType int

// Market type constants cover the contract classifications an adapter
// dispatches on when selecting an endpoint family.
const (
	// MarketSpot is immediate exchange of the base for the quote currency.
	MarketSpot MarketType = iota
	// MarketMargin is spot trading on borrowed funds.
	MarketMargin
	// MarketSwap is a perpetual contract with no expiry.
	MarketSwap
	// MarketFuture is a dated contract with an expiry.
	MarketFuture
	// MarketOption is an option contract with strike and expiry.
	MarketOption
)

// String returns the string representation of the market type.
func (m MarketType) String() string {
	return [...]string{"spot", "margin", "swap", "future", "option"}[m]
}

// MarginMode distinguishes cross from isolated margin accounting.
type MarginMode int

// Margin mode constants.
const (
	// MarginCross shares collateral across all positions.
	MarginCross MarginMode = iota
	// MarginIsolated dedicates collateral to a single position.
	MarginIsolated
)

// String returns "cross" or "isolated".
func (m MarginMode) String() string {
	return [...]string{"cross", "isolated"}[m]
}

// PositionSide is the direction of an open derivative exposure.
type PositionSide int

// Position side constants.
const (
	PositionLong PositionSide = iota
	PositionShort
)

// String returns "long" or "short".
func (p PositionSide) String() string {
	return [...]string{"long", "short"}[p]
}

// TakerOrMaker marks which side of the book a fill came from.
type TakerOrMaker int

// Liquidity role constants.
const (
	// RoleUnknown indicates the exchange did not report the liquidity role.
	RoleUnknown TakerOrMaker = iota
	// RoleTaker crossed the spread.
	RoleTaker
	// RoleMaker rested on the book.
	RoleMaker
)

// String returns the string representation of the liquidity role.
func (r TakerOrMaker) String() string {
	return [...]string{"", "taker", "maker"}[r]
}

// TransactionType distinguishes deposits from withdrawals.
type TransactionType int

// Transaction type constants.
const (
	TransactionDeposit TransactionType = iota
	TransactionWithdrawal
)

// String returns "deposit" or "withdrawal".
func (t TransactionType) String() string {
	return [...]string{"deposit", "withdrawal"}[t]
}

// TransactionStatus is the lifecycle state of a deposit or withdrawal.
type TransactionStatus int

// Transaction status constants.
const (
	TransactionPending TransactionStatus = iota
	TransactionOK
	TransactionFailed
	TransactionCanceled
)

// String returns the string representation of the transaction status.
func (t TransactionStatus) String() string {
	return [...]string{"pending", "ok", "failed", "canceled"}[t]
}
