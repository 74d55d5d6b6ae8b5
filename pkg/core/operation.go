package core

// Operation represents a logical exchange call. Each adapter resolves an
// operation plus the market's contract classification into one concrete
// endpoint through its own lookup table; combinations with no entry fail
// with a NotSupported error.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpFetchMarkets retrieves the full instrument list.
	OpFetchMarkets Operation = iota
	// OpFetchCurrencies retrieves the asset list with network data.
	OpFetchCurrencies
	// OpFetchTicker retrieves the 24h statistics for one symbol.
	OpFetchTicker
	// OpFetchOrderBook retrieves a depth snapshot.
	OpFetchOrderBook
	// OpFetchTrades retrieves recent public trades.
	OpFetchTrades
	// OpFetchOHLCV retrieves candlestick data.
	OpFetchOHLCV
	// OpFetchFundingRate retrieves the funding state of a perpetual.
	OpFetchFundingRate
	// OpFetchOpenInterest retrieves outstanding contract counts.
	OpFetchOpenInterest
	// OpFetchBalance retrieves the account balance snapshot.
	OpFetchBalance
	// OpCreateOrder submits a new order.
	OpCreateOrder
	// OpCancelOrder cancels an existing order.
	OpCancelOrder
	// OpFetchOrder retrieves one order by id or client order id.
	OpFetchOrder
	// OpFetchOpenOrders retrieves all open orders.
	OpFetchOpenOrders
	// OpFetchClosedOrders retrieves historical orders.
	OpFetchClosedOrders
	// OpFetchMyTrades retrieves the caller's own fills.
	OpFetchMyTrades
	// OpFetchPositions retrieves open derivative positions.
	OpFetchPositions
	// OpFetchLeverageTiers retrieves notional leverage brackets.
	OpFetchLeverageTiers
	// OpFetchDeposits retrieves deposit history.
	OpFetchDeposits
	// OpFetchWithdrawals retrieves withdrawal history.
	OpFetchWithdrawals
	// OpWithdraw requests an on-chain withdrawal.
	OpWithdraw
	// OpTransfer moves funds between account types.
	OpTransfer
	// OpSetLeverage changes the leverage of a derivative market.
	OpSetLeverage
	// OpSetMarginMode switches a market between cross and isolated margin.
	OpSetMarginMode
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return [...]string{
		"FETCH_MARKETS",
		"FETCH_CURRENCIES",
		"FETCH_TICKER",
		"FETCH_ORDER_BOOK",
		"FETCH_TRADES",
		"FETCH_OHLCV",
		"FETCH_FUNDING_RATE",
		"FETCH_OPEN_INTEREST",
		"FETCH_BALANCE",
		"CREATE_ORDER",
		"CANCEL_ORDER",
		"FETCH_ORDER",
		"FETCH_OPEN_ORDERS",
		"FETCH_CLOSED_ORDERS",
		"FETCH_MY_TRADES",
		"FETCH_POSITIONS",
		"FETCH_LEVERAGE_TIERS",
		"FETCH_DEPOSITS",
		"FETCH_WITHDRAWALS",
		"WITHDRAW",
		"TRANSFER",
		"SET_LEVERAGE",
		"SET_MARGIN_MODE",
	}[o]
}
