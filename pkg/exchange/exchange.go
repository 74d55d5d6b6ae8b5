// Package exchange is the public face of the library: a unified typed API
// over any supported exchange. Adapters translate, sessions execute, this
// package resolves symbols and shapes results.
package exchange

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/core"
)

// Exchange is the unified operation surface. Symbols are unified
// ("BTC/USDT", "BTC/USDT:USDT"); amounts and prices are decimals, never
// floats. Methods returning history accept options for paging.
type Exchange interface {
	Name() string

	LoadMarkets(ctx context.Context) ([]*core.Market, error)
	Markets() []*core.Market
	Market(symbolOrID string) (*core.Market, error)

	FetchCurrencies(ctx context.Context) (map[string]*core.Currency, error)
	FetchTicker(ctx context.Context, symbol string) (*core.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, opts ...Option) ([]*core.OHLCV, error)
	FetchFundingRate(ctx context.Context, symbol string) (*core.FundingRate, error)
	FetchOpenInterest(ctx context.Context, symbol string) (*core.OpenInterest, error)

	FetchBalance(ctx context.Context, opts ...Option) (*core.Balances, error)

	CreateOrder(ctx context.Context, req *OrderRequest) (*core.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string, opts ...Option) (*core.Order, error)
	FetchOrder(ctx context.Context, symbol, orderID string, opts ...Option) (*core.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error)
	FetchClosedOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error)
	FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error)

	FetchPositions(ctx context.Context, opts ...Option) ([]*core.Position, error)
	FetchLeverageTiers(ctx context.Context, symbol string) ([]*core.LeverageTier, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginMode(ctx context.Context, symbol string, mode core.MarginMode) error

	FetchDeposits(ctx context.Context, opts ...Option) ([]*core.Transaction, error)
	FetchWithdrawals(ctx context.Context, opts ...Option) ([]*core.Transaction, error)
	Withdraw(ctx context.Context, req *WithdrawRequest) (*core.Transaction, error)
	Transfer(ctx context.Context, req *TransferRequest) (*core.Transaction, error)

	Close() error
}

// OrderRequest describes a new order. Price is required for limit types,
// TriggerPrice for stop and take-profit types.
type OrderRequest struct {
	Symbol        string
	Side          core.OrderSide
	Type          core.OrderType
	Amount        *apd.Decimal
	Price         *apd.Decimal
	TriggerPrice  *apd.Decimal
	TimeInForce   core.TimeInForce
	ClientOrderID string
	ReduceOnly    bool
	// Hedged sends PositionSide for accounts in hedge mode; one-way
	// accounts leave it false and the side is implied.
	Hedged       bool
	PositionSide core.PositionSide
	// Params passes exchange-specific fields straight through.
	Params core.Params
}

// WithdrawRequest moves funds off the exchange.
type WithdrawRequest struct {
	Currency string
	Amount   *apd.Decimal
	Address  string
	Tag      string
	Network  string
	Params   core.Params
}

// TransferRequest moves funds between the exchange's internal accounts.
type TransferRequest struct {
	Currency string
	Amount   *apd.Decimal
	From     string
	To       string
	Params   core.Params
}
