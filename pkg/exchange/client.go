package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"tradewire/pkg/core"
	"tradewire/pkg/precise"
	"tradewire/pkg/session"
)

// Client implements Exchange on top of a session. Adapters construct it
// with their protocol already wired in; all methods are safe for
// concurrent use.
type Client struct {
	name string
	sess *session.Session

	loadMu sync.Mutex
}

// NewClient wraps a session in the typed facade.
func NewClient(name string, sess *session.Session) *Client {
	return &Client{name: name, sess: sess}
}

// Name returns the exchange identifier.
func (c *Client) Name() string { return c.name }

// Session exposes the underlying pipeline for adapter extensions.
func (c *Client) Session() *session.Session { return c.sess }

// LoadMarkets fetches and installs the market catalog.
func (c *Client) LoadMarkets(ctx context.Context) ([]*core.Market, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.sess.LoadMarkets(ctx)
}

// Markets returns the loaded catalog.
func (c *Client) Markets() []*core.Market {
	return c.sess.Registry().All()
}

// Market resolves a unified symbol or native id.
func (c *Client) Market(symbolOrID string) (*core.Market, error) {
	return c.sess.Resolve(symbolOrID)
}

// market resolves a symbol, loading the catalog on first use.
func (c *Client) market(ctx context.Context, symbol string) (*core.Market, error) {
	if !c.sess.Registry().Loaded() {
		if _, err := c.LoadMarkets(ctx); err != nil {
			return nil, err
		}
	}
	return c.sess.Resolve(symbol)
}

func do[T any](ctx context.Context, c *Client, op core.Operation, params core.Params) (T, error) {
	var zero T
	v, err := c.sess.Do(ctx, op, params)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", op, v)
	}
	return typed, nil
}

// FetchCurrencies returns the asset catalog keyed by unified code.
func (c *Client) FetchCurrencies(ctx context.Context) (map[string]*core.Currency, error) {
	return do[map[string]*core.Currency](ctx, c, core.OpFetchCurrencies, nil)
}

// FetchTicker returns the 24h statistics snapshot for a symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	t, err := do[*core.Ticker](ctx, c, core.OpFetchTicker, params)
	if err != nil || t == nil {
		return t, err
	}
	t.Symbol = unifiedSymbol(params, t.Symbol)
	return t, nil
}

// FetchOrderBook returns a depth snapshot.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error) {
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	book, err := do[*core.OrderBook](ctx, c, core.OpFetchOrderBook, params)
	if err != nil || book == nil {
		return book, err
	}
	book.Symbol = unifiedSymbol(params, book.Symbol)
	return book, nil
}

// FetchTrades returns recent public trades.
func (c *Client) FetchTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error) {
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	trades, err := do[[]*core.Trade](ctx, c, core.OpFetchTrades, params)
	if err != nil {
		return nil, err
	}
	for _, t := range trades {
		t.Symbol = unifiedSymbol(params, t.Symbol)
	}
	return trades, nil
}

// FetchOHLCV returns candlesticks for the timeframe ("1m", "1h", "1d").
func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, opts ...Option) ([]*core.OHLCV, error) {
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	params["timeframe"] = timeframe
	return do[[]*core.OHLCV](ctx, c, core.OpFetchOHLCV, params)
}

// FetchFundingRate returns the funding state of a perpetual market.
func (c *Client) FetchFundingRate(ctx context.Context, symbol string) (*core.FundingRate, error) {
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	fr, err := do[*core.FundingRate](ctx, c, core.OpFetchFundingRate, params)
	if err != nil || fr == nil {
		return fr, err
	}
	fr.Symbol = unifiedSymbol(params, fr.Symbol)
	return fr, nil
}

// FetchOpenInterest returns outstanding contract volume.
func (c *Client) FetchOpenInterest(ctx context.Context, symbol string) (*core.OpenInterest, error) {
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	oi, err := do[*core.OpenInterest](ctx, c, core.OpFetchOpenInterest, params)
	if err != nil || oi == nil {
		return oi, err
	}
	oi.Symbol = unifiedSymbol(params, oi.Symbol)
	return oi, nil
}

// FetchBalance returns the account balance snapshot.
func (c *Client) FetchBalance(ctx context.Context, opts ...Option) (*core.Balances, error) {
	return do[*core.Balances](ctx, c, core.OpFetchBalance, ApplyOptions(opts...).MergeInto(nil))
}

// CreateOrder validates and submits a new order. Amount and price are
// truncated to the market's precision before submission.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*core.Order, error) {
	if req == nil || req.Symbol == "" {
		return nil, core.NewRequestValidationError("order symbol is required")
	}
	if req.Amount == nil || !precise.Gt(req.Amount, precise.MustParse("0")) {
		return nil, core.NewRequestValidationError("order amount must be positive")
	}
	needsPrice := req.Type == core.TypeLimit || req.Type == core.TypeStopLossLimit ||
		req.Type == core.TypeTakeProfitLimit
	if needsPrice && req.Price == nil {
		return nil, core.NewRequestValidationError(fmt.Sprintf("%s orders require a price", req.Type))
	}
	needsTrigger := req.Type == core.TypeStopLoss || req.Type == core.TypeStopLossLimit ||
		req.Type == core.TypeTakeProfit || req.Type == core.TypeTakeProfitLimit
	if needsTrigger && req.TriggerPrice == nil {
		return nil, core.NewRequestValidationError(fmt.Sprintf("%s orders require a trigger price", req.Type))
	}

	m, err := c.market(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{
		"market": m,
		"symbol": m.Symbol,
		"side":   req.Side,
		"type":   req.Type,
		"amount": formatToPrecision(req.Amount, m.Precision.Amount),
	}
	if req.Price != nil {
		params["price"] = formatToPrecision(req.Price, m.Precision.Price)
	}
	if req.TriggerPrice != nil {
		params["triggerPrice"] = formatToPrecision(req.TriggerPrice, m.Precision.Price)
	}
	tif := req.TimeInForce
	if tif == core.GTC && c.sess.Config().DefaultTimeInForce != core.GTC {
		tif = c.sess.Config().DefaultTimeInForce
	}
	params["timeInForce"] = tif
	if req.ReduceOnly {
		params["reduceOnly"] = true
	}
	if req.Hedged {
		params["positionSide"] = req.PositionSide
	}
	params["clientOrderID"] = c.clientOrderID(req.ClientOrderID)
	for k, v := range req.Params {
		params[k] = v
	}
	order, err := do[*core.Order](ctx, c, core.OpCreateOrder, params)
	if err != nil || order == nil {
		return order, err
	}
	order.Symbol = unifiedSymbol(params, order.Symbol)
	return order, nil
}

// clientOrderID keeps the caller's id, otherwise tags a generated one
// when a broker tag is configured.
func (c *Client) clientOrderID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	tag := c.sess.Config().BrokerTag
	if tag == "" {
		return ""
	}
	return "x-" + tag + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
}

func formatToPrecision(d *apd.Decimal, places int32) string {
	if places >= 0 {
		return precise.String(precise.Truncate(d, places))
	}
	return precise.String(d)
}

// CancelOrder cancels an open order by id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string, opts ...Option) (*core.Order, error) {
	params, err := c.orderParams(ctx, symbol, orderID, opts)
	if err != nil {
		return nil, err
	}
	order, err := do[*core.Order](ctx, c, core.OpCancelOrder, params)
	if err != nil || order == nil {
		return order, err
	}
	order.Symbol = unifiedSymbol(params, order.Symbol)
	return order, nil
}

// FetchOrder returns the current state of one order.
func (c *Client) FetchOrder(ctx context.Context, symbol, orderID string, opts ...Option) (*core.Order, error) {
	params, err := c.orderParams(ctx, symbol, orderID, opts)
	if err != nil {
		return nil, err
	}
	order, err := do[*core.Order](ctx, c, core.OpFetchOrder, params)
	if err != nil || order == nil {
		return order, err
	}
	order.Symbol = unifiedSymbol(params, order.Symbol)
	return order, nil
}

// FetchOpenOrders lists resting orders, optionally scoped to a symbol.
func (c *Client) FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error) {
	params, err := c.optionalSymbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	return do[[]*core.Order](ctx, c, core.OpFetchOpenOrders, params)
}

// FetchClosedOrders lists finished orders for a symbol.
func (c *Client) FetchClosedOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error) {
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	orders, err := do[[]*core.Order](ctx, c, core.OpFetchClosedOrders, params)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Symbol = unifiedSymbol(params, o.Symbol)
	}
	return orders, nil
}

// FetchMyTrades lists the account's own fills for a symbol.
func (c *Client) FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error) {
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	trades, err := do[[]*core.Trade](ctx, c, core.OpFetchMyTrades, params)
	if err != nil {
		return nil, err
	}
	for _, t := range trades {
		t.Symbol = unifiedSymbol(params, t.Symbol)
	}
	return trades, nil
}

// FetchPositions lists open derivative positions.
func (c *Client) FetchPositions(ctx context.Context, opts ...Option) ([]*core.Position, error) {
	return do[[]*core.Position](ctx, c, core.OpFetchPositions, ApplyOptions(opts...).MergeInto(nil))
}

// FetchLeverageTiers returns the notional brackets for a symbol.
func (c *Client) FetchLeverageTiers(ctx context.Context, symbol string) ([]*core.LeverageTier, error) {
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	return do[[]*core.LeverageTier](ctx, c, core.OpFetchLeverageTiers, params)
}

// SetLeverage changes the leverage for a symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 {
		return core.NewRequestValidationError("leverage must be at least 1")
	}
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return err
	}
	params["leverage"] = leverage
	_, err = c.sess.Do(ctx, core.OpSetLeverage, params)
	return err
}

// SetMarginMode switches a symbol between cross and isolated margin.
func (c *Client) SetMarginMode(ctx context.Context, symbol string, mode core.MarginMode) error {
	params, err := c.symbolParams(ctx, symbol, nil)
	if err != nil {
		return err
	}
	params["marginMode"] = mode
	_, err = c.sess.Do(ctx, core.OpSetMarginMode, params)
	return err
}

// FetchDeposits lists deposit history.
func (c *Client) FetchDeposits(ctx context.Context, opts ...Option) ([]*core.Transaction, error) {
	return do[[]*core.Transaction](ctx, c, core.OpFetchDeposits, ApplyOptions(opts...).MergeInto(nil))
}

// FetchWithdrawals lists withdrawal history.
func (c *Client) FetchWithdrawals(ctx context.Context, opts ...Option) ([]*core.Transaction, error) {
	return do[[]*core.Transaction](ctx, c, core.OpFetchWithdrawals, ApplyOptions(opts...).MergeInto(nil))
}

// Withdraw requests an on-chain withdrawal.
func (c *Client) Withdraw(ctx context.Context, req *WithdrawRequest) (*core.Transaction, error) {
	if req == nil || req.Currency == "" || req.Address == "" {
		return nil, core.NewRequestValidationError("withdrawal requires currency and address")
	}
	if req.Amount == nil || !precise.Gt(req.Amount, precise.MustParse("0")) {
		return nil, core.NewRequestValidationError("withdrawal amount must be positive")
	}
	params := core.Params{
		"currency": req.Currency,
		"amount":   precise.String(req.Amount),
		"address":  req.Address,
	}
	if req.Tag != "" {
		params["tag"] = req.Tag
	}
	if req.Network != "" {
		params["network"] = req.Network
	}
	for k, v := range req.Params {
		params[k] = v
	}
	return do[*core.Transaction](ctx, c, core.OpWithdraw, params)
}

// Transfer moves funds between internal accounts.
func (c *Client) Transfer(ctx context.Context, req *TransferRequest) (*core.Transaction, error) {
	if req == nil || req.Currency == "" || req.From == "" || req.To == "" {
		return nil, core.NewRequestValidationError("transfer requires currency, from and to")
	}
	if req.Amount == nil || !precise.Gt(req.Amount, precise.MustParse("0")) {
		return nil, core.NewRequestValidationError("transfer amount must be positive")
	}
	params := core.Params{
		"currency": req.Currency,
		"amount":   precise.String(req.Amount),
		"from":     req.From,
		"to":       req.To,
	}
	for k, v := range req.Params {
		params[k] = v
	}
	return do[*core.Transaction](ctx, c, core.OpTransfer, params)
}

// Close shuts the session down.
func (c *Client) Close() error {
	return c.sess.Close()
}

func (c *Client) symbolParams(ctx context.Context, symbol string, opts []Option) (core.Params, error) {
	if symbol == "" {
		return nil, core.NewRequestValidationError("symbol is required")
	}
	m, err := c.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := ApplyOptions(opts...).MergeInto(nil)
	params["market"] = m
	params["symbol"] = m.Symbol
	return params, nil
}

func (c *Client) optionalSymbolParams(ctx context.Context, symbol string, opts []Option) (core.Params, error) {
	if symbol == "" {
		return ApplyOptions(opts...).MergeInto(nil), nil
	}
	return c.symbolParams(ctx, symbol, opts)
}

// unifiedSymbol stamps symbol-scoped results with the symbol the call
// resolved. Normalizers map native ids through the registry on a best
// effort basis; the resolved market is authoritative when one exists.
func unifiedSymbol(params core.Params, fallback string) string {
	if s, ok := params["symbol"].(string); ok && s != "" {
		return s
	}
	return fallback
}

func (c *Client) orderParams(ctx context.Context, symbol, orderID string, opts []Option) (core.Params, error) {
	if orderID == "" {
		return nil, core.NewRequestValidationError("order id is required")
	}
	params, err := c.symbolParams(ctx, symbol, opts)
	if err != nil {
		return nil, err
	}
	params["orderID"] = orderID
	return params, nil
}
