package binance

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"tradewire/pkg/core"
	"tradewire/pkg/sign"
)

// REST hosts per endpoint family. USDT-margined contracts live on fapi,
// coin-margined on dapi; the wallet endpoints share the spot host.
const (
	SpotURL    = "https://api.binance.com"
	LinearURL  = "https://fapi.binance.com"
	InverseURL = "https://dapi.binance.com"

	SpotSandboxURL    = "https://testnet.binance.vision"
	FuturesSandboxURL = "https://testnet.binancefuture.com"
)

var timeframes = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "8h": {}, "12h": {},
	"1d": {}, "3d": {}, "1w": {}, "1M": {},
}

// Protocol implements core.Protocol for Binance. One instance serves the
// spot, USDT-margined and coin-margined families; the market attached to
// each call selects the host and path prefix.
type Protocol struct {
	sandbox    bool
	recvWindow int64
	classifier *core.Classifier
	norm       *Normalizer

	now func() time.Time
}

// NewProtocol creates a Binance protocol instance.
func NewProtocol() *Protocol {
	return &Protocol{
		recvWindow: 5000,
		classifier: newClassifier(),
		norm:       newNormalizer(nil),
		now:        time.Now,
	}
}

// Name returns "binance".
func (p *Protocol) Name() string { return "binance" }

// BaseURL returns the spot REST host for the given sandbox mode.
func (p *Protocol) BaseURL(sandbox bool) string {
	if sandbox {
		return SpotSandboxURL
	}
	return SpotURL
}

// BindRegistry wires the loaded market catalog into response
// normalization so native ids map back to unified symbols.
func (p *Protocol) BindRegistry(reg *core.Registry) {
	p.norm = newNormalizer(reg)
}

// MarketParams returns one fetch per endpoint family; the session merges
// the results into a single catalog.
func (p *Protocol) MarketParams() []core.Params {
	return []core.Params{
		{"segment": segmentSpot},
		{"segment": segmentLinear},
		{"segment": segmentInverse},
	}
}

// Classifier returns the Binance error tables.
func (p *Protocol) Classifier() *core.Classifier { return p.classifier }

// SupportedOperations lists every operation BuildRequest accepts.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpFetchMarkets,
		core.OpFetchCurrencies,
		core.OpFetchTicker,
		core.OpFetchOrderBook,
		core.OpFetchTrades,
		core.OpFetchOHLCV,
		core.OpFetchFundingRate,
		core.OpFetchOpenInterest,
		core.OpFetchBalance,
		core.OpCreateOrder,
		core.OpCancelOrder,
		core.OpFetchOrder,
		core.OpFetchOpenOrders,
		core.OpFetchClosedOrders,
		core.OpFetchMyTrades,
		core.OpFetchPositions,
		core.OpFetchLeverageTiers,
		core.OpFetchDeposits,
		core.OpFetchWithdrawals,
		core.OpWithdraw,
		core.OpTransfer,
		core.OpSetLeverage,
		core.OpSetMarginMode,
	}
}

// RateLimits describes the request-weight and order-count buckets.
func (p *Protocol) RateLimits() []core.RateLimitBucket {
	return []core.RateLimitBucket{
		{Name: "orders", Limit: 100, Period: 10 * time.Second},
		{Name: "sapi", Limit: 12000, Period: time.Minute},
	}
}

func (p *Protocol) host(segment string) string {
	if p.sandbox {
		if segment == segmentSpot {
			return SpotSandboxURL
		}
		return FuturesSandboxURL
	}
	switch segment {
	case segmentLinear:
		return LinearURL
	case segmentInverse:
		return InverseURL
	default:
		return SpotURL
	}
}

// prefix returns the versioned path root of a family's trading API.
func prefix(segment string) string {
	switch segment {
	case segmentLinear:
		return "/fapi/v1"
	case segmentInverse:
		return "/dapi/v1"
	default:
		return "/api/v3"
	}
}

// segmentFor picks the endpoint family from the resolved market, or from
// an explicit marketType option when the call has no symbol.
func segmentFor(params core.Params) string {
	if m, ok := params["market"].(*core.Market); ok && m != nil {
		switch {
		case m.Inverse:
			return segmentInverse
		case m.Contract:
			return segmentLinear
		default:
			return segmentSpot
		}
	}
	if mt, ok := params["marketType"].(core.MarketType); ok {
		if mt == core.MarketSwap || mt == core.MarketFuture {
			return segmentLinear
		}
	}
	return segmentSpot
}

// newRequest starts a request on the family's host. Spot requests keep an
// empty base URL so the session applies its sandbox default.
func (p *Protocol) newRequest(method, segment, path string) *core.Request {
	req := core.NewRequest(method, prefix(segment)+path)
	if segment != segmentSpot {
		req.SetBaseURL(p.host(segment))
	}
	return req
}

// sapiRequest starts a wallet API request; these always live on the
// production spot host and have no testnet.
func (p *Protocol) sapiRequest(method, path string) *core.Request {
	return core.NewRequest(method, "/sapi/v1"+path).
		SetBaseURL(SpotURL).
		SetBucket("sapi").
		SetRequireAuth(true)
}

func marketID(params core.Params) (string, error) {
	if m, ok := params["market"].(*core.Market); ok && m != nil {
		return m.ID, nil
	}
	return core.RequiredString(params, "symbol")
}

// BuildRequest composes the unsigned request for an operation.
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpFetchMarkets:
		return p.buildMarketsRequest(params)
	case core.OpFetchCurrencies:
		return p.sapiRequest("GET", "/capital/config/getall").SetWeight(10), nil
	case core.OpFetchTicker:
		return p.buildTickerRequest(params)
	case core.OpFetchOrderBook:
		return p.buildOrderBookRequest(params)
	case core.OpFetchTrades:
		return p.buildTradesRequest(params)
	case core.OpFetchOHLCV:
		return p.buildKlinesRequest(params)
	case core.OpFetchFundingRate:
		return p.buildFundingRateRequest(params)
	case core.OpFetchOpenInterest:
		return p.buildOpenInterestRequest(params)
	case core.OpFetchBalance:
		return p.buildBalanceRequest(params)
	case core.OpCreateOrder:
		return p.buildCreateOrderRequest(params)
	case core.OpCancelOrder:
		return p.buildOrderIDRequest("DELETE", params)
	case core.OpFetchOrder:
		return p.buildOrderIDRequest("GET", params)
	case core.OpFetchOpenOrders:
		return p.buildOpenOrdersRequest(params)
	case core.OpFetchClosedOrders:
		return p.buildClosedOrdersRequest(params)
	case core.OpFetchMyTrades:
		return p.buildMyTradesRequest(params)
	case core.OpFetchPositions:
		return p.buildPositionsRequest(params)
	case core.OpFetchLeverageTiers:
		return p.buildLeverageTiersRequest(params)
	case core.OpFetchDeposits:
		return p.buildTransactionHistoryRequest("/capital/deposit/hisrec", params)
	case core.OpFetchWithdrawals:
		return p.buildTransactionHistoryRequest("/capital/withdraw/history", params)
	case core.OpWithdraw:
		return p.buildWithdrawRequest(params)
	case core.OpTransfer:
		return p.buildTransferRequest(params)
	case core.OpSetLeverage:
		return p.buildSetLeverageRequest(params)
	case core.OpSetMarginMode:
		return p.buildSetMarginModeRequest(params)
	default:
		return nil, core.NewNotSupportedError(p.Name(), "operation "+op.String())
	}
}

func (p *Protocol) buildMarketsRequest(params core.Params) (*core.Request, error) {
	segment := core.StringOr(params, "segment", segmentSpot)
	req := p.newRequest("GET", segment, "/exchangeInfo")
	if segment == segmentSpot {
		req.SetWeight(20)
	}
	req.SetCache("markets:"+segment, 5*time.Minute)
	return req, nil
}

func (p *Protocol) buildTickerRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	return p.newRequest("GET", segment, "/ticker/24hr").SetQuery("symbol", id), nil
}

func (p *Protocol) buildOrderBookRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	limit := core.IntOr(params, "limit", 100)
	req := p.newRequest("GET", segmentFor(params), "/depth").
		SetQuery("symbol", id).
		SetQuery("limit", limit)
	switch {
	case limit > 500:
		req.SetWeight(10)
	case limit > 100:
		req.SetWeight(5)
	}
	return req, nil
}

func (p *Protocol) buildTradesRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	req := p.newRequest("GET", segmentFor(params), "/trades").SetQuery("symbol", id)
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildKlinesRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	tf, err := core.RequiredString(params, "timeframe")
	if err != nil {
		return nil, err
	}
	if _, ok := timeframes[tf]; !ok {
		return nil, core.NewRequestValidationError("unknown timeframe " + tf)
	}
	req := p.newRequest("GET", segmentFor(params), "/klines").
		SetQuery("symbol", id).
		SetQuery("interval", tf)
	if since := core.Int64Or(params, "since", 0); since > 0 {
		req.SetQuery("startTime", since)
	}
	if until := core.Int64Or(params, "until", 0); until > 0 {
		req.SetQuery("endTime", until)
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildFundingRateRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	if segment == segmentSpot {
		return nil, core.NewNotSupportedError(p.Name(), "funding rate on spot markets")
	}
	return p.newRequest("GET", segment, "/premiumIndex").SetQuery("symbol", id), nil
}

func (p *Protocol) buildOpenInterestRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	if segment == segmentSpot {
		return nil, core.NewNotSupportedError(p.Name(), "open interest on spot markets")
	}
	return p.newRequest("GET", segment, "/openInterest").SetQuery("symbol", id), nil
}

func (p *Protocol) buildBalanceRequest(params core.Params) (*core.Request, error) {
	segment := segmentFor(params)
	switch segment {
	case segmentLinear:
		// v2 reports positions alongside assets in one call.
		return core.NewRequest("GET", "/fapi/v2/account").
			SetBaseURL(p.host(segmentLinear)).
			SetWeight(5).
			SetRequireAuth(true), nil
	case segmentInverse:
		return p.newRequest("GET", segmentInverse, "/account").
			SetWeight(5).
			SetRequireAuth(true), nil
	default:
		return p.newRequest("GET", segmentSpot, "/account").
			SetWeight(10).
			SetRequireAuth(true), nil
	}
}

func (p *Protocol) buildPositionsRequest(params core.Params) (*core.Request, error) {
	if mt, ok := params["marketType"].(core.MarketType); ok && mt == core.MarketSpot {
		return nil, core.NewNotSupportedError(p.Name(), "positions on spot markets")
	}
	req, err := p.buildBalanceRequest(core.Params{"marketType": positionsMarketType(params)})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func positionsMarketType(params core.Params) core.MarketType {
	if mt, ok := params["marketType"].(core.MarketType); ok {
		return mt
	}
	return core.MarketSwap
}

func (p *Protocol) buildCreateOrderRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	amount, err := core.RequiredString(params, "amount")
	if err != nil {
		return nil, err
	}
	side, _ := params["side"].(core.OrderSide)
	typ, _ := params["type"].(core.OrderType)
	segment := segmentFor(params)

	req := p.newRequest("POST", segment, "/order").
		SetBucket("orders").
		SetRequireAuth(true).
		SetQuery("symbol", id).
		SetQuery("side", orderSideParam(side)).
		SetQuery("type", orderTypeParam(typ, segment))

	if typ == core.TypeLimit || typ == core.TypeStopLossLimit || typ == core.TypeTakeProfitLimit {
		tif, _ := params["timeInForce"].(core.TimeInForce)
		req.SetQuery("timeInForce", timeInForceParam(tif))
		price, err := core.RequiredString(params, "price")
		if err != nil {
			return nil, err
		}
		req.SetQuery("price", price)
	}
	req.SetQuery("quantity", amount)
	if trigger := core.StringOr(params, "triggerPrice", ""); trigger != "" {
		req.SetQuery("stopPrice", trigger)
	}
	if cid := core.StringOr(params, "clientOrderID", ""); cid != "" {
		req.SetQuery("newClientOrderId", cid)
	}
	if segment != segmentSpot {
		if ro, _ := params["reduceOnly"].(bool); ro {
			req.SetQuery("reduceOnly", "true")
		}
		if ps, ok := params["positionSide"].(core.PositionSide); ok {
			req.SetQuery("positionSide", positionSideParam(ps))
		}
	}
	return req, nil
}

func (p *Protocol) buildOrderIDRequest(method string, params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	orderID, err := core.RequiredString(params, "orderID")
	if err != nil {
		return nil, err
	}
	req := p.newRequest(method, segmentFor(params), "/order").
		SetRequireAuth(true).
		SetQuery("symbol", id)
	// Client-assigned ids are prefixed by convention; everything else is
	// treated as the exchange id.
	if _, convErr := strconv.ParseInt(orderID, 10, 64); convErr == nil {
		req.SetQuery("orderId", orderID)
	} else {
		req.SetQuery("origClientOrderId", orderID)
	}
	if method == "GET" {
		req.SetWeight(2)
	}
	return req, nil
}

func (p *Protocol) buildOpenOrdersRequest(params core.Params) (*core.Request, error) {
	req := p.newRequest("GET", segmentFor(params), "/openOrders").SetRequireAuth(true)
	if m, ok := params["market"].(*core.Market); ok && m != nil {
		req.SetQuery("symbol", m.ID).SetWeight(3)
	} else {
		// All-symbol scans are expensive on the exchange side.
		req.SetWeight(40)
	}
	return req, nil
}

func (p *Protocol) buildClosedOrdersRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	req := p.newRequest("GET", segmentFor(params), "/allOrders").
		SetRequireAuth(true).
		SetWeight(10).
		SetQuery("symbol", id)
	if since := core.Int64Or(params, "since", 0); since > 0 {
		req.SetQuery("startTime", since)
	}
	if until := core.Int64Or(params, "until", 0); until > 0 {
		req.SetQuery("endTime", until)
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildMyTradesRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	path := "/myTrades"
	if segment != segmentSpot {
		path = "/userTrades"
	}
	req := p.newRequest("GET", segment, path).
		SetRequireAuth(true).
		SetWeight(10).
		SetQuery("symbol", id)
	if since := core.Int64Or(params, "since", 0); since > 0 {
		req.SetQuery("startTime", since)
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildLeverageTiersRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	if segment == segmentSpot {
		return nil, core.NewNotSupportedError(p.Name(), "leverage tiers on spot markets")
	}
	return p.newRequest("GET", segment, "/leverageBracket").
		SetRequireAuth(true).
		SetQuery("symbol", id), nil
}

func (p *Protocol) buildSetLeverageRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	if segment == segmentSpot {
		return nil, core.NewNotSupportedError(p.Name(), "leverage on spot markets")
	}
	leverage := core.IntOr(params, "leverage", 0)
	if leverage < 1 {
		return nil, core.NewRequestValidationError("leverage must be at least 1")
	}
	return p.newRequest("POST", segment, "/leverage").
		SetRequireAuth(true).
		SetQuery("symbol", id).
		SetQuery("leverage", leverage), nil
}

func (p *Protocol) buildSetMarginModeRequest(params core.Params) (*core.Request, error) {
	id, err := marketID(params)
	if err != nil {
		return nil, err
	}
	segment := segmentFor(params)
	if segment == segmentSpot {
		return nil, core.NewNotSupportedError(p.Name(), "margin mode on spot markets")
	}
	mode, _ := params["marginMode"].(core.MarginMode)
	marginType := "CROSSED"
	if mode == core.MarginIsolated {
		marginType = "ISOLATED"
	}
	return p.newRequest("POST", segment, "/marginType").
		SetRequireAuth(true).
		SetQuery("symbol", id).
		SetQuery("marginType", marginType), nil
}

func (p *Protocol) buildTransactionHistoryRequest(path string, params core.Params) (*core.Request, error) {
	req := p.sapiRequest("GET", path)
	if coin := core.StringOr(params, "currency", ""); coin != "" {
		req.SetQuery("coin", coin)
	}
	if since := core.Int64Or(params, "since", 0); since > 0 {
		req.SetQuery("startTime", since)
	}
	if until := core.Int64Or(params, "until", 0); until > 0 {
		req.SetQuery("endTime", until)
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildWithdrawRequest(params core.Params) (*core.Request, error) {
	coin, err := core.RequiredString(params, "currency")
	if err != nil {
		return nil, err
	}
	address, err := core.RequiredString(params, "address")
	if err != nil {
		return nil, err
	}
	amount, err := core.RequiredString(params, "amount")
	if err != nil {
		return nil, err
	}
	req := p.sapiRequest("POST", "/capital/withdraw/apply").
		SetQuery("coin", coin).
		SetQuery("address", address).
		SetQuery("amount", amount)
	if tag := core.StringOr(params, "tag", ""); tag != "" {
		req.SetQuery("addressTag", tag)
	}
	if network := core.StringOr(params, "network", ""); network != "" {
		req.SetQuery("network", network)
	}
	return req, nil
}

// transferAccounts maps unified account names to Binance wallet codes.
var transferAccounts = map[string]string{
	"spot":    "MAIN",
	"linear":  "UMFUTURE",
	"inverse": "CMFUTURE",
	"margin":  "MARGIN",
	"funding": "FUNDING",
}

func (p *Protocol) buildTransferRequest(params core.Params) (*core.Request, error) {
	coin, err := core.RequiredString(params, "currency")
	if err != nil {
		return nil, err
	}
	amount, err := core.RequiredString(params, "amount")
	if err != nil {
		return nil, err
	}
	from, err := transferAccount(params, "from")
	if err != nil {
		return nil, err
	}
	to, err := transferAccount(params, "to")
	if err != nil {
		return nil, err
	}
	return p.sapiRequest("POST", "/asset/transfer").
		SetQuery("type", from+"_"+to).
		SetQuery("asset", coin).
		SetQuery("amount", amount), nil
}

func transferAccount(params core.Params, key string) (string, error) {
	name, err := core.RequiredString(params, key)
	if err != nil {
		return "", err
	}
	code, ok := transferAccounts[name]
	if !ok {
		return "", core.NewRequestValidationError("unknown transfer account " + name)
	}
	return code, nil
}

func orderSideParam(s core.OrderSide) string {
	if s == core.SideSell {
		return "SELL"
	}
	return "BUY"
}

func orderTypeParam(t core.OrderType, segment string) string {
	futures := segment != segmentSpot
	switch t {
	case core.TypeLimit:
		return "LIMIT"
	case core.TypeStopLoss:
		if futures {
			return "STOP_MARKET"
		}
		return "STOP_LOSS"
	case core.TypeStopLossLimit:
		if futures {
			return "STOP"
		}
		return "STOP_LOSS_LIMIT"
	case core.TypeTakeProfit:
		if futures {
			return "TAKE_PROFIT_MARKET"
		}
		return "TAKE_PROFIT"
	case core.TypeTakeProfitLimit:
		if futures {
			return "TAKE_PROFIT"
		}
		return "TAKE_PROFIT_LIMIT"
	default:
		return "MARKET"
	}
}

func timeInForceParam(t core.TimeInForce) string {
	switch t {
	case core.IOC:
		return "IOC"
	case core.FOK:
		return "FOK"
	case core.PostOnly:
		return "GTX"
	default:
		return "GTC"
	}
}

func positionSideParam(s core.PositionSide) string {
	if s == core.PositionShort {
		return "SHORT"
	}
	return "LONG"
}

// Sign returns a signed copy of the request. The timestamp and receive
// window are stamped here, not in BuildRequest, so a retry re-signs with
// a fresh timestamp. GET and DELETE requests sign the query string; POST
// moves the parameters into an urlencoded body and signs that.
func (p *Protocol) Sign(req *core.Request, creds *core.Credentials) (*core.Request, error) {
	if creds == nil || creds.Empty() {
		return nil, core.ErrNoCredentials
	}
	signed := req.Clone()
	signed.SetHeader("X-MBX-APIKEY", creds.APIKey)
	signed.SetQuery("timestamp", p.now().UnixMilli())
	if p.recvWindow > 0 {
		signed.SetQuery("recvWindow", p.recvWindow)
	}

	payload := signed.QueryString()
	signature, err := p.signature(creds.Secret, payload)
	if err != nil {
		return nil, err
	}

	if signed.Method == "POST" || signed.Method == "PUT" {
		body := payload + "&signature=" + url.QueryEscape(signature)
		signed.Query = nil
		signed.SetBody(body, "application/x-www-form-urlencoded")
		return signed, nil
	}
	signed.SetQuery("signature", signature)
	return signed, nil
}

func (p *Protocol) signature(secret, payload string) (string, error) {
	switch sign.DetectScheme(secret) {
	case sign.SchemeEd25519:
		return sign.Ed25519Sign(secret, []byte(payload))
	case sign.SchemeRSA:
		return sign.RSASHA256(secret, payload)
	default:
		return sign.HMACSHA256Hex(secret, payload)
	}
}

// ParseResponse decodes a response body into a unified entity. Error
// envelopes are classified whatever the HTTP status; Binance reports
// some failures with 200.
func (p *Protocol) ParseResponse(op core.Operation, statusCode int, body []byte) (any, error) {
	if err := p.checkError(statusCode, body); err != nil {
		return nil, err
	}

	switch op {
	case core.OpFetchMarkets:
		var info rawExchangeInfo
		if err := sonic.Unmarshal(body, &info); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeMarkets(&info), nil

	case core.OpFetchCurrencies:
		var coins []rawCoin
		if err := sonic.Unmarshal(body, &coins); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeCurrencies(coins), nil

	case core.OpFetchTicker:
		var t rawTicker
		if err := sonic.Unmarshal(body, &t); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeTicker(&t, core.MarketSpot), nil

	case core.OpFetchOrderBook:
		var b rawOrderBook
		if err := sonic.Unmarshal(body, &b); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeOrderBook(&b, ""), nil

	case core.OpFetchTrades:
		var trades []rawTrade
		if err := sonic.Unmarshal(body, &trades); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeTrades(trades, ""), nil

	case core.OpFetchOHLCV:
		var klines [][]any
		if err := sonic.Unmarshal(body, &klines); err != nil {
			return nil, p.decodeErr(op, err)
		}
		candles, err := p.norm.NormalizeKlines(klines)
		if err != nil {
			return nil, p.decodeErr(op, err)
		}
		return candles, nil

	case core.OpFetchFundingRate:
		var r rawPremiumIndex
		if err := sonic.Unmarshal(body, &r); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeFundingRate(&r), nil

	case core.OpFetchOpenInterest:
		var r rawOpenInterest
		if err := sonic.Unmarshal(body, &r); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeOpenInterest(&r), nil

	case core.OpFetchBalance:
		return p.parseBalances(op, body)

	case core.OpCreateOrder, core.OpCancelOrder, core.OpFetchOrder:
		var o rawOrder
		if err := sonic.Unmarshal(body, &o); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeOrder(&o), nil

	case core.OpFetchOpenOrders, core.OpFetchClosedOrders:
		var orders []rawOrder
		if err := sonic.Unmarshal(body, &orders); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeOrders(orders), nil

	case core.OpFetchMyTrades:
		var trades []rawMyTrade
		if err := sonic.Unmarshal(body, &trades); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeMyTrades(trades, ""), nil

	case core.OpFetchPositions:
		var acct rawFuturesAccount
		if err := sonic.Unmarshal(body, &acct); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizePositions(&acct), nil

	case core.OpFetchLeverageTiers:
		var brackets []rawLeverageBracket
		if err := sonic.Unmarshal(body, &brackets); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeLeverageTiers(brackets), nil

	case core.OpFetchDeposits:
		var deposits []rawDeposit
		if err := sonic.Unmarshal(body, &deposits); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeDeposits(deposits), nil

	case core.OpFetchWithdrawals:
		var withdrawals []rawWithdrawal
		if err := sonic.Unmarshal(body, &withdrawals); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return p.norm.NormalizeWithdrawals(withdrawals), nil

	case core.OpWithdraw:
		var result struct {
			ID string `json:"id"`
		}
		if err := sonic.Unmarshal(body, &result); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return &core.Transaction{
			ID:     result.ID,
			Type:   core.TransactionWithdrawal,
			Status: core.TransactionPending,
		}, nil

	case core.OpTransfer:
		var result struct {
			TranID int64 `json:"tranId"`
		}
		if err := sonic.Unmarshal(body, &result); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return &core.Transaction{
			ID:       strconv.FormatInt(result.TranID, 10),
			Status:   core.TransactionOK,
			Internal: true,
		}, nil

	case core.OpSetLeverage, core.OpSetMarginMode:
		var ack map[string]any
		if err := sonic.Unmarshal(body, &ack); err != nil {
			return nil, p.decodeErr(op, err)
		}
		return ack, nil

	default:
		return nil, core.NewNotSupportedError(p.Name(), "operation "+op.String())
	}
}

// parseBalances handles both account shapes: the futures snapshot carries
// an assets array, the spot one a balances array.
func (p *Protocol) parseBalances(op core.Operation, body []byte) (any, error) {
	var fut rawFuturesAccount
	if err := sonic.Unmarshal(body, &fut); err == nil && len(fut.Assets) > 0 {
		return p.norm.NormalizeFuturesBalances(&fut), nil
	}
	var spot rawSpotAccount
	if err := sonic.Unmarshal(body, &spot); err != nil {
		return nil, p.decodeErr(op, err)
	}
	return p.norm.NormalizeSpotBalances(&spot), nil
}

// checkError classifies failed responses. Codes are negative; a success
// payload never carries one.
func (p *Protocol) checkError(statusCode int, body []byte) error {
	var e apiError
	decoded := sonic.Unmarshal(body, &e) == nil
	if decoded && e.Code < 0 {
		return p.classifier.Classify(statusCode, strconv.Itoa(e.Code), e.Msg, body)
	}
	if statusCode >= 400 {
		code := ""
		if decoded && e.Code != 0 {
			code = strconv.Itoa(e.Code)
		}
		return p.classifier.Classify(statusCode, code, e.Msg, body)
	}
	return nil
}

func (p *Protocol) decodeErr(op core.Operation, err error) error {
	return core.NewExchangeError(p.Name(), core.ErrorTypeExchange,
		0, op.String()+": decode response: "+err.Error())
}
