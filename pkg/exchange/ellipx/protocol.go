package ellipx

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"tradewire/pkg/core"
	"tradewire/pkg/sign"
)

// Public market data is served from a separate read-only host; private
// endpoints live on the application REST root. There is no testnet.
const (
	RestURL = "https://app.ellipx.com/_rest"
	DataURL = "https://data.ellipx.com"
)

// Protocol implements core.Protocol for EllipX, a spot-only venue with
// Ed25519 request signing.
type Protocol struct {
	classifier *core.Classifier
	norm       *Normalizer

	now   func() time.Time
	nonce func() string
}

// NewProtocol creates an EllipX protocol instance.
func NewProtocol() *Protocol {
	return &Protocol{
		classifier: newClassifier(),
		norm:       newNormalizer(nil),
		now:        time.Now,
		nonce:      uuid.NewString,
	}
}

// Name returns "ellipx".
func (p *Protocol) Name() string { return "ellipx" }

// BaseURL returns the private REST root. EllipX has no sandbox
// environment; the flag is ignored.
func (p *Protocol) BaseURL(bool) string { return RestURL }

// BindRegistry wires the loaded market catalog into response
// normalization so native keys map back to unified symbols.
func (p *Protocol) BindRegistry(reg *core.Registry) {
	p.norm = newNormalizer(reg)
}

// Classifier returns the EllipX error tables.
func (p *Protocol) Classifier() *core.Classifier { return p.classifier }

// SupportedOperations lists every operation BuildRequest accepts.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpFetchMarkets,
		core.OpFetchTicker,
		core.OpFetchOrderBook,
		core.OpFetchTrades,
		core.OpFetchBalance,
		core.OpCreateOrder,
		core.OpCancelOrder,
		core.OpFetchOrder,
		core.OpFetchOpenOrders,
	}
}

// RateLimits describes the order placement bucket; public data shares
// the global one.
func (p *Protocol) RateLimits() []core.RateLimitBucket {
	return []core.RateLimitBucket{
		{Name: "orders", Limit: 60, Period: time.Minute},
	}
}

// publicRequest starts a market data request on the read-only host.
func publicRequest(path string) *core.Request {
	return core.NewRequest("GET", path).SetBaseURL(DataURL)
}

func marketKey(params core.Params) (string, error) {
	if m, ok := params["market"].(*core.Market); ok && m != nil {
		return m.ID, nil
	}
	return core.RequiredString(params, "symbol")
}

// BuildRequest composes the unsigned request for an operation.
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpFetchMarkets:
		return publicRequest("/Market").SetCache("markets", 5*time.Minute), nil
	case core.OpFetchTicker:
		return p.buildMarketDataRequest(":ticker", params)
	case core.OpFetchOrderBook:
		return p.buildOrderBookRequest(params)
	case core.OpFetchTrades:
		return p.buildTradesRequest(params)
	case core.OpFetchBalance:
		return core.NewRequest("GET", "/User/Wallet").SetRequireAuth(true), nil
	case core.OpCreateOrder:
		return p.buildCreateOrderRequest(params)
	case core.OpCancelOrder:
		return p.buildOrderIDRequest("DELETE", params)
	case core.OpFetchOrder:
		return p.buildOrderIDRequest("GET", params)
	case core.OpFetchOpenOrders:
		return p.buildOpenOrdersRequest(params)
	default:
		return nil, core.NewNotSupportedError(p.Name(), "operation "+op.String())
	}
}

func (p *Protocol) buildMarketDataRequest(suffix string, params core.Params) (*core.Request, error) {
	key, err := marketKey(params)
	if err != nil {
		return nil, err
	}
	return publicRequest("/Market/" + key + suffix), nil
}

func (p *Protocol) buildOrderBookRequest(params core.Params) (*core.Request, error) {
	req, err := p.buildMarketDataRequest(":getDepth", params)
	if err != nil {
		return nil, err
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

func (p *Protocol) buildTradesRequest(params core.Params) (*core.Request, error) {
	req, err := p.buildMarketDataRequest(":getTrades", params)
	if err != nil {
		return nil, err
	}
	if limit := core.IntOr(params, "limit", 0); limit > 0 {
		req.SetQuery("limit", limit)
	}
	return req, nil
}

// orderPayload is the JSON order submission body. Amounts travel as
// plain decimal strings.
type orderPayload struct {
	Type      string `json:"Type"`
	OrderType string `json:"Order_Type"`
	Amount    string `json:"Amount"`
	Price     string `json:"Price,omitempty"`
	ClientRef string `json:"Client_Ref,omitempty"`
}

func (p *Protocol) buildCreateOrderRequest(params core.Params) (*core.Request, error) {
	key, err := marketKey(params)
	if err != nil {
		return nil, err
	}
	amount, err := core.RequiredString(params, "amount")
	if err != nil {
		return nil, err
	}
	side, _ := params["side"].(core.OrderSide)
	typ, _ := params["type"].(core.OrderType)

	payload := orderPayload{
		Type:      orderSideParam(side),
		OrderType: "market",
		Amount:    amount,
		ClientRef: core.StringOr(params, "clientOrderID", ""),
	}
	if typ == core.TypeLimit {
		price, err := core.RequiredString(params, "price")
		if err != nil {
			return nil, err
		}
		payload.OrderType = "limit"
		payload.Price = price
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, core.NewRequestValidationError("encode order: " + err.Error())
	}
	return core.NewRequest("POST", "/Market/"+key+"/order").
		SetBucket("orders").
		SetRequireAuth(true).
		SetBody(string(body), "application/json"), nil
}

func (p *Protocol) buildOrderIDRequest(method string, params core.Params) (*core.Request, error) {
	orderID, err := core.RequiredString(params, "orderID")
	if err != nil {
		return nil, err
	}
	req := core.NewRequest(method, "/Market/Order/"+orderID).SetRequireAuth(true)
	if method == "DELETE" {
		req.SetBucket("orders")
	}
	return req, nil
}

func (p *Protocol) buildOpenOrdersRequest(params core.Params) (*core.Request, error) {
	key, err := marketKey(params)
	if err != nil {
		return nil, err
	}
	return core.NewRequest("GET", "/Market/"+key+"/order").
		SetRequireAuth(true).
		SetQuery("Status", "open"), nil
}

func orderSideParam(s core.OrderSide) string {
	if s == core.SideSell {
		return "ask"
	}
	return "bid"
}

// Sign returns a signed copy of the request. The key, timestamp and a
// fresh UUID nonce join the query, then the method, path, encoded query
// and body hash are signed with Ed25519 and appended url-safe as _sign.
func (p *Protocol) Sign(req *core.Request, creds *core.Credentials) (*core.Request, error) {
	if creds == nil || creds.Empty() {
		return nil, core.ErrNoCredentials
	}
	signed := req.Clone()
	signed.SetQuery("_key", creds.APIKey)
	signed.SetQuery("_time", strconv.FormatInt(p.now().Unix(), 10))
	signed.SetQuery("_nonce", p.nonce())

	key, err := sign.Ed25519Key(creds.Secret)
	if err != nil {
		return nil, err
	}
	payload := sign.CanonicalPayload(signed.Method, signed.Path, signed.QueryString(), []byte(signed.Body))
	sig := ed25519.Sign(key, payload)
	signed.SetQuery("_sign", base64.RawURLEncoding.EncodeToString(sig))
	return signed, nil
}

// envelope is the response wrapper every endpoint shares.
type envelope struct {
	Result string          `json:"result"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
}

// ParseResponse unwraps the envelope and decodes the payload. A
// result of "error" is classified whatever the HTTP status.
func (p *Protocol) ParseResponse(op core.Operation, statusCode int, body []byte) (any, error) {
	var env envelope
	decoded := sonic.Unmarshal(body, &env) == nil
	if decoded && env.Result == "error" {
		return nil, p.classifier.Classify(statusCode, env.Code, env.Error, body)
	}
	if statusCode >= 400 {
		return nil, p.classifier.Classify(statusCode, env.Code, env.Error, body)
	}
	if !decoded {
		return nil, p.decodeErr(op, "invalid response envelope")
	}

	switch op {
	case core.OpFetchMarkets:
		var markets []rawMarket
		if err := sonic.Unmarshal(env.Data, &markets); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeMarkets(markets), nil

	case core.OpFetchTicker:
		var t rawTicker
		if err := sonic.Unmarshal(env.Data, &t); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeTicker(&t), nil

	case core.OpFetchOrderBook:
		var d rawDepth
		if err := sonic.Unmarshal(env.Data, &d); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeOrderBook(&d, ""), nil

	case core.OpFetchTrades:
		var trades []rawTrade
		if err := sonic.Unmarshal(env.Data, &trades); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeTrades(trades, ""), nil

	case core.OpFetchBalance:
		var wallets []rawWallet
		if err := sonic.Unmarshal(env.Data, &wallets); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeBalances(wallets), nil

	case core.OpCreateOrder, core.OpCancelOrder, core.OpFetchOrder:
		var o rawOrder
		if err := sonic.Unmarshal(env.Data, &o); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeOrder(&o), nil

	case core.OpFetchOpenOrders:
		var orders []rawOrder
		if err := sonic.Unmarshal(env.Data, &orders); err != nil {
			return nil, p.decodeErr(op, err.Error())
		}
		return p.norm.NormalizeOrders(orders), nil

	default:
		return nil, core.NewNotSupportedError(p.Name(), "operation "+op.String())
	}
}

func (p *Protocol) decodeErr(op core.Operation, msg string) error {
	return core.NewExchangeError(p.Name(), core.ErrorTypeExchange,
		0, op.String()+": decode response: "+msg)
}
