package ellipx

import (
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/core"
	"tradewire/pkg/precise"
)

// Raw wire shapes. EllipX quotes every quantity as an amount object:
// an integer value string plus a decimal exponent. The payload also
// carries a float approximation, which is ignored.

type rawAmount struct {
	Value    string `json:"v"`
	Exponent int32  `json:"e"`
}

// decimal converts the amount object to value * 10^-exponent.
func (a *rawAmount) decimal() *apd.Decimal {
	if a == nil || a.Value == "" {
		return nil
	}
	d, err := precise.Parse(a.Value)
	if err != nil {
		return nil
	}
	d.Exponent -= a.Exponent
	return d
}

// rawTime is the split second/microsecond timestamp EllipX reports.
type rawTime struct {
	Unix int64 `json:"unix"`
	US   int64 `json:"us"`
}

func (t *rawTime) time() time.Time {
	if t == nil || t.Unix == 0 {
		return time.Time{}
	}
	return time.Unix(t.Unix, t.US*int64(time.Microsecond)).UTC()
}

type rawMarket struct {
	ID             string     `json:"Market__"`
	Key            string     `json:"Key"`
	Status         string     `json:"Status"`
	Primary        string     `json:"Primary_Currency__"`
	Secondary      string     `json:"Secondary_Currency__"`
	PriceDecimals  int32      `json:"Price_Decimals"`
	AmountDecimals int32      `json:"Amount_Decimals"`
	MinOrder       *rawAmount `json:"Min_Order"`
}

type rawTicker struct {
	Market string     `json:"Market_Key"`
	Last   *rawAmount `json:"Last"`
	Open   *rawAmount `json:"Open"`
	High   *rawAmount `json:"High"`
	Low    *rawAmount `json:"Low"`
	Bid    *rawAmount `json:"Bid"`
	Ask    *rawAmount `json:"Ask"`
	Volume *rawAmount `json:"Volume"`
	Time   *rawTime   `json:"Time"`
}

type rawLevel struct {
	Price  *rawAmount `json:"Price"`
	Amount *rawAmount `json:"Amount"`
}

type rawDepth struct {
	Bids []rawLevel `json:"bids"`
	Asks []rawLevel `json:"asks"`
	Time *rawTime   `json:"Time"`
}

type rawTrade struct {
	ID     string     `json:"Id"`
	Type   string     `json:"Type"`
	Price  *rawAmount `json:"Price"`
	Amount *rawAmount `json:"Amount"`
	Date   *rawTime   `json:"Date"`
}

type rawWallet struct {
	Currency  string     `json:"Currency__"`
	Balance   *rawAmount `json:"Balance"`
	Available *rawAmount `json:"Available"`
}

type rawOrder struct {
	ID        string     `json:"Order__"`
	Market    string     `json:"Market_Key"`
	Type      string     `json:"Type"`
	OrderType string     `json:"Order_Type"`
	Status    string     `json:"Status"`
	Price     *rawAmount `json:"Price"`
	Amount    *rawAmount `json:"Amount"`
	Executed  *rawAmount `json:"Executed"`
	Total     *rawAmount `json:"Total"`
	ClientRef string     `json:"Client_Ref"`
	Created   *rawTime   `json:"Created"`
}

// Normalizer converts EllipX payloads to unified entities. When the
// market catalog is loaded, native keys resolve to unified symbols.
type Normalizer struct {
	reg *core.Registry
}

func newNormalizer(reg *core.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

func (n *Normalizer) symbol(key string) string {
	if n.reg != nil && n.reg.Loaded() {
		if m, err := n.reg.Resolve(key, core.MarketSpot); err == nil {
			return m.Symbol
		}
	}
	return key
}

// NormalizeMarkets converts the market list. All EllipX markets are spot.
func (n *Normalizer) NormalizeMarkets(raw []rawMarket) []*core.Market {
	markets := make([]*core.Market, 0, len(raw))
	for i := range raw {
		markets = append(markets, n.normalizeMarket(&raw[i]))
	}
	return markets
}

func (n *Normalizer) normalizeMarket(m *rawMarket) *core.Market {
	return &core.Market{
		ID:      m.Key,
		Symbol:  m.Primary + "/" + m.Secondary,
		Base:    m.Primary,
		Quote:   m.Secondary,
		BaseID:  m.Primary,
		QuoteID: m.Secondary,
		Type:    core.MarketSpot,
		Spot:    true,
		Active:  m.Status == "active",
		Precision: core.MarketPrecision{
			Amount: m.AmountDecimals,
			Price:  m.PriceDecimals,
		},
		Limits: core.MarketLimits{
			Amount: core.MinMax{Min: m.MinOrder.decimal()},
		},
		Info: m,
	}
}

func (n *Normalizer) NormalizeTicker(t *rawTicker) *core.Ticker {
	return &core.Ticker{
		Symbol:    n.symbol(t.Market),
		Last:      t.Last.decimal(),
		Open:      t.Open.decimal(),
		High:      t.High.decimal(),
		Low:       t.Low.decimal(),
		Bid:       t.Bid.decimal(),
		Ask:       t.Ask.decimal(),
		Volume:    t.Volume.decimal(),
		Timestamp: t.Time.time(),
		Info:      t,
	}
}

func (n *Normalizer) NormalizeOrderBook(d *rawDepth, symbol string) *core.OrderBook {
	return &core.OrderBook{
		Symbol:    symbol,
		Bids:      normalizeLevels(d.Bids),
		Asks:      normalizeLevels(d.Asks),
		Timestamp: d.Time.time(),
	}
}

func normalizeLevels(raw []rawLevel) []core.OrderBookLevel {
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for i := range raw {
		price := raw[i].Price.decimal()
		amount := raw[i].Amount.decimal()
		if price == nil || amount == nil {
			continue
		}
		levels = append(levels, core.OrderBookLevel{Price: *price, Amount: *amount})
	}
	return levels
}

func (n *Normalizer) NormalizeTrades(raw []rawTrade, symbol string) []*core.Trade {
	trades := make([]*core.Trade, 0, len(raw))
	for i := range raw {
		t := &raw[i]
		price := t.Price.decimal()
		amount := t.Amount.decimal()
		if price == nil || amount == nil {
			continue
		}
		trades = append(trades, &core.Trade{
			ID:        t.ID,
			Symbol:    symbol,
			Side:      parseSide(t.Type),
			Price:     *price,
			Amount:    *amount,
			Cost:      precise.Mul(price, amount),
			Timestamp: t.Date.time(),
			Info:      t,
		})
	}
	return trades
}

// NormalizeBalances converts the wallet list. Balance is the total held,
// Available the spendable part; the difference is on order hold.
func (n *Normalizer) NormalizeBalances(raw []rawWallet) *core.Balances {
	assets := make(map[string]core.Balance, len(raw))
	for i := range raw {
		w := &raw[i]
		total := w.Balance.decimal()
		free := w.Available.decimal()
		if total == nil {
			continue
		}
		b := core.Balance{Free: free, Total: total}
		if free != nil {
			b.Used = precise.Sub(total, free)
		}
		assets[w.Currency] = b
	}
	return &core.Balances{Assets: assets, Timestamp: time.Now().UTC()}
}

func (n *Normalizer) NormalizeOrder(o *rawOrder) *core.Order {
	amount := o.Amount.decimal()
	filled := o.Executed.decimal()
	order := &core.Order{
		ID:            o.ID,
		ClientOrderID: o.ClientRef,
		Symbol:        n.symbol(o.Market),
		Side:          parseSide(o.Type),
		Type:          parseOrderType(o.OrderType),
		Price:         o.Price.decimal(),
		Amount:        amount,
		Filled:        filled,
		Cost:          o.Total.decimal(),
		Status:        parseOrderStatus(o.Status),
		CreatedAt:     o.Created.time(),
		Info:          o,
	}
	if amount != nil && filled != nil {
		order.Remaining = precise.Sub(amount, filled)
	}
	if order.Cost != nil && filled != nil && filled.Sign() > 0 {
		if avg, err := precise.Div(order.Cost, filled, 18); err == nil {
			order.Average = avg
		}
	}
	return order
}

func (n *Normalizer) NormalizeOrders(raw []rawOrder) []*core.Order {
	orders := make([]*core.Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, n.NormalizeOrder(&raw[i]))
	}
	return orders
}

// Sides are quoted from the book: a bid buys, an ask sells.
func parseSide(s string) core.OrderSide {
	if s == "ask" {
		return core.SideSell
	}
	return core.SideBuy
}

func parseOrderType(s string) core.OrderType {
	if s == "market" {
		return core.TypeMarket
	}
	return core.TypeLimit
}

func parseOrderStatus(s string) core.OrderStatus {
	switch s {
	case "pending", "open":
		return core.StatusOpen
	case "done":
		return core.StatusClosed
	case "cancel", "cancelled":
		return core.StatusCanceled
	default:
		return core.StatusOpen
	}
}
