package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/core"
	"tradewire/pkg/margin"
	"tradewire/pkg/precise"
)

// Raw wire shapes. Binance quotes every decimal as a JSON string; apd
// decodes them without a float detour.

type rawExchangeInfo struct {
	Symbols []rawSymbol `json:"symbols"`
}

type rawSymbol struct {
	Symbol     string      `json:"symbol"`
	Status     string      `json:"status"`
	BaseAsset  string      `json:"baseAsset"`
	QuoteAsset string      `json:"quoteAsset"`
	// Futures only. Contract size arrives as a bare JSON number.
	ContractType   string      `json:"contractType"`
	DeliveryDate   int64       `json:"deliveryDate"`
	MarginAsset    string      `json:"marginAsset"`
	ContractSize   json.Number `json:"contractSize"`
	ContractStatus string      `json:"contractStatus"`
	Filters        []rawFilter `json:"filters"`
}

type rawFilter struct {
	FilterType  string       `json:"filterType"`
	TickSize    string       `json:"tickSize"`
	StepSize    string       `json:"stepSize"`
	MinPrice    *apd.Decimal `json:"minPrice"`
	MaxPrice    *apd.Decimal `json:"maxPrice"`
	MinQty      *apd.Decimal `json:"minQty"`
	MaxQty      *apd.Decimal `json:"maxQty"`
	MinNotional *apd.Decimal `json:"minNotional"`
	Notional    *apd.Decimal `json:"notional"`
}

type rawTicker struct {
	Symbol             string       `json:"symbol"`
	PriceChange        *apd.Decimal `json:"priceChange"`
	PriceChangePercent *apd.Decimal `json:"priceChangePercent"`
	LastPrice          *apd.Decimal `json:"lastPrice"`
	OpenPrice          *apd.Decimal `json:"openPrice"`
	HighPrice          *apd.Decimal `json:"highPrice"`
	LowPrice           *apd.Decimal `json:"lowPrice"`
	Volume             *apd.Decimal `json:"volume"`
	QuoteVolume        *apd.Decimal `json:"quoteVolume"`
	BidPrice           *apd.Decimal `json:"bidPrice"`
	AskPrice           *apd.Decimal `json:"askPrice"`
	CloseTime          int64        `json:"closeTime"`
}

type rawOrderBook struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

type rawTrade struct {
	ID           int64        `json:"id"`
	Price        *apd.Decimal `json:"price"`
	Qty          *apd.Decimal `json:"qty"`
	QuoteQty     *apd.Decimal `json:"quoteQty"`
	Time         int64        `json:"time"`
	IsBuyerMaker bool         `json:"isBuyerMaker"`
}

type rawMyTrade struct {
	ID              int64        `json:"id"`
	OrderID         int64        `json:"orderId"`
	Symbol          string       `json:"symbol"`
	Price           *apd.Decimal `json:"price"`
	Qty             *apd.Decimal `json:"qty"`
	QuoteQty        *apd.Decimal `json:"quoteQty"`
	Commission      *apd.Decimal `json:"commission"`
	CommissionAsset string       `json:"commissionAsset"`
	Time            int64        `json:"time"`
	IsBuyer         bool         `json:"isBuyer"`
	IsMaker         bool         `json:"isMaker"`
}

type rawOrder struct {
	Symbol              string       `json:"symbol"`
	OrderID             int64        `json:"orderId"`
	ClientOrderID       string       `json:"clientOrderId"`
	Price               *apd.Decimal `json:"price"`
	OrigQty             *apd.Decimal `json:"origQty"`
	ExecutedQty         *apd.Decimal `json:"executedQty"`
	CummulativeQuoteQty *apd.Decimal `json:"cummulativeQuoteQty"`
	CumQuote            *apd.Decimal `json:"cumQuote"`
	AvgPrice            *apd.Decimal `json:"avgPrice"`
	StopPrice           *apd.Decimal `json:"stopPrice"`
	Status              string       `json:"status"`
	TimeInForce         string       `json:"timeInForce"`
	Type                string       `json:"type"`
	Side                string       `json:"side"`
	PositionSide        string       `json:"positionSide"`
	ReduceOnly          bool         `json:"reduceOnly"`
	Time                int64        `json:"time"`
	TransactTime        int64        `json:"transactTime"`
	UpdateTime          int64        `json:"updateTime"`
}

type rawSpotAccount struct {
	UpdateTime int64            `json:"updateTime"`
	Balances   []rawSpotBalance `json:"balances"`
}

type rawSpotBalance struct {
	Asset  string       `json:"asset"`
	Free   *apd.Decimal `json:"free"`
	Locked *apd.Decimal `json:"locked"`
}

type rawFuturesAccount struct {
	Assets     []rawFuturesAsset   `json:"assets"`
	Positions  []rawAccountPosition `json:"positions"`
	UpdateTime int64               `json:"updateTime"`
}

type rawFuturesAsset struct {
	Asset                  string       `json:"asset"`
	WalletBalance          *apd.Decimal `json:"walletBalance"`
	AvailableBalance       *apd.Decimal `json:"availableBalance"`
	MarginBalance          *apd.Decimal `json:"marginBalance"`
	CrossWalletBalance     *apd.Decimal `json:"crossWalletBalance"`
	CrossUnPnl             *apd.Decimal `json:"crossUnPnl"`
	InitialMargin          *apd.Decimal `json:"initialMargin"`
	MaintMargin            *apd.Decimal `json:"maintMargin"`
	UnrealizedProfit       *apd.Decimal `json:"unrealizedProfit"`
}

type rawAccountPosition struct {
	Symbol           string       `json:"symbol"`
	PositionSide     string       `json:"positionSide"`
	PositionAmt      *apd.Decimal `json:"positionAmt"`
	EntryPrice       *apd.Decimal `json:"entryPrice"`
	Notional         *apd.Decimal `json:"notional"`
	UnrealizedProfit *apd.Decimal `json:"unrealizedProfit"`
	InitialMargin    *apd.Decimal `json:"initialMargin"`
	MaintMargin      *apd.Decimal `json:"maintMargin"`
	IsolatedWallet   *apd.Decimal `json:"isolatedWallet"`
	Isolated         bool         `json:"isolated"`
	Leverage         *apd.Decimal `json:"leverage"`
	UpdateTime       int64        `json:"updateTime"`
}

type rawPremiumIndex struct {
	Symbol          string       `json:"symbol"`
	MarkPrice       *apd.Decimal `json:"markPrice"`
	IndexPrice      *apd.Decimal `json:"indexPrice"`
	LastFundingRate *apd.Decimal `json:"lastFundingRate"`
	NextFundingTime int64        `json:"nextFundingTime"`
	Time            int64        `json:"time"`
}

type rawOpenInterest struct {
	Symbol       string       `json:"symbol"`
	OpenInterest *apd.Decimal `json:"openInterest"`
	Time         int64        `json:"time"`
}

type rawLeverageBracket struct {
	Symbol   string       `json:"symbol"`
	Brackets []rawBracket `json:"brackets"`
}

// Bracket values are bare JSON numbers; json.Number keeps the exact
// decimal text.
type rawBracket struct {
	Bracket          int         `json:"bracket"`
	InitialLeverage  json.Number `json:"initialLeverage"`
	NotionalCap      json.Number `json:"notionalCap"`
	NotionalFloor    json.Number `json:"notionalFloor"`
	QtyCap           json.Number `json:"qtyCap"`
	QtyFloor         json.Number `json:"qtyFloor"`
	MaintMarginRatio json.Number `json:"maintMarginRatio"`
}

type rawCoin struct {
	Coin             string       `json:"coin"`
	Name             string       `json:"name"`
	DepositAllEnable bool         `json:"depositAllEnable"`
	WithdrawAllEnable bool        `json:"withdrawAllEnable"`
	Trading          bool         `json:"trading"`
	NetworkList      []rawNetwork `json:"networkList"`
}

type rawNetwork struct {
	Network        string       `json:"network"`
	Coin           string       `json:"coin"`
	DepositEnable  bool         `json:"depositEnable"`
	WithdrawEnable bool         `json:"withdrawEnable"`
	WithdrawFee    *apd.Decimal `json:"withdrawFee"`
	WithdrawMin    *apd.Decimal `json:"withdrawMin"`
	WithdrawMax    *apd.Decimal `json:"withdrawMax"`
}

type rawDeposit struct {
	ID         string       `json:"id"`
	Amount     *apd.Decimal `json:"amount"`
	Coin       string       `json:"coin"`
	Network    string       `json:"network"`
	Status     int          `json:"status"`
	Address    string       `json:"address"`
	AddressTag string       `json:"addressTag"`
	TxID       string       `json:"txId"`
	InsertTime int64        `json:"insertTime"`
	TransferType int        `json:"transferType"`
}

type rawWithdrawal struct {
	ID             string       `json:"id"`
	Amount         *apd.Decimal `json:"amount"`
	TransactionFee *apd.Decimal `json:"transactionFee"`
	Coin           string       `json:"coin"`
	Network        string       `json:"network"`
	Status         int          `json:"status"`
	Address        string       `json:"address"`
	TxID           string       `json:"txId"`
	ApplyTime      string       `json:"applyTime"`
	TransferType   int          `json:"transferType"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Normalizer converts raw Binance payloads into unified entities. Symbol
// mapping goes through the registry when one is bound; before markets are
// loaded native ids pass through unchanged.
type Normalizer struct {
	reg *core.Registry
}

func newNormalizer(reg *core.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

func (n *Normalizer) symbol(id string, hint core.MarketType) string {
	if n.reg != nil && n.reg.Loaded() {
		if m, err := n.reg.Resolve(id, hint); err == nil {
			return m.Symbol
		}
	}
	return id
}

// segment names used by the protocol's market params.
const (
	segmentSpot    = "spot"
	segmentLinear  = "linear"
	segmentInverse = "inverse"
)

// NormalizeMarkets builds the unified catalog from an exchangeInfo
// response. The segment is inferred per entry: spot symbols carry no
// contract type, and inverse contracts margin in the base asset.
func (n *Normalizer) NormalizeMarkets(info *rawExchangeInfo) []*core.Market {
	markets := make([]*core.Market, 0, len(info.Symbols))
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if m := n.normalizeMarket(s, segmentOf(s)); m != nil {
			markets = append(markets, m)
		}
	}
	return markets
}

func segmentOf(s *rawSymbol) string {
	switch {
	case s.ContractType == "":
		return segmentSpot
	case s.MarginAsset == s.BaseAsset:
		return segmentInverse
	default:
		return segmentLinear
	}
}

func (n *Normalizer) normalizeMarket(s *rawSymbol, segment string) *core.Market {
	m := &core.Market{
		ID:      s.Symbol,
		Base:    s.BaseAsset,
		Quote:   s.QuoteAsset,
		BaseID:  s.BaseAsset,
		QuoteID: s.QuoteAsset,
		Active:  s.Status == "TRADING" || s.ContractStatus == "TRADING",
		Precision: core.MarketPrecision{
			Amount: core.PrecisionUnknown,
			Price:  core.PrecisionUnknown,
		},
		Info: s,
	}

	switch segment {
	case segmentSpot:
		m.Type = core.MarketSpot
		m.Spot = true
		m.Symbol = s.BaseAsset + "/" + s.QuoteAsset
	default:
		m.Contract = true
		m.Settle = s.MarginAsset
		m.SettleID = s.MarginAsset
		m.Linear = segment == segmentLinear
		m.Inverse = segment == segmentInverse
		m.ContractSize = numDecimal(s.ContractSize)
		if m.ContractSize == nil {
			m.ContractSize = precise.MustParse("1")
		}
		base := s.BaseAsset + "/" + s.QuoteAsset + ":" + s.MarginAsset
		if s.ContractType == "PERPETUAL" {
			m.Type = core.MarketSwap
			m.Swap = true
			m.Symbol = base
		} else {
			m.Type = core.MarketFuture
			m.Future = true
			m.Expiry = time.UnixMilli(s.DeliveryDate).UTC()
			m.Symbol = base + "-" + m.Expiry.Format("060102")
		}
	}

	for _, f := range s.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			if places, err := precise.DecimalsFromIncrement(f.TickSize); err == nil {
				m.Precision.Price = places
			}
			m.Limits.Price.Min = f.MinPrice
			m.Limits.Price.Max = f.MaxPrice
		case "LOT_SIZE":
			if places, err := precise.DecimalsFromIncrement(f.StepSize); err == nil {
				m.Precision.Amount = places
			}
			m.Limits.Amount.Min = f.MinQty
			m.Limits.Amount.Max = f.MaxQty
		case "MIN_NOTIONAL", "NOTIONAL":
			if f.MinNotional != nil {
				m.Limits.Cost.Min = f.MinNotional
			} else {
				m.Limits.Cost.Min = f.Notional
			}
		}
	}
	return m
}

// NormalizeTicker converts a 24hr statistics record.
func (n *Normalizer) NormalizeTicker(t *rawTicker, hint core.MarketType) *core.Ticker {
	return &core.Ticker{
		Symbol:      n.symbol(t.Symbol, hint),
		Bid:         t.BidPrice,
		Ask:         t.AskPrice,
		Last:        t.LastPrice,
		Open:        t.OpenPrice,
		High:        t.HighPrice,
		Low:         t.LowPrice,
		Volume:      t.Volume,
		QuoteVolume: t.QuoteVolume,
		Change:      t.PriceChange,
		Percentage:  t.PriceChangePercent,
		Timestamp:   time.UnixMilli(t.CloseTime),
		Info:        t,
	}
}

// NormalizeOrderBook converts a depth snapshot. Malformed levels are
// skipped rather than failing the whole book.
func (n *Normalizer) NormalizeOrderBook(b *rawOrderBook, symbol string) *core.OrderBook {
	book := &core.OrderBook{
		Symbol:    symbol,
		Bids:      normalizeLevels(b.Bids),
		Asks:      normalizeLevels(b.Asks),
		Nonce:     b.LastUpdateID,
		Timestamp: time.Now(),
		Info:      b,
	}
	return book
}

func normalizeLevels(raw [][2]string) []core.OrderBookLevel {
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, l := range raw {
		price, err := precise.Parse(l[0])
		if err != nil {
			continue
		}
		amount, err := precise.Parse(l[1])
		if err != nil {
			continue
		}
		levels = append(levels, core.OrderBookLevel{Price: *price, Amount: *amount})
	}
	return levels
}

// NormalizeTrades converts public trades. The aggressor side is derived
// from the maker flag: when the buyer is the maker, a sell crossed the
// book.
func (n *Normalizer) NormalizeTrades(raw []rawTrade, symbol string) []*core.Trade {
	trades := make([]*core.Trade, 0, len(raw))
	for i := range raw {
		t := &raw[i]
		side := core.SideBuy
		if t.IsBuyerMaker {
			side = core.SideSell
		}
		trades = append(trades, &core.Trade{
			ID:        strconv.FormatInt(t.ID, 10),
			Symbol:    symbol,
			Side:      side,
			Price:     deref(t.Price),
			Amount:    deref(t.Qty),
			Cost:      t.QuoteQty,
			Timestamp: time.UnixMilli(t.Time),
			Info:      t,
		})
	}
	return trades
}

// NormalizeMyTrades converts the account's own fills.
func (n *Normalizer) NormalizeMyTrades(raw []rawMyTrade, symbol string) []*core.Trade {
	trades := make([]*core.Trade, 0, len(raw))
	for i := range raw {
		t := &raw[i]
		side := core.SideSell
		if t.IsBuyer {
			side = core.SideBuy
		}
		role := core.RoleTaker
		if t.IsMaker {
			role = core.RoleMaker
		}
		trade := &core.Trade{
			ID:           strconv.FormatInt(t.ID, 10),
			OrderID:      strconv.FormatInt(t.OrderID, 10),
			Symbol:       symbol,
			Side:         side,
			TakerOrMaker: role,
			Price:        deref(t.Price),
			Amount:       deref(t.Qty),
			Cost:         t.QuoteQty,
			Timestamp:    time.UnixMilli(t.Time),
			Info:         t,
		}
		if t.Commission != nil {
			trade.Fee = &core.Fee{Currency: t.CommissionAsset, Cost: t.Commission}
		}
		trades = append(trades, trade)
	}
	return trades
}

// NormalizeKlines converts kline arrays: open time, O, H, L, C, volume.
func (n *Normalizer) NormalizeKlines(raw [][]any) ([]*core.OHLCV, error) {
	out := make([]*core.OHLCV, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("kline record has %d fields", len(k))
		}
		ts, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("kline open time is %T", k[0])
		}
		candle := &core.OHLCV{Timestamp: time.UnixMilli(int64(ts))}
		for i, dst := range []*apd.Decimal{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
			s, ok := k[i+1].(string)
			if !ok {
				return nil, fmt.Errorf("kline field %d is %T", i+1, k[i+1])
			}
			d, err := precise.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i+1, err)
			}
			*dst = *d
		}
		out = append(out, candle)
	}
	return out, nil
}

// NormalizeOrder converts an order record from any endpoint family.
// Filled plus remaining always equals the original amount. Futures
// records are told apart by the position side they always report.
func (n *Normalizer) NormalizeOrder(o *rawOrder) *core.Order {
	hint := core.MarketSpot
	if o.PositionSide != "" {
		hint = core.MarketSwap
	}
	order := &core.Order{
		ID:            strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Symbol:        n.symbol(o.Symbol, hint),
		Side:          parseSide(o.Side),
		Type:          parseOrderType(o.Type),
		TimeInForce:   parseTimeInForce(o.TimeInForce),
		Status:        parseOrderStatus(o.Status),
		Price:         nonZero(o.Price),
		TriggerPrice:  nonZero(o.StopPrice),
		Amount:        o.OrigQty,
		Filled:        o.ExecutedQty,
		Info:          o,
	}

	if order.Amount != nil && order.Filled != nil {
		order.Remaining = precise.Sub(order.Amount, order.Filled)
	}

	cost := o.CummulativeQuoteQty
	if cost == nil {
		cost = o.CumQuote
	}
	order.Cost = nonZero(cost)

	if avg := nonZero(o.AvgPrice); avg != nil {
		order.Average = avg
	} else if order.Cost != nil && order.Filled != nil && !order.Filled.IsZero() {
		if avg, err := precise.Div(order.Cost, order.Filled, precise.DefaultDivPlaces); err == nil {
			order.Average = avg
		}
	}

	created := o.Time
	if created == 0 {
		created = o.TransactTime
	}
	if created > 0 {
		order.CreatedAt = time.UnixMilli(created)
	}
	if o.UpdateTime > 0 {
		order.LastTradeAt = time.UnixMilli(o.UpdateTime)
	}
	return order
}

// NormalizeOrders converts a list of order records.
func (n *Normalizer) NormalizeOrders(raw []rawOrder) []*core.Order {
	orders := make([]*core.Order, len(raw))
	for i := range raw {
		orders[i] = n.NormalizeOrder(&raw[i])
	}
	return orders
}

// NormalizeSpotBalances converts a spot account snapshot.
func (n *Normalizer) NormalizeSpotBalances(acct *rawSpotAccount) *core.Balances {
	assets := make(map[string]core.Balance, len(acct.Balances))
	for i := range acct.Balances {
		b := &acct.Balances[i]
		if isZero(b.Free) && isZero(b.Locked) {
			continue
		}
		assets[b.Asset] = core.Balance{
			Free:  b.Free,
			Used:  b.Locked,
			Total: precise.Add(orZero(b.Free), orZero(b.Locked)),
		}
	}
	return &core.Balances{
		Assets:    assets,
		Timestamp: time.UnixMilli(acct.UpdateTime),
		Info:      acct,
	}
}

// NormalizeFuturesBalances converts a futures account snapshot.
func (n *Normalizer) NormalizeFuturesBalances(acct *rawFuturesAccount) *core.Balances {
	assets := make(map[string]core.Balance, len(acct.Assets))
	for i := range acct.Assets {
		a := &acct.Assets[i]
		if isZero(a.WalletBalance) && isZero(a.AvailableBalance) {
			continue
		}
		total := a.MarginBalance
		if total == nil {
			total = a.WalletBalance
		}
		var used *apd.Decimal
		if total != nil && a.AvailableBalance != nil {
			used = precise.Sub(total, a.AvailableBalance)
		}
		assets[a.Asset] = core.Balance{
			Free:  a.AvailableBalance,
			Used:  used,
			Total: total,
		}
	}
	return &core.Balances{
		Assets:    assets,
		Timestamp: time.UnixMilli(acct.UpdateTime),
		Info:      acct,
	}
}

// NormalizePositions converts the position slice of a futures account
// snapshot. Liquidation price and margin ratio are derived, not reported:
// the maintenance rate comes out of the position's own maintMargin and
// notional, and positions with no exposure are dropped.
func (n *Normalizer) NormalizePositions(acct *rawFuturesAccount) []*core.Position {
	crossWallet := make(map[string]*apd.Decimal, len(acct.Assets))
	crossPnl := make(map[string]*apd.Decimal, len(acct.Assets))
	for i := range acct.Assets {
		a := &acct.Assets[i]
		crossWallet[a.Asset] = a.CrossWalletBalance
		crossPnl[a.Asset] = a.CrossUnPnl
	}

	positions := make([]*core.Position, 0, len(acct.Positions))
	for i := range acct.Positions {
		p := &acct.Positions[i]
		if p.PositionAmt == nil || p.PositionAmt.IsZero() {
			continue
		}
		if pos := n.normalizePosition(p, crossWallet, crossPnl); pos != nil {
			positions = append(positions, pos)
		}
	}
	return positions
}

func (n *Normalizer) normalizePosition(p *rawAccountPosition, crossWallet, crossPnl map[string]*apd.Decimal) *core.Position {
	hint := core.MarketSwap
	var market *core.Market
	if n.reg != nil && n.reg.Loaded() {
		if m, err := n.reg.Resolve(p.Symbol, hint); err == nil {
			market = m
		}
	}

	// Coin-margined ids carry an underscore suffix (BTCUSD_PERP); the
	// resolved market is authoritative when available.
	inverse := strings.Contains(p.Symbol, "_")
	if market != nil {
		inverse = market.Inverse
	}

	side := core.PositionLong
	contracts := p.PositionAmt
	if precise.IsNegative(contracts) {
		side = core.PositionShort
		contracts = precise.Abs(contracts)
	}
	switch p.PositionSide {
	case "LONG":
		side = core.PositionLong
	case "SHORT":
		side = core.PositionShort
	}

	mode := core.MarginCross
	if p.Isolated {
		mode = core.MarginIsolated
	}

	pos := &core.Position{
		Symbol:            n.symbol(p.Symbol, hint),
		Side:              side,
		Hedged:            p.PositionSide != "BOTH",
		MarginMode:        mode,
		Contracts:         contracts,
		EntryPrice:        p.EntryPrice,
		UnrealizedPnl:     p.UnrealizedProfit,
		InitialMargin:     p.InitialMargin,
		MaintenanceMargin: p.MaintMargin,
		Leverage:          p.Leverage,
		Notional:          absOrNil(p.Notional),
		Timestamp:         time.UnixMilli(p.UpdateTime),
		Info:              p,
	}

	pricePrecision := core.PrecisionUnknown
	if market != nil {
		pos.Symbol = market.Symbol
		pos.ContractSize = market.ContractSize
		pricePrecision = market.Precision.Price
	}

	// Wallet backing the position: its own isolated wallet, or the
	// asset's cross wallet.
	settle := settleAsset(market, p.Symbol, inverse)
	var wallet *apd.Decimal
	if p.Isolated {
		wallet = p.IsolatedWallet
		if wallet != nil && p.UnrealizedProfit != nil {
			pos.Collateral = precise.Add(wallet, p.UnrealizedProfit)
		}
	} else {
		wallet = crossWallet[settle]
		if wallet != nil {
			pos.Collateral = precise.Add(wallet, orZero(crossPnl[settle]))
		}
	}

	if pos.MaintenanceMargin != nil && pos.Collateral != nil && !pos.Collateral.IsZero() {
		if ratio, err := margin.MarginRatio(pos.MaintenanceMargin, pos.Collateral); err == nil {
			pos.MarginRatio = ratio
		}
	}

	if mmr := maintenanceRate(pos.MaintenanceMargin, pos.Notional); mmr != nil {
		pos.MaintenanceMarginPercent = mmr
		if wallet != nil {
			liq, err := margin.LiquidationPrice(margin.PositionInput{
				Side:                  side,
				Inverse:               inverse,
				Contracts:             contracts,
				ContractSize:          pos.ContractSize,
				EntryPrice:            p.EntryPrice,
				WalletBalance:         wallet,
				MaintenanceMarginRate: mmr,
				PricePrecision:        pricePrecision,
			})
			if err == nil {
				pos.LiquidationPrice = liq
			}
		}
	}
	return pos
}

func settleAsset(market *core.Market, id string, inverse bool) string {
	if market != nil && market.Settle != "" {
		return market.Settle
	}
	if inverse {
		if i := strings.Index(id, "USD"); i > 0 {
			return id[:i]
		}
		return ""
	}
	switch {
	case strings.HasSuffix(id, "USDT"):
		return "USDT"
	case strings.HasSuffix(id, "USDC"):
		return "USDC"
	}
	return ""
}

func maintenanceRate(maintMargin, notional *apd.Decimal) *apd.Decimal {
	if maintMargin == nil || notional == nil || notional.IsZero() {
		return nil
	}
	mmr, err := precise.Div(maintMargin, notional, precise.DefaultDivPlaces)
	if err != nil {
		return nil
	}
	return precise.Abs(mmr)
}

// NormalizeFundingRate converts a premium index record.
func (n *Normalizer) NormalizeFundingRate(r *rawPremiumIndex) *core.FundingRate {
	fr := &core.FundingRate{
		Symbol:     n.symbol(r.Symbol, core.MarketSwap),
		MarkPrice:  r.MarkPrice,
		IndexPrice: r.IndexPrice,
		Rate:       r.LastFundingRate,
		Timestamp:  time.UnixMilli(r.Time),
		Info:       r,
	}
	if r.NextFundingTime > 0 {
		fr.NextFundingTimestamp = time.UnixMilli(r.NextFundingTime)
	}
	return fr
}

// NormalizeOpenInterest converts an open interest record.
func (n *Normalizer) NormalizeOpenInterest(r *rawOpenInterest) *core.OpenInterest {
	return &core.OpenInterest{
		Symbol:    n.symbol(r.Symbol, core.MarketSwap),
		Amount:    r.OpenInterest,
		Timestamp: time.UnixMilli(r.Time),
		Info:      r,
	}
}

// NormalizeLeverageTiers converts a leverage bracket response. The fapi
// family reports notional bounds, dapi quantity bounds; both map to the
// same tier shape.
func (n *Normalizer) NormalizeLeverageTiers(raw []rawLeverageBracket) []*core.LeverageTier {
	if len(raw) == 0 {
		return nil
	}
	brackets := raw[0].Brackets
	tiers := make([]*core.LeverageTier, 0, len(brackets))
	for i := range brackets {
		b := &brackets[i]
		lo, hi := numDecimal(b.NotionalFloor), numDecimal(b.NotionalCap)
		if lo == nil {
			lo, hi = numDecimal(b.QtyFloor), numDecimal(b.QtyCap)
		}
		tiers = append(tiers, &core.LeverageTier{
			Tier:                  b.Bracket,
			MinNotional:           lo,
			MaxNotional:           hi,
			MaintenanceMarginRate: numDecimal(b.MaintMarginRatio),
			MaxLeverage:           numDecimal(b.InitialLeverage),
			Info:                  b,
		})
	}
	return tiers
}

// NormalizeCurrencies converts the coin catalog.
func (n *Normalizer) NormalizeCurrencies(raw []rawCoin) map[string]*core.Currency {
	out := make(map[string]*core.Currency, len(raw))
	for i := range raw {
		c := &raw[i]
		cur := &core.Currency{
			ID:        c.Coin,
			Code:      c.Coin,
			Name:      c.Name,
			Active:    c.Trading,
			Deposit:   c.DepositAllEnable,
			Withdraw:  c.WithdrawAllEnable,
			Precision: 8,
			Networks:  make(map[string]core.CurrencyNetwork, len(c.NetworkList)),
			Info:      c,
		}
		for _, nw := range c.NetworkList {
			cur.Networks[nw.Network] = core.CurrencyNetwork{
				ID:       nw.Network,
				Network:  nw.Network,
				Active:   nw.DepositEnable || nw.WithdrawEnable,
				Deposit:  nw.DepositEnable,
				Withdraw: nw.WithdrawEnable,
				Fee:      nw.WithdrawFee,
				Limits: core.MarketLimits{
					Amount: core.MinMax{Min: nw.WithdrawMin, Max: nw.WithdrawMax},
				},
			}
		}
		out[c.Coin] = cur
	}
	return out
}

// NormalizeDeposits converts deposit history records.
func (n *Normalizer) NormalizeDeposits(raw []rawDeposit) []*core.Transaction {
	out := make([]*core.Transaction, 0, len(raw))
	for i := range raw {
		d := &raw[i]
		out = append(out, &core.Transaction{
			ID:        d.ID,
			TxID:      d.TxID,
			Currency:  d.Coin,
			Network:   d.Network,
			Address:   d.Address,
			Tag:       d.AddressTag,
			Amount:    d.Amount,
			Type:      core.TransactionDeposit,
			Status:    depositStatus(d.Status),
			Internal:  d.TransferType == 1,
			Timestamp: time.UnixMilli(d.InsertTime),
			Info:      d,
		})
	}
	return out
}

func depositStatus(code int) core.TransactionStatus {
	switch code {
	case 1:
		return core.TransactionOK
	default:
		// 0 pending, 6 credited but locked.
		return core.TransactionPending
	}
}

// NormalizeWithdrawals converts withdrawal history records.
func (n *Normalizer) NormalizeWithdrawals(raw []rawWithdrawal) []*core.Transaction {
	out := make([]*core.Transaction, 0, len(raw))
	for i := range raw {
		w := &raw[i]
		tx := &core.Transaction{
			ID:       w.ID,
			TxID:     w.TxID,
			Currency: w.Coin,
			Network:  w.Network,
			Address:  w.Address,
			Amount:   w.Amount,
			Type:     core.TransactionWithdrawal,
			Status:   withdrawalStatus(w.Status),
			Internal: w.TransferType == 1,
			Info:     w,
		}
		if w.TransactionFee != nil {
			tx.Fee = &core.Fee{Currency: w.Coin, Cost: w.TransactionFee}
		}
		if t, err := time.Parse("2006-01-02 15:04:05", w.ApplyTime); err == nil {
			tx.Timestamp = t.UTC()
		}
		out = append(out, tx)
	}
	return out
}

func withdrawalStatus(code int) core.TransactionStatus {
	switch code {
	case 1:
		return core.TransactionCanceled
	case 3, 5:
		return core.TransactionFailed
	case 6:
		return core.TransactionOK
	default:
		// 0 email sent, 2 awaiting approval, 4 processing.
		return core.TransactionPending
	}
}

func parseSide(s string) core.OrderSide {
	if s == "SELL" {
		return core.SideSell
	}
	return core.SideBuy
}

func parseOrderType(s string) core.OrderType {
	switch s {
	case "LIMIT":
		return core.TypeLimit
	case "STOP_LOSS", "STOP_MARKET", "STOP":
		return core.TypeStopLoss
	case "STOP_LOSS_LIMIT":
		return core.TypeStopLossLimit
	case "TAKE_PROFIT", "TAKE_PROFIT_MARKET":
		return core.TypeTakeProfit
	case "TAKE_PROFIT_LIMIT":
		return core.TypeTakeProfitLimit
	default:
		return core.TypeMarket
	}
}

func parseOrderStatus(s string) core.OrderStatus {
	switch s {
	case "NEW", "PARTIALLY_FILLED", "ACCEPTED":
		return core.StatusOpen
	case "FILLED":
		return core.StatusClosed
	case "PENDING_CANCEL":
		return core.StatusCanceling
	case "CANCELED":
		return core.StatusCanceled
	case "REJECTED":
		return core.StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return core.StatusExpired
	default:
		return core.StatusUnknown
	}
}

func parseTimeInForce(s string) core.TimeInForce {
	switch s {
	case "IOC":
		return core.IOC
	case "FOK":
		return core.FOK
	case "GTX":
		return core.PostOnly
	default:
		return core.GTC
	}
}

func numDecimal(n json.Number) *apd.Decimal {
	if n == "" {
		return nil
	}
	d, err := precise.Parse(string(n))
	if err != nil {
		return nil
	}
	return d
}

func deref(d *apd.Decimal) apd.Decimal {
	if d == nil {
		return apd.Decimal{}
	}
	return *d
}

func orZero(d *apd.Decimal) *apd.Decimal {
	if d == nil {
		return new(apd.Decimal)
	}
	return d
}

func isZero(d *apd.Decimal) bool {
	return d == nil || d.IsZero()
}

func nonZero(d *apd.Decimal) *apd.Decimal {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func absOrNil(d *apd.Decimal) *apd.Decimal {
	if d == nil {
		return nil
	}
	return precise.Abs(d)
}
