package binance

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
	"tradewire/pkg/precise"
)

func decodeInto[T any](t *testing.T, body string) *T {
	t.Helper()
	var v T
	require.NoError(t, sonic.Unmarshal([]byte(body), &v))
	return &v
}

func assertDecimal(t *testing.T, expected string, got *apd.Decimal) {
	t.Helper()
	require.NotNil(t, got)
	assert.Zero(t, got.Cmp(precise.MustParse(expected)),
		"expected %s, got %s", expected, precise.String(got))
}

const spotExchangeInfo = `{
	"symbols": [{
		"symbol": "BTCUSDT",
		"status": "TRADING",
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"filters": [
			{"filterType": "PRICE_FILTER", "tickSize": "0.01", "minPrice": "0.01", "maxPrice": "1000000"},
			{"filterType": "LOT_SIZE", "stepSize": "0.00001000", "minQty": "0.00001", "maxQty": "9000"},
			{"filterType": "NOTIONAL", "notional": "5"}
		]
	}, {
		"symbol": "DEADUSDT",
		"status": "BREAK",
		"baseAsset": "DEAD",
		"quoteAsset": "USDT",
		"filters": []
	}]
}`

func TestNormalizeSpotMarkets(t *testing.T) {
	norm := newNormalizer(nil)
	markets := norm.NormalizeMarkets(decodeInto[rawExchangeInfo](t, spotExchangeInfo))
	require.Len(t, markets, 2)

	m := markets[0]
	assert.Equal(t, "BTC/USDT", m.Symbol)
	assert.Equal(t, "BTCUSDT", m.ID)
	assert.Equal(t, core.MarketSpot, m.Type)
	assert.True(t, m.Spot)
	assert.True(t, m.Active)
	assert.Equal(t, int32(2), m.Precision.Price)
	assert.Equal(t, int32(5), m.Precision.Amount)
	assertDecimal(t, "5", m.Limits.Cost.Min)

	assert.False(t, markets[1].Active)
	assert.Equal(t, core.PrecisionUnknown, markets[1].Precision.Price)
}

const futuresExchangeInfo = `{
	"symbols": [{
		"symbol": "BTCUSDT",
		"status": "TRADING",
		"contractType": "PERPETUAL",
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"marginAsset": "USDT",
		"filters": [
			{"filterType": "PRICE_FILTER", "tickSize": "0.10"},
			{"filterType": "LOT_SIZE", "stepSize": "0.001"}
		]
	}, {
		"symbol": "BTCUSDT_241228",
		"status": "TRADING",
		"contractType": "CURRENT_QUARTER",
		"deliveryDate": 1735344000000,
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"marginAsset": "USDT",
		"filters": []
	}, {
		"symbol": "BTCUSD_PERP",
		"contractStatus": "TRADING",
		"contractType": "PERPETUAL",
		"contractSize": 100,
		"baseAsset": "BTC",
		"quoteAsset": "USD",
		"marginAsset": "BTC",
		"filters": []
	}]
}`

func TestNormalizeContractMarkets(t *testing.T) {
	norm := newNormalizer(nil)
	markets := norm.NormalizeMarkets(decodeInto[rawExchangeInfo](t, futuresExchangeInfo))
	require.Len(t, markets, 3)

	perp := markets[0]
	assert.Equal(t, "BTC/USDT:USDT", perp.Symbol)
	assert.Equal(t, core.MarketSwap, perp.Type)
	assert.True(t, perp.Swap)
	assert.True(t, perp.Contract)
	assert.True(t, perp.Linear)
	assert.False(t, perp.Inverse)
	assert.Equal(t, "USDT", perp.Settle)
	assert.Equal(t, int32(1), perp.Precision.Price)
	assertDecimal(t, "1", perp.ContractSize)

	dated := markets[1]
	assert.Equal(t, "BTC/USDT:USDT-241228", dated.Symbol)
	assert.Equal(t, core.MarketFuture, dated.Type)
	assert.True(t, dated.Future)
	assert.Equal(t, time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC), dated.Expiry)

	inverse := markets[2]
	assert.Equal(t, "BTC/USD:BTC", inverse.Symbol)
	assert.True(t, inverse.Inverse)
	assert.True(t, inverse.Active)
	assert.Equal(t, "BTC", inverse.Settle)
	assertDecimal(t, "100", inverse.ContractSize)
}

func TestNormalizeTicker(t *testing.T) {
	body := `{
		"symbol": "BTCUSDT",
		"priceChange": "-94.99",
		"priceChangePercent": "-0.475",
		"lastPrice": "19900.01",
		"openPrice": "19995.00",
		"highPrice": "20100.00",
		"lowPrice": "19800.00",
		"volume": "1234.5",
		"quoteVolume": "24567890.1",
		"bidPrice": "19900.00",
		"askPrice": "19900.02",
		"closeTime": 1700000000000
	}`
	ticker := newNormalizer(nil).NormalizeTicker(decodeInto[rawTicker](t, body), core.MarketSpot)

	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assertDecimal(t, "19900.01", ticker.Last)
	assertDecimal(t, "19900.00", ticker.Bid)
	assertDecimal(t, "19900.02", ticker.Ask)
	assertDecimal(t, "-94.99", ticker.Change)
	assert.Equal(t, time.UnixMilli(1700000000000), ticker.Timestamp)
}

func TestNormalizeTickerResolvesSymbol(t *testing.T) {
	reg := core.NewRegistry()
	reg.Replace([]*core.Market{{
		ID: "BTCUSDT", Symbol: "BTC/USDT", Type: core.MarketSpot, Spot: true,
	}})
	norm := newNormalizer(reg)

	ticker := norm.NormalizeTicker(decodeInto[rawTicker](t, `{"symbol": "BTCUSDT"}`), core.MarketSpot)
	assert.Equal(t, "BTC/USDT", ticker.Symbol)
}

func TestNormalizeOrderBook(t *testing.T) {
	body := `{
		"lastUpdateId": 1027024,
		"bids": [["19900.00", "0.5"], ["19899.99", "1.2"]],
		"asks": [["19900.02", "0.3"]]
	}`
	book := newNormalizer(nil).NormalizeOrderBook(decodeInto[rawOrderBook](t, body), "BTC/USDT")

	assert.Equal(t, "BTC/USDT", book.Symbol)
	assert.Equal(t, int64(1027024), book.Nonce)
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "19900.00", precise.String(&book.Bids[0].Price))
	assert.Equal(t, "0.5", precise.String(&book.Bids[0].Amount))
}

func TestNormalizeTradesAggressorSide(t *testing.T) {
	body := `[
		{"id": 1, "price": "19900.00", "qty": "0.5", "time": 1700000000000, "isBuyerMaker": true},
		{"id": 2, "price": "19900.02", "qty": "0.1", "time": 1700000001000, "isBuyerMaker": false}
	]`
	var raw []rawTrade
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))
	trades := newNormalizer(nil).NormalizeTrades(raw, "BTC/USDT")

	require.Len(t, trades, 2)
	assert.Equal(t, core.SideSell, trades[0].Side)
	assert.Equal(t, core.SideBuy, trades[1].Side)
	assert.Equal(t, "1", trades[0].ID)
}

func TestNormalizeKlines(t *testing.T) {
	body := `[
		[1700000000000, "19900.0", "19910.5", "19890.1", "19905.2", "123.45", 1700000059999, "2456789.1", 100, "60.1", "1196789.2", "0"]
	]`
	var raw [][]any
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))

	candles, err := newNormalizer(nil).NormalizeKlines(raw)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, time.UnixMilli(1700000000000), c.Timestamp)
	assert.Equal(t, "19900.0", precise.String(&c.Open))
	assert.Equal(t, "19910.5", precise.String(&c.High))
	assert.Equal(t, "19890.1", precise.String(&c.Low))
	assert.Equal(t, "19905.2", precise.String(&c.Close))
	assert.Equal(t, "123.45", precise.String(&c.Volume))
}

func TestNormalizeKlinesMalformed(t *testing.T) {
	_, err := newNormalizer(nil).NormalizeKlines([][]any{{float64(1700000000000), "19900.0"}})
	assert.Error(t, err)
}

func TestNormalizeOrderPartialFill(t *testing.T) {
	body := `{
		"orderId": 12345,
		"symbol": "BTCUSDT",
		"clientOrderId": "x-tag-abc",
		"price": "20000",
		"origQty": "1",
		"executedQty": "0.4",
		"cummulativeQuoteQty": "8000",
		"status": "PARTIALLY_FILLED",
		"timeInForce": "GTC",
		"type": "LIMIT",
		"side": "BUY",
		"time": 1700000000000,
		"updateTime": 1700000001000
	}`
	order := newNormalizer(nil).NormalizeOrder(decodeInto[rawOrder](t, body))

	assert.Equal(t, "12345", order.ID)
	assert.Equal(t, "x-tag-abc", order.ClientOrderID)
	assert.Equal(t, core.SideBuy, order.Side)
	assert.Equal(t, core.TypeLimit, order.Type)
	assert.Equal(t, core.StatusOpen, order.Status)
	assertDecimal(t, "1", order.Amount)
	assertDecimal(t, "0.4", order.Filled)
	assertDecimal(t, "0.6", order.Remaining)
	assertDecimal(t, "8000", order.Cost)
	// Average derives from cost over filled when the exchange omits it.
	assertDecimal(t, "20000", order.Average)
	// Filled plus remaining reconstructs the original amount.
	assertDecimal(t, "1", precise.Add(order.Filled, order.Remaining))
}

func TestNormalizeOrderStatusTable(t *testing.T) {
	tests := []struct {
		raw      string
		expected core.OrderStatus
	}{
		{"NEW", core.StatusOpen},
		{"PARTIALLY_FILLED", core.StatusOpen},
		{"FILLED", core.StatusClosed},
		{"PENDING_CANCEL", core.StatusCanceling},
		{"CANCELED", core.StatusCanceled},
		{"REJECTED", core.StatusRejected},
		{"EXPIRED", core.StatusExpired},
		{"EXPIRED_IN_MATCH", core.StatusExpired},
		{"WHATEVER", core.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOrderStatus(tt.raw))
		})
	}
}

func TestNormalizeFuturesOrderStopType(t *testing.T) {
	body := `{
		"orderId": 777,
		"symbol": "BTCUSDT",
		"origQty": "1",
		"executedQty": "0",
		"stopPrice": "19000",
		"avgPrice": "0",
		"status": "NEW",
		"type": "STOP_MARKET",
		"side": "SELL",
		"positionSide": "BOTH",
		"reduceOnly": true,
		"transactTime": 1700000000000
	}`
	order := newNormalizer(nil).NormalizeOrder(decodeInto[rawOrder](t, body))

	assert.Equal(t, core.TypeStopLoss, order.Type)
	assert.Equal(t, core.SideSell, order.Side)
	assertDecimal(t, "19000", order.TriggerPrice)
	assert.Nil(t, order.Average)
	assert.Equal(t, time.UnixMilli(1700000000000), order.CreatedAt)
}

func TestNormalizeSpotBalances(t *testing.T) {
	body := `{
		"updateTime": 1700000000000,
		"balances": [
			{"asset": "BTC", "free": "0.5", "locked": "0.1"},
			{"asset": "USDT", "free": "1000", "locked": "0"},
			{"asset": "DUST", "free": "0", "locked": "0"}
		]
	}`
	balances := newNormalizer(nil).NormalizeSpotBalances(decodeInto[rawSpotAccount](t, body))

	require.Len(t, balances.Assets, 2)
	btc := balances.Assets["BTC"]
	assertDecimal(t, "0.5", btc.Free)
	assertDecimal(t, "0.1", btc.Used)
	assertDecimal(t, "0.6", btc.Total)
	_, hasDust := balances.Assets["DUST"]
	assert.False(t, hasDust)
}

func TestNormalizeFuturesBalances(t *testing.T) {
	body := `{
		"updateTime": 1700000000000,
		"assets": [
			{"asset": "USDT", "walletBalance": "1000", "availableBalance": "800", "marginBalance": "1010"}
		]
	}`
	balances := newNormalizer(nil).NormalizeFuturesBalances(decodeInto[rawFuturesAccount](t, body))

	usdt := balances.Assets["USDT"]
	assertDecimal(t, "800", usdt.Free)
	assertDecimal(t, "1010", usdt.Total)
	assertDecimal(t, "210", usdt.Used)
}

const futuresAccountBody = `{
	"updateTime": 1700000000000,
	"assets": [
		{"asset": "USDT", "walletBalance": "1000", "availableBalance": "800",
		 "marginBalance": "1010", "crossWalletBalance": "900", "crossUnPnl": "10"}
	],
	"positions": [
		{"symbol": "BTCUSDT", "positionSide": "BOTH", "positionAmt": "1",
		 "entryPrice": "20000", "notional": "20000", "unrealizedProfit": "0",
		 "initialMargin": "2000", "maintMargin": "200", "isolated": true,
		 "isolatedWallet": "100", "leverage": "10", "updateTime": 1700000000000},
		{"symbol": "ETHUSDT", "positionSide": "BOTH", "positionAmt": "0",
		 "entryPrice": "0", "notional": "0", "maintMargin": "0"}
	]
}`

func TestNormalizePositions(t *testing.T) {
	reg := core.NewRegistry()
	reg.Replace([]*core.Market{{
		ID: "BTCUSDT", Symbol: "BTC/USDT:USDT", Type: core.MarketSwap,
		Swap: true, Contract: true, Linear: true, Settle: "USDT",
		ContractSize: precise.MustParse("1"),
		Precision:    core.MarketPrecision{Amount: 3, Price: 2},
	}})
	norm := newNormalizer(reg)

	positions := norm.NormalizePositions(decodeInto[rawFuturesAccount](t, futuresAccountBody))
	require.Len(t, positions, 1, "flat positions are dropped")

	p := positions[0]
	assert.Equal(t, "BTC/USDT:USDT", p.Symbol)
	assert.Equal(t, core.PositionLong, p.Side)
	assert.Equal(t, core.MarginIsolated, p.MarginMode)
	assert.False(t, p.Hedged)
	assertDecimal(t, "1", p.Contracts)
	assertDecimal(t, "100", p.Collateral)
	// Maintenance rate comes out of the snapshot itself: 200 / 20000.
	assertDecimal(t, "0.01", p.MaintenanceMarginPercent)
	require.NotNil(t, p.LiquidationPrice)
	assert.Equal(t, "20101.01", precise.String(p.LiquidationPrice))
	assert.Equal(t, "2.0000", precise.String(p.MarginRatio))
}

func TestNormalizePositionsShortCross(t *testing.T) {
	body := `{
		"assets": [
			{"asset": "USDT", "crossWalletBalance": "100", "crossUnPnl": "0"}
		],
		"positions": [
			{"symbol": "BTCUSDT", "positionSide": "BOTH", "positionAmt": "-1",
			 "entryPrice": "20000", "notional": "-20000", "maintMargin": "200",
			 "isolated": false}
		]
	}`
	positions := newNormalizer(nil).NormalizePositions(decodeInto[rawFuturesAccount](t, body))
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, core.PositionShort, p.Side)
	assert.Equal(t, core.MarginCross, p.MarginMode)
	assertDecimal(t, "1", p.Contracts)
	assertDecimal(t, "20000", p.Notional)
	// No market resolved, so the raw value is not rounded to a tick.
	require.NotNil(t, p.LiquidationPrice)
	assert.Equal(t, "19900.99", precise.String(precise.RoundHalfUp(p.LiquidationPrice, 2)))
}

func TestNormalizeFundingRate(t *testing.T) {
	body := `{
		"symbol": "BTCUSDT",
		"markPrice": "19901.5",
		"indexPrice": "19900.8",
		"lastFundingRate": "0.0001",
		"nextFundingTime": 1700028800000,
		"time": 1700000000000
	}`
	fr := newNormalizer(nil).NormalizeFundingRate(decodeInto[rawPremiumIndex](t, body))

	assertDecimal(t, "0.0001", fr.Rate)
	assertDecimal(t, "19901.5", fr.MarkPrice)
	assert.Equal(t, time.UnixMilli(1700028800000), fr.NextFundingTimestamp)
}

func TestNormalizeLeverageTiers(t *testing.T) {
	body := `[{
		"symbol": "BTCUSDT",
		"brackets": [
			{"bracket": 1, "initialLeverage": 125, "notionalCap": 50000, "notionalFloor": 0, "maintMarginRatio": 0.004},
			{"bracket": 2, "initialLeverage": 100, "notionalCap": 250000, "notionalFloor": 50000, "maintMarginRatio": 0.005}
		]
	}]`
	var raw []rawLeverageBracket
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))

	tiers := newNormalizer(nil).NormalizeLeverageTiers(raw)
	require.Len(t, tiers, 2)
	assert.Equal(t, 1, tiers[0].Tier)
	assertDecimal(t, "0.004", tiers[0].MaintenanceMarginRate)
	assertDecimal(t, "125", tiers[0].MaxLeverage)
	assertDecimal(t, "50000", tiers[1].MinNotional)
	assertDecimal(t, "250000", tiers[1].MaxNotional)
}

func TestNormalizeCurrencies(t *testing.T) {
	body := `[{
		"coin": "BTC",
		"name": "Bitcoin",
		"trading": true,
		"depositAllEnable": true,
		"withdrawAllEnable": false,
		"networkList": [
			{"network": "BTC", "coin": "BTC", "depositEnable": true, "withdrawEnable": false,
			 "withdrawFee": "0.0005", "withdrawMin": "0.001", "withdrawMax": "100"}
		]
	}]`
	var raw []rawCoin
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))

	currencies := newNormalizer(nil).NormalizeCurrencies(raw)
	btc, ok := currencies["BTC"]
	require.True(t, ok)
	assert.True(t, btc.Deposit)
	assert.False(t, btc.Withdraw)

	network, ok := btc.Networks["BTC"]
	require.True(t, ok)
	assertDecimal(t, "0.0005", network.Fee)
	assertDecimal(t, "0.001", network.Limits.Amount.Min)
}

func TestNormalizeDepositStatus(t *testing.T) {
	body := `[
		{"id": "d1", "amount": "0.5", "coin": "BTC", "network": "BTC", "status": 1,
		 "txId": "abc", "insertTime": 1700000000000},
		{"id": "d2", "amount": "0.1", "coin": "BTC", "network": "BTC", "status": 0,
		 "insertTime": 1700000001000, "transferType": 1}
	]`
	var raw []rawDeposit
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))

	txs := newNormalizer(nil).NormalizeDeposits(raw)
	require.Len(t, txs, 2)
	assert.Equal(t, core.TransactionOK, txs[0].Status)
	assert.Equal(t, core.TransactionDeposit, txs[0].Type)
	assert.Equal(t, core.TransactionPending, txs[1].Status)
	assert.True(t, txs[1].Internal)
}

func TestNormalizeWithdrawalStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected core.TransactionStatus
	}{
		{0, core.TransactionPending},
		{1, core.TransactionCanceled},
		{2, core.TransactionPending},
		{3, core.TransactionFailed},
		{4, core.TransactionPending},
		{5, core.TransactionFailed},
		{6, core.TransactionOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, withdrawalStatus(tt.code), "status code %d", tt.code)
	}
}

func TestNormalizeWithdrawalRecord(t *testing.T) {
	body := `[{
		"id": "w1", "amount": "8.91", "transactionFee": "0.004", "coin": "USDT",
		"network": "ETH", "status": 6, "address": "0xabc", "txId": "0xdef",
		"applyTime": "2023-11-14 22:13:20"
	}]`
	var raw []rawWithdrawal
	require.NoError(t, sonic.Unmarshal([]byte(body), &raw))

	txs := newNormalizer(nil).NormalizeWithdrawals(raw)
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, core.TransactionOK, tx.Status)
	assertDecimal(t, "8.91", tx.Amount)
	require.NotNil(t, tx.Fee)
	assertDecimal(t, "0.004", tx.Fee.Cost)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), tx.Timestamp)
}
