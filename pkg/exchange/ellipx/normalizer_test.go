package ellipx

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

func TestAmountObjectDecoding(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"integer scale", `{"v": "2000000", "e": 2}`, "20000"},
		{"fractional", `{"v": "150000000", "e": 8}`, "1.5"},
		{"negative", `{"v": "-42", "e": 1}`, "-4.2"},
		{"zero exponent", `{"v": "7", "e": 0}`, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.expected, decodeInto[rawAmount](t, tt.body).decimal())
		})
	}
}

func TestAmountObjectAbsent(t *testing.T) {
	var a *rawAmount
	assert.Nil(t, a.decimal())
	assert.Nil(t, decodeInto[rawAmount](t, `{}`).decimal())
}

func TestSplitTimestamp(t *testing.T) {
	ts := decodeInto[rawTime](t, `{"unix": 1700000000, "us": 250000}`).time()
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 250_000_000, time.UTC), ts)

	var absent *rawTime
	assert.True(t, absent.time().IsZero())
}

const marketList = `[
	{
		"Market__": "mkt-aaaa-bbbb",
		"Key": "BTC_USDT",
		"Status": "active",
		"Primary_Currency__": "BTC",
		"Secondary_Currency__": "USDT",
		"Price_Decimals": 2,
		"Amount_Decimals": 8,
		"Min_Order": {"v": "1", "e": 4}
	},
	{
		"Market__": "mkt-cccc-dddd",
		"Key": "DEAD_USDT",
		"Status": "suspended",
		"Primary_Currency__": "DEAD",
		"Secondary_Currency__": "USDT",
		"Price_Decimals": 6,
		"Amount_Decimals": 2
	}
]`

func TestNormalizeMarkets(t *testing.T) {
	markets := newNormalizer(nil).NormalizeMarkets(*decodeInto[[]rawMarket](t, marketList))
	require.Len(t, markets, 2)

	m := markets[0]
	assert.Equal(t, "BTC_USDT", m.ID)
	assert.Equal(t, "BTC/USDT", m.Symbol)
	assert.Equal(t, "BTC", m.Base)
	assert.Equal(t, "USDT", m.Quote)
	assert.Equal(t, core.MarketSpot, m.Type)
	assert.True(t, m.Spot)
	assert.True(t, m.Active)
	assert.Equal(t, int32(2), m.Precision.Price)
	assert.Equal(t, int32(8), m.Precision.Amount)
	assertDecimal(t, "0.0001", m.Limits.Amount.Min)

	assert.False(t, markets[1].Active)
	assert.Nil(t, markets[1].Limits.Amount.Min)
}

func TestNormalizeTicker(t *testing.T) {
	body := `{
		"Market_Key": "BTC_USDT",
		"Last": {"v": "1990001", "e": 2},
		"Open": {"v": "2000000", "e": 2},
		"High": {"v": "2010050", "e": 2},
		"Low": {"v": "1980000", "e": 2},
		"Bid": {"v": "1990000", "e": 2},
		"Ask": {"v": "1990002", "e": 2},
		"Volume": {"v": "12345678", "e": 8},
		"Time": {"unix": 1700000000, "us": 0}
	}`
	ticker := newNormalizer(nil).NormalizeTicker(decodeInto[rawTicker](t, body))

	assert.Equal(t, "BTC_USDT", ticker.Symbol)
	assertDecimal(t, "19900.01", ticker.Last)
	assertDecimal(t, "20000", ticker.Open)
	assertDecimal(t, "19900.00", ticker.Bid)
	assertDecimal(t, "19900.02", ticker.Ask)
	assertDecimal(t, "0.12345678", ticker.Volume)
	assert.Equal(t, int64(1700000000), ticker.Timestamp.Unix())
}

func TestNormalizeTickerResolvesSymbol(t *testing.T) {
	reg := core.NewRegistry()
	reg.Replace([]*core.Market{{ID: "BTC_USDT", Symbol: "BTC/USDT", Type: core.MarketSpot, Spot: true}})

	ticker := newNormalizer(reg).NormalizeTicker(decodeInto[rawTicker](t, `{"Market_Key": "BTC_USDT"}`))
	assert.Equal(t, "BTC/USDT", ticker.Symbol)
}

func TestNormalizeOrderBook(t *testing.T) {
	body := `{
		"bids": [
			{"Price": {"v": "1990000", "e": 2}, "Amount": {"v": "50000000", "e": 8}},
			{"Price": {"v": "1989900", "e": 2}, "Amount": {"v": "100000000", "e": 8}}
		],
		"asks": [
			{"Price": {"v": "1990100", "e": 2}, "Amount": {"v": "25000000", "e": 8}},
			{"Price": {}, "Amount": {"v": "1", "e": 0}}
		],
		"Time": {"unix": 1700000000, "us": 0}
	}`
	book := newNormalizer(nil).NormalizeOrderBook(decodeInto[rawDepth](t, body), "BTC/USDT")

	assert.Equal(t, "BTC/USDT", book.Symbol)
	require.Len(t, book.Bids, 2)
	// Malformed level is dropped.
	require.Len(t, book.Asks, 1)
	assertDecimal(t, "19900.00", &book.Bids[0].Price)
	assertDecimal(t, "0.5", &book.Bids[0].Amount)
	assertDecimal(t, "19901.00", &book.Asks[0].Price)
}

func TestNormalizeTrades(t *testing.T) {
	body := `[
		{"Id": "trd-1", "Type": "bid", "Price": {"v": "2000000", "e": 2}, "Amount": {"v": "10000000", "e": 8}, "Date": {"unix": 1700000000, "us": 0}},
		{"Id": "trd-2", "Type": "ask", "Price": {"v": "1999900", "e": 2}, "Amount": {"v": "20000000", "e": 8}, "Date": {"unix": 1700000001, "us": 0}}
	]`
	trades := newNormalizer(nil).NormalizeTrades(*decodeInto[[]rawTrade](t, body), "BTC/USDT")
	require.Len(t, trades, 2)

	assert.Equal(t, "trd-1", trades[0].ID)
	assert.Equal(t, core.SideBuy, trades[0].Side)
	assertDecimal(t, "20000", &trades[0].Price)
	assertDecimal(t, "0.1", &trades[0].Amount)
	assertDecimal(t, "2000", trades[0].Cost)

	assert.Equal(t, core.SideSell, trades[1].Side)
}

func TestNormalizeBalances(t *testing.T) {
	body := `[
		{"Currency__": "BTC", "Balance": {"v": "60000000", "e": 8}, "Available": {"v": "50000000", "e": 8}},
		{"Currency__": "USDT", "Balance": {"v": "100000", "e": 2}, "Available": {"v": "100000", "e": 2}},
		{"Currency__": "DUST"}
	]`
	balances := newNormalizer(nil).NormalizeBalances(*decodeInto[[]rawWallet](t, body))

	require.Len(t, balances.Assets, 2)
	btc := balances.Assets["BTC"]
	assertDecimal(t, "0.6", btc.Total)
	assertDecimal(t, "0.5", btc.Free)
	assertDecimal(t, "0.1", btc.Used)

	usdt := balances.Assets["USDT"]
	assertDecimal(t, "1000", usdt.Total)
	assertDecimal(t, "0", usdt.Used)
}

func TestNormalizeOrderPartialFill(t *testing.T) {
	body := `{
		"Order__": "ord-1111-2222",
		"Market_Key": "BTC_USDT",
		"Type": "bid",
		"Order_Type": "limit",
		"Status": "open",
		"Price": {"v": "2000000", "e": 2},
		"Amount": {"v": "100000000", "e": 8},
		"Executed": {"v": "40000000", "e": 8},
		"Total": {"v": "800000", "e": 2},
		"Client_Ref": "my-ref-1",
		"Created": {"unix": 1700000000, "us": 0}
	}`
	order := newNormalizer(nil).NormalizeOrder(decodeInto[rawOrder](t, body))

	assert.Equal(t, "ord-1111-2222", order.ID)
	assert.Equal(t, "my-ref-1", order.ClientOrderID)
	assert.Equal(t, core.SideBuy, order.Side)
	assert.Equal(t, core.TypeLimit, order.Type)
	assert.Equal(t, core.StatusOpen, order.Status)
	assertDecimal(t, "20000", order.Price)
	assertDecimal(t, "1", order.Amount)
	assertDecimal(t, "0.4", order.Filled)
	assertDecimal(t, "0.6", order.Remaining)
	assertDecimal(t, "8000", order.Cost)
	assertDecimal(t, "20000", order.Average)
	assert.Equal(t, int64(1700000000), order.CreatedAt.Unix())

	sum := precise.Add(order.Filled, order.Remaining)
	assert.Zero(t, sum.Cmp(order.Amount))
}

func TestNormalizeOrderUnfilled(t *testing.T) {
	body := `{
		"Order__": "ord-3333",
		"Market_Key": "BTC_USDT",
		"Type": "ask",
		"Order_Type": "market",
		"Status": "pending",
		"Amount": {"v": "100000000", "e": 8},
		"Executed": {"v": "0", "e": 8}
	}`
	order := newNormalizer(nil).NormalizeOrder(decodeInto[rawOrder](t, body))

	assert.Equal(t, core.SideSell, order.Side)
	assert.Equal(t, core.TypeMarket, order.Type)
	assert.Equal(t, core.StatusOpen, order.Status)
	assert.Nil(t, order.Price)
	assert.Nil(t, order.Average)
	assertDecimal(t, "1", order.Remaining)
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected core.OrderStatus
	}{
		{"pending", core.StatusOpen},
		{"open", core.StatusOpen},
		{"done", core.StatusClosed},
		{"cancel", core.StatusCanceled},
		{"cancelled", core.StatusCanceled},
		{"unknown", core.StatusOpen},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOrderStatus(tt.raw))
		})
	}
}
