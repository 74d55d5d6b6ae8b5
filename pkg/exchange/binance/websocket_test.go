package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
)

func TestStreamConfigURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  StreamConfig
		url  string
	}{
		{"default", StreamConfig{}, WSSpotURL},
		{"spot", StreamConfig{Segment: "spot"}, WSSpotURL},
		{"linear", StreamConfig{Segment: "linear"}, WSLinearURL},
		{"inverse", StreamConfig{Segment: "inverse"}, WSInverseURL},
		{"spot sandbox", StreamConfig{Sandbox: true}, WSSpotSandboxURL},
		{"linear sandbox", StreamConfig{Segment: "linear", Sandbox: true}, WSFuturesSandboxURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.url, tt.cfg.url())
		})
	}
}

func TestCombinedRouter(t *testing.T) {
	stream, data, ok := combinedRouter([]byte(`{"stream": "btcusdt@trade", "data": {"t": 1}}`))
	require.True(t, ok)
	assert.Equal(t, "btcusdt@trade", stream)
	assert.JSONEq(t, `{"t": 1}`, string(data))

	_, _, ok = combinedRouter([]byte(`{"result": null, "id": 1}`))
	assert.False(t, ok, "command acks carry no stream")

	_, _, ok = combinedRouter([]byte(`not json`))
	assert.False(t, ok)
}

func TestStreamName(t *testing.T) {
	m := &core.Market{ID: "BTCUSDT", Symbol: "BTC/USDT"}
	assert.Equal(t, "btcusdt@trade", streamName(m, "trade"))
	assert.Equal(t, "btcusdt@kline_1h", streamName(m, "kline_1h"))
}

func TestParseWSKline(t *testing.T) {
	frame := wsKline{EventTime: 1700000000000}
	frame.Kline.Start = 1699999940000
	frame.Kline.Open = "20000.00"
	frame.Kline.High = "20010.50"
	frame.Kline.Low = "19990.25"
	frame.Kline.Close = "20005.00"
	frame.Kline.Volume = "12.5"
	frame.Kline.Closed = true

	candle, err := parseWSKline(&frame)
	require.NoError(t, err)
	assert.Equal(t, int64(1699999940000), candle.Timestamp.UnixMilli())
	assertDecimal(t, "20000", &candle.Open)
	assertDecimal(t, "20010.5", &candle.High)
	assertDecimal(t, "19990.25", &candle.Low)
	assertDecimal(t, "20005", &candle.Close)
	assertDecimal(t, "12.5", &candle.Volume)

	frame.Kline.Volume = "bogus"
	_, err = parseWSKline(&frame)
	assert.Error(t, err)
}
