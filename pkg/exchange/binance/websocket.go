package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradewire/internal/ws"
	"tradewire/pkg/core"
	"tradewire/pkg/precise"
)

// Combined stream hosts. Every subscription multiplexes over one
// connection; frames arrive wrapped in a stream/data envelope.
const (
	WSSpotURL    = "wss://stream.binance.com:9443/stream"
	WSLinearURL  = "wss://fstream.binance.com/stream"
	WSInverseURL = "wss://dstream.binance.com/stream"

	WSSpotSandboxURL    = "wss://stream.testnet.binance.vision/stream"
	WSFuturesSandboxURL = "wss://fstream.binancefuture.com/stream"
)

// Stream delivers live market data over the combined websocket endpoint.
// Create one per endpoint family with NewStream, connect, then watch.
type Stream struct {
	client *ws.Client
	norm   *Normalizer
	logger zerolog.Logger
	nextID atomic.Int64
}

// StreamConfig selects the endpoint family of a stream connection.
type StreamConfig struct {
	// Segment is "spot", "linear" or "inverse"; empty means spot.
	Segment string
	Sandbox bool
}

func (c StreamConfig) url() string {
	if c.Sandbox {
		if c.Segment == segmentSpot || c.Segment == "" {
			return WSSpotSandboxURL
		}
		return WSFuturesSandboxURL
	}
	switch c.Segment {
	case segmentLinear:
		return WSLinearURL
	case segmentInverse:
		return WSInverseURL
	default:
		return WSSpotURL
	}
}

// NewStream creates a disconnected stream for one endpoint family. The
// normalizer is shared with the protocol so ids resolve through the same
// registry.
func NewStream(cfg StreamConfig, norm *Normalizer, logger zerolog.Logger) *Stream {
	s := &Stream{norm: norm, logger: logger}
	s.client = ws.NewClient(ws.Config{
		URL:         cfg.url(),
		Reconnect:   true,
		Router:      combinedRouter,
		OnReconnect: s.resubscribe,
	}, logger)
	return s
}

func combinedRouter(frame []byte) (string, []byte, bool) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(frame, &env); err != nil || env.Stream == "" {
		return "", nil, false
	}
	return env.Stream, env.Data, true
}

// Connect dials the stream endpoint.
func (s *Stream) Connect(ctx context.Context) error {
	return s.client.Connect(ctx)
}

// Close tears the connection down and closes all watch channels.
func (s *Stream) Close() error {
	return s.client.Close()
}

type wsCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func (s *Stream) subscribe(stream string) (<-chan []byte, error) {
	ch := s.client.Subscribe(stream)
	err := s.client.SendJSON(wsCommand{
		Method: "SUBSCRIBE",
		Params: []string{stream},
		ID:     s.nextID.Add(1),
	})
	if err != nil {
		s.client.Unsubscribe(stream)
		return nil, err
	}
	return ch, nil
}

// resubscribe replays the active subscriptions after a reconnect.
func (s *Stream) resubscribe(c *ws.Client) {
	streams := c.Streams()
	if len(streams) == 0 {
		return
	}
	err := c.SendJSON(wsCommand{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     s.nextID.Add(1),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("resubscribe failed")
	}
}

func streamName(market *core.Market, channel string) string {
	return strings.ToLower(market.ID) + "@" + channel
}

type wsTrade struct {
	EventTime    int64        `json:"E"`
	TradeID      int64        `json:"t"`
	Price        *apd.Decimal `json:"p"`
	Quantity     *apd.Decimal `json:"q"`
	TradeTime    int64        `json:"T"`
	IsBuyerMaker bool         `json:"m"`
}

// WatchTrades streams executed trades for a market. The channel closes
// when the stream shuts down; decode failures are logged and skipped.
func (s *Stream) WatchTrades(market *core.Market) (<-chan *core.Trade, error) {
	frames, err := s.subscribe(streamName(market, "trade"))
	if err != nil {
		return nil, err
	}
	out := make(chan *core.Trade, cap(frames))
	go func() {
		defer close(out)
		for frame := range frames {
			var t wsTrade
			if err := sonic.Unmarshal(frame, &t); err != nil {
				s.logger.Warn().Err(err).Msg("bad trade frame")
				continue
			}
			side := core.SideBuy
			if t.IsBuyerMaker {
				side = core.SideSell
			}
			out <- &core.Trade{
				ID:        strconv.FormatInt(t.TradeID, 10),
				Symbol:    market.Symbol,
				Side:      side,
				Price:     deref(t.Price),
				Amount:    deref(t.Quantity),
				Timestamp: time.UnixMilli(t.TradeTime),
			}
		}
	}()
	return out, nil
}

type wsTicker struct {
	EventTime   int64        `json:"E"`
	Last        *apd.Decimal `json:"c"`
	Open        *apd.Decimal `json:"o"`
	High        *apd.Decimal `json:"h"`
	Low         *apd.Decimal `json:"l"`
	Bid         *apd.Decimal `json:"b"`
	Ask         *apd.Decimal `json:"a"`
	Change      *apd.Decimal `json:"p"`
	Percent     *apd.Decimal `json:"P"`
	Volume      *apd.Decimal `json:"v"`
	QuoteVolume *apd.Decimal `json:"q"`
}

// WatchTicker streams rolling 24h statistics for a market.
func (s *Stream) WatchTicker(market *core.Market) (<-chan *core.Ticker, error) {
	frames, err := s.subscribe(streamName(market, "ticker"))
	if err != nil {
		return nil, err
	}
	out := make(chan *core.Ticker, cap(frames))
	go func() {
		defer close(out)
		for frame := range frames {
			var t wsTicker
			if err := sonic.Unmarshal(frame, &t); err != nil {
				s.logger.Warn().Err(err).Msg("bad ticker frame")
				continue
			}
			out <- &core.Ticker{
				Symbol:      market.Symbol,
				Last:        t.Last,
				Open:        t.Open,
				High:        t.High,
				Low:         t.Low,
				Bid:         t.Bid,
				Ask:         t.Ask,
				Change:      t.Change,
				Percentage:  t.Percent,
				Volume:      t.Volume,
				QuoteVolume: t.QuoteVolume,
				Timestamp:   time.UnixMilli(t.EventTime),
			}
		}
	}()
	return out, nil
}

type wsKline struct {
	EventTime int64 `json:"E"`
	Kline     struct {
		Start  int64  `json:"t"`
		Open   string `json:"o"`
		High   string `json:"h"`
		Low    string `json:"l"`
		Close  string `json:"c"`
		Volume string `json:"v"`
		Closed bool   `json:"x"`
	} `json:"k"`
}

// WatchOHLCV streams candles for a timeframe. Only closed candles are
// delivered; in-progress updates are dropped.
func (s *Stream) WatchOHLCV(market *core.Market, timeframe string) (<-chan *core.OHLCV, error) {
	if _, ok := timeframes[timeframe]; !ok {
		return nil, core.NewRequestValidationError("unknown timeframe " + timeframe)
	}
	frames, err := s.subscribe(streamName(market, "kline_"+timeframe))
	if err != nil {
		return nil, err
	}
	out := make(chan *core.OHLCV, cap(frames))
	go func() {
		defer close(out)
		for frame := range frames {
			var k wsKline
			if err := sonic.Unmarshal(frame, &k); err != nil {
				s.logger.Warn().Err(err).Msg("bad kline frame")
				continue
			}
			if !k.Kline.Closed {
				continue
			}
			candle, err := parseWSKline(&k)
			if err != nil {
				s.logger.Warn().Err(err).Msg("bad kline values")
				continue
			}
			out <- candle
		}
	}()
	return out, nil
}

func parseWSKline(k *wsKline) (*core.OHLCV, error) {
	candle := &core.OHLCV{Timestamp: time.UnixMilli(k.Kline.Start)}
	fields := []struct {
		src string
		dst *apd.Decimal
	}{
		{k.Kline.Open, &candle.Open},
		{k.Kline.High, &candle.High},
		{k.Kline.Low, &candle.Low},
		{k.Kline.Close, &candle.Close},
		{k.Kline.Volume, &candle.Volume},
	}
	for _, f := range fields {
		d, err := precise.Parse(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = *d
	}
	return candle, nil
}
