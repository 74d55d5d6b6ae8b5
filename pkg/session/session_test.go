package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
	"tradewire/pkg/sign"
)

// stubProtocol talks a minimal JSON dialect good enough to exercise the
// pipeline: GET /markets returns a market list, GET /ticker a ticker,
// POST /mode an empty object or an error envelope.
type stubProtocol struct {
	baseURL string
	multi   bool
}

func (p *stubProtocol) Name() string              { return "stubex" }
func (p *stubProtocol) BaseURL(sandbox bool) string { return p.baseURL }

func (p *stubProtocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpFetchMarkets:
		req := core.NewRequest("GET", "/markets")
		if seg := core.StringOr(params, "segment", ""); seg != "" {
			req.SetQuery("segment", seg)
		}
		return req, nil
	case core.OpFetchTicker:
		symbol, err := core.RequiredString(params, "symbol")
		if err != nil {
			return nil, err
		}
		return core.NewRequest("GET", "/ticker").
			SetQuery("symbol", symbol).
			SetCache("ticker:"+symbol, time.Minute), nil
	case core.OpFetchBalance:
		return core.NewRequest("GET", "/balance").SetRequireAuth(true), nil
	case core.OpSetMarginMode:
		return core.NewRequest("POST", "/mode").SetRequireAuth(true), nil
	}
	return nil, core.NewNotSupportedError("stubex", op.String())
}

func (p *stubProtocol) Sign(req *core.Request, creds *core.Credentials) (*core.Request, error) {
	signed := req.Clone()
	signed.SetHeader("X-API-KEY", creds.APIKey)
	sig, err := sign.HMACSHA256Hex(creds.Secret, signed.QueryString())
	if err != nil {
		return nil, err
	}
	signed.SetQuery("signature", sig)
	return signed, nil
}

func (p *stubProtocol) ParseResponse(op core.Operation, statusCode int, body []byte) (any, error) {
	var envelope struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	decoded := sonic.Unmarshal(body, &envelope) == nil
	if statusCode >= 400 || (decoded && envelope.Code != "") {
		return nil, p.Classifier().Classify(statusCode, envelope.Code, envelope.Msg, body)
	}
	switch op {
	case core.OpFetchMarkets:
		var symbols []string
		if err := sonic.Unmarshal(body, &symbols); err != nil {
			return nil, err
		}
		markets := make([]*core.Market, len(symbols))
		for i, s := range symbols {
			markets[i] = &core.Market{ID: s, Symbol: s, Type: core.MarketSpot, Spot: true}
		}
		return markets, nil
	case core.OpFetchTicker:
		return &core.Ticker{Symbol: "BTC/USDT"}, nil
	default:
		return map[string]any{}, nil
	}
}

func (p *stubProtocol) Classifier() *core.Classifier {
	return &core.Classifier{
		Exchange: "stubex",
		Exact: map[string]core.ErrorType{
			"-4046": core.ErrorTypeNoChange,
		},
	}
}

func (p *stubProtocol) SupportedOperations() []core.Operation {
	return []core.Operation{core.OpFetchMarkets, core.OpFetchTicker, core.OpFetchBalance, core.OpSetMarginMode}
}

func (p *stubProtocol) RateLimits() []core.RateLimitBucket {
	return []core.RateLimitBucket{{Name: "orders", Limit: 100, Period: time.Minute}}
}

func (p *stubProtocol) MarketParams() []core.Params {
	if !p.multi {
		return []core.Params{nil}
	}
	return []core.Params{{"segment": "spot"}, {"segment": "swap"}}
}

func newTestSession(t *testing.T, handler http.Handler, mutate func(*core.Config)) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := core.DefaultConfig("stubex")
	cfg.MaxRetries = 0
	cfg.Credentials = &core.Credentials{APIKey: "k", Secret: "s"}
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, &stubProtocol{baseURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, srv
}

func TestDoParsesSuccess(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["BTCUSDT"]`))
	}), nil)

	v, err := s.Do(context.Background(), core.OpFetchMarkets, nil)
	require.NoError(t, err)
	markets := v.([]*core.Market)
	require.Len(t, markets, 1)
	assert.Equal(t, "BTCUSDT", markets[0].ID)
}

func TestDoClassifiesErrorEnvelope(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":"x","msg":"banned"}`))
	}), nil)

	_, err := s.Do(context.Background(), core.OpFetchMarkets, nil)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeDDoSProtection))
}

func TestDoSignsAuthenticatedRequests(t *testing.T) {
	var gotKey, gotQuery string
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}), nil)

	_, err := s.Do(context.Background(), core.OpFetchBalance, nil)
	require.NoError(t, err)
	assert.Equal(t, "k", gotKey)
	assert.Contains(t, gotQuery, "signature=")
}

func TestDoRequiresCredentials(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}), func(cfg *core.Config) {
		cfg.Credentials = nil
	})

	_, err := s.Do(context.Background(), core.OpFetchBalance, nil)
	assert.ErrorIs(t, err, core.ErrNoCredentials)
}

func TestDoCachesResponses(t *testing.T) {
	var hits atomic.Int32
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"symbol":"BTCUSDT"}`))
	}), nil)

	params := core.Params{"symbol": "BTC/USDT"}
	_, err := s.Do(context.Background(), core.OpFetchTicker, params)
	require.NoError(t, err)
	_, err = s.Do(context.Background(), core.OpFetchTicker, params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDoSuppressesNoChange(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"-4046","msg":"No need to change margin type."}`))
	}), func(cfg *core.Config) {
		cfg.SuppressNoChange = true
	})

	v, err := s.Do(context.Background(), core.OpSetMarginMode, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDoNoChangeSurfacesWhenNotSuppressed(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"-4046","msg":"No need to change margin type."}`))
	}), nil)

	_, err := s.Do(context.Background(), core.OpSetMarginMode, nil)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeNoChange))
}

func TestBreakerOpensOnServerFaults(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), func(cfg *core.Config) {
		cfg.CircuitBreakerFailThreshold = 2
	})

	for i := 0; i < 2; i++ {
		_, err := s.Do(context.Background(), core.OpFetchMarkets, nil)
		require.Error(t, err)
		assert.True(t, core.IsErrorType(err, core.ErrorTypeExchangeNotAvailable))
	}

	_, err := s.Do(context.Background(), core.OpFetchMarkets, nil)
	require.Error(t, err)
	exErr := err.(*core.ExchangeError)
	assert.Contains(t, exErr.Message, "circuit breaker open")
}

func TestLoadMarketsMergesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("segment") {
		case "swap":
			w.Write([]byte(`["BTCUSDT-PERP"]`))
		default:
			w.Write([]byte(`["BTCUSDT","ETHUSDT"]`))
		}
	}))
	defer srv.Close()

	cfg := core.DefaultConfig("stubex")
	cfg.MaxRetries = 0
	s, err := New(cfg, &stubProtocol{baseURL: srv.URL, multi: true})
	require.NoError(t, err)
	defer s.Close()

	markets, err := s.LoadMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, markets, 3)
	assert.True(t, s.Registry().Loaded())

	m, err := s.Resolve("ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", m.Symbol)
}

func TestClosedSessionRejectsRequests(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}), nil)

	require.NoError(t, s.Close())
	_, err := s.Do(context.Background(), core.OpFetchMarkets, nil)
	assert.ErrorIs(t, err, core.ErrSessionClosed)
}
