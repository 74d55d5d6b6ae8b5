package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
)

func testConfig() *core.Config {
	cfg := core.DefaultConfig("testex")
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	return cfg
}

func TestDoPreservesQueryOrder(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), zerolog.Nop())
	defer c.Close()

	req := core.NewRequest("GET", "/api/v3/order").
		SetQuery("symbol", "BTCUSDT").
		SetQuery("timestamp", int64(1234567890)).
		SetQuery("signature", "abc")
	req.BaseURL = srv.URL

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "symbol=BTCUSDT&timestamp=1234567890&signature=abc", gotQuery)
}

func TestDoSendsHeadersAndBody(t *testing.T) {
	var gotKey, gotCT, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-MBX-APIKEY")
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), zerolog.Nop())
	defer c.Close()

	req := core.NewRequest("POST", "/api/v3/order").
		SetHeader("X-MBX-APIKEY", "key123").
		SetBody("symbol=BTCUSDT&side=BUY", "application/x-www-form-urlencoded")
	req.BaseURL = srv.URL

	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "key123", gotKey)
	assert.Equal(t, "application/x-www-form-urlencoded", gotCT)
	assert.Equal(t, "symbol=BTCUSDT&side=BUY", gotBody)
}

func TestDoReturnsErrorStatusBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), zerolog.Nop())
	defer c.Close()

	req := core.NewRequest("GET", "/api/v3/ticker")
	req.BaseURL = srv.URL

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, 400, resp.StatusCode)
	assert.JSONEq(t, `{"code":-1121,"msg":"Invalid symbol."}`, string(resp.Body))
}

func TestDoNetworkError(t *testing.T) {
	c := NewClient(testConfig(), zerolog.Nop())
	defer c.Close()

	req := core.NewRequest("GET", "/x")
	req.BaseURL = "http://127.0.0.1:1"

	_, err := c.Do(context.Background(), req)
	assert.Error(t, err)
}
