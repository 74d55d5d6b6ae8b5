// Package transport executes the HTTP requests adapters describe. It is
// deliberately dumb: no signing, no classification, no retries beyond the
// transport level. The encoded query string is passed through verbatim so
// the bytes on the wire match what the signer saw.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"tradewire/pkg/core"
)

// Client wraps a resty client with request logging.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
}

// Response is a raw HTTP exchange result.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// NewClient builds a transport client from the session configuration.
// Transport-level retries cover connection failures only; HTTP error
// statuses are returned to the caller for classification.
func NewClient(cfg *core.Config, logger zerolog.Logger) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax)

	return &Client{
		client: client,
		logger: logger,
	}
}

// Do executes the request against its base URL. The query string is
// appended pre-encoded; resty never re-encodes it.
func (c *Client) Do(ctx context.Context, req *core.Request) (*Response, error) {
	url := c.buildURL(req)

	r := c.client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if req.Body != "" {
		if req.ContentType != "" {
			r.SetHeader("Content-Type", req.ContentType)
		}
		r.SetBody(req.Body)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("weight", req.Weight).
		Msg("http request")

	resp, err := r.Execute(req.Method, url)
	if err != nil {
		c.logger.Error().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("http request failed")
		return nil, fmt.Errorf("http request: %w", err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode()).
		Int("size", len(resp.Bytes())).
		Msg("http response")

	headers := make(map[string]string)
	for k, v := range resp.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    headers,
	}, nil
}

func (c *Client) buildURL(req *core.Request) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(req.BaseURL, "/"))
	b.WriteString(req.Path)
	if qs := req.QueryString(); qs != "" {
		b.WriteByte('?')
		b.WriteString(qs)
	}
	return b.String()
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.client.Close()
}
