package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Params carries caller-supplied parameters into BuildRequest. Explicit
// caller params override adapter-computed defaults, which override global
// configuration options.
type Params map[string]any

// QueryParam is one key/value pair of a request query string.
type QueryParam struct {
	Key   string
	Value string
}

// Request is a transport-agnostic HTTP request descriptor. Query parameter
// order is preserved: signed exchanges validate the canonical string
// byte-for-byte, so the encoded order must match what the signer saw.
type Request struct {
	Method string `json:"method"`
	// BaseURL overrides the protocol default when an endpoint family
	// lives on a different host.
	BaseURL     string            `json:"base_url,omitempty"`
	Path        string            `json:"path"`
	Query       []QueryParam      `json:"query,omitempty"`
	Body        string            `json:"body,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	// Weight is the request cost against the exchange rate limit.
	Weight int `json:"weight"`
	// Bucket selects the rate limit bucket ("" for the global one).
	Bucket      string        `json:"bucket,omitempty"`
	CacheKey    string        `json:"cache_key,omitempty"`
	CacheTTL    time.Duration `json:"cache_ttl,omitempty"`
	RequireAuth bool          `json:"require_auth"`
}

// NewRequest creates a request descriptor for the given method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Headers: make(map[string]string),
		Path:    path,
		Weight:  1,
	}
}

// SetQuery appends a query parameter, replacing the value in place if the
// key is already present.
func (r *Request) SetQuery(key string, value any) *Request {
	v := formatParam(value)
	for i := range r.Query {
		if r.Query[i].Key == key {
			r.Query[i].Value = v
			return r
		}
	}
	r.Query = append(r.Query, QueryParam{Key: key, Value: v})
	return r
}

// HasQuery reports whether the key is already present.
func (r *Request) HasQuery(key string) bool {
	for i := range r.Query {
		if r.Query[i].Key == key {
			return true
		}
	}
	return false
}

// QueryString encodes the query parameters in insertion order.
func (r *Request) QueryString() string {
	var b strings.Builder
	for i, p := range r.Query {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// SetBaseURL sets the host override for this request.
func (r *Request) SetBaseURL(u string) *Request {
	r.BaseURL = u
	return r
}

// SetBody sets the raw request body and content type.
func (r *Request) SetBody(body, contentType string) *Request {
	r.Body = body
	r.ContentType = contentType
	return r
}

// SetHeader sets a request header.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetWeight sets the rate limit cost of this request.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetBucket assigns the request to a named rate limit bucket.
func (r *Request) SetBucket(bucket string) *Request {
	r.Bucket = bucket
	return r
}

// SetCache marks the response cacheable under key for ttl.
func (r *Request) SetCache(key string, ttl time.Duration) *Request {
	r.CacheKey = key
	r.CacheTTL = ttl
	return r
}

// SetRequireAuth flags the request for signing before dispatch.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

// Clone returns a deep copy so signers can return a fresh signed
// descriptor without mutating their input.
func (r *Request) Clone() *Request {
	c := *r
	c.Query = make([]QueryParam, len(r.Query))
	copy(c.Query, r.Query)
	c.Headers = make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		c.Headers[k] = v
	}
	return &c
}

func formatParam(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// RequiredString extracts a mandatory string parameter, failing with a
// request-validation error before any network call is attempted.
func RequiredString(params Params, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", NewRequestValidationError(fmt.Sprintf("missing required parameter: %s", key))
	}
	str, ok := val.(string)
	if !ok {
		return "", NewRequestValidationError(fmt.Sprintf("parameter %s must be a string", key))
	}
	if str == "" {
		return "", NewRequestValidationError(fmt.Sprintf("parameter %s cannot be empty", key))
	}
	return str, nil
}

// StringOr returns the string parameter under key, or def when absent.
func StringOr(params Params, key, def string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str
		}
	}
	return def
}

// IntOr returns the integer parameter under key, or def when absent.
func IntOr(params Params, key string, def int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return def
}

// Int64Or returns the 64-bit integer parameter under key, or def.
func Int64Or(params Params, key string, def int64) int64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i
			}
		}
	}
	return def
}
