package core

import (
	"strings"
)

// BroadRule maps a message substring to a taxonomy kind. Rules are checked
// in declaration order.
type BroadRule struct {
	Contains string
	Type     ErrorType
}

// Classifier maps one exchange's error surface onto the shared taxonomy.
// Check order: exact code/message match, broad substring match, HTTP
// status fallback. First match wins; when nothing matches the result is
// the generic exchange error kind with the raw body preserved.
type Classifier struct {
	// Exchange is the adapter identifier stamped into produced errors.
	Exchange string
	// Exact maps exchange error codes (or exact messages) to kinds.
	Exact map[string]ErrorType
	// Broad is an ordered substring match table.
	Broad []BroadRule
}

// Classify produces exactly one taxonomy kind for a failed response. It is
// total: any status >= 400 with any body yields a classified error.
func (c *Classifier) Classify(statusCode int, code, message string, raw []byte) *ExchangeError {
	msg := message
	if msg == "" {
		msg = string(raw)
	}
	e := NewExchangeError(c.Exchange, c.lookup(statusCode, code, message), statusCode, msg)
	e.Code = code
	e.Raw = raw
	return e
}

func (c *Classifier) lookup(statusCode int, code, message string) ErrorType {
	if code != "" {
		if t, ok := c.Exact[code]; ok {
			return t
		}
	}
	if message != "" {
		if t, ok := c.Exact[message]; ok {
			return t
		}
		for _, rule := range c.Broad {
			if strings.Contains(message, rule.Contains) {
				return rule.Type
			}
		}
	}
	return StatusFallback(statusCode)
}

// StatusFallback classifies by HTTP status alone. 418 and 429 map to the
// rate limit family regardless of body, per exchange convention.
func StatusFallback(statusCode int) ErrorType {
	switch statusCode {
	case 418:
		return ErrorTypeDDoSProtection
	case 429:
		return ErrorTypeRateLimit
	case 401:
		return ErrorTypeAuthentication
	case 403:
		return ErrorTypePermissionDenied
	case 404:
		return ErrorTypeBadRequest
	case 400, 422:
		return ErrorTypeBadRequest
	case 503:
		return ErrorTypeExchangeNotAvailable
	}
	if statusCode >= 500 {
		return ErrorTypeExchangeNotAvailable
	}
	return ErrorTypeExchange
}
