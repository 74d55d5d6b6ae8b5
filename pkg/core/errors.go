package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType is the exchange-agnostic error taxonomy. Callers receive
// exactly one of these kinds for every failed wire interaction, never a
// raw HTTP status or unparsed JSON, so retry policy can be written once
// against the taxonomy.
type ErrorType int

// Error taxonomy constants.
const (
	// ErrorTypeExchange is the generic catch-all when no specific
	// classification applies.
	ErrorTypeExchange ErrorType = iota
	// ErrorTypeAuthentication covers bad or missing credentials, invalid
	// signatures and expired timestamp windows.
	ErrorTypeAuthentication
	// ErrorTypePermissionDenied means the credentials are valid but lack
	// rights for the action.
	ErrorTypePermissionDenied
	// ErrorTypeInsufficientFunds means the balance cannot cover the
	// requested trade or transfer.
	ErrorTypeInsufficientFunds
	// ErrorTypeInvalidOrder means the order parameters violate exchange
	// rules.
	ErrorTypeInvalidOrder
	// ErrorTypeOrderNotFound means the referenced order does not exist.
	ErrorTypeOrderNotFound
	// ErrorTypeBadSymbol means the referenced market does not exist or
	// cannot be resolved.
	ErrorTypeBadSymbol
	// ErrorTypeBadRequest is a malformed request not covered by a more
	// specific kind.
	ErrorTypeBadRequest
	// ErrorTypeRateLimit means too many requests; back off and retry.
	ErrorTypeRateLimit
	// ErrorTypeDDoSProtection means the exchange's protection layer
	// rejected the request; back off harder.
	ErrorTypeDDoSProtection
	// ErrorTypeExchangeNotAvailable means the exchange itself is down.
	ErrorTypeExchangeNotAvailable
	// ErrorTypeOnMaintenance means the exchange is in maintenance.
	ErrorTypeOnMaintenance
	// ErrorTypeNotSupported means the operation is not implemented for
	// this market type on this exchange.
	ErrorTypeNotSupported
	// ErrorTypeNetwork is a transport-level connectivity failure.
	ErrorTypeNetwork
	// ErrorTypeNoChange marks server rejections of actions that were
	// already in the requested state (e.g. margin mode already set).
	ErrorTypeNoChange
	// ErrorTypeRequestValidation is client-side misuse detected before
	// any network call, distinct from the wire-level taxonomy.
	ErrorTypeRequestValidation
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"EXCHANGE_ERROR",
		"AUTHENTICATION",
		"PERMISSION_DENIED",
		"INSUFFICIENT_FUNDS",
		"INVALID_ORDER",
		"ORDER_NOT_FOUND",
		"BAD_SYMBOL",
		"BAD_REQUEST",
		"RATE_LIMIT",
		"DDOS_PROTECTION",
		"EXCHANGE_NOT_AVAILABLE",
		"ON_MAINTENANCE",
		"NOT_SUPPORTED",
		"NETWORK",
		"NO_CHANGE",
		"REQUEST_VALIDATION",
	}[t]
}

// Retryable reports whether a caller-side retry policy may reasonably
// retry this kind of failure.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeDDoSProtection, ErrorTypeExchangeNotAvailable,
		ErrorTypeOnMaintenance, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// Sentinel errors for common client-state conditions.
var (
	// ErrNoCredentials is returned when a private endpoint is called
	// without configured API credentials.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrSessionClosed is returned when using a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrMarketsNotLoaded is returned when symbol resolution is attempted
	// before market metadata has been loaded.
	ErrMarketsNotLoaded = errors.New("markets not loaded")
)

// ExchangeError is a classified failure. It carries the taxonomy kind,
// the originating exchange, the raw response body for diagnostics, and
// the exchange-specific code when one was reported. Secrets are never
// embedded in the message.
type ExchangeError struct {
	Type       ErrorType `json:"type"`
	StatusCode int       `json:"status_code,omitempty"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Exchange   string    `json:"exchange,omitempty"`
	// Raw preserves the original response body.
	Raw       []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s", e.Exchange, e.Type, e.StatusCode, e.Code, e.Message)
	}
	if e.Exchange != "" {
		return fmt.Sprintf("[%s] %s (%d): %s", e.Exchange, e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewExchangeError creates a classified error.
func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode creates a classified error that carries the
// exchange-specific error code.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	e := NewExchangeError(exchange, errorType, statusCode, message)
	e.Code = code
	return e
}

// NewRequestValidationError creates a client-side validation error raised
// before any network call.
func NewRequestValidationError(message string) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeRequestValidation,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewAuthenticationError creates an authentication failure, used for
// fail-fast credential checks in signers.
func NewAuthenticationError(exchange, message string) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeAuthentication,
		Message:   message,
		Exchange:  exchange,
		Timestamp: time.Now(),
	}
}

// NewNotSupportedError marks an operation with no endpoint for the given
// market classification.
func NewNotSupportedError(exchange, message string) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeNotSupported,
		Message:   message,
		Exchange:  exchange,
		Timestamp: time.Now(),
	}
}

// NewBadSymbolError marks an unresolvable market reference.
func NewBadSymbolError(exchange, symbol string) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeBadSymbol,
		Message:   fmt.Sprintf("unknown market %q", symbol),
		Exchange:  exchange,
		Timestamp: time.Now(),
	}
}

// IsErrorType reports whether err is an ExchangeError of the given kind.
func IsErrorType(err error, t ErrorType) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr.Type == t
	}
	return false
}

// IsRetryable reports whether the classified kind of err permits a
// caller-side retry.
func IsRetryable(err error) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr.Type.Retryable()
	}
	return false
}
