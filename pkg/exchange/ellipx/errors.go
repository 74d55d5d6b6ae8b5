package ellipx

import "tradewire/pkg/core"

// EllipX reports errors as string codes in the response envelope; the
// HTTP status usually repeats the family. Codes first, substrings after.
func newClassifier() *core.Classifier {
	return &core.Classifier{
		Exchange: "ellipx",
		Exact: map[string]core.ErrorType{
			"invalid_signature":    core.ErrorTypeAuthentication,
			"invalid_key":          core.ErrorTypeAuthentication,
			"expired_request":      core.ErrorTypeAuthentication,
			"forbidden":            core.ErrorTypePermissionDenied,
			"rate_limited":         core.ErrorTypeRateLimit,
			"invalid_market":       core.ErrorTypeBadSymbol,
			"order_not_found":      core.ErrorTypeOrderNotFound,
			"insufficient_balance": core.ErrorTypeInsufficientFunds,
			"invalid_order":        core.ErrorTypeInvalidOrder,
			"min_order_size":       core.ErrorTypeInvalidOrder,
		},
		Broad: []core.BroadRule{
			{Contains: "insufficient", Type: core.ErrorTypeInsufficientFunds},
			{Contains: "not found", Type: core.ErrorTypeOrderNotFound},
			{Contains: "maintenance", Type: core.ErrorTypeOnMaintenance},
		},
	}
}
