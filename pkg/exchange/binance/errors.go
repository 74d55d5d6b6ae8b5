package binance

import "tradewire/pkg/core"

// Error tables for the Binance REST surface. Codes are shared across the
// spot and futures APIs; messages cover the error shapes that ship
// without a usable code. Broad rules run in order after the exact table.
func newClassifier() *core.Classifier {
	return &core.Classifier{
		Exchange: "binance",
		Exact: map[string]core.ErrorType{
			"-1000": core.ErrorTypeExchange,
			"-1001": core.ErrorTypeExchangeNotAvailable,
			"-1002": core.ErrorTypeAuthentication,
			"-1003": core.ErrorTypeRateLimit,
			"-1006": core.ErrorTypeExchangeNotAvailable,
			"-1007": core.ErrorTypeExchangeNotAvailable,
			"-1013": core.ErrorTypeInvalidOrder,
			"-1015": core.ErrorTypeRateLimit,
			"-1016": core.ErrorTypeExchangeNotAvailable,
			"-1020": core.ErrorTypeNotSupported,
			"-1021": core.ErrorTypeAuthentication,
			"-1022": core.ErrorTypeAuthentication,
			"-1100": core.ErrorTypeBadRequest,
			"-1101": core.ErrorTypeBadRequest,
			"-1102": core.ErrorTypeBadRequest,
			"-1103": core.ErrorTypeBadRequest,
			"-1104": core.ErrorTypeBadRequest,
			"-1105": core.ErrorTypeBadRequest,
			"-1106": core.ErrorTypeBadRequest,
			"-1111": core.ErrorTypeInvalidOrder,
			"-1112": core.ErrorTypeInvalidOrder,
			"-1114": core.ErrorTypeInvalidOrder,
			"-1115": core.ErrorTypeInvalidOrder,
			"-1116": core.ErrorTypeInvalidOrder,
			"-1117": core.ErrorTypeInvalidOrder,
			"-1118": core.ErrorTypeInvalidOrder,
			"-1119": core.ErrorTypeInvalidOrder,
			"-1120": core.ErrorTypeBadRequest,
			"-1121": core.ErrorTypeBadSymbol,
			"-1125": core.ErrorTypeAuthentication,
			"-1127": core.ErrorTypeBadRequest,
			"-1128": core.ErrorTypeBadRequest,
			"-1130": core.ErrorTypeBadRequest,
			"-1131": core.ErrorTypeBadRequest,
			"-2008": core.ErrorTypeAuthentication,
			"-2010": core.ErrorTypeInsufficientFunds,
			"-2011": core.ErrorTypeOrderNotFound,
			"-2013": core.ErrorTypeOrderNotFound,
			"-2014": core.ErrorTypeAuthentication,
			"-2015": core.ErrorTypeAuthentication,
			"-2016": core.ErrorTypeExchangeNotAvailable,
			"-2018": core.ErrorTypeInsufficientFunds,
			"-2019": core.ErrorTypeInsufficientFunds,
			"-2020": core.ErrorTypeInvalidOrder,
			"-2021": core.ErrorTypeInvalidOrder,
			"-2022": core.ErrorTypeInvalidOrder,
			"-2025": core.ErrorTypeInvalidOrder,
			"-2026": core.ErrorTypeInvalidOrder,
			"-3008": core.ErrorTypeInsufficientFunds,
			"-4028": core.ErrorTypeInvalidOrder,
			"-4046": core.ErrorTypeNoChange,
			"-4047": core.ErrorTypeInvalidOrder,
			"-4048": core.ErrorTypeInvalidOrder,
			"-4051": core.ErrorTypeInsufficientFunds,
			"-4164": core.ErrorTypeInvalidOrder,
			"-5021": core.ErrorTypeInvalidOrder,
			"-5022": core.ErrorTypeInvalidOrder,

			"Order would trigger immediately.":                       core.ErrorTypeInvalidOrder,
			"Account has insufficient balance for requested action.": core.ErrorTypeInsufficientFunds,
			"Rest API trading is not enabled.":                       core.ErrorTypePermissionDenied,
			"You don't have permission.":                             core.ErrorTypePermissionDenied,
			"Market is closed.":                                      core.ErrorTypeExchangeNotAvailable,
			"Unknown order sent.":                                    core.ErrorTypeOrderNotFound,
			"Order does not exist.":                                  core.ErrorTypeOrderNotFound,
		},
		Broad: []core.BroadRule{
			{Contains: "Insufficient", Type: core.ErrorTypeInsufficientFunds},
			{Contains: "has no operation privilege", Type: core.ErrorTypePermissionDenied},
			{Contains: "MAX_NUM_ORDERS", Type: core.ErrorTypeInvalidOrder},
			{Contains: "MIN_NOTIONAL", Type: core.ErrorTypeInvalidOrder},
			{Contains: "LOT_SIZE", Type: core.ErrorTypeInvalidOrder},
			{Contains: "PRICE_FILTER", Type: core.ErrorTypeInvalidOrder},
			{Contains: "System abnormality", Type: core.ErrorTypeExchangeNotAvailable},
			{Contains: "maintenance", Type: core.ErrorTypeOnMaintenance},
		},
	}
}
