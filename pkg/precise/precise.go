// Package precise implements exact base-10 arithmetic on decimal strings.
// Exchange prices and quantities routinely exceed the safe range of binary
// floating point, so every precision-sensitive field in this library is
// carried as an arbitrary-precision decimal backed by cockroachdb/apd.
package precise

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// DefaultDivPlaces is the decimal-place cutoff used by Div when the caller
// has no better bound for the quotient.
const DefaultDivPlaces = 18

// workingPrecision bounds intermediate digits. Fifty significant digits is
// far beyond any quantity an exchange reports (satoshi-level amounts need
// fewer than twenty).
const workingPrecision = 50

var ctx = apd.BaseContext.WithPrecision(workingPrecision)

// Parse converts a decimal string into an apd.Decimal.
// A malformed (non-numeric) input yields an error, never a silent zero.
func Parse(s string) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, _, err := ctx.SetString(d, s); err != nil {
		return nil, fmt.Errorf("precise: invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) *apd.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders d in plain (non-scientific) notation.
func String(d *apd.Decimal) string {
	return d.Text('f')
}

// Add returns a + b.
func Add(a, b *apd.Decimal) *apd.Decimal {
	r := new(apd.Decimal)
	_, _ = ctx.Add(r, a, b)
	return r
}

// Sub returns a - b.
func Sub(a, b *apd.Decimal) *apd.Decimal {
	r := new(apd.Decimal)
	_, _ = ctx.Sub(r, a, b)
	return r
}

// Mul returns a * b.
func Mul(a, b *apd.Decimal) *apd.Decimal {
	r := new(apd.Decimal)
	_, _ = ctx.Mul(r, a, b)
	return r
}

// Div returns a / b truncated (never rounded up) at the given number of
// decimal places. Division by zero is an error.
func Div(a, b *apd.Decimal, places int32) (*apd.Decimal, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("precise: division by zero")
	}
	r := new(apd.Decimal)
	if _, err := ctx.Quo(r, a, b); err != nil {
		return nil, fmt.Errorf("precise: div: %w", err)
	}
	return Truncate(r, places), nil
}

// Mod returns the remainder of a / b.
func Mod(a, b *apd.Decimal) (*apd.Decimal, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("precise: modulo by zero")
	}
	r := new(apd.Decimal)
	if _, err := ctx.Rem(r, a, b); err != nil {
		return nil, fmt.Errorf("precise: mod: %w", err)
	}
	return r, nil
}

// Abs returns |a|.
func Abs(a *apd.Decimal) *apd.Decimal {
	r := new(apd.Decimal)
	_, _ = ctx.Abs(r, a)
	return r
}

// Neg returns -a.
func Neg(a *apd.Decimal) *apd.Decimal {
	r := new(apd.Decimal)
	_, _ = ctx.Neg(r, a)
	return r
}

// Cmp compares a and b numerically: "1.0" and "1.00" are equal.
func Cmp(a, b *apd.Decimal) int {
	return a.Cmp(b)
}

// Equal reports whether a and b are numerically equal regardless of
// representation.
func Equal(a, b *apd.Decimal) bool {
	return a.Cmp(b) == 0
}

// Lt reports a < b.
func Lt(a, b *apd.Decimal) bool { return a.Cmp(b) < 0 }

// Gt reports a > b.
func Gt(a, b *apd.Decimal) bool { return a.Cmp(b) > 0 }

// Min returns the numerically smaller of a and b.
func Min(a, b *apd.Decimal) *apd.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the numerically larger of a and b.
func Max(a, b *apd.Decimal) *apd.Decimal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// IsNegative reports whether a is strictly below zero.
func IsNegative(a *apd.Decimal) bool {
	return a.Sign() < 0
}

// Truncate cuts a at the given number of decimal places without rounding.
func Truncate(a *apd.Decimal, places int32) *apd.Decimal {
	c := ctx.WithPrecision(workingPrecision)
	c.Rounding = apd.RoundDown
	r := new(apd.Decimal)
	if _, err := c.Quantize(r, a, -places); err != nil {
		// Quantize only fails when the integral part alone exceeds the
		// working precision; fall back to the unquantized value.
		return a
	}
	return r
}

// RoundHalfUp rounds a to the given number of decimal places, ties away
// from zero. Used for liquidation price display.
func RoundHalfUp(a *apd.Decimal, places int32) *apd.Decimal {
	c := ctx.WithPrecision(workingPrecision)
	c.Rounding = apd.RoundHalfUp
	r := new(apd.Decimal)
	if _, err := c.Quantize(r, a, -places); err != nil {
		return a
	}
	return r
}

// DecimalsFromIncrement derives a decimal-place count from a tick size or
// step string: "0.00000100" has 6 places, "1" and "10" have 0.
func DecimalsFromIncrement(s string) (int32, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if d.IsZero() {
		return 0, fmt.Errorf("precise: zero increment %q", s)
	}
	var reduced apd.Decimal
	reduced.Reduce(d)
	if reduced.Exponent >= 0 {
		return 0, nil
	}
	return -reduced.Exponent, nil
}

// StringAdd adds two decimal strings. Helpers in the String* family parse,
// compute, and re-render in one step for normalizer call sites that work
// on raw wire values.
func StringAdd(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return String(Add(x, y)), nil
}

// StringSub subtracts decimal string b from a.
func StringSub(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return String(Sub(x, y)), nil
}

// StringMul multiplies two decimal strings.
func StringMul(a, b string) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return String(Mul(x, y)), nil
}

// StringDiv divides decimal string a by b, truncating at places.
func StringDiv(a, b string, places int32) (string, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	q, err := Div(x, y, places)
	if err != nil {
		return "", err
	}
	return String(q), nil
}

func parsePair(a, b string) (*apd.Decimal, *apd.Decimal, error) {
	x, err := Parse(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := Parse(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
