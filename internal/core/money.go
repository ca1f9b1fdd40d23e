// Package core provides the expense record type and amount handling.
//
// Amounts are kept as arbitrary-precision decimals so that a value typed on
// the command line is stored and printed back without float rounding.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal orders of magnitude representable by a float64.
const (
	maxMagnitude = 309
	minMagnitude = -324
)

// Amount is a monetary value. It is encoded in JSON as a bare number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromFloat is a convenience for tests and literals.
func AmountFromFloat(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

// ParseAmount converts user input to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators as well as
// exponent notation. Sign is not restricted; values outside the float64 range
// are rejected.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5
//	ParseAmount("12,50") -> 12.5
//	ParseAmount("-3")    -> -3
//	ParseAmount("1e2")   -> 100
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	// Normalize a lone decimal comma to a dot
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return checkRange(d, s)
}

// checkRange rejects values a float64 cannot hold. The magnitude bounds are
// checked first so that huge exponents are never expanded.
func checkRange(d decimal.Decimal, raw string) (Amount, error) {
	if d.IsZero() {
		return Amount{Decimal: decimal.Zero}, nil
	}
	mag := int64(d.NumDigits()) + int64(d.Exponent())
	if mag > maxMagnitude || mag < minMagnitude || math.IsInf(d.InexactFloat64(), 0) {
		return Amount{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, raw)
	}
	return Amount{Decimal: d}, nil
}

// Display formats the amount with two decimal places.
func (a Amount) Display() string {
	return a.StringFixed(2)
}

// Equal reports numeric equality, ignoring representation (5 == 5.00).
func (a Amount) Equal(other Amount) bool {
	return a.Decimal.Equal(other.Decimal)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	parsed, err := checkRange(d, string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
