// Package core provides money parsing and handling utilities.
//
// Money wraps a shopspring decimal so ledger amounts never pass through
// float64. It is written to JSON as a bare number and accepts either a
// number or a quoted string when decoding.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed decimal amount.
type Money struct {
	decimal.Decimal
}

// NewMoney builds Money from an integer value and exponent, e.g.
// NewMoney(1234, -2) is 12.34.
func NewMoney(value int64, exp int32) Money {
	return Money{Decimal: decimal.New(value, exp)}
}

// MustMoney parses s and panics on failure. Meant for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a user-entered decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Grouping separators are not supported.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("-7")     -> -7
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// NewFromString also accepts exponents ("1e3"); ledger input does not.
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

// Equal reports whether m and o are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Format renders the amount with two decimals for display.
func (m Money) Format() string {
	return m.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts a bare number or a quoted string, with the same
// rules as ParseMoney. Exponent forms are rejected.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return ErrInvalidAmount
		}
		s = str
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
