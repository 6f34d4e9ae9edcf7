package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Numeric is a best-effort number from user input. It accepts a JSON number,
// a numeric string or null; anything non-numeric reads as zero.
type Numeric struct {
	raw string
	set bool
}

// NewNumeric wraps raw user input.
func NewNumeric(raw string) Numeric {
	return Numeric{raw: raw, set: true}
}

// UnmarshalJSON never fails on a scalar: non-numeric values coerce to zero.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Numeric{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = NewNumeric(s)
		return nil
	}
	*n = NewNumeric(string(data))
	return nil
}

// IsSet reports whether a value (even a non-numeric one) was supplied.
func (n Numeric) IsSet() bool {
	return n.set
}

// Decimal returns the coerced value.
func (n Numeric) Decimal() decimal.Decimal {
	return SafeParse(n.raw)
}
