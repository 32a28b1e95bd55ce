// Package money represents prices as integer minor units (cents) so cart
// totals never accumulate floating point drift.
//
// Amounts travel as JSON numbers or strings with at most two fractional
// digits ("10", 10.5, "25.50") and are always written back with exactly two
// ("35.50").
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (1 = 0.01).
type Amount int64

// ErrInvalidAmount is returned for malformed, negative or over-precise input.
var ErrInvalidAmount = errors.New("money: invalid amount")

// Parse converts decimal text into an Amount without going through float64.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && frac == "") || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return Amount(units*100 + cents), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from minor units.
func FromCents(c int64) Amount { return Amount(c) }

// Cents returns the value in minor units.
func (a Amount) Cents() int64 { return int64(a) }

// String renders the amount with two fractional digits, e.g. "35.50".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 is for display and metrics only; never for arithmetic.
func (a Amount) Float64() float64 { return float64(a) / 100 }

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a JSON string holding a decimal.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
		}
	} else if strings.ContainsAny(text, "eE") {
		return fmt.Errorf("%w: exponent notation %s", ErrInvalidAmount, b)
	}

	v, err := Parse(text)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Sum adds amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total int64
	for _, v := range amounts {
		if v < 0 {
			return 0, fmt.Errorf("%w: negative line amount %s", ErrInvalidAmount, v)
		}
		if total > math.MaxInt64-int64(v) {
			return 0, fmt.Errorf("%w: total overflows", ErrInvalidAmount)
		}
		total += int64(v)
	}
	return Amount(total), nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
