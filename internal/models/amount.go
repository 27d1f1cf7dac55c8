package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxAmount is the largest representable amount (12 digits, 2 of them decimals).
const MaxAmount Amount = 999_999_999_999

var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a money value in integer cents.
// It marshals to JSON as a plain number with exactly two decimals (e.g. 100.50).
type Amount int64

// ParseAmount parses a decimal string such as "100", "-5" or "12.3" into cents.
// More than two significant fractional digits, exponents and values above MaxAmount are rejected.
// Negative values parse successfully; callers decide whether they are allowed.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	// 100.500 is still exactly 100.50
	frac = strings.TrimRight(frac, "0")
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: at most 2 decimal places allowed", ErrInvalidAmount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(whole) > 10 {
		return 0, fmt.Errorf("%w: value too large", ErrInvalidAmount)
	}

	var cents int64
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		cents = w * 100
	}
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		cents += f
	}

	if Amount(cents) > MaxAmount {
		return 0, fmt.Errorf("%w: value too large", ErrInvalidAmount)
	}
	if negative {
		cents = -cents
	}
	return Amount(cents), nil
}

// String formats the amount with two decimals, e.g. "-5.00".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
