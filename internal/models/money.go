package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in INR minor units (paise).
type Money int64

var (
	ErrInvalidMoney  = errors.New("invalid money amount")
	ErrNegativeMoney = errors.New("money amount cannot be negative")
)

// Rupees converts a whole rupee amount to Money
func Rupees(r int64) Money {
	return Money(r * 100)
}

// Paise returns the amount in minor units, as the payment gateway expects it
func (m Money) Paise() int64 {
	return int64(m)
}

// String formats the amount as a decimal with two fraction digits ("49999.90")
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney parses a non-negative decimal string such as "49999.9" or "349000.00".
// Fraction digits beyond the second must be zero.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeMoney
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(whole) > 13 || !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("%w: %q has more than two decimal places", ErrInvalidMoney, s)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMoney, err)
	}
	paise, _ := strconv.ParseInt(frac, 10, 64)
	return Money(rupees*100 + paise), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the amount as a JSON number with two decimals
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return ErrInvalidMoney
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value implements driver.Valuer for NUMERIC(12,2) columns
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		if v < 0 {
			return ErrNegativeMoney
		}
		*m = Rupees(v)
		return nil
	case float64:
		return m.scanString(strconv.FormatFloat(v, 'f', -1, 64))
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidMoney)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidMoney, src)
	}
}

func (m *Money) scanString(s string) error {
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
