package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

const MessPlaces = 2

// ParseAmount parses a rupee amount with at most two decimal places.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	unsigned := strings.TrimLeft(trimmed, "+-")
	if len(trimmed)-len(unsigned) > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.SplitN(unsigned, ".", 2)
	if parts[0] != "" && !isDigits(parts[0]) {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(parts) == 2 {
		if len(parts[1]) > MessPlaces {
			return decimal.Zero, ErrTooManyDecimals
		}
		if !isDigits(parts[1]) {
			return decimal.Zero, ErrInvalidAmount
		}
		if parts[0] == "" && parts[1] == "" {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(MessPlaces)
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(MessPlaces)
}

// CoinValue is the rupee value of coins at the given rate, rounded for storage.
func CoinValue(coins int64, rate decimal.Decimal) decimal.Decimal {
	return Round(decimal.NewFromInt(coins).Mul(rate))
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
