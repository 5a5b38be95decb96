// Package settings supplies the tunable rates used by the ledger services.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	KeyCoinsPerAttendance = "coins_per_attendance"
	KeyCoinToRupeeRate    = "coin_to_rupee_rate"
	KeyMinRedemptionCoins = "min_redemption_coins"
)

var (
	ErrInvalidSetting = errors.New("invalid setting value")
	ErrUnknownSetting = errors.New("unknown setting")
)

type Provider interface {
	CoinsPerAttendance(ctx context.Context) (int64, error)
	CoinToRupeeRate(ctx context.Context) (decimal.Decimal, error)
	MinRedemptionCoins(ctx context.Context) (int64, error)
}

// Static serves fixed values.
type Static struct {
	Coins    int64
	Rate     decimal.Decimal
	MinCoins int64
}

func Defaults() Static {
	return Static{Coins: 10, Rate: decimal.NewFromInt(1), MinCoins: 50}
}

func (s Static) CoinsPerAttendance(context.Context) (int64, error) {
	return s.Coins, nil
}

func (s Static) CoinToRupeeRate(context.Context) (decimal.Decimal, error) {
	return s.Rate, nil
}

func (s Static) MinRedemptionCoins(context.Context) (int64, error) {
	return s.MinCoins, nil
}

type Source interface {
	Get(ctx context.Context, key string) (string, error)
}

// StoreProvider reads system_settings and falls back to defaults for missing keys.
type StoreProvider struct {
	source   Source
	defaults Static
}

func NewStoreProvider(source Source) *StoreProvider {
	return &StoreProvider{source: source, defaults: Defaults()}
}

func (p *StoreProvider) CoinsPerAttendance(ctx context.Context) (int64, error) {
	raw, ok, err := p.lookup(ctx, KeyCoinsPerAttendance)
	if err != nil || !ok {
		return p.defaults.Coins, err
	}
	return parseCount(KeyCoinsPerAttendance, raw)
}

func (p *StoreProvider) CoinToRupeeRate(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := p.lookup(ctx, KeyCoinToRupeeRate)
	if err != nil || !ok {
		return p.defaults.Rate, err
	}
	return parseRate(raw)
}

func (p *StoreProvider) MinRedemptionCoins(ctx context.Context) (int64, error) {
	raw, ok, err := p.lookup(ctx, KeyMinRedemptionCoins)
	if err != nil || !ok {
		return p.defaults.MinCoins, err
	}
	return parseCount(KeyMinRedemptionCoins, raw)
}

func (p *StoreProvider) lookup(ctx context.Context, key string) (string, bool, error) {
	raw, err := p.source.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, nil
	}
	return raw, true, nil
}

// Validate checks a value before it is written to system_settings.
func Validate(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyCoinsPerAttendance:
		_, err := parseCount(key, value)
		return err
	case KeyMinRedemptionCoins:
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s must be at least 1", ErrInvalidSetting, key)
		}
		return nil
	case KeyCoinToRupeeRate:
		_, err := parseRate(value)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
}

func parseCount(key, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, key, raw)
	}
	return n, nil
}

// minRate keeps a single coin worth at least one paisa.
var minRate = decimal.New(1, -2)

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.LessThan(minRate) {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, KeyCoinToRupeeRate, raw)
	}
	return rate, nil
}
