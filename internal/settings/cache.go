package settings

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cachePrefix = "campuscoin:settings:"

type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedProvider is a Redis read-through cache in front of another Provider.
// Cache failures are logged and the wrapped provider answers instead.
type CachedProvider struct {
	next   Provider
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (p *CachedProvider) CoinsPerAttendance(ctx context.Context) (int64, error) {
	if raw, ok := p.get(ctx, KeyCoinsPerAttendance); ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
	}
	n, err := p.next.CoinsPerAttendance(ctx)
	if err != nil {
		return 0, err
	}
	p.set(ctx, KeyCoinsPerAttendance, strconv.FormatInt(n, 10))
	return n, nil
}

func (p *CachedProvider) CoinToRupeeRate(ctx context.Context) (decimal.Decimal, error) {
	if raw, ok := p.get(ctx, KeyCoinToRupeeRate); ok {
		if rate, err := decimal.NewFromString(raw); err == nil {
			return rate, nil
		}
	}
	rate, err := p.next.CoinToRupeeRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	p.set(ctx, KeyCoinToRupeeRate, rate.String())
	return rate, nil
}

func (p *CachedProvider) MinRedemptionCoins(ctx context.Context) (int64, error) {
	if raw, ok := p.get(ctx, KeyMinRedemptionCoins); ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
	}
	n, err := p.next.MinRedemptionCoins(ctx)
	if err != nil {
		return 0, err
	}
	p.set(ctx, KeyMinRedemptionCoins, strconv.FormatInt(n, 10))
	return n, nil
}

// Invalidate drops every cached setting so the next read goes to the store.
func (p *CachedProvider) Invalidate(ctx context.Context) error {
	return p.cache.Del(ctx, cachePrefix+KeyCoinsPerAttendance, cachePrefix+KeyCoinToRupeeRate, cachePrefix+KeyMinRedemptionCoins).Err()
}

func (p *CachedProvider) get(ctx context.Context, key string) (string, bool) {
	raw, err := p.cache.Get(ctx, cachePrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			p.logger.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return raw, true
}

func (p *CachedProvider) set(ctx context.Context, key, value string) {
	if err := p.cache.Set(ctx, cachePrefix+key, value, p.ttl).Err(); err != nil {
		p.logger.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
	}
}
