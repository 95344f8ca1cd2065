package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/orderappu/recon-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCache backs both the order-flags snapshot (fed by fulfillment events)
// and the resolved-price cache.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) OrderFlags(ctx context.Context, orderID string) (usecase.OrderFlags, bool, error) {
	raw, err := r.rdb.Get(ctx, "order:flags:"+orderID).Result()
	if err == redis.Nil {
		return usecase.OrderFlags{}, false, nil
	}
	if err != nil {
		return usecase.OrderFlags{}, false, err
	}
	var f usecase.OrderFlags
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return usecase.OrderFlags{}, false, err
	}
	return f, true, nil
}

func (r *RedisCache) SetOrderFlags(ctx context.Context, orderID string, f usecase.OrderFlags) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	// Flags have no TTL: a loading slip never un-generates, and event updates
	// overwrite in place.
	return r.rdb.Set(ctx, "order:flags:"+orderID, b, 0).Err()
}

func (r *RedisCache) GetPrice(ctx context.Context, customerID, productID string) (int64, bool, error) {
	raw, err := r.rdb.Get(ctx, "price:"+customerID+":"+productID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	cents, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return cents, true, nil
}

func (r *RedisCache) SetPrice(ctx context.Context, customerID, productID string, cents int64) error {
	return r.rdb.Set(ctx, "price:"+customerID+":"+productID, strconv.FormatInt(cents, 10), r.ttl).Err()
}

var (
	_ usecase.SnapshotStore = (*RedisCache)(nil)
	_ usecase.PriceCache    = (*RedisCache)(nil)
)
