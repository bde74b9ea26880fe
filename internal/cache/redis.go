package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/velmon/busline/config"
	"github.com/velmon/busline/internal/domain"
)

// RedisCache carries two unrelated concerns: an advisory seat lock used
// for fast rejection ahead of the store constraint, and a read-through
// cache for the trip list. Seat-hold and ticket state is never cached
// here; staleness there would cause double-booking.
type RedisCache struct {
	client   *redis.Client
	tripsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, tripsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tripsTTL: tripsTTL,
	}
}

func (c *RedisCache) GetTrips(ctx context.Context) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, tripsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var trips []domain.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

func (c *RedisCache) SetTrips(ctx context.Context, trips []domain.Trip) error {
	payload, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tripsKey(), payload, c.tripsTTL).Err()
}

// AcquireSeatLock takes the advisory lock for the seat. A false return
// means someone else is mid-claim; the caller rejects without touching
// the database.
func (c *RedisCache) AcquireSeatLock(ctx context.Context, tripID int64, seatNumber string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(tripID, seatNumber), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, tripID int64, seatNumber string) error {
	return c.client.Del(ctx, seatLockKey(tripID, seatNumber)).Err()
}

func tripsKey() string {
	return "cache:trips"
}

func seatLockKey(tripID int64, seatNumber string) string {
	return fmt.Sprintf("lock:trip:%d:seat:%s", tripID, seatNumber)
}
