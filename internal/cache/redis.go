package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries the caller's
// token, so an expired lock taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

type RedisCache struct {
	client    *redis.Client
	hotelsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, hotelsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		hotelsTTL: hotelsTTL,
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetHotels returns nil, nil on a cache miss.
func (c *RedisCache) GetHotels(ctx context.Context) ([]domain.HotelView, error) {
	data, err := c.client.Get(ctx, hotelsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var hotels []domain.HotelView
	if err := json.Unmarshal(data, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

func (c *RedisCache) SetHotels(ctx context.Context, hotels []domain.HotelView) error {
	payload, err := json.Marshal(hotels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, hotelsKey(), payload, c.hotelsTTL).Err()
}

func (c *RedisCache) InvalidateHotels(ctx context.Context) error {
	return c.client.Del(ctx, hotelsKey()).Err()
}

// AcquireRoomLock makes one SET NX attempt. On success it returns the token
// needed to release the lock.
func (c *RedisCache) AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, roomLockKey(roomID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (c *RedisCache) ReleaseRoomLock(ctx context.Context, roomID int64, token string) error {
	return releaseScript.Run(ctx, c.client, []string{roomLockKey(roomID)}, token).Err()
}

func hotelsKey() string {
	return "cache:hotels"
}

func roomLockKey(roomID int64) string {
	return fmt.Sprintf("lock:room:%d", roomID)
}
