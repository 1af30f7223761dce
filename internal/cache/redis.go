package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/Domenick1991/flightbooking/internal/session"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	searchTTL   time.Duration
	snapshotTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL, snapshotTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL:   searchTTL,
		snapshotTTL: snapshotTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetSearch(ctx context.Context, id string) (*search.Result, error) {
	var result search.Result
	ok, err := c.getJSON(ctx, searchKey(id), &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, result *search.Result) error {
	return c.setJSON(ctx, searchKey(result.ID), result, c.searchTTL)
}

// SaveSnapshot mirrors a session snapshot for read-only consumers. The
// in-memory session stays authoritative.
func (c *RedisCache) SaveSnapshot(ctx context.Context, snap session.Snapshot) error {
	return c.setJSON(ctx, snapshotKey(snap.ID), snap, c.snapshotTTL)
}

func (c *RedisCache) GetSnapshot(ctx context.Context, id string) (*session.Snapshot, error) {
	var snap session.Snapshot
	ok, err := c.getJSON(ctx, snapshotKey(id), &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func (c *RedisCache) DeleteSnapshot(ctx context.Context, id string) error {
	return c.client.Del(ctx, snapshotKey(id)).Err()
}

// AcquireLock takes a named lock that expires after ttl.
func (c *RedisCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, lockKey(name), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseLock(ctx context.Context, name string) error {
	return c.client.Del(ctx, lockKey(name)).Err()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func searchKey(id string) string {
	return fmt.Sprintf("cache:search:%s", id)
}

func snapshotKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

var _ search.Cache = (*RedisCache)(nil)
