package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparkmatch/engine/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// KeyForLimit is the day-scoped counter for one user and action type.
func (c *RedisCache) KeyForLimit(userID uint64, action, dayKey string) string {
	return fmt.Sprintf("limits:%d:%s:%s", userID, action, dayKey)
}

// KeyForUndo holds a user's single undoable swipe record.
func (c *RedisCache) KeyForUndo(userID uint64) string {
	return fmt.Sprintf("undo:%d", userID)
}

// KeyForDailyPick is the hot cache in front of the daily_picks row.
func (c *RedisCache) KeyForDailyPick(userID uint64, dayKey string) string {
	return fmt.Sprintf("pick:%d:%s", userID, dayKey)
}

// KeyForStandouts is the hot cache in front of the standout rows.
func (c *RedisCache) KeyForStandouts(userID uint64, dayKey string) string {
	return fmt.Sprintf("standouts:%d:%s", userID, dayKey)
}
