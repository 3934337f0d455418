package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var RedisClient *redis.Client

const (
	distinctKeyPrefix = "filters:distinct:"
	distinctTTL       = 10 * time.Minute

	// reloadChannel carries loader completion notifications to running API
	// instances so connected dashboards can refresh.
	reloadChannel = "store:reloads"
)

// InitRedis initializes the Redis client. The cache and the reload
// channel are optional: callers may treat an error as "run without
// Redis" since every read path falls back to the store.
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx := context.Background()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// CacheDistinctValues stores a column's distinct values for the
// dashboard filter dropdowns.
func CacheDistinctValues(ctx context.Context, column string, values []string) error {
	if RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return RedisClient.Set(ctx, distinctKeyPrefix+column, data, distinctTTL).Err()
}

// CachedDistinctValues retrieves a column's cached distinct values. The
// second return is false on a miss or when Redis is not configured.
func CachedDistinctValues(ctx context.Context, column string) ([]string, bool) {
	if RedisClient == nil {
		return nil, false
	}
	data, err := RedisClient.Get(ctx, distinctKeyPrefix+column).Result()
	if err != nil {
		return nil, false
	}

	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, false
	}
	return values, true
}

// InvalidateDistinctCache drops all cached dropdown values. Called when
// the store is reloaded.
func InvalidateDistinctCache(ctx context.Context) {
	if RedisClient == nil {
		return
	}
	iter := RedisClient.Scan(ctx, 0, distinctKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		RedisClient.Del(ctx, iter.Val())
	}
}

// StoreReload is the payload published after a successful load.
type StoreReload struct {
	Rows      int   `json:"rows"`
	Timestamp int64 `json:"timestamp"`
}

// PublishStoreReload notifies running API instances that the bookings
// table was replaced.
func PublishStoreReload(ctx context.Context, rows int) error {
	if RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(StoreReload{Rows: rows, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}
	return RedisClient.Publish(ctx, reloadChannel, data).Err()
}

// SubscribeStoreReloads forwards reload notifications to fn until ctx is
// canceled.
func SubscribeStoreReloads(ctx context.Context, fn func(StoreReload)) {
	if RedisClient == nil {
		return
	}
	sub := RedisClient.Subscribe(ctx, reloadChannel)

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var reload StoreReload
				if err := json.Unmarshal([]byte(msg.Payload), &reload); err != nil {
					logrus.WithError(err).Warn("bad reload notification")
					continue
				}
				InvalidateDistinctCache(ctx)
				fn(reload)
			}
		}
	}()
}
