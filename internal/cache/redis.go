package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisClient(addr, password string, db int, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))

	return &RedisClient{
		client: rdb,
		log:    log,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// NextOrderSequence atomically increments the per-day order counter.
// The key expires after two days; the sequence only needs to be unique
// within its own day.
func (r *RedisClient) NextOrderSequence(ctx context.Context, day time.Time) (int64, error) {
	key := fmt.Sprintf("ord_seq:%s", day.Format("20060102"))
	seq, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if seq == 1 {
		if err := r.client.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			r.log.Warn("failed to set ttl on order sequence key", zap.String("key", key), zap.Error(err))
		}
	}
	return seq, nil
}

// General-purpose cache helpers.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}
