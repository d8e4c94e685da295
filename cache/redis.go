// Package cache 抠图结果缓存
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/chaos-io/maskbrush/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rembg:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient(client, cfg.TTL)
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get 从缓存获取抠图结果，未命中返回 nil, nil
func (c *RedisCache) Get(ctx context.Context, md5 string) ([]byte, error) {
	data, err := c.client.Get(ctx, Key(md5)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set 写入抠图结果
func (c *RedisCache) Set(ctx context.Context, md5 string, data []byte) error {
	return c.client.Set(ctx, Key(md5), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func Key(md5 string) string {
	return keyPrefix + md5
}
