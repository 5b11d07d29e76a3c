package redis

import (
	"context"

	"wisefleet-dashboard/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client 类型别名，调用方不必直接 import go-redis
type Client = redis.Client

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping 测试 Redis 连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
