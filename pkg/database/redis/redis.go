package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"welfareBot/pkg/config"
	"welfareBot/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the session store. Only the issued flag of each
// browser session lives here, so reads and writes are kept short.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	rc := cfg.Redis

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(rc.RedisHost, rc.RedisPort),
		Password:     rc.RedisPassword,
		DB:           rc.RedisDB,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     rc.PoolSize,
		MinIdleConns: max(rc.PoolSize/4, 1),
	})

	ctx, cancel := context.WithTimeout(context.Background(), rc.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s db %d: %w", client.Options().Addr, rc.RedisDB, err)
	}

	logger.Info("Redis connected", "addr", client.Options().Addr, "db", rc.RedisDB, "pool_size", rc.PoolSize)
	return client, nil
}

func CloseRedisClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
