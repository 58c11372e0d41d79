package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPingTimeout = 5 * time.Second

// ConnectRedis dials the statistics cache and checks it answers PING.
// Command timeouts are kept short so a slow cache degrades to recomputation.
func ConnectRedis(ctx context.Context, url, name string, logger zerolog.Logger) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	options.ReadTimeout = time.Second
	options.WriteTimeout = time.Second

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", options.Addr, err)
	}

	logger.Info().Str("component", "redis").Str("client", name).Str("addr", options.Addr).Int("db", options.DB).Msg("redis connected")
	return client, nil
}
