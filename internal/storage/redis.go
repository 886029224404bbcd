// Package storage builds the shared Redis client used by every component
// that talks to the cross-instance state store.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the configured Redis deployment and verifies the
// connection with a ping before returning.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts := &redis.UniversalOptions{
		Addrs:    splitAddrs(cfg.Addr),
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		opts.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// db selection is not supported in cluster mode
		opts.DB = cfg.DB
	}

	client := redis.NewUniversalClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func splitAddrs(addr string) []string {
	parts := strings.FieldsFunc(addr, func(r rune) bool {
		return r == ',' || r == ';'
	})
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	return addrs
}
