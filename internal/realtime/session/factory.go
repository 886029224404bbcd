package session

import (
	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewStore builds the configured session store.
func NewStore(logger *zap.Logger, cfg *config.ServerConfig, client redis.UniversalClient) (Store, error) {
	switch cfg.Session.Type {
	case "redis":
		return NewRedisStore(logger, client, cfg.Session.TTL, cfg.Presence.TTL), nil
	case "memory":
		return NewMemoryStore(logger, cfg.Session.TTL, cfg.Presence.TTL), nil
	default:
		return nil, cnst.ErrInvalidSessionType
	}
}
