package config

import (
	"github.com/labpulse/labpulse/internal/common/cnst"
)

// Validate performs configuration validation
func Validate(cfg *ServerConfig) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return cnst.ErrInvalidPort
	}

	switch cfg.Session.Type {
	case "memory", "redis":
	default:
		return cnst.ErrInvalidSessionType
	}

	// Redis is required whenever any cross-instance feature is in play.
	if cfg.Session.Type == "redis" && cfg.Redis.Addr == "" {
		return cnst.ErrMissingRedisAddr
	}

	if cfg.Auth.JWT.SecretKey == "" {
		return cnst.ErrMissingJWTSecret
	}

	return nil
}
