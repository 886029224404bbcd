package cnst

import "errors"

var (
	// ErrInvalidSessionType is returned when the configured session store type is unknown
	ErrInvalidSessionType = errors.New("invalid session store type")
	// ErrMissingRedisAddr is returned when a Redis-backed component has no address configured
	ErrMissingRedisAddr = errors.New("redis address is required")
	// ErrMissingJWTSecret is returned when auth is enabled without a secret key
	ErrMissingJWTSecret = errors.New("jwt secret key is required")
	// ErrInvalidPort is returned when the server port is out of range
	ErrInvalidPort = errors.New("server port must be between 1 and 65535")
)
