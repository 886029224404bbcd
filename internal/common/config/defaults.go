package config

import (
	"time"

	"github.com/labpulse/labpulse/internal/common/cnst"
)

// setDefaults fills zero-valued fields with production defaults. The TTLs
// mirror the contract the rest of the system relies on: sessions self-expire
// after 24h even if disconnect cleanup never ran, presence decays to offline
// after 5 minutes without a heartbeat.
func setDefaults(cfg *ServerConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5310
	}
	if cfg.WebSocket.ReadBufferSize == 0 {
		cfg.WebSocket.ReadBufferSize = 1024
	}
	if cfg.WebSocket.WriteBufferSize == 0 {
		cfg.WebSocket.WriteBufferSize = 1024
	}
	if cfg.WebSocket.SendQueueSize == 0 {
		cfg.WebSocket.SendQueueSize = 256
	}
	if cfg.WebSocket.PingInterval == 0 {
		cfg.WebSocket.PingInterval = 25 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 60 * time.Second
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 64 * 1024
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = "redis"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Presence.TTL == 0 {
		cfg.Presence.TTL = 5 * time.Minute
	}
	if cfg.Rooms.SweepInterval == 0 {
		cfg.Rooms.SweepInterval = 60 * time.Second
	}
	if cfg.Auth.QueryParam == "" {
		cfg.Auth.QueryParam = "token"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "labpulse_token"
	}
	if cfg.Broker.Topic == "" {
		cfg.Broker.Topic = cnst.TopicEvents
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = cnst.AppName
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Redis.ClusterType == "" {
		cfg.Redis.ClusterType = "single"
	}
}
