package config

import (
	"os"
	"regexp"
	"time"

	"github.com/labpulse/labpulse/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// ServerConfig is the top-level configuration for the realtime server
	ServerConfig struct {
		Server    HTTPConfig     `yaml:"server"`
		WebSocket WSConfig       `yaml:"websocket"`
		Logger    LoggerConfig   `yaml:"logger"`
		Redis     RedisConfig    `yaml:"redis"`
		Session   SessionConfig  `yaml:"session"`
		Presence  PresenceConfig `yaml:"presence"`
		Rooms     RoomsConfig    `yaml:"rooms"`
		Auth      AuthConfig     `yaml:"auth"`
		Broker    BrokerConfig   `yaml:"broker"`
		Metrics   MetricsConfig  `yaml:"metrics"`
	}

	// HTTPConfig configures the HTTP listener hosting the upgrade endpoints
	HTTPConfig struct {
		Port int `yaml:"port"`
	}

	// WSConfig configures per-connection websocket behavior
	WSConfig struct {
		ReadBufferSize  int           `yaml:"read_buffer_size"`
		WriteBufferSize int           `yaml:"write_buffer_size"`
		SendQueueSize   int           `yaml:"send_queue_size"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		PongWait        time.Duration `yaml:"pong_wait"`
		WriteWait       time.Duration `yaml:"write_wait"`
		MaxMessageSize  int64         `yaml:"max_message_size"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, default is local
		TimeFormat string `yaml:"time_format"` // time format, default is "2006-01-02 15:04:05"
	}

	// RedisConfig represents the shared state store connection
	RedisConfig struct {
		ClusterType string `yaml:"cluster_type"` // single, cluster, sentinel
		Addr        string `yaml:"addr"`
		MasterName  string `yaml:"master_name"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
	}

	// SessionConfig represents the per-connection session storage configuration
	SessionConfig struct {
		Type string        `yaml:"type"` // "memory" or "redis"
		TTL  time.Duration `yaml:"ttl"`  // safety net against missed disconnect cleanup
	}

	// PresenceConfig represents user presence tracking configuration
	PresenceConfig struct {
		TTL time.Duration `yaml:"ttl"` // presence expires to offline without heartbeats
	}

	// RoomsConfig represents room registry configuration
	RoomsConfig struct {
		SweepInterval time.Duration `yaml:"sweep_interval"` // stale-member reconciliation period
	}

	// AuthConfig represents the connection authentication configuration
	AuthConfig struct {
		JWT        JWTConfig `yaml:"jwt"`
		QueryParam string    `yaml:"query_param"` // handshake token query parameter name
		CookieName string    `yaml:"cookie_name"` // handshake token cookie name
	}

	// JWTConfig represents the JWT validation configuration
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// BrokerConfig represents the cross-instance fan-out configuration
	BrokerConfig struct {
		Topic string `yaml:"topic"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
		Path      string `yaml:"path"`
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*ServerConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	setDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
