// Package config loads service settings from the environment (and a .env
// file, if present) through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Port    int    `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	// DatabaseURL empty selects the in-memory store.
	DatabaseURL string `mapstructure:"database_url"`

	// RedisAddr empty makes the server write notifications directly.
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisDB         int    `mapstructure:"redis_db"`
	NotifyQueueName string `mapstructure:"notify_queue_name"`

	// SessionPublicKeyPath empty generates an ephemeral key pair (development).
	SessionPublicKeyPath string        `mapstructure:"session_public_key_path"`
	SessionCookie        string        `mapstructure:"session_cookie"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`

	SweepInterval         time.Duration `mapstructure:"sweep_interval"`
	RoomExpirationMinutes int           `mapstructure:"room_expiration_minutes"`

	WSPingPeriod   time.Duration `mapstructure:"ws_ping_period"`
	WSWriteTimeout time.Duration `mapstructure:"ws_write_timeout"`
	WSSendBuffer   int           `mapstructure:"ws_send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("notify_queue_name", "squad_notifications")
	v.SetDefault("session_public_key_path", "")
	v.SetDefault("session_cookie", "auth_token")
	v.SetDefault("session_ttl", "72h")
	v.SetDefault("sweep_interval", "5m")
	v.SetDefault("room_expiration_minutes", 120)
	v.SetDefault("ws_ping_period", "30s")
	v.SetDefault("ws_write_timeout", "5s")
	v.SetDefault("ws_send_buffer", 32)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	case c.SweepInterval <= 0:
		return fmt.Errorf("config: SWEEP_INTERVAL must be positive")
	case c.RoomExpirationMinutes <= 0:
		return fmt.Errorf("config: ROOM_EXPIRATION_MINUTES must be positive")
	case c.WSPingPeriod <= 0 || c.WSWriteTimeout <= 0:
		return fmt.Errorf("config: websocket timeouts must be positive")
	case c.WSSendBuffer <= 0:
		return fmt.Errorf("config: WS_SEND_BUFFER must be positive")
	case c.SessionTTL < 0:
		return fmt.Errorf("config: SESSION_TTL must not be negative")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("config: LOG_FORMAT must be text or json")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
