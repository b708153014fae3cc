package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string        `mapstructure:"port"`
	DBPath          string        `mapstructure:"db_path"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	AdminEmail    string `mapstructure:"admin_email"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`

	WSSendBuffer      int           `mapstructure:"ws_send_buffer"`
	WSPongWait        time.Duration `mapstructure:"ws_pong_wait"`
	WSWriteWait       time.Duration `mapstructure:"ws_write_wait"`
	WSMaxMessageBytes int64         `mapstructure:"ws_max_message_bytes"`
	EventBusSize      int           `mapstructure:"event_bus_size"`

	RedisURL     string   `mapstructure:"redis_url"`
	RedisChannel string   `mapstructure:"redis_channel"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	ControlURL      string        `mapstructure:"control_url"`
	AgentToken      string        `mapstructure:"agent_token"`
}

// Load reads configuration from .env, an optional foodbridge.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("foodbridge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("db_path", "foodbridge.db")
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("token_ttl", "30m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("admin_email", "admin@foodbridge.local")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("ws_send_buffer", 64)
	v.SetDefault("ws_pong_wait", "60s")
	v.SetDefault("ws_write_wait", "10s")
	v.SetDefault("ws_max_message_bytes", 64*1024)
	v.SetDefault("event_bus_size", 256)
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_channel", "foodbridge:broadcast")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "foodbridge.changes")
	v.SetDefault("monitor_interval", "30s")
	v.SetDefault("control_url", "http://localhost:8000")
	v.SetDefault("agent_token", "")
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("ws_send_buffer must be positive, got %d", c.WSSendBuffer)
	}
	if c.WSPongWait <= 0 || c.WSWriteWait <= 0 {
		return errors.New("ws_pong_wait and ws_write_wait must be positive")
	}
	if c.EventBusSize <= 0 {
		return fmt.Errorf("event_bus_size must be positive, got %d", c.EventBusSize)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka_topic is required when kafka_brokers is set")
	}
	return nil
}

// PingPeriod is how often the server pings a client; it must stay below the pong wait.
func (c *Config) PingPeriod() time.Duration {
	return c.WSPongWait * 9 / 10
}

// splitList flattens comma separated entries coming from env vars.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
