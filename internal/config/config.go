package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Log         LogConfig
	Redeem      RedeemConfig
	RateLimit   RateLimitConfig
	Leaderboard LeaderboardConfig
	Gateway     GatewayConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"voucher_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// RedeemConfig holds the redemption engine policy.
// MaxReuses is the total number of redemptions one code permits; the bonus
// grant behavior only activates when MaxReuses > 1.
type RedeemConfig struct {
	MaxReuses         int `envconfig:"REDEEM_MAX_REUSES" default:"1"`
	FullGrantSeconds  int `envconfig:"REDEEM_FULL_GRANT_SECONDS" default:"3600"`
	BonusGrantSeconds int `envconfig:"REDEEM_BONUS_GRANT_SECONDS" default:"300"`
	TimeoutSeconds    int `envconfig:"REDEEM_TIMEOUT_SECONDS" default:"5"`
	MaxUpdateRetries  int `envconfig:"REDEEM_MAX_UPDATE_RETRIES" default:"3"`
}

// Timeout returns the per-request redemption deadline.
func (c RedeemConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig holds the per-identity attempt window. When RedisAddr is
// set the limiter runs on Redis; otherwise it keeps in-process buckets.
type RateLimitConfig struct {
	MaxAttempts   int    `envconfig:"RATE_LIMIT_MAX_ATTEMPTS" default:"5"`
	WindowSeconds int    `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	RedisAddr     string `envconfig:"RATE_LIMIT_REDIS_ADDR" default:""`
}

// Window returns the rate limit window duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// LeaderboardConfig holds the snapshot staleness bound.
type LeaderboardConfig struct {
	RefreshSeconds int `envconfig:"LEADERBOARD_REFRESH_SECONDS" default:"30"`
}

// RefreshInterval returns the maximum snapshot staleness.
func (c LeaderboardConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// GatewayConfig holds the captive-portal gateway endpoint. When URL is empty
// the notifier only logs grants, which is the local development mode.
type GatewayConfig struct {
	URL            string `envconfig:"GATEWAY_URL" default:""`
	TimeoutSeconds int    `envconfig:"GATEWAY_TIMEOUT_SECONDS" default:"5"`
	MaxRetries     int    `envconfig:"GATEWAY_MAX_RETRIES" default:"3"`
}

// Timeout returns the per-call gateway timeout.
func (c GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Redeem.MaxReuses < 1 {
		return nil, fmt.Errorf("REDEEM_MAX_REUSES must be at least 1, got %d", cfg.Redeem.MaxReuses)
	}
	return &cfg, nil
}
