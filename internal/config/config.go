// Package config loads runtime configuration from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full runtime configuration, one section per concern.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Booking   BookingConfig   `yaml:"booking"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	AMQP      AMQPConfig      `yaml:"amqp"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	CORSOrigin      string        `yaml:"cors_origin"      env:"CORS_ORIGIN"             env-default:"*"`
}

// LogConfig selects the slog level and handler (text or json).
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// SlogLevel converts the configured level name.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StoreConfig picks the storage backend.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"postgres"`
}

// PostgresConfig configures the pgx connection pool.
type PostgresConfig struct {
	Host            string        `yaml:"host"              env:"DB_HOST"              env-default:"localhost"`
	Port            int           `yaml:"port"              env:"DB_PORT"              env-default:"5432"`
	User            string        `yaml:"user"              env:"DB_USER"              env-default:"postgres"`
	Password        string        `yaml:"password"          env:"DB_PASSWORD"          env-default:"postgres"`
	Database        string        `yaml:"database"          env:"DB_NAME"              env-default:"eventticketing"`
	SSLMode         string        `yaml:"sslmode"           env:"DB_SSLMODE"           env-default:"disable"`
	MaxConns        int32         `yaml:"max_conns"         env:"DB_MAX_CONNS"         env-default:"20"`
	MinConns        int32         `yaml:"min_conns"         env:"DB_MIN_CONNS"         env-default:"2"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle"     env:"DB_CONN_MAX_IDLE"     env-default:"5m"`
	ConnectAttempts int           `yaml:"connect_attempts"  env:"DB_CONNECT_ATTEMPTS"  env-default:"5"`
}

// DSN builds a libpq-compatible connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig configures the SQLite file and connection pool.
type SQLiteConfig struct {
	Path     string `yaml:"path"      env:"SQLITE_PATH"      env-default:"eventticketing.db"`
	PoolSize int    `yaml:"pool_size" env:"SQLITE_POOL_SIZE" env-default:"4"`
}

// BookingConfig bounds the two legs of a booking attempt.
type BookingConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"BOOKING_READ_TIMEOUT"  env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"BOOKING_WRITE_TIMEOUT" env-default:"3s"`
}

// AuthConfig holds the HS256 signing secret and access token lifetime.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"ACCESS_TOKEN_TTL" env-default:"1h"`
}

// RedisConfig locates the Redis server backing the rate limiter. An empty
// Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:""`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// RateLimitConfig drives the token bucket in front of booking attempts.
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"         env:"RATE_LIMIT_ENABLED"         env-default:"true"`
	Capacity       int           `yaml:"capacity"        env:"RATE_LIMIT_CAPACITY"        env-default:"10"`
	RefillTokens   int           `yaml:"refill_tokens"   env:"RATE_LIMIT_REFILL_TOKENS"   env-default:"1"`
	RefillInterval time.Duration `yaml:"refill_interval" env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"6s"`
	TTL            time.Duration `yaml:"ttl"             env:"RATE_LIMIT_TTL"             env-default:"10m"`
	KeyStrategy    string        `yaml:"key_strategy"    env:"RATE_LIMIT_KEY_STRATEGY"    env-default:"user_route"`
	Prefix         string        `yaml:"prefix"          env:"RATE_LIMIT_PREFIX"          env-default:"rl"`
}

// AMQPConfig locates the broker for booking events. An empty URL disables
// publishing.
type AMQPConfig struct {
	URL   string `yaml:"url"   env:"AMQP_URL"   env-default:""`
	Queue string `yaml:"queue" env:"AMQP_QUEUE" env-default:"booking.committed"`
}

// Load reads configuration. A missing .env file is not an error; a missing
// YAML file named explicitly is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Booking.ReadTimeout <= 0 || c.Booking.WriteTimeout <= 0 {
		return fmt.Errorf("config: booking timeouts must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("config: rate limit capacity must be positive")
	}
	if c.Store.Driver == DriverPostgres && c.Postgres.ConnectAttempts < 1 {
		return fmt.Errorf("config: DB_CONNECT_ATTEMPTS must be at least 1")
	}
	return nil
}
