package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	AI        AIConfig
	Currency  CurrencyConfig
	Worker    WorkerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
	// ConnectAttempts is how many times startup pings before giving up.
	ConnectAttempts int  `mapstructure:"POSTGRES_CONNECT_ATTEMPTS"`
	AutoMigrate     bool `mapstructure:"POSTGRES_AUTO_MIGRATE"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
	// ConnectAttempts is how many times startup pings before giving up.
	ConnectAttempts int `mapstructure:"REDIS_CONNECT_ATTEMPTS"`
}

// AIConfig holds settings for the generative completion provider.
//
// GenerationTimeout of zero means the orchestrator imposes no deadline on
// the completion call; only the HTTP transport timeout (if any) applies.
type AIConfig struct {
	APIKey            string        `mapstructure:"GEMINI_API_KEY"`
	Model             string        `mapstructure:"GEMINI_MODEL"`
	BaseURL           string        `mapstructure:"GEMINI_BASE_URL"`
	APIVersion        string        `mapstructure:"GEMINI_API_VERSION"`
	Grounding         bool          `mapstructure:"GEMINI_GROUNDING"`
	HTTPTimeout       time.Duration `mapstructure:"GEMINI_HTTP_TIMEOUT"`
	GenerationTimeout time.Duration `mapstructure:"AI_GENERATION_TIMEOUT"`
}

// CurrencyConfig holds exchange-rate service settings. The reference
// currency is fixed by the embedded price tables.
type CurrencyConfig struct {
	BaseURL      string        `mapstructure:"CURRENCY_API_URL"`
	Timeout      time.Duration `mapstructure:"CURRENCY_TIMEOUT"`
	RateCacheTTL time.Duration `mapstructure:"CURRENCY_CACHE_TTL"`
}

// WorkerConfig holds settings for the background generation pool.
type WorkerConfig struct {
	Count         int           `mapstructure:"WORKER_COUNT"`
	QueueKey      string        `mapstructure:"WORKER_QUEUE_KEY"`
	StrandedAfter time.Duration `mapstructure:"WORKER_STRANDED_AFTER"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

// RateLimitConfig holds per-client request limits for plan submission.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	Burst             int     `mapstructure:"RATE_LIMIT_BURST"`
}

// CacheConfig holds fingerprint-keyed plan cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"PLAN_CACHE_ENABLED"`
	TTL     time.Duration `mapstructure:"PLAN_CACHE_TTL"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "tripplanner")
	viper.SetDefault("POSTGRES_PASSWORD", "tripplanner_secret")
	viper.SetDefault("POSTGRES_DB", "tripplanner_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 20)
	viper.SetDefault("POSTGRES_MIN_CONNS", 2)
	viper.SetDefault("POSTGRES_CONNECT_ATTEMPTS", 5)
	viper.SetDefault("POSTGRES_AUTO_MIGRATE", true)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 50)
	viper.SetDefault("REDIS_CONNECT_ATTEMPTS", 5)

	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("GEMINI_API_VERSION", "v1beta")
	viper.SetDefault("GEMINI_GROUNDING", true)
	viper.SetDefault("GEMINI_HTTP_TIMEOUT", "0s")
	viper.SetDefault("AI_GENERATION_TIMEOUT", "0s")

	viper.SetDefault("CURRENCY_API_URL", "https://open.er-api.com/v6")
	viper.SetDefault("CURRENCY_TIMEOUT", "5s")
	viper.SetDefault("CURRENCY_CACHE_TTL", "1h")

	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("WORKER_QUEUE_KEY", "plans:queue")
	viper.SetDefault("WORKER_STRANDED_AFTER", "10m")

	viper.SetDefault("JWT_SECRET", "")

	viper.SetDefault("RATE_LIMIT_RPS", 0.2)
	viper.SetDefault("RATE_LIMIT_BURST", 3)

	viper.SetDefault("PLAN_CACHE_ENABLED", true)
	viper.SetDefault("PLAN_CACHE_TTL", "6h")

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
		DBName:   viper.GetString("POSTGRES_DB"),
		SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),

		ConnectAttempts: viper.GetInt("POSTGRES_CONNECT_ATTEMPTS"),
		AutoMigrate:     viper.GetBool("POSTGRES_AUTO_MIGRATE"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),

		ConnectAttempts: viper.GetInt("REDIS_CONNECT_ATTEMPTS"),
	}

	// ── AI provider ─────────────────────────────────────
	cfg.AI = AIConfig{
		APIKey:            viper.GetString("GEMINI_API_KEY"),
		Model:             viper.GetString("GEMINI_MODEL"),
		BaseURL:           viper.GetString("GEMINI_BASE_URL"),
		APIVersion:        viper.GetString("GEMINI_API_VERSION"),
		Grounding:         viper.GetBool("GEMINI_GROUNDING"),
		HTTPTimeout:       viper.GetDuration("GEMINI_HTTP_TIMEOUT"),
		GenerationTimeout: viper.GetDuration("AI_GENERATION_TIMEOUT"),
	}

	// ── Currency ────────────────────────────────────────
	cfg.Currency = CurrencyConfig{
		BaseURL:      viper.GetString("CURRENCY_API_URL"),
		Timeout:      viper.GetDuration("CURRENCY_TIMEOUT"),
		RateCacheTTL: viper.GetDuration("CURRENCY_CACHE_TTL"),
	}

	// ── Worker pool ─────────────────────────────────────
	cfg.Worker = WorkerConfig{
		Count:         viper.GetInt("WORKER_COUNT"),
		QueueKey:      viper.GetString("WORKER_QUEUE_KEY"),
		StrandedAfter: viper.GetDuration("WORKER_STRANDED_AFTER"),
	}

	// ── Auth / rate limiting / cache ────────────────────
	cfg.Auth = AuthConfig{JWTSecret: viper.GetString("JWT_SECRET")}
	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: viper.GetFloat64("RATE_LIMIT_RPS"),
		Burst:             viper.GetInt("RATE_LIMIT_BURST"),
	}
	cfg.Cache = CacheConfig{
		Enabled: viper.GetBool("PLAN_CACHE_ENABLED"),
		TTL:     viper.GetDuration("PLAN_CACHE_TTL"),
	}

	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("config: GEMINI_API_KEY is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 1
	}

	return cfg, nil
}
