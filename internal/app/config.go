package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (TASTETRACK_ prefix), a .env file, flags, or YAML
// config files.
type Config struct {
	Addr            string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage         string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL     string `usage:"PostgreSQL connection URL (TASTETRACK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	TrackingBaseURL string `default:"http://localhost:3000/track" usage:"Public order tracking page encoded in QR codes" flag:"tracking-base-url"`
	Auth            AuthConfig
	Orders          OrdersConfig
	Redis           RedisConfig
	Kafka           KafkaConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// AuthConfig controls bearer tokens and password hashing.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET" usage:"HMAC secret for signing bearer tokens" flag:"jwt-secret"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" default:"24h" usage:"Bearer token lifetime" flag:"token-ttl"`
	BcryptCost int           `env:"BCRYPT_COST" default:"10" usage:"bcrypt cost for password hashes" flag:"bcrypt-cost"`
}

// OrdersConfig tunes order placement.
type OrdersConfig struct {
	// StrictMenuScope rejects line items from a restaurant other than the
	// order's one.
	StrictMenuScope bool          `env:"STRICT_MENU_SCOPE" default:"true" usage:"Reject menu items of other restaurants" flag:"strict-menu-scope"`
	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL" default:"24h" usage:"How long Idempotency-Key values are remembered" flag:"idempotency-ttl"`
}

// RedisConfig enables the Redis-backed idempotency store when Addr is set.
type RedisConfig struct {
	Addr     string `default:"" usage:"Redis address (host:port); empty disables idempotency keys" flag:"redis-addr"`
	Password string `default:"" usage:"Redis password" flag:"redis-password"`
	DB       int    `default:"0" usage:"Redis database number" flag:"redis-db"`
}

// KafkaConfig enables domain event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses; empty disables event publishing" flag:"kafka-brokers"`
	Topic   string   `default:"tastetrack.events" usage:"Topic for domain events" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a .env file, environment variables,
// YAML config files and flags, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment.
	_ = godotenv.Load()

	return load(aconfig.Config{
		EnvPrefix: "TASTETRACK",
		Files:     []string{"config.yaml", "/etc/tastetrack/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func load(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set TASTETRACK_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("token secret is required: set TASTETRACK_AUTH_JWT_SECRET")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's TASTETRACK_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Auth.JWTSecret == "" {
		if v := os.Getenv("JWT_SECRET"); v != "" {
			c.Auth.JWTSecret = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
