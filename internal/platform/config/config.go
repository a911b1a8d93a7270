package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration for the server.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Breaker   BreakerConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `env:"CAMPAIGN_ADDR" envDefault:":8080"`
	Environment   string        `env:"CAMPAIGN_ENV" envDefault:"development"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	AdminToken    string        `env:"ADMIN_TOKEN" envDefault:"dev-admin-token"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	WebhookSecret string        `env:"WEBHOOK_SECRET" envDefault:"dev-webhook-secret"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// PostgresConfig holds the database connection settings. An empty URL keeps
// every store in memory.
type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// RedisConfig holds the Redis connection settings. An empty URL falls back
// to in-process cache epochs and storage.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig selects the outbound mail transport. With no brokers the
// dispatcher logs deliveries instead of producing them.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_MAIL_TOPIC" envDefault:"campaign.mail.outbound"`
	ClientID     string        `env:"KAFKA_CLIENT_ID" envDefault:"campaign"`
	SendTimeout  time.Duration `env:"KAFKA_SEND_TIMEOUT" envDefault:"5s"`
	EnsureTopic  bool          `env:"KAFKA_ENSURE_TOPIC" envDefault:"false"`
	Partitions   int32         `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	Replications int16         `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
}

// CacheConfig controls the aggregate read cache.
type CacheConfig struct {
	Provider        string        `env:"CACHE_PROVIDER" envDefault:"ristretto"`
	DocumentTTL     time.Duration `env:"CACHE_DOCUMENT_TTL" envDefault:"5m"`
	AggregateTTL    time.Duration `env:"CACHE_AGGREGATE_TTL" envDefault:"10m"`
	MaxCost         int64         `env:"CACHE_MAX_COST" envDefault:"67108864"`
	NumCounters     int64         `env:"CACHE_NUM_COUNTERS" envDefault:"100000"`
	JanitorInterval time.Duration `env:"CACHE_JANITOR_INTERVAL" envDefault:"10m"`
}

// SchedulerConfig drives the periodic Advance loop.
type SchedulerConfig struct {
	Interval         time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"15s"`
	MinChunkInterval time.Duration `env:"SCHEDULER_MIN_CHUNK_INTERVAL" envDefault:"1m"`
	JobsPerTick      int           `env:"SCHEDULER_JOBS_PER_TICK" envDefault:"10"`
}

// BreakerConfig tunes the transport circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	SuccessThreshold int           `env:"BREAKER_SUCCESS_THRESHOLD" envDefault:"3"`
	Cooldown         time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.IsProduction() {
		if c.Server.AdminToken == "" || c.Server.AdminToken == "dev-admin-token" {
			return fmt.Errorf("ADMIN_TOKEN must be set in production")
		}
		if c.Server.JWTSigningKey == "dev-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
		}
	}
	switch c.Cache.Provider {
	case "ristretto", "redis", "postgres":
	default:
		return fmt.Errorf("unknown CACHE_PROVIDER %q", c.Cache.Provider)
	}
	if c.Cache.Provider == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("CACHE_PROVIDER=redis requires REDIS_URL")
	}
	if c.Cache.Provider == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("CACHE_PROVIDER=postgres requires DATABASE_URL")
	}
	if c.Scheduler.JobsPerTick <= 0 {
		return fmt.Errorf("SCHEDULER_JOBS_PER_TICK must be positive")
	}
	return nil
}
