package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures process-level configuration. Fields are populated from
// environment variables so main stays lean.
type Config struct {
	Addr          string `env:"JITBRIDGE_ADDR" envDefault:":8080"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY"`

	// PostgresURL selects the persistent ticket store. Empty means the
	// in-memory stores (dev and test mode).
	PostgresURL string `env:"POSTGRES_URL"`

	Redis RedisConfig `envPrefix:"REDIS_"`
	Kafka KafkaConfig `envPrefix:"KAFKA_"`

	// CacheTTL bounds correlation cache entries. Sessions are short-lived, so
	// a day covers the longest session plus late summaries.
	CacheTTL time.Duration `env:"JIT_CACHE_TTL" envDefault:"24h"`

	// Ticket defaults applied at creation, mirroring the ticketing system's
	// routing configuration.
	AssignmentGroup string `env:"JIT_ASSIGNMENT_GROUP" envDefault:"Cloud Architecture"`
	Location        string `env:"JIT_LOCATION" envDefault:"Boston"`
	FallbackCaller  string `env:"JIT_FALLBACK_CALLER"`
}

// RedisConfig configures the optional correlation cache.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional event consumer. Ingest is enabled only
// when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC" envDefault:"jit-events"`
	Group   string   `env:"GROUP" envDefault:"jitbridge"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
