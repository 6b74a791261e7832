// Package config reads service configuration from the environment.
//
// .env files are loaded first (ENV_FILE if set, otherwise .env.local then
// .env); real environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDomainDuration is one year.
const DefaultDomainDuration = 365 * 24 * time.Hour

// DefaultEventBuffer is the in-memory event retention without a database.
const DefaultEventBuffer = 1024

// Config is the full service configuration.
type Config struct {
	Server   Server
	Registry Registry
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	ShutdownTimeout time.Duration
}

// Registry holds the registry's own settings.
type Registry struct {
	DomainDuration time.Duration
	SeedFile       string

	// EventBuffer caps how many events the in-memory deployment retains.
	EventBuffer int
}

// DatabaseConfig selects Postgres. An empty URL keeps state in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the name cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	NameTTL      time.Duration
}

// KafkaConfig enables the outbox relay. It needs a database and at least one
// broker.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	Partitions    int32
	Replicas      int16
	RelayInterval time.Duration
	RelayBatch    int
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	r := reader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("NAMEREG_ADDR", ":8080"),
			JWTSigningKey:   r.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       r.str("JWT_ISSUER", "namereg"),
			JWTAudience:     r.str("JWT_AUDIENCE", "namereg-api"),
			ShutdownTimeout: r.duration("NAMEREG_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Registry: Registry{
			DomainDuration: r.duration("NAMEREG_DOMAIN_DURATION", DefaultDomainDuration),
			SeedFile:       r.str("NAMEREG_SEED_FILE", ""),
			EventBuffer:    r.integer("NAMEREG_EVENT_BUFFER", DefaultEventBuffer),
		},
		Database: DatabaseConfig{
			URL:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    r.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			NameTTL:      r.duration("REDIS_NAME_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:       r.list("KAFKA_BROKERS"),
			Topic:         r.str("KAFKA_TOPIC", "namereg.registry.events"),
			Partitions:    int32(r.integer("KAFKA_TOPIC_PARTITIONS", 3)),
			Replicas:      int16(r.integer("KAFKA_TOPIC_REPLICAS", 1)),
			RelayInterval: r.duration("OUTBOX_RELAY_INTERVAL", time.Second),
			RelayBatch:    r.integer("OUTBOX_RELAY_BATCH", 100),
		},
		Log: LogConfig{
			Level:  r.str("NAMEREG_LOG_LEVEL", "info"),
			Format: r.str("NAMEREG_LOG_FORMAT", "json"),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if cfg.Registry.DomainDuration < 0 {
		return Config{}, fmt.Errorf("NAMEREG_DOMAIN_DURATION must not be negative")
	}
	if cfg.Registry.EventBuffer < 1 {
		return Config{}, fmt.Errorf("NAMEREG_EVENT_BUFFER must be positive")
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("KAFKA_BROKERS requires DATABASE_URL for the outbox")
	}
	return cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// reader keeps the first parse error so FromEnv can report it once.
type reader struct {
	err error
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (r *reader) integer(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
