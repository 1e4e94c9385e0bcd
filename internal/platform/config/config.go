package config

import (
	"os"
	"strconv"
	"time"
)

// FeedBackend selects which change-feed implementation the server runs on.
type FeedBackend string

const (
	FeedMemory   FeedBackend = "memory"
	FeedRedis    FeedBackend = "redis"
	FeedPostgres FeedBackend = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	StateDir string
}

// Feed configures the change-feed subscriptions.
type Feed struct {
	Backend         FeedBackend
	AttendanceLimit int
	// Resubscription policy after a terminal feed error. The mirror never
	// self-heals a subscription; these knobs belong to the supervisor wiring
	// in cmd/server.
	ResubscribeBackoff  time.Duration
	ResubscribeAttempts int
}

// RedisConfig configures the Redis client used by the redis feed backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the pgx pool used by the postgres feed backend.
type PostgresConfig struct {
	URL string
}

// Recognition configures the remote face recognition service client.
type Recognition struct {
	BaseURL string
	Timeout time.Duration
}

// Config is the full service configuration.
type Config struct {
	Server      Server
	Feed        Feed
	Redis       RedisConfig
	Postgres    PostgresConfig
	Recognition Recognition
}

// FromEnv builds the service config from environment variables so main stays
// lean. Every value has a development default.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:     envString("PRESENCE_ADDR", ":8080"),
			StateDir: envString("PRESENCE_STATE_DIR", "."),
		},
		Feed: Feed{
			Backend:             FeedBackend(envString("PRESENCE_FEED", string(FeedMemory))),
			AttendanceLimit:     envInt("PRESENCE_ATTENDANCE_LIMIT", 50),
			ResubscribeBackoff:  envDuration("PRESENCE_FEED_RESUBSCRIBE_BACKOFF", 5*time.Second),
			ResubscribeAttempts: envInt("PRESENCE_FEED_RESUBSCRIBE_ATTEMPTS", 0),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("PRESENCE_REDIS_URL"),
			PoolSize:     envInt("PRESENCE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PRESENCE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("PRESENCE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PRESENCE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PRESENCE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("PRESENCE_POSTGRES_URL"),
		},
		Recognition: Recognition{
			BaseURL: envString("PRESENCE_RECOGNITION_URL", "http://localhost:8000"),
			Timeout: envDuration("PRESENCE_RECOGNITION_TIMEOUT", 30*time.Second),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
