package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean; every field has a development default.
type Server struct {
	Addr          string
	JWTSigningKey string

	// PostgresDSN switches persistence from in-memory to Postgres when set.
	PostgresDSN string

	// RedisURL enables the dashboard stats snapshot cache when set.
	RedisURL      string
	StatsCacheTTL time.Duration

	// KafkaBrokers enables activity event publishing when non-empty.
	KafkaBrokers  []string
	ActivityTopic string

	// AccuracyRate is the admin dashboard display constant. It is not a
	// derived metric; see the reporting service.
	AccuracyRate string

	// SeedAdminEmail/SeedAdminPassword bootstrap the first admin account when
	// the user store is empty.
	SeedAdminEmail    string
	SeedAdminPassword string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("LOOMWORKS_ADDR", ":8080"),
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisURL:          os.Getenv("REDIS_URL"),
		StatsCacheTTL:     envDuration("STATS_CACHE_TTL", 30*time.Second),
		ActivityTopic:     envOr("ACTIVITY_TOPIC", "loomworks.activity"),
		AccuracyRate:      envOr("DASHBOARD_ACCURACY_RATE", "98.5"),
		SeedAdminEmail:    envOr("SEED_ADMIN_EMAIL", "admin@loomworks.example"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
