package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level wiring for the decisioning engine. Thresholds
// that shape individual engines live in each engine's own config struct; this
// only carries infrastructure addresses and coarse knobs so main stays lean.
type Config struct {
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	AuditTopic   string

	// SanctionsListDir holds one <list>.json file per reference list.
	SanctionsListDir string

	// ProviderTimeout bounds each external verification call.
	ProviderTimeout time.Duration

	// ListCacheTTL enforces retention for cached reference-list data.
	ListCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables. Defaults suit local
// development; production overrides everything.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL:      os.Getenv("KYCGATE_DATABASE_URL"),
		RedisURL:         os.Getenv("KYCGATE_REDIS_URL"),
		AuditTopic:       envOr("KYCGATE_AUDIT_TOPIC", "kycgate.audit"),
		SanctionsListDir: envOr("KYCGATE_SANCTIONS_DIR", "sanctions"),
		ProviderTimeout:  envDurationOr("KYCGATE_PROVIDER_TIMEOUT", 30*time.Second),
		ListCacheTTL:     envDurationOr("KYCGATE_LIST_CACHE_TTL", 6*time.Hour),
	}
	if brokers := os.Getenv("KYCGATE_KAFKA_BROKERS"); brokers != "" {
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
