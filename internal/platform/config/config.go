// Package config builds service configuration from the environment so main
// stays lean. Every backend is optional: with no Postgres, Redis or Kafka
// configured the service runs on in-memory stores, which is the test and
// development default.
package config

import (
	"os"
	"strings"

	platformstrings "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/platform/strings"
)

// Config captures the full service configuration.
type Config struct {
	Addr string

	// PostgresURL points at the remote authoritative Directory store.
	PostgresURL string
	// RedisURL points at the local fallback cache.
	RedisURL string

	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string

	BranchName        string
	AlertRecipient    string
	ApproverRecipient string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:              getenv("PORTERIA_ADDR", ":8080"),
		PostgresURL:       os.Getenv("PORTERIA_POSTGRES_URL"),
		RedisURL:          os.Getenv("PORTERIA_REDIS_URL"),
		KafkaBrokers:      splitList(os.Getenv("PORTERIA_KAFKA_BROKERS")),
		AuditTopic:        getenv("PORTERIA_AUDIT_TOPIC", "porteria.audit"),
		JWTSigningKey:     getenv("PORTERIA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		BranchName:        getenv("PORTERIA_BRANCH", "principal"),
		AlertRecipient:    getenv("PORTERIA_ALERT_RECIPIENT", "porteria@taller.local"),
		ApproverRecipient: getenv("PORTERIA_APPROVER_RECIPIENT", "jefatura@taller.local"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated env value, dropping blanks and
// repeated entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
