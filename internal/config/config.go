// Package config reads the recognized environment variables. It is
// deliberately a flat struct with direct os.Getenv reads, matching the
// rest of this service's infrastructure setup — configuration loading
// is not a designed subsystem here.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every recognized runtime option.
type Config struct {
	Port string

	DatabaseURL string

	CronExpression string
	CronEnabled    bool

	UpstreamDelaysBaseURL string
	MatcherBaseURL        string
	OracleBaseURL         string

	DelayThresholdMinutes int
	HTTPClientTimeout     time.Duration

	OutboxMaxRetries    int
	OutboxRetentionDays int
}

// Load reads Config from the process environment, applying the
// documented defaults.
func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", buildDSNFromParts()),

		CronExpression: getEnv("CRON_EXPRESSION", "*/5 * * * *"),
		CronEnabled:    getEnvBool("CRON_ENABLED", true),

		UpstreamDelaysBaseURL: os.Getenv("UPSTREAM_DELAYS_BASE_URL"),
		MatcherBaseURL:        os.Getenv("MATCHER_BASE_URL"),
		OracleBaseURL:         os.Getenv("ORACLE_BASE_URL"),

		DelayThresholdMinutes: getEnvInt("DELAY_THRESHOLD_MINUTES", 15),
		HTTPClientTimeout:     time.Duration(getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", 30)) * time.Second,

		OutboxMaxRetries:    getEnvInt("OUTBOX_MAX_RETRIES", 3),
		OutboxRetentionDays: getEnvInt("OUTBOX_RETENTION_DAYS", 30),
	}
}

func buildDSNFromParts() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	database := getEnv("DB_NAME", "delaytracker")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return "host=" + host + " port=" + port + " user=" + user +
		" password=" + password + " dbname=" + database + " sslmode=" + sslmode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
