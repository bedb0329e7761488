// Package config handles application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DivePath is the dive binary to invoke. Resolved via PATH when
	// not absolute.
	DivePath string

	// DiveTimeout bounds a single dive run.
	DiveTimeout time.Duration

	// MaxConcurrentInspections caps simultaneously running analyses.
	MaxConcurrentInspections int

	// ProgressTTL is how long terminal progress records are retained.
	ProgressTTL time.Duration

	// ResultCacheSize is the number of completed inspections kept in
	// the in-memory cache.
	ResultCacheSize int

	// MaxReportSize caps the dive JSON artifact size.
	MaxReportSize int64

	// RulesFile is an optional dive-style CI rules YAML. Empty
	// disables rule evaluation.
	RulesFile string

	// JWTSecret enables bearer auth on mutating endpoints when set.
	JWTSecret string

	// EngineWaitTimeout bounds the startup wait for the Docker engine.
	EngineWaitTimeout time.Duration

	// OTel configuration.
	OtelEnabled           bool
	OtelEndpoint          string
	OtelServiceName       string
	OtelServiceInstanceID string
	OtelInsecure          bool

	// Env is the deployment environment name.
	Env string

	// Version is the application version.
	Version string
}

// Load reads configuration from environment variables, with .env file
// support for local development.
func Load() (*Config, error) {
	// Best effort; absent .env is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnv("PORT", "3000"),
		DivePath:                 getEnv("DIVE_PATH", "dive"),
		RulesFile:                getEnv("RULES_FILE", ""),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		OtelEnabled:              getEnv("OTEL_ENABLED", "false") == "true",
		OtelEndpoint:             getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelServiceName:          getEnv("OTEL_SERVICE_NAME", "dive-ui-api"),
		OtelServiceInstanceID:    getEnv("OTEL_SERVICE_INSTANCE_ID", ""),
		OtelInsecure:             getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
		Env:                      getEnv("ENV", "development"),
		Version:                  getEnv("VERSION", "dev"),
		MaxConcurrentInspections: getEnvInt("MAX_CONCURRENT_INSPECTIONS", 3),
		ResultCacheSize:          getEnvInt("RESULT_CACHE_SIZE", 128),
	}

	var err error
	if cfg.DiveTimeout, err = getEnvDuration("DIVE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ProgressTTL, err = getEnvDuration("PROGRESS_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EngineWaitTimeout, err = getEnvDuration("ENGINE_WAIT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	var reportSize datasize.ByteSize
	raw := getEnv("MAX_REPORT_SIZE", "256MB")
	if err := reportSize.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("parse MAX_REPORT_SIZE %q: %w", raw, err)
	}
	cfg.MaxReportSize = int64(reportSize.Bytes())

	if cfg.MaxConcurrentInspections < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_INSPECTIONS must be at least 1, got %d", cfg.MaxConcurrentInspections)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, value, err)
	}
	return parsed, nil
}
