// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetInternalAPIKey() string
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RepiqueConfig provides settings for the lead re-routing engine.
type RepiqueConfig interface {
	GetRepiqueTick() time.Duration
	GetRepiqueBatchSize() int
}

// PushConfig provides settings for the push notification gateway.
type PushConfig interface {
	GetPushGatewayURL() string
	GetPushGatewayKey() string
	IsPushEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// warningWindowWidth is the width of the pre-timeout warning window. The
// repique tick cadence must not exceed it, otherwise a lead can cross the
// window between two ticks without ever being warned.
const warningWindowWidth = time.Minute

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	CORSAllowAll     bool
	CORSOrigins      []string
	InternalAPIKey   string
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	RepiqueTick      time.Duration
	RepiqueBatchSize int
	PushGatewayURL   string
	PushGatewayKey   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetInternalAPIKey() string { return c.InternalAPIKey }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// RepiqueConfig implementation
func (c *Config) GetRepiqueTick() time.Duration { return c.RepiqueTick }
func (c *Config) GetRepiqueBatchSize() int      { return c.RepiqueBatchSize }

// PushConfig implementation
func (c *Config) GetPushGatewayURL() string { return c.PushGatewayURL }
func (c *Config) GetPushGatewayKey() string { return c.PushGatewayKey }
func (c *Config) IsPushEnabled() bool       { return c.PushGatewayURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "true"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		InternalAPIKey:   getEnv("INTERNAL_API_KEY", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RepiqueTick:      mustDuration(getEnv("REPIQUE_TICK", "1m")),
		RepiqueBatchSize: mustInt(getEnv("REPIQUE_BATCH_SIZE", "200")),
		PushGatewayURL:   getEnv("PUSH_GATEWAY_URL", ""),
		PushGatewayKey:   getEnv("PUSH_GATEWAY_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RepiqueTick <= 0 {
		return nil, fmt.Errorf("REPIQUE_TICK must be a positive duration")
	}
	if cfg.RepiqueTick > warningWindowWidth {
		return nil, fmt.Errorf("REPIQUE_TICK (%s) must not exceed the %s warning window, or pre-timeout warnings can be skipped", cfg.RepiqueTick, warningWindowWidth)
	}
	if cfg.RepiqueBatchSize < 1 {
		return nil, fmt.Errorf("REPIQUE_BATCH_SIZE must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
