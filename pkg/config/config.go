// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brightpath/casehub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (optional; in-memory fallbacks apply when unset)
	Redis RedisConfig

	// Audit configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings. An empty URL disables Redis and the
// denial counters run in-process.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuditConfig holds denial auditing settings
type AuditConfig struct {
	DenialWindow    time.Duration
	DenialThreshold int
	RetentionDays   int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CASEHUB_HOST", "0.0.0.0"),
		Port:            getEnv("CASEHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CASEHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CASEHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("CASEHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CASEHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CASEHUB_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("CASEHUB_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("CASEHUB_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("CASEHUB_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("CASEHUB_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("CASEHUB_REDIS_URL", ""),
		Password: getEnv("CASEHUB_REDIS_PASSWORD", ""),
		DB:       getEnvInt("CASEHUB_REDIS_DB", 0),
		PoolSize: getEnvInt("CASEHUB_REDIS_POOL_SIZE", 10),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		DenialWindow:    getEnvDuration("CASEHUB_DENIAL_WINDOW", 5*time.Minute),
		DenialThreshold: getEnvInt("CASEHUB_DENIAL_THRESHOLD", 3),
		RetentionDays:   getEnvInt("CASEHUB_DENIAL_RETENTION_DAYS", 90),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CASEHUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CASEHUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CASEHUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CASEHUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CASEHUB_OTEL_SERVICE_NAME", "casehub"),
		OTelServiceVersion: getEnv("CASEHUB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CASEHUB_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Audit.DenialWindow <= 0 {
		return fmt.Errorf("denial window must be positive")
	}
	if c.Audit.DenialThreshold <= 0 {
		return fmt.Errorf("denial threshold must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("denial retention days must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
