// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Config represents the application configuration
type Config struct {
	// Cleaning settings
	Sentinel           int64
	NumericColumns     []string
	CategoricalColumns []string
	Ranges             map[string]model.Range
	PolicyFile         string

	// Source settings
	ChunkSize int

	// Audit trail
	Audit AuditConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// AuditConfig selects where cleaning operations are recorded.
// An empty DSN disables the audit trail.
type AuditConfig struct {
	Driver string
	DSN    string
}

// Enabled reports whether an audit store is configured
func (a AuditConfig) Enabled() bool {
	return a.DSN != ""
}

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	ranges, err := parseRanges(getEnv("CLEANER_RANGES", "year=1900:2026,odometer=0:999999"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse CLEANER_RANGES: %w", err)
	}

	cfg := &Config{
		Sentinel:           int64(getEnvAsInt("CLEANER_SENTINEL", -1)),
		NumericColumns:     getEnvAsStringSlice("CLEANER_NUMERIC_COLUMNS", []string{"year", "odometer"}),
		CategoricalColumns: getEnvAsStringSlice("CLEANER_CATEGORICAL_COLUMNS", []string{"make", "model", "trim", "transmission", "body"}),
		Ranges:             ranges,
		PolicyFile:         getEnv("CLEANER_POLICY_FILE", ""),
		ChunkSize:          getEnvAsInt("CHUNK_SIZE", 5000),
		Audit: AuditConfig{
			Driver: getEnv("AUDIT_DRIVER", "sqlite"),
			DSN:    getEnv("AUDIT_DSN", ""),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.Audit.Enabled() && c.Audit.Driver != "postgres" && c.Audit.Driver != "sqlite" {
		return fmt.Errorf("unsupported audit driver: %s", c.Audit.Driver)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format: %s", c.LogFormat)
	}

	for name, r := range c.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("range for %s has min %d greater than max %d", name, r.Min, r.Max)
		}
	}

	return nil
}

// parseRanges parses "col=min:max,col=min:max"
func parseRanges(value string) (map[string]model.Range, error) {
	ranges := make(map[string]model.Range)
	for _, item := range splitCommaDelimited(value) {
		if item == "" {
			continue
		}
		name, bounds, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("missing '=' in %q", item)
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("missing ':' in %q", item)
		}
		minVal, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid min in %q: %w", item, err)
		}
		maxVal, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid max in %q: %w", item, err)
		}
		ranges[strings.TrimSpace(name)] = model.Range{Min: minVal, Max: maxVal}
	}
	return ranges, nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range splitCommaDelimited(value) {
		if v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// splitCommaDelimited splits on commas and trims whitespace around each item
func splitCommaDelimited(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
