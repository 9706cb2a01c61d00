package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"visitor-counter/internal/domain"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string
	RedisURL       string
	DatabaseURL    string // Optional; snapshots are disabled when empty

	CountUniqueIPs         bool
	ResetDaily             bool
	MaxVisitorsPerIP       int
	RateLimitWindowSeconds int
	RateLimitFailurePolicy string

	BackupIntervalHours       int
	SnapshotRetentionDays     int
	RecentVisitsLimit         int64
	RecentVisitsRetentionDays int
	Timezone                  string

	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8006"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		CountUniqueIPs:         getBoolEnv("COUNT_UNIQUE_IPS", true),
		ResetDaily:             getBoolEnv("RESET_DAILY", true),
		MaxVisitorsPerIP:       getIntEnv("MAX_VISITORS_PER_IP", 10),
		RateLimitWindowSeconds: getIntEnv("RATE_LIMIT_WINDOW", 60),
		RateLimitFailurePolicy: getEnv("RATE_LIMIT_FAILURE_POLICY", "open"),

		BackupIntervalHours:       getIntEnv("BACKUP_INTERVAL_HOURS", 1),
		SnapshotRetentionDays:     getIntEnv("SNAPSHOT_RETENTION_DAYS", 90),
		RecentVisitsLimit:         int64(getIntEnv("RECENT_VISITS_LIMIT", 1000)),
		RecentVisitsRetentionDays: getIntEnv("RECENT_VISITS_RETENTION_DAYS", 7),
		Timezone:                  getEnv("TIMEZONE", "Local"),

		ShutdownTimeout: time.Duration(getIntEnv("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.MaxVisitorsPerIP < 0 {
		return fmt.Errorf("MAX_VISITORS_PER_IP must not be negative, got %d", c.MaxVisitorsPerIP)
	}
	if c.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %d", c.RateLimitWindowSeconds)
	}
	if c.BackupIntervalHours <= 0 {
		return fmt.Errorf("BACKUP_INTERVAL_HOURS must be positive, got %d", c.BackupIntervalHours)
	}
	if c.RecentVisitsLimit <= 0 {
		return fmt.Errorf("RECENT_VISITS_LIMIT must be positive, got %d", c.RecentVisitsLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TIMEZONE; "Local" and "" mean the host timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CounterSettings is the explicit settings value handed to the engine
func (c *Config) CounterSettings() domain.CounterSettings {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return domain.CounterSettings{
		MaxVisitorsPerIdentity: c.MaxVisitorsPerIP,
		RateWindow:             time.Duration(c.RateLimitWindowSeconds) * time.Second,
		CountUniqueIdentities:  c.CountUniqueIPs,
		DailyResetEnabled:      c.ResetDaily,
		RecentVisitsLimit:      c.RecentVisitsLimit,
		RecentVisitsRetention:  time.Duration(c.RecentVisitsRetentionDays) * 24 * time.Hour,
		Location:               loc,
	}
}

// SnapshotRetention is how long daily snapshots are kept
func (c *Config) SnapshotRetention() time.Duration {
	return time.Duration(c.SnapshotRetentionDays) * 24 * time.Hour
}

// HasDatabase reports whether snapshot persistence is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
