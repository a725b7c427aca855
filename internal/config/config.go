// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinJWTSecretLength matches the shortest HS256 secret the verifier accepts.
const MinJWTSecretLength = 32

// Driver names the storage backend selected by DatabaseURL.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL selects the store. Required.
	// postgres:// and postgresql:// URLs use Postgres; sqlite://path opens a
	// SQLite file for single-node and local use.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// JWTSecret is the shared HS256 key bearer tokens are signed with. Required.
	JWTSecret string

	// ProximityMaxMeters is the reporting radius around a location. Defaults to 500.
	ProximityMaxMeters float64

	// OccupancyWindow is how far back reports count as recent. Defaults to 2h.
	OccupancyWindow time.Duration

	// ReportRateLimit is the number of report submissions allowed per client IP
	// in ReportRateWindow. Defaults to 10 per minute; 0 disables the limit.
	ReportRateLimit  int
	ReportRateWindow time.Duration

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// StoreTimeout bounds each store call made while serving a request. Defaults to 5s.
	StoreTimeout time.Duration

	// ReportingConsentDefault is the consent answer used until the account
	// system exposes per-user consent. Defaults to true.
	ReportingConsentDefault bool
}

// Driver reports which store DatabaseURL selects.
func (c Config) Driver() Driver {
	if strings.HasPrefix(c.DatabaseURL, "sqlite://") {
		return DriverSQLite
	}
	return DriverPostgres
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, joined
// with any values that failed to parse.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var missing []string
	var errs []error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch {
	case cfg.DatabaseURL == "":
		missing = append(missing, "DATABASE_URL")
	case !hasAnyPrefix(cfg.DatabaseURL, "postgres://", "postgresql://", "sqlite://"):
		errs = append(errs, errors.New("DATABASE_URL must start with postgres://, postgresql:// or sqlite://"))
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	switch {
	case cfg.JWTSecret == "":
		missing = append(missing, "JWT_SECRET")
	case len(cfg.JWTSecret) < MinJWTSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}

	if len(missing) > 0 {
		errs = append([]error{fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))}, errs...)
	}

	var err error
	if cfg.ProximityMaxMeters, err = parseFloat("PROXIMITY_MAX_METERS", 500); err != nil {
		errs = append(errs, err)
	}
	if cfg.OccupancyWindow, err = parseDuration("OCCUPANCY_WINDOW", 2*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReportRateLimit, err = parseInt("REPORT_RATE_LIMIT", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReportRateWindow, err = parseDuration("REPORT_RATE_WINDOW", time.Minute); err != nil {
		errs = append(errs, err)
	}
	maxBody, err := parseInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.StoreTimeout, err = parseDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReportingConsentDefault, err = parseBool("REPORTING_CONSENT_DEFAULT", true); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, v)
	}
	return f, nil
}

// parseInt accepts zero, which callers treat as "disabled".
func parseInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 5s or 2h, got %q", key, v)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, v)
	}
	return b, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
