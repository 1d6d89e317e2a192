// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Placeholder values shipped in example env files. They double as the
// "remote store not configured" sentinel.
const (
	PlaceholderRemoteURL = "https://your-project-url.supabase.co"
	PlaceholderRemoteKey = "your-anon-key"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	CORSOrigins []string

	// LocalStorePath is the SQLite file backing the local store.
	// Defaults to "trip-countdown.db".
	LocalStorePath string

	// Location is the time zone datetime-local input is interpreted in.
	// Set TRIP_TIMEZONE to an IANA name; defaults to the host's local zone.
	Location *time.Location

	// RemoteURL and RemoteKey address a PostgREST/Supabase endpoint.
	// They default to the placeholders, which disable the remote store.
	RemoteURL string
	RemoteKey string

	// DatabaseURL is an optional direct Postgres connection string for the
	// remote store. When set it takes precedence over RemoteURL.
	DatabaseURL string

	// RemoteTimeout bounds each remote HTTP call. Defaults to 10s.
	RemoteTimeout time.Duration

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing every variable that is set but malformed.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LocalStorePath: getEnv("LOCAL_STORE_PATH", "trip-countdown.db"),
		RemoteURL:      getEnv("SUPABASE_URL", PlaceholderRemoteURL),
		RemoteKey:      getEnv("SUPABASE_ANON_KEY", PlaceholderRemoteKey),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}

	var invalid []string

	loc, err := time.LoadLocation(getEnv("TRIP_TIMEZONE", "Local"))
	if err != nil {
		invalid = append(invalid, "TRIP_TIMEZONE")
	}
	cfg.Location = loc

	cfg.RemoteTimeout, err = time.ParseDuration(getEnv("REMOTE_TIMEOUT", "10s"))
	if err != nil || cfg.RemoteTimeout <= 0 {
		invalid = append(invalid, "REMOTE_TIMEOUT")
	}

	cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// RESTConfigured reports whether RemoteURL and RemoteKey hold real values,
// i.e. neither is empty nor the shipped placeholder.
func (c Config) RESTConfigured() bool {
	return c.RemoteURL != "" && c.RemoteURL != PlaceholderRemoteURL &&
		c.RemoteKey != "" && c.RemoteKey != PlaceholderRemoteKey
}

// RemoteConfigured reports whether any remote trip store is available.
func (c Config) RemoteConfigured() bool {
	return c.DatabaseURL != "" || c.RESTConfigured()
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
