// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	DBPath        string
	ListenAddr    string
	DatabaseURL   string // server-side PostgreSQL DSN; empty selects SQLite
	RemoteURL     string // sync service base URL; empty means local-only
	SyncEnabled   bool
	RemoteTimeout time.Duration
	RetryAttempts int
	AllowedOrigin string
}

// Hybrid reports whether writes should be mirrored to the remote service.
func (c *Config) Hybrid() bool {
	return c.SyncEnabled && c.RemoteURL != ""
}

// Load reads configuration from environment variables and returns a
// validated Config. Everything is optional: PASSVAULT_DB_PATH
// (passvault.db), PASSVAULT_LISTEN_ADDR (127.0.0.1:8080),
// PASSVAULT_DATABASE_URL, PASSVAULT_REMOTE_URL, PASSVAULT_SYNC (false),
// PASSVAULT_REMOTE_TIMEOUT (10s), PASSVAULT_RETRY_ATTEMPTS (3),
// PASSVAULT_ALLOWED_ORIGIN (*).
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        "passvault.db",
		ListenAddr:    "127.0.0.1:8080",
		DatabaseURL:   os.Getenv("PASSVAULT_DATABASE_URL"),
		RemoteURL:     os.Getenv("PASSVAULT_REMOTE_URL"),
		RemoteTimeout: 10 * time.Second,
		RetryAttempts: 3,
		AllowedOrigin: "*",
	}

	if v, ok := os.LookupEnv("PASSVAULT_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("PASSVAULT_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("PASSVAULT_ALLOWED_ORIGIN"); ok && v != "" {
		cfg.AllowedOrigin = v
	}

	if v, ok := os.LookupEnv("PASSVAULT_SYNC"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PASSVAULT_SYNC has invalid boolean %q: %w", v, err)
		}
		cfg.SyncEnabled = parsed
	}

	if v, ok := os.LookupEnv("PASSVAULT_REMOTE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PASSVAULT_REMOTE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		cfg.RemoteTimeout = parsed
	}

	if v, ok := os.LookupEnv("PASSVAULT_RETRY_ATTEMPTS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("PASSVAULT_RETRY_ATTEMPTS has invalid value %q", v)
		}
		cfg.RetryAttempts = parsed
	}

	if cfg.SyncEnabled && cfg.RemoteURL == "" {
		return nil, fmt.Errorf("PASSVAULT_SYNC is enabled but PASSVAULT_REMOTE_URL is empty")
	}

	return cfg, nil
}
