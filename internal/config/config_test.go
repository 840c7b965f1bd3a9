package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes every PASSVAULT_ variable absent for the duration of the
// test. t.Setenv registers the restore; Unsetenv removes the empty value so
// LookupEnv misses.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PASSVAULT_DB_PATH",
		"PASSVAULT_LISTEN_ADDR",
		"PASSVAULT_DATABASE_URL",
		"PASSVAULT_REMOTE_URL",
		"PASSVAULT_SYNC",
		"PASSVAULT_REMOTE_TIMEOUT",
		"PASSVAULT_RETRY_ATTEMPTS",
		"PASSVAULT_ALLOWED_ORIGIN",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "passvault.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RemoteURL)
	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.False(t, cfg.Hybrid())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSVAULT_DB_PATH", "/tmp/vault.db")
	t.Setenv("PASSVAULT_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("PASSVAULT_REMOTE_URL", "https://sync.example.com")
	t.Setenv("PASSVAULT_SYNC", "true")
	t.Setenv("PASSVAULT_REMOTE_TIMEOUT", "5s")
	t.Setenv("PASSVAULT_RETRY_ATTEMPTS", "5")
	t.Setenv("PASSVAULT_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/vault.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "https://sync.example.com", cfg.RemoteURL)
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, "http://localhost:3000", cfg.AllowedOrigin)
	assert.True(t, cfg.Hybrid())
}

func TestLoadInvalidBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSVAULT_SYNC", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSVAULT_SYNC")
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSVAULT_REMOTE_TIMEOUT", "ten seconds")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSVAULT_REMOTE_TIMEOUT")
}

func TestLoadInvalidRetryAttempts(t *testing.T) {
	clearEnv(t)

	for _, v := range []string{"zero", "0", "-1"} {
		t.Setenv("PASSVAULT_RETRY_ATTEMPTS", v)
		_, err := Load()
		assert.Error(t, err, "value %q must be rejected", v)
	}
}

func TestLoadSyncWithoutRemoteURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSVAULT_SYNC", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSVAULT_REMOTE_URL")
}
