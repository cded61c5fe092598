package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_API_BASE_URL", "https://api.example.com/")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("TOKEN_REFRESH_INTERVAL", "")

	cfg := Load()
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 50*time.Minute, cfg.RefreshEvery)
	assert.Equal(t, "/api/auth/verify-token", cfg.ExchangePath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADMIN_API_BASE_URL", "http://localhost:8085")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("IDENTITY_VERIFY_TOKENS", "true")
	t.Setenv("TOKEN_STORE_BACKEND", "Memory")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.Identity.VerifyTokens)
	assert.Equal(t, "memory", cfg.StoreBackend)
}

func TestValidate_MissingBaseURLIsFatal(t *testing.T) {
	_, err := AppConfig{StoreBackend: "file", CacheBackend: "memory"}.Validate()
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestValidate_Warnings(t *testing.T) {
	warnings, err := AppConfig{
		APIBaseURL:   "http://x",
		StoreBackend: "memory",
		CacheBackend: "memory",
	}.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 4)
}

func TestValidate_UnknownBackend(t *testing.T) {
	_, err := AppConfig{APIBaseURL: "http://x", StoreBackend: "sqlite", CacheBackend: "memory"}.Validate()
	assert.Error(t, err)
}

func TestLoadFile_Overlay(t *testing.T) {
	t.Setenv("ADMIN_API_BASE_URL", "http://from-env")
	cfg := Load()

	path := filepath.Join(t.TempDir(), "console.yaml")
	content := "api_base_url: http://from-file/\nsocket_url: ws://from-file/ws\nidentity:\n  project_id: fleet-prod\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadFile(&cfg, path))
	assert.Equal(t, "http://from-file", cfg.APIBaseURL)
	assert.Equal(t, "ws://from-file/ws", cfg.SocketURL)
	assert.Equal(t, "fleet-prod", cfg.Identity.ProjectID)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestValidate_RedisStoreNeedsPassphrase(t *testing.T) {
	cfg := AppConfig{APIBaseURL: "http://x", StoreBackend: "redis", CacheBackend: "memory"}
	_, err := cfg.Validate()
	assert.ErrorIs(t, err, ErrSharedStoreNeedsPassphrase)

	cfg.StorePassphrase = "shared-secret"
	_, err = cfg.Validate()
	assert.NoError(t, err)
}
