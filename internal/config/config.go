package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingBaseURL is fatal at startup: nothing works without a backend.
var ErrMissingBaseURL = errors.New("ADMIN_API_BASE_URL is required")

// ErrSharedStoreNeedsPassphrase is returned for a redis token store without a
// passphrase: the host-derived key differs on every host sharing the store.
var ErrSharedStoreNeedsPassphrase = errors.New("TOKEN_STORE_PASSPHRASE is required when TOKEN_STORE_BACKEND=redis")

type AppConfig struct {
	// Backend
	APIBaseURL     string        `yaml:"api_base_url"`
	SocketURL      string        `yaml:"socket_url"`
	ExchangePath   string        `yaml:"exchange_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RefreshEvery   time.Duration `yaml:"refresh_interval"`

	// Identity provider
	Identity IdentityConfig `yaml:"identity"`

	// Bot mitigation
	RecaptchaSiteKey string `yaml:"recaptcha_site_key"`

	// Token store
	StoreBackend    string `yaml:"store_backend"` // file, redis, memory
	StoreDir        string `yaml:"store_dir"`
	StorePassphrase string `yaml:"-"`

	// Redis (token store + cache)
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"-"`
	RedisDB   int    `yaml:"redis_db"`

	// Cache
	CacheBackend string        `yaml:"cache_backend"` // memory, redis
	CacheTTL     time.Duration `yaml:"cache_ttl"`

	LogLevel string `yaml:"log_level"`

	// Mock backend
	MockAddr          string `yaml:"mock_addr"`
	MockJWTSecret     string `yaml:"-"`
	MockAdminEmail    string `yaml:"mock_admin_email"`
	MockAdminPassword string `yaml:"-"`
	MockSeed          bool   `yaml:"mock_seed"`
}

type IdentityConfig struct {
	APIKey       string `yaml:"api_key"`
	ProjectID    string `yaml:"project_id"`
	AuthDomain   string `yaml:"auth_domain"`
	APIBase      string `yaml:"api_base"`
	TokenBase    string `yaml:"token_base"`
	VerifyTokens bool   `yaml:"verify_tokens"`
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		APIBaseURL:     strings.TrimRight(getEnv("ADMIN_API_BASE_URL", ""), "/"),
		SocketURL:      getEnv("ADMIN_SOCKET_URL", ""),
		ExchangePath:   getEnv("SESSION_EXCHANGE_PATH", "/api/auth/verify-token"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		RefreshEvery:   getEnvDuration("TOKEN_REFRESH_INTERVAL", 50*time.Minute),

		Identity: IdentityConfig{
			APIKey:       getEnv("IDENTITY_API_KEY", ""),
			ProjectID:    getEnv("IDENTITY_PROJECT_ID", ""),
			AuthDomain:   getEnv("IDENTITY_AUTH_DOMAIN", ""),
			APIBase:      getEnv("IDENTITY_API_BASE", "https://identitytoolkit.googleapis.com"),
			TokenBase:    getEnv("IDENTITY_TOKEN_BASE", "https://securetoken.googleapis.com"),
			VerifyTokens: getEnvBool("IDENTITY_VERIFY_TOKENS", false),
		},

		RecaptchaSiteKey: getEnv("RECAPTCHA_SITE_KEY", ""),

		StoreBackend:    strings.ToLower(getEnv("TOKEN_STORE_BACKEND", "file")),
		StoreDir:        getEnv("TOKEN_STORE_DIR", defaultStoreDir()),
		StorePassphrase: getEnv("TOKEN_STORE_PASSPHRASE", ""),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		MockAddr:          getEnv("MOCK_ADDR", ":8085"),
		MockJWTSecret:     getEnv("MOCK_JWT_SECRET", "dev-only-secret"),
		MockAdminEmail:    getEnv("MOCK_ADMIN_EMAIL", "admin@example.com"),
		MockAdminPassword: getEnv("MOCK_ADMIN_PASSWORD", "admin123"),
		MockSeed:          getEnvBool("MOCK_SEED", true),
	}
}

// LoadFile overlays a YAML file onto cfg. Keys absent from the file keep
// their environment values.
func LoadFile(cfg *AppConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return nil
}

// Validate returns ErrMissingBaseURL when the backend is not configured and
// a list of warnings for settings the console can start without.
func (c AppConfig) Validate() (warnings []string, err error) {
	if c.APIBaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if c.SocketURL == "" {
		warnings = append(warnings, "ADMIN_SOCKET_URL not set, realtime updates disabled")
	}
	if c.Identity.APIKey == "" {
		warnings = append(warnings, "IDENTITY_API_KEY not set, sign-in will fail")
	}
	if c.Identity.ProjectID == "" {
		warnings = append(warnings, "IDENTITY_PROJECT_ID not set")
	}
	if c.RecaptchaSiteKey == "" {
		warnings = append(warnings, "RECAPTCHA_SITE_KEY not set")
	}
	switch c.StoreBackend {
	case "file", "redis", "memory":
	default:
		return warnings, fmt.Errorf("unknown TOKEN_STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreBackend == "redis" && c.StorePassphrase == "" {
		return warnings, ErrSharedStoreNeedsPassphrase
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return warnings, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return warnings, nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dispatch-console"
	}
	return filepath.Join(dir, "dispatch-console")
}
