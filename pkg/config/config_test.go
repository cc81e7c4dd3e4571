package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// clearEnv blanks every key LoadConfig reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HANGAR_HOST", "HANGAR_PORT", "HANGAR_HEALTH_PORT", "HANGAR_ALLOWED_ORIGIN", "HANGAR_TRUSTED_PROXIES",
		"HANGAR_READ_TIMEOUT", "HANGAR_WRITE_TIMEOUT", "HANGAR_IDLE_TIMEOUT", "HANGAR_SHUTDOWN_TIMEOUT",
		"HANGAR_SHARED_SECRET", "HANGAR_MAX_CLOCK_SKEW", "HANGAR_REPLAY_CACHE", "HANGAR_REPLAY_CACHE_SIZE",
		"HANGAR_RATE_LIMIT_REQUESTS", "HANGAR_RATE_LIMIT_WINDOW", "HANGAR_REDIS_URL",
		"HANGAR_MANIFEST_STORE", "HANGAR_MANIFEST_PATH", "HANGAR_DATABASE_URL",
		"HANGAR_PLUGIN_DIR", "HANGAR_PLUGIN_WATCH", "HANGAR_LOG_LEVEL", "HANGAR_LOG_FORMAT",
		"HANGAR_METRICS_ENABLED", "HANGAR_OTEL_ENABLED", "HANGAR_OTEL_ENDPOINT",
		"HANGAR_OTEL_SERVICE_NAME", "HANGAR_OTEL_SERVICE_VERSION", "HANGAR_OTEL_INSECURE",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", HealthPort: "9090"},
		Security: SecurityConfig{
			SharedSecret: testSecret,
			MaxClockSkew: 30 * time.Second,
		},
		RateLimit:     RateLimitConfig{Requests: 30, Window: time.Minute},
		Manifest:      ManifestConfig{Store: StoreFile, Path: "plugins.json"},
		Observability: ObservabilityConfig{LogFormat: "text"},
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "custom")
	t.Setenv("TEST_BOOL_TRUE", "TRUE")
	t.Setenv("TEST_BOOL_ONE", "1")
	t.Setenv("TEST_BOOL_FALSE", "false")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "invalid")
	t.Setenv("TEST_DURATION", "5m")
	t.Setenv("TEST_DURATION_SECONDS", "45")
	t.Setenv("TEST_DURATION_BAD", "soon")
	t.Setenv("TEST_LIST", " a, b ,,c ")
	t.Setenv("TEST_LIST_EMPTY", " , ")

	assert.Equal(t, "custom", getEnv("TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("TEST_STRING_NOT_SET", "default"))

	assert.True(t, getEnvBool("TEST_BOOL_TRUE", false))
	assert.True(t, getEnvBool("TEST_BOOL_ONE", false))
	assert.False(t, getEnvBool("TEST_BOOL_FALSE", true))
	assert.True(t, getEnvBool("TEST_BOOL_NOT_SET", true))

	assert.Equal(t, 42, getEnvInt("TEST_INT", 10))
	assert.Equal(t, 10, getEnvInt("TEST_INT_BAD", 10))
	assert.Equal(t, 10, getEnvInt("TEST_INT_NOT_SET", 10))

	assert.Equal(t, 5*time.Minute, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, 45*time.Second, getEnvDuration("TEST_DURATION_SECONDS", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION_BAD", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION_NOT_SET", time.Second))

	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST_EMPTY", []string{"x"}))
	assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST_NOT_SET", []string{"x"}))
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANGAR_SHARED_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HealthAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 30*time.Second, cfg.Security.MaxClockSkew)
	assert.False(t, cfg.Security.ReplayCache)

	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.RateLimit.RedisURL)

	assert.Equal(t, StoreFile, cfg.Manifest.Store)
	assert.Equal(t, []string{"plugins"}, cfg.Plugins.Dirs)
	assert.False(t, cfg.Plugins.Watch)

	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "text", cfg.Observability.LogFormat)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANGAR_SHARED_SECRET", testSecret)
	t.Setenv("HANGAR_PORT", "8443")
	t.Setenv("HANGAR_ALLOWED_ORIGIN", "https://admin.example.com,https://ops.example.com")
	t.Setenv("HANGAR_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.5")
	t.Setenv("HANGAR_MAX_CLOCK_SKEW", "10s")
	t.Setenv("HANGAR_REPLAY_CACHE", "true")
	t.Setenv("HANGAR_RATE_LIMIT_REQUESTS", "5")
	t.Setenv("HANGAR_RATE_LIMIT_WINDOW", "120")
	t.Setenv("HANGAR_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HANGAR_MANIFEST_STORE", "Postgres")
	t.Setenv("HANGAR_DATABASE_URL", "postgres://localhost/hangar")
	t.Setenv("HANGAR_PLUGIN_DIR", "/opt/plugins,/srv/plugins")
	t.Setenv("HANGAR_LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8443", cfg.Server.Port)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 10*time.Second, cfg.Security.MaxClockSkew)
	assert.True(t, cfg.Security.ReplayCache)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RateLimit.RedisURL)
	assert.Equal(t, StorePostgres, cfg.Manifest.Store)
	assert.Equal(t, []string{"/opt/plugins", "/srv/plugins"}, cfg.Plugins.Dirs)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoadConfig_RejectsShortSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANGAR_SHARED_SECRET", "too-short")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANGAR_PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HANGAR_DOTENV_PROBE=loaded\nHANGAR_PORT=9999\n"), 0o600))
	os.Unsetenv("HANGAR_DOTENV_PROBE")
	t.Cleanup(func() { os.Unsetenv("HANGAR_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("HANGAR_DOTENV_PROBE"))
	// already set variables win over the file
	assert.Equal(t, "7000", os.Getenv("HANGAR_PORT"))
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HANGAR_DOTENV_PROBE='unterminated\n"), 0o600))

	err := LoadDotEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid file store", mutate: func(*Config) {}},
		{
			name: "valid sqlite store",
			mutate: func(c *Config) {
				c.Manifest.Store = StoreSQLite
				c.Manifest.Path = "hangar.db"
			},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.HealthPort = "8080" },
			wantErr: "must be different",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(c *Config) { c.Server.TrustedProxies = []string{"proxy.internal"} },
			wantErr: "HANGAR_TRUSTED_PROXIES",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Security.SharedSecret = testSecret[:31] },
			wantErr: "at least 32 bytes",
		},
		{
			name:    "zero skew",
			mutate:  func(c *Config) { c.Security.MaxClockSkew = 0 },
			wantErr: "clock skew",
		},
		{
			name: "replay cache without size",
			mutate: func(c *Config) {
				c.Security.ReplayCache = true
				c.Security.ReplayCacheSize = 0
			},
			wantErr: "replay cache size",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimit.Requests = 0 },
			wantErr: "rate limit requests",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Manifest.Store = StorePostgres },
			wantErr: "database URL is required",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Manifest.Store = "etcd" },
			wantErr: "invalid manifest store",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Observability.LogFormat = "xml" },
			wantErr: "invalid log format",
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelServiceName = "hangar"
			},
			wantErr: "endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
