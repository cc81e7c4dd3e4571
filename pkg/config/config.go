package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/platinummonkey/hangar/pkg/httputil"
)

// MinSecretLength is the smallest shared secret the control plane accepts
const MinSecretLength = 32

// Manifest store backends
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Manifest      ManifestConfig
	Plugins       PluginsConfig
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

	// AllowedOrigins is the CORS allow list for the control plane
	AllowedOrigins []string
	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers
	// identify the client. Empty means clients are keyed by peer address.
	TrustedProxies []string
}

// SecurityConfig holds request signing settings
type SecurityConfig struct {
	SharedSecret string
	MaxClockSkew time.Duration
	ReplayCache  bool
	// ReplayCacheSize bounds the remembered signatures when ReplayCache is on
	ReplayCacheSize int
}

// RateLimitConfig holds control plane rate limiting settings
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// RedisURL switches to the distributed limiter when set
	RedisURL string
}

// ManifestConfig selects where plugin manifest entries are persisted
type ManifestConfig struct {
	Store       string
	Path        string
	DatabaseURL string
}

// PluginsConfig holds plugin discovery settings
type PluginsConfig struct {
	Dirs []string
	// Watch logs manifest changes on disk; they still need a restart to apply
	Watch bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables, after merging
// an optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:        loadServerConfig(),
		Security:      loadSecurityConfig(),
		RateLimit:     loadRateLimitConfig(),
		Manifest:      loadManifestConfig(),
		Plugins:       loadPluginsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv merges the given .env files into the process environment.
// Missing files are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HANGAR_HOST", "0.0.0.0"),
		Port:            getEnv("HANGAR_PORT", "8080"),
		ReadTimeout:     getEnvDuration("HANGAR_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HANGAR_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HANGAR_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HANGAR_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("HANGAR_HEALTH_PORT", "9090"),
		AllowedOrigins:  getEnvList("HANGAR_ALLOWED_ORIGIN", []string{"http://localhost:3000"}),
		TrustedProxies:  getEnvList("HANGAR_TRUSTED_PROXIES", nil),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		SharedSecret:    os.Getenv("HANGAR_SHARED_SECRET"),
		MaxClockSkew:    getEnvDuration("HANGAR_MAX_CLOCK_SKEW", 30*time.Second),
		ReplayCache:     getEnvBool("HANGAR_REPLAY_CACHE", false),
		ReplayCacheSize: getEnvInt("HANGAR_REPLAY_CACHE_SIZE", 10000),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: getEnvInt("HANGAR_RATE_LIMIT_REQUESTS", 30),
		Window:   getEnvDuration("HANGAR_RATE_LIMIT_WINDOW", time.Minute),
		RedisURL: getEnv("HANGAR_REDIS_URL", ""),
	}
}

func loadManifestConfig() ManifestConfig {
	return ManifestConfig{
		Store:       strings.ToLower(getEnv("HANGAR_MANIFEST_STORE", StoreFile)),
		Path:        getEnv("HANGAR_MANIFEST_PATH", "data/plugins.json"),
		DatabaseURL: getEnv("HANGAR_DATABASE_URL", ""),
	}
}

func loadPluginsConfig() PluginsConfig {
	return PluginsConfig{
		Dirs:  getEnvList("HANGAR_PLUGIN_DIR", []string{"plugins"}),
		Watch: getEnvBool("HANGAR_PLUGIN_WATCH", false),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           strings.ToLower(getEnv("HANGAR_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("HANGAR_LOG_FORMAT", "text")),
		MetricsEnabled:     getEnvBool("HANGAR_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("HANGAR_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("HANGAR_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("HANGAR_OTEL_SERVICE_NAME", "hangar"),
		OTelServiceVersion: getEnv("HANGAR_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("HANGAR_OTEL_INSECURE", true),
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
	if _, err := httputil.NewProxyResolver(c.Server.TrustedProxies); err != nil {
		return fmt.Errorf("HANGAR_TRUSTED_PROXIES: %w", err)
	}

	if len(c.Security.SharedSecret) < MinSecretLength {
		return fmt.Errorf("HANGAR_SHARED_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.Security.MaxClockSkew <= 0 {
		return fmt.Errorf("max clock skew must be positive")
	}
	if c.Security.ReplayCache && c.Security.ReplayCacheSize <= 0 {
		return fmt.Errorf("replay cache size must be positive when the replay cache is enabled")
	}

	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	switch c.Manifest.Store {
	case StoreFile, StoreSQLite:
		if c.Manifest.Path == "" {
			return fmt.Errorf("manifest path is required for %s manifest store", c.Manifest.Store)
		}
	case StorePostgres:
		if c.Manifest.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres manifest store")
		}
	default:
		return fmt.Errorf("invalid manifest store: %s (must be file, sqlite, or postgres)", c.Manifest.Store)
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
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

// Addr returns the control plane listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// HealthAddr returns the health/metrics listen address
func (s ServerConfig) HealthAddr() string {
	return s.Host + ":" + s.HealthPort
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

// getEnvDuration returns a duration environment variable or a default.
// Bare integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
