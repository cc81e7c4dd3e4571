// Package config loads hangar configuration from HANGAR_* environment variables.
//
// An optional .env file in the working directory is merged first; variables
// already present in the environment always win.
//
// Server settings:
//
//	HANGAR_HOST="0.0.0.0"
//	HANGAR_PORT="8080"
//	HANGAR_HEALTH_PORT="9090"
//	HANGAR_ALLOWED_ORIGIN="https://admin.example.com"
//	HANGAR_TRUSTED_PROXIES="10.0.0.0/8"   # forwarding headers honored only from these peers
//	HANGAR_SHUTDOWN_TIMEOUT="30s"
//
// Control plane security:
//
//	HANGAR_SHARED_SECRET="..."       # required, at least 32 bytes
//	HANGAR_MAX_CLOCK_SKEW="30s"
//	HANGAR_REPLAY_CACHE="false"
//	HANGAR_RATE_LIMIT_REQUESTS="30"
//	HANGAR_RATE_LIMIT_WINDOW="60s"
//	HANGAR_REDIS_URL="redis://localhost:6379/0"  # enables the distributed limiter
//
// Plugins and manifest persistence:
//
//	HANGAR_PLUGIN_DIR="plugins"      # comma separated
//	HANGAR_PLUGIN_WATCH="false"      # log plugin.yaml edits that need a restart
//	HANGAR_MANIFEST_STORE="file"     # file, sqlite, postgres
//	HANGAR_MANIFEST_PATH="data/plugins.json"
//	HANGAR_DATABASE_URL="postgres://localhost/hangar?sslmode=disable"
//
// Observability:
//
//	HANGAR_LOG_LEVEL="info"          # debug, info, warn, error
//	HANGAR_LOG_FORMAT="text"         # text, json
//	HANGAR_METRICS_ENABLED="true"
//	HANGAR_OTEL_ENABLED="false"
//	HANGAR_OTEL_ENDPOINT="localhost:4317"
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
