// Package config provides 12-factor configuration for the image viewer.
//
// Configuration is loaded from environment variables with defaults. Sync
// credentials may also come from a YAML or TOML credentials file; values set
// in the environment take precedence over the file.
//
// Configuration Sections:
//   - Store: local key-value backend (sqlite, redis, memory) and key
//   - Sync: remote sync service URL, password and request timeout
//   - Flatten: native compositor command and zoom factor
//   - Logging: log level and output format
//   - Upload: image upload rate
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if cfg.Sync.Remote() { ... }
//
// Environment Variables:
//   - VIEWER_STORE, VIEWER_DB, VIEWER_REDIS_ADDR, VIEWER_REDIS_PREFIX, VIEWER_STORE_KEY
//   - VIEWER_SYNC_URL, VIEWER_SYNC_PASSWORD, VIEWER_SYNC_TIMEOUT, VIEWER_CREDENTIALS
//   - VIEWER_FLATTEN_CMD, VIEWER_ZOOM, VIEWER_UPLOAD_RATE
//   - LOG_LEVEL, LOG_DEV
package config
