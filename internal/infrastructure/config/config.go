package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all viewer configuration.
type Config struct {
	Store   StoreConfig
	Sync    SyncConfig
	Flatten FlattenConfig
	Logging LogConfig
	Upload  UploadConfig
}

// StoreConfig selects the local key-value store.
type StoreConfig struct {
	Backend     string `envconfig:"VIEWER_STORE" default:"sqlite"`
	Path        string `envconfig:"VIEWER_DB" default:"imageviewer.db"`
	RedisAddr   string `envconfig:"VIEWER_REDIS_ADDR" default:"localhost:6379"`
	RedisPrefix string `envconfig:"VIEWER_REDIS_PREFIX" default:"imageviewer"`
	Key         string `envconfig:"VIEWER_STORE_KEY" default:"sessions"`
}

// SyncConfig holds the remote sync service settings. An empty URL selects
// local mode.
type SyncConfig struct {
	URL             string        `envconfig:"VIEWER_SYNC_URL"`
	Password        string        `envconfig:"VIEWER_SYNC_PASSWORD"`
	Timeout         time.Duration `envconfig:"VIEWER_SYNC_TIMEOUT" default:"10s"`
	CredentialsFile string        `envconfig:"VIEWER_CREDENTIALS"`
}

// FlattenConfig locates the native compositor.
type FlattenConfig struct {
	Command string  `envconfig:"VIEWER_FLATTEN_CMD"`
	Zoom    float64 `envconfig:"VIEWER_ZOOM" default:"1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// UploadConfig throttles image uploads to the sync service.
type UploadConfig struct {
	RatePerSecond float64 `envconfig:"VIEWER_UPLOAD_RATE" default:"4"`
}

// Remote reports whether a sync service is configured.
func (s SyncConfig) Remote() bool {
	return s.URL != ""
}

// Load loads configuration from environment variables, then fills sync
// credentials the environment left empty from the credentials file. A
// credentials file that does not exist yet counts as empty.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Sync.CredentialsFile != "" {
		creds, err := LoadCredentials(cfg.Sync.CredentialsFile)
		switch {
		case err == nil:
			cfg.MergeCredentials(creds)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     "sqlite",
			Path:        "imageviewer.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "imageviewer",
			Key:         "sessions",
		},
		Sync: SyncConfig{
			Timeout: 10 * time.Second,
		},
		Flatten: FlattenConfig{
			Zoom: 1,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Upload: UploadConfig{
			RatePerSecond: 4,
		},
	}
}

// MergeCredentials copies file credentials into fields still empty.
func (c *Config) MergeCredentials(creds Credentials) {
	if c.Sync.URL == "" {
		c.Sync.URL = creds.URL
	}
	if c.Sync.Password == "" {
		c.Sync.Password = creds.Password
	}
}
