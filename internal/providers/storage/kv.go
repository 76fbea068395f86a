package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when a key holds no value
var ErrNotFound = errors.New("key not found")

// KV is an async get/set store keyed by string
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names a KV implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// Options selects and configures a backend
type Options struct {
	Backend     Backend
	Path        string // sqlite database file
	RedisAddr   string
	RedisPrefix string
	Timeout     time.Duration
}

// Open creates the KV named by opts.Backend
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:        opts.RedisAddr,
			DialTimeout: opts.Timeout,
		})
		store := NewRedis(client, WithPrefix(opts.RedisPrefix))
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("storage: ping redis %s: %w", opts.RedisAddr, err)
		}
		return store, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
