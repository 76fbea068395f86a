package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	mr := miniredis.RunT(t)
	rds := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("test"))
	t.Cleanup(func() { rds.Close() })

	return map[string]KV{
		"sqlite": sqlite,
		"redis":  rds,
		"memory": NewMemory(),
	}
}

func TestKVContract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.Get(ctx, "sessions")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "sessions", []byte("first")))
			got, err := kv.Get(ctx, "sessions")
			require.NoError(t, err)
			assert.Equal(t, []byte("first"), got)

			require.NoError(t, kv.Set(ctx, "sessions", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}))
			got, err = kv.Get(ctx, "sessions")
			require.NoError(t, err)
			assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, got)

			require.NoError(t, kv.Delete(ctx, "sessions"))
			_, err = kv.Get(ctx, "sessions")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Delete(ctx, "never-set"))
		})
	}
}

func TestRedisUsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("viewer"))
	defer kv.Close()

	require.NoError(t, kv.Set(context.Background(), "sessions", []byte("x")))

	assert.True(t, mr.Exists("viewer:sessions"))
	assert.False(t, mr.Exists("sessions"))
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "viewer.db")

	kv, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "sessions", []byte("kept")))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), got)
	assert.Equal(t, path, kv.Path())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(ctx, Options{Path: filepath.Join(t.TempDir(), "default.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, kv)
	kv.Close()

	mr := miniredis.RunT(t)
	kv, err = Open(ctx, Options{Backend: BackendRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, kv)
	kv.Close()

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
