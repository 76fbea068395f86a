// Package storage provides the persistent key-value stores sessions are
// saved into.
//
// Backends:
//   - sqlite: a single kv table in a local database file (default)
//   - redis: one redis key per store key, under a prefix
//   - memory: process-local, for tests and throwaway runs
//
// Every backend writes a value in one statement, so a reader sees either the
// old or the new value and never a mix.
//
// Example Usage:
//
//	kv, err := storage.Open(ctx, storage.Options{Backend: storage.BackendSQLite, Path: "viewer.db"})
//	defer kv.Close()
//	err = kv.Set(ctx, "sessions", data)
package storage
