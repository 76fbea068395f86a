package image

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/imageviewer/internal/shared/id"
)

// Resolver turns handles into bytes and back
type Resolver interface {
	Fetch(ctx context.Context, h Handle) (Blob, error)
	Materialize(ctx context.Context, b Blob) (Handle, error)
}

// RemoteFetcher downloads served image URLs
type RemoteFetcher interface {
	FetchImage(ctx context.Context, url string) (Blob, error)
}

// Registry owns the runtime handles of one process, the way a browser owns
// its object URLs. Handles stay valid until Release or until the process ends.
type Registry struct {
	mu     sync.RWMutex
	blobs  map[Handle]Blob
	ids    *id.Generator
	remote RemoteFetcher
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithRemote lets the registry resolve served http(s) URLs
func WithRemote(f RemoteFetcher) RegistryOption {
	return func(r *Registry) {
		r.remote = f
	}
}

// WithGenerator overrides the token generator
func WithGenerator(g *id.Generator) RegistryOption {
	return func(r *Registry) {
		r.ids = g
	}
}

// NewRegistry creates an empty handle registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		blobs: make(map[Handle]Blob),
		ids:   id.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Materialize stores the blob and mints a runtime handle for it
func (r *Registry) Materialize(ctx context.Context, b Blob) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.MIME == "" {
		b = NewBlob(b.Data)
	}

	h := Handle(r.ids.Handle())

	r.mu.Lock()
	r.blobs[h] = b
	r.mu.Unlock()

	return h, nil
}

// Fetch returns the bytes behind a handle
func (r *Registry) Fetch(ctx context.Context, h Handle) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	switch {
	case h.IsRuntime():
		r.mu.RLock()
		b, ok := r.blobs[h]
		r.mu.RUnlock()
		if !ok {
			return Blob{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		return b, nil
	case h.IsInline():
		return ParseDataURL(string(h))
	case h.IsRemote():
		if r.remote == nil {
			return Blob{}, fmt.Errorf("%w: no remote fetcher for %s", ErrUnknownHandle, h)
		}
		b, err := r.remote.FetchImage(ctx, string(h))
		if err != nil {
			return Blob{}, fmt.Errorf("fetch %s: %w", h, err)
		}
		return b, nil
	default:
		return Blob{}, fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}
}

// Release forgets a runtime handle. Releasing an unknown handle is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	delete(r.blobs, h)
	r.mu.Unlock()
}

// ReleaseAll forgets every runtime handle
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	r.blobs = make(map[Handle]Blob)
	r.mu.Unlock()
}

// Len returns the number of live runtime handles
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
