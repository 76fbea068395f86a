// Package id provides centralized token generation for the viewer.
//
// Runtime image handles are ULID tokens behind a "blob:" scheme:
//   - Sortable: handles minted later sort later, which keeps log output readable
//   - Opaque: nothing about the payload leaks into the token
//   - Process-scoped: a handle is only meaningful to the registry that minted it
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// HandleScheme prefixes every runtime handle token.
const HandleScheme = "blob:"

// Generator generates ULIDs from a shared entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic tokens.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// Handle mints a new runtime handle token
func (g *Generator) Handle() string {
	return HandleScheme + g.Generate().String()
}

// NewHandle mints a runtime handle token from the default generator
func NewHandle() string {
	return Default().Handle()
}

// IsHandle reports whether s is a well-formed runtime handle token
func IsHandle(s string) bool {
	raw, ok := strings.CutPrefix(s, HandleScheme)
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(raw)
	return err == nil
}

// HandleTime extracts the mint time from a runtime handle token
func HandleTime(s string) (time.Time, error) {
	raw, ok := strings.CutPrefix(s, HandleScheme)
	if !ok {
		return time.Time{}, fmt.Errorf("not a runtime handle: %q", s)
	}
	parsed, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// SessionName returns the default name for a session created at t
func SessionName(t time.Time) string {
	return fmt.Sprintf("session-%d", t.UnixMilli())
}
