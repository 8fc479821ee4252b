// Package id provides identifier generation for playcha.
//
// Two formats are in use:
//   - Session ids are random UUIDs, matching what callers of the
//     sessions.create command expect when they do not name a session.
//   - Request, trace and span ids are prefixed ULIDs (req_*, trace_*, span_*),
//     which sort by creation time and make logs easy to follow.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a browser session
type SessionID string

// RequestID identifies an inbound API request
type RequestID string

const (
	RequestPrefix = "req"
	TracePrefix   = "trace"
	SpanPrefix    = "span"
)

// Generator generates ULIDs with optional prefixes
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

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a random session id
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return Default().GenerateWithPrefix(TracePrefix)
}

// NewSpanID generates a new span ID
func NewSpanID() string {
	return Default().GenerateWithPrefix(SpanPrefix)
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsSessionID reports whether s looks like a generated session id
func IsSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
