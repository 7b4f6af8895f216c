// Package uuid provides the identifiers used by the client: time-ordered
// UUIDv7 request ids for log correlation and random names for scratch files.
// It wraps github.com/google/uuid.
package uuid

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// New returns a new UUIDv7. Panics if UUID generation fails.
func New() UUID {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return uuidv7
}

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// Parse parses a UUID string into a UUID value.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDv7 reports whether the given UUID is a valid UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// RequestID returns an identifier for one outgoing call. It falls back to a
// timestamp based id if the random source fails.
func RequestID() string {
	u, err := NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

// RandomName returns n lowercase hex characters drawn from random (version 4)
// UUIDs. Two calls never share a name in practice.
func RandomName(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid name length %d", n)
	}
	buf := make([]byte, 0, n+32)
	for len(buf) < n {
		u, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generating random name: %w", err)
		}
		buf = hex.AppendEncode(buf, u[:])
	}
	return string(buf[:n]), nil
}
