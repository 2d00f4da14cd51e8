package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

const (
	// TraceIDLength is the length of a trace ID in hex characters (16 bytes)
	TraceIDLength = 32
	// RunIDPrefix prefixes script run identifiers
	RunIDPrefix = "run-"
)

var traceIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewUUID generates a new UUID v4
func NewUUID() uuid.UUID {
	return uuid.New()
}

// NewTraceID generates a 32 hex character trace ID
func NewTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure means the platform entropy source is broken
		return uuid.New().String()[:8] + uuid.New().String()[:8] + uuid.New().String()[:8] + uuid.New().String()[:8]
	}
	return hex.EncodeToString(b)
}

// NewRunID generates a script run identifier
func NewRunID() string {
	return fmt.Sprintf("%s%s", RunIDPrefix, uuid.New().String())
}

// ValidateTraceID reports whether s is a well-formed trace ID
func ValidateTraceID(s string) bool {
	return traceIDPattern.MatchString(s)
}
