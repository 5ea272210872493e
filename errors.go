package aradel

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDriver is returned when an operation needs a driver and none has
	// been attached yet, either through WithDriver or Connect.
	ErrNoDriver = errors.New("connection has no driver attached")
)

// ConnectionError reports a failure to establish the initial connection.
// The DSN it carries is the canonical form without credentials, so the error
// text is safe to log verbatim.
type ConnectionError struct {
	DSN string // Canonical DSN of the attempted connection.
	Err error  // The underlying driver error.
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s : %v", e.DSN, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtectionError reports a failure while building a safe SQL literal or
// while resolving table metadata that was expected to exist.
type ProtectionError struct {
	Op  string // What was being attempted, e.g. "quoting value".
	Err error  // The underlying error.
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("%s : %v", e.Op, e.Err)
}

func (e *ProtectionError) Unwrap() error {
	return e.Err
}
