package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for session lookup. Callers treat both as "log in again";
// the store distinguishes them internally for cleanup.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// ConnectionTestError reports that a descriptor failed validation: the target
// was unreachable, the credentials were rejected, or the 10s test timed out.
type ConnectionTestError struct {
	Err error
}

func (e *ConnectionTestError) Error() string {
	return fmt.Sprintf("connection test failed: %v", e.Err)
}

func (e *ConnectionTestError) Unwrap() error { return e.Err }

// QueryError wraps the engine's native error for a failed statement.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// UnsupportedEngineError is a programmer/config error: a descriptor declares
// an engine with no adapter.
type UnsupportedEngineError struct {
	Engine Engine
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported engine: %s", e.Engine)
}
