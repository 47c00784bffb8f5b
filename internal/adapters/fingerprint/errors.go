package fingerprint

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases
var (
	// ErrInvalidMAC indicates the MAC address format is invalid
	ErrInvalidMAC = errors.New("invalid MAC address format")

	// ErrVendorNotFound indicates no vendor was found for the given MAC
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrRepositoryClosed indicates the repository has been closed
	ErrRepositoryClosed = errors.New("repository is closed")
)

// DatabaseError wraps database-specific errors with context
type DatabaseError struct {
	Op  string // Operation that failed (e.g., "lookup", "insert")
	Err error  // Underlying error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// LookupError reports a failed remote vendor lookup.
type LookupError struct {
	Source string
	Status int
	Err    error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s lookup failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s lookup failed: status %d", e.Source, e.Status)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
