package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four failure classes of the engine.
var (
	// ErrNotFound indicates an unknown device or scan id
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed caller input
	ErrValidation = errors.New("validation failed")

	// ErrExecution indicates a scanner failure during scan execution
	ErrExecution = errors.New("scan execution failed")

	// ErrAutomation indicates an automation delivery failure
	ErrAutomation = errors.New("automation delivery failed")
)

// Validation causes.
var (
	ErrRequired      = errors.New("value is required")
	ErrInvalidIP     = errors.New("invalid IP address")
	ErrInvalidMAC    = errors.New("invalid MAC address format")
	ErrInvalidEnum   = errors.New("unsupported value")
	ErrInvalidTarget = errors.New("target must be an IP, CIDR range or hostname")
	ErrOutOfRange    = errors.New("value out of range")
	ErrInvalidBody   = errors.New("malformed request body")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string // "device" or "scan"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError wraps validation errors with the invalid value
type ValidationError struct {
	Field string // Field that failed validation
	Value string // Invalid value
	Err   error  // Underlying cause
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s=%q: %v", e.Field, e.Value, e.Err)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, value string, cause error) error {
	return &ValidationError{Field: field, Value: value, Err: cause}
}

// ExecutionError is recorded on a scan whose strategy failed.
type ExecutionError struct {
	ScanID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.ScanID, e.Err)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// AutomationError describes a failed delivery to an automation sink.
type AutomationError struct {
	Action string
	Sink   string
	Err    error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("automation %s via %s: %v", e.Action, e.Sink, e.Err)
}

func (e *AutomationError) Is(target error) bool {
	return target == ErrAutomation
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}
