package domain

import (
	"errors"
	"time"
)

// AuditAction represents a type-safe action identifier for the audit log.
type AuditAction string

// Inventory and scan audit actions
const (
	AuditDeviceCreated   AuditAction = "DEVICE_CREATED"
	AuditDeviceUpdated   AuditAction = "DEVICE_UPDATED"
	AuditDeviceDeleted   AuditAction = "DEVICE_DELETED"
	AuditDeviceScanned   AuditAction = "DEVICE_SCANNED"
	AuditScanStarted     AuditAction = "SCAN_STARTED"
	AuditScanCancelled   AuditAction = "SCAN_CANCELLED"
	AuditAutomationFired AuditAction = "AUTOMATION_FIRED"
	AuditReportExported  AuditAction = "REPORT_EXPORTED"
)

// Domain Errors
var (
	ErrInvalidAuditAction = errors.New("invalid audit action")
	ErrMissingActor       = errors.New("actor identification is required for auditing")
)

// AuditLog is a record of a state-changing operation.
type AuditLog struct {
	ID        uint        `json:"id"`
	Actor     string      `json:"actor"`
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"` // device or scan id
	Details   string      `json:"details"`
	IPAddress string      `json:"ip_address"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog is the designated factory for creating valid AuditLog entities.
func NewAuditLog(actor string, action AuditAction, target, details, ip string) (*AuditLog, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}

	if !isValidAuditAction(action) {
		return nil, ErrInvalidAuditAction
	}

	return &AuditLog{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: ip,
		Timestamp: time.Now().UTC(),
	}, nil
}

func isValidAuditAction(action AuditAction) bool {
	switch action {
	case AuditDeviceCreated, AuditDeviceUpdated, AuditDeviceDeleted, AuditDeviceScanned,
		AuditScanStarted, AuditScanCancelled, AuditAutomationFired, AuditReportExported:
		return true
	}
	return false
}
