package ports

import (
	"context"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// Scanner performs the network probing behind a scan. Every call may fail;
// failures surface as scan failures, never as crashes.
type Scanner interface {
	// Discover enumerates live hosts in target (IP, CIDR range or hostname).
	Discover(ctx context.Context, target string, timeout time.Duration) ([]domain.HostObservation, error)

	// ScanHost probes a single host. An empty ports list uses the scanner defaults.
	ScanHost(ctx context.Context, target string, ports []int, timeout time.Duration) (domain.HostScan, error)

	// AssessVulnerabilities returns the findings for a single host. Aggressive
	// assessments also report low-signal exposures.
	AssessVulnerabilities(ctx context.Context, target string, aggressive bool) ([]domain.Vulnerability, error)
}

// Notifier delivers automation events to an external system.
type Notifier interface {
	// Deliver hands payload to the sink. It never panics and reports failure
	// through the result rather than an error return.
	Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult

	// Name identifies the sink in logs and metrics.
	Name() string
}

// VendorLookup resolves manufacturers for OUIs missing from the static table.
type VendorLookup interface {
	LookupVendor(ctx context.Context, mac domain.MACAddress) domain.VendorLookupResult
}

// Classifier maps raw signals to a device identity.
type Classifier interface {
	Classify(ctx context.Context, signals domain.Signals) domain.Identity
}

// AutomationTrigger fires automation events for a device.
type AutomationTrigger interface {
	Fire(ctx context.Context, deviceID string, action domain.AutomationAction) bool
}
