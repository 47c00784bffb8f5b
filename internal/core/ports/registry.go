package ports

import (
	"context"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DeviceRegistry owns the device inventory.
type DeviceRegistry interface {
	List(ctx context.Context, filter domain.DeviceFilter, skip, limit int) ([]domain.Device, error)
	All(ctx context.Context) []domain.Device
	Count(ctx context.Context) int
	Get(ctx context.Context, id string) (domain.Device, error)
	Create(ctx context.Context, spec domain.DeviceSpec) (domain.Device, error)
	Update(ctx context.Context, id string, patch domain.DevicePatch) (domain.Device, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindByIP(ctx context.Context, ip string) (domain.Device, bool)

	// UpsertObservation creates or refreshes the device owning obs.IP.
	UpsertObservation(ctx context.Context, obs domain.HostObservation) (domain.Device, bool, error)

	// RecordScanResult applies a per-device scan outcome.
	RecordScanResult(ctx context.Context, id string, outcome domain.ScanOutcome) (domain.Device, error)

	// AppendVulnerabilities adds findings and rescores the device.
	AppendVulnerabilities(ctx context.Context, id string, vulns []domain.Vulnerability) (domain.Device, error)

	// RecordAutomation marks the device as triggered and appends entry to its history.
	RecordAutomation(ctx context.Context, id string, entry string) error
}

// DeviceObserver defines the interface for components interested in device changes.
type DeviceObserver interface {
	OnDeviceAdded(ctx context.Context, device domain.Device)
	OnDeviceUpdated(ctx context.Context, device domain.Device)
	OnDeviceDeleted(ctx context.Context, id string)
}
