package ports

import (
	"context"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DeviceStore persists device snapshots.
type DeviceStore interface {
	SaveDevicesBatch(ctx context.Context, devices []domain.Device) error
	DeleteDevices(ctx context.Context, ids []string) error
	LoadDevices(ctx context.Context) ([]domain.Device, error)
}

// ScanStore persists scan records.
type ScanStore interface {
	SaveScansBatch(ctx context.Context, scans []domain.Scan) error
	LoadScans(ctx context.Context, limit int) ([]domain.Scan, error)
}

// Storage is the complete durable store.
type Storage interface {
	DeviceStore
	ScanStore
	Close() error
}
