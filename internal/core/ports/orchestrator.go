package ports

import (
	"context"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// ScanOrchestrator owns scan records and their execution.
type ScanOrchestrator interface {
	Start(ctx context.Context, req domain.ScanRequest) (domain.Scan, error)
	Get(ctx context.Context, id string) (domain.Scan, error)
	List(ctx context.Context, filter domain.ScanFilter, limit int) []domain.Scan
	Cancel(ctx context.Context, id string) bool
	ScanDevice(ctx context.Context, deviceID string) (domain.Device, error)
	NetworkDiscovery(ctx context.Context, networkRange string) (domain.Scan, error)
	VulnerabilityScan(ctx context.Context, target string) (domain.Scan, error)
}

// ScanHistory exposes every scan the orchestrator knows about.
type ScanHistory interface {
	History(ctx context.Context) []domain.Scan
}

// ScanObserver is notified on every scan state change.
type ScanObserver interface {
	OnScanUpdated(ctx context.Context, scan domain.Scan)
}

// StatisticsService summarizes the inventory.
type StatisticsService interface {
	Summarize(ctx context.Context) (domain.Statistics, error)
}
