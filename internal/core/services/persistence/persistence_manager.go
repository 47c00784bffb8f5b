// Package persistence writes registry and scan changes to durable storage in
// batches, off the request path.
package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

type changeKind int

const (
	deviceSaved changeKind = iota
	deviceDeleted
	scanSaved
)

type change struct {
	kind   changeKind
	device domain.Device
	scan   domain.Scan
	id     string
}

// batch accumulates the latest state per id between flushes.
type batch struct {
	devices map[string]domain.Device
	deleted map[string]struct{}
	scans   map[string]domain.Scan
}

func newBatch() *batch {
	return &batch{
		devices: make(map[string]domain.Device),
		deleted: make(map[string]struct{}),
		scans:   make(map[string]domain.Scan),
	}
}

func (b *batch) size() int {
	return len(b.devices) + len(b.deleted) + len(b.scans)
}

// Observers run concurrently, so notifications may arrive out of order.
// The newer device snapshot and the more advanced scan state always win.
func (b *batch) add(c change) {
	switch c.kind {
	case deviceSaved:
		if _, gone := b.deleted[c.device.ID]; gone {
			return
		}
		if prev, ok := b.devices[c.device.ID]; ok && prev.LastUpdated.After(c.device.LastUpdated) {
			return
		}
		b.devices[c.device.ID] = c.device
	case deviceDeleted:
		delete(b.devices, c.id)
		b.deleted[c.id] = struct{}{}
	case scanSaved:
		if prev, ok := b.scans[c.scan.ID]; ok && stateRank(prev.State) > stateRank(c.scan.State) {
			return
		}
		b.scans[c.scan.ID] = c.scan
	}
}

// ledger remembers what has already been accepted across flushes, so a late
// notification cannot overwrite a newer row that an earlier batch wrote, and
// a device removed from the inventory stays removed. Device ids are never
// reused, so tombstones are kept for the life of the loop.
type ledger struct {
	devices    map[string]time.Time
	tombstones map[string]struct{}
	scans      map[string]int
}

func newLedger() *ledger {
	return &ledger{
		devices:    make(map[string]time.Time),
		tombstones: make(map[string]struct{}),
		scans:      make(map[string]int),
	}
}

// admit reports whether c is at least as new as everything accepted before
// it for the same id, and records it if so.
func (l *ledger) admit(c change) bool {
	switch c.kind {
	case deviceSaved:
		if _, gone := l.tombstones[c.device.ID]; gone {
			return false
		}
		if prev, ok := l.devices[c.device.ID]; ok && prev.After(c.device.LastUpdated) {
			return false
		}
		l.devices[c.device.ID] = c.device.LastUpdated
	case deviceDeleted:
		delete(l.devices, c.id)
		l.tombstones[c.id] = struct{}{}
	case scanSaved:
		rank := stateRank(c.scan.State)
		if prev, ok := l.scans[c.scan.ID]; ok && prev > rank {
			return false
		}
		l.scans[c.scan.ID] = rank
	}
	return true
}

func stateRank(s domain.ScanState) int {
	switch s {
	case domain.ScanQueued:
		return 0
	case domain.ScanRunning:
		return 1
	}
	return 2
}

// PersistenceManager handles background batch writing of devices and scans to storage.
type PersistenceManager struct {
	storage   ports.Storage
	changes   chan change
	batchSize int
	interval  time.Duration
	enabled   bool
	mu        sync.RWMutex
	done      chan struct{}
	logger    *slog.Logger
}

// NewPersistenceManager creates a new manager.
func NewPersistenceManager(storage ports.Storage, bufferSize int, logger *slog.Logger) *PersistenceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistenceManager{
		storage:   storage,
		changes:   make(chan change, bufferSize),
		batchSize: 100,
		interval:  5 * time.Second,
		enabled:   true, // Enabled by default
		done:      make(chan struct{}),
		logger:    logger.With("component", "persistence"),
	}
}

// IsEnabled returns the current persistence status.
func (p *PersistenceManager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles the persistence logic.
func (p *PersistenceManager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *PersistenceManager) enqueue(c change) {
	if !p.IsEnabled() {
		return
	}
	select {
	case p.changes <- c:
	default:
		// Never block the registry; the next change to the entity re-queues it.
		p.logger.Warn("persistence queue full, change dropped")
		telemetry.PersistenceErrors.WithLabelValues("queue").Inc()
	}
}

// OnDeviceAdded queues the new device.
func (p *PersistenceManager) OnDeviceAdded(ctx context.Context, device domain.Device) {
	p.enqueue(change{kind: deviceSaved, device: device})
}

// OnDeviceUpdated queues the updated device.
func (p *PersistenceManager) OnDeviceUpdated(ctx context.Context, device domain.Device) {
	p.enqueue(change{kind: deviceSaved, device: device})
}

// OnDeviceDeleted queues the removal.
func (p *PersistenceManager) OnDeviceDeleted(ctx context.Context, id string) {
	p.enqueue(change{kind: deviceDeleted, id: id})
}

// OnScanUpdated queues the scan record.
func (p *PersistenceManager) OnScanUpdated(ctx context.Context, scan domain.Scan) {
	p.enqueue(change{kind: scanSaved, scan: scan})
}

// Start begins the persistence loop. The pending batch is flushed when ctx
// is cancelled; Wait blocks until that final flush is done.
func (p *PersistenceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	buffer := newBatch()
	seen := newLedger()

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.drain(seen, buffer)
				p.flush(buffer)
				return
			case c := <-p.changes:
				if seen.admit(c) {
					buffer.add(c)
				}
				if buffer.size() >= p.batchSize {
					p.flush(buffer)
					buffer = newBatch()
				}
			case <-ticker.C:
				if buffer.size() > 0 {
					p.flush(buffer)
					buffer = newBatch()
				}
			}
		}
	}()
}

// Wait blocks until the loop started by Start has exited.
func (p *PersistenceManager) Wait() {
	<-p.done
}

func (p *PersistenceManager) drain(seen *ledger, b *batch) {
	for {
		select {
		case c := <-p.changes:
			if seen.admit(c) {
				b.add(c)
			}
		default:
			return
		}
	}
}

func (p *PersistenceManager) flush(b *batch) {
	if b.size() == 0 || p.storage == nil {
		return
	}
	// The loop context may already be cancelled during the final flush.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(b.devices) > 0 {
		devices := make([]domain.Device, 0, len(b.devices))
		for _, d := range b.devices {
			devices = append(devices, d)
		}
		if err := p.storage.SaveDevicesBatch(ctx, devices); err != nil {
			p.logger.Error("failed to batch save devices", "count", len(devices), "error", err)
			telemetry.PersistenceErrors.WithLabelValues("device").Inc()
		}
	}
	if len(b.deleted) > 0 {
		ids := make([]string, 0, len(b.deleted))
		for id := range b.deleted {
			ids = append(ids, id)
		}
		if err := p.storage.DeleteDevices(ctx, ids); err != nil {
			p.logger.Error("failed to delete devices", "count", len(ids), "error", err)
			telemetry.PersistenceErrors.WithLabelValues("device").Inc()
		}
	}
	if len(b.scans) > 0 {
		scans := make([]domain.Scan, 0, len(b.scans))
		for _, s := range b.scans {
			scans = append(scans, s)
		}
		if err := p.storage.SaveScansBatch(ctx, scans); err != nil {
			p.logger.Error("failed to batch save scans", "count", len(scans), "error", err)
			telemetry.PersistenceErrors.WithLabelValues("scan").Inc()
		}
	}
}
