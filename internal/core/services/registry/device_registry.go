// Package registry owns the in-memory device inventory.
package registry

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

const (
	numShards  = 16
	numIPLocks = 64

	// InitialSecurityScore is assigned to every new device before any finding.
	InitialSecurityScore = 100.0
)

type deviceShard struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

// DeviceRegistry implements ports.DeviceRegistry.
type DeviceRegistry struct {
	shards  []*deviceShard
	merger  *DeviceMerger
	subject *RegistrySubject

	// Insertion order for List and FindByIP. Guarded separately from the shards.
	orderMu sync.Mutex
	order   []string

	// Striped locks serialising UpsertObservation per IP.
	ipLocks [numIPLocks]sync.Mutex

	classifier ports.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a DeviceRegistry.
type Option func(*DeviceRegistry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *DeviceRegistry) { r.now = now }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *DeviceRegistry) { r.logger = l }
}

// NewDeviceRegistry creates a new sharded registry. classifier may be nil, in
// which case devices are never auto-classified.
func NewDeviceRegistry(classifier ports.Classifier, opts ...Option) *DeviceRegistry {
	r := &DeviceRegistry{
		shards:     make([]*deviceShard, numShards),
		merger:     NewDeviceMerger(),
		subject:    NewRegistrySubject(),
		order:      make([]string, 0),
		classifier: classifier,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")

	for i := 0; i < numShards; i++ {
		r.shards[i] = &deviceShard{
			devices: make(map[string]domain.Device),
		}
	}
	return r
}

// AddObserver registers an observer for device events.
func (r *DeviceRegistry) AddObserver(o ports.DeviceObserver) {
	r.subject.AddObserver(o)
}

// FlushNotifications waits for observers to finish handling the events
// published so far.
func (r *DeviceRegistry) FlushNotifications(ctx context.Context) error {
	return r.subject.Flush(ctx)
}

func (r *DeviceRegistry) getShard(id string) *deviceShard {
	hash := uint32(0)
	for i := 0; i < len(id); i++ {
		hash = hash*31 + uint32(id[i])
	}
	return r.shards[hash%uint32(len(r.shards))]
}

func (r *DeviceRegistry) ipLock(ip string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip))
	return &r.ipLocks[h.Sum32()%numIPLocks]
}

func (r *DeviceRegistry) snapshotOrder() []string {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *DeviceRegistry) lookup(id string) (domain.Device, bool) {
	shard := r.getShard(id)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	d, ok := shard.devices[id]
	if !ok {
		return domain.Device{}, false
	}
	return d.Clone(), true
}

// List returns the devices matching filter in insertion order, after
// skipping skip matches and returning at most limit of them.
func (r *DeviceRegistry) List(ctx context.Context, filter domain.DeviceFilter, skip, limit int) ([]domain.Device, error) {
	if skip < 0 {
		return nil, domain.NewValidationError("skip", strconv.Itoa(skip), domain.ErrOutOfRange)
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit", strconv.Itoa(limit), domain.ErrOutOfRange)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	out := make([]domain.Device, 0)
	matched := 0
	for _, id := range r.snapshotOrder() {
		if len(out) >= limit {
			break
		}
		d, ok := r.lookup(id)
		if !ok || !filter.Matches(d) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// All returns every device in insertion order.
func (r *DeviceRegistry) All(ctx context.Context) []domain.Device {
	ids := r.snapshotOrder()
	out := make([]domain.Device, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.lookup(id); ok {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of devices held.
func (r *DeviceRegistry) Count(ctx context.Context) int {
	count := 0
	for _, shard := range r.shards {
		shard.mu.RLock()
		count += len(shard.devices)
		shard.mu.RUnlock()
	}
	return count
}

// Get returns a copy of the device or a NotFoundError.
func (r *DeviceRegistry) Get(ctx context.Context, id string) (domain.Device, error) {
	d, ok := r.lookup(id)
	if !ok {
		return domain.Device{}, domain.NewNotFoundError("device", id)
	}
	return d, nil
}

// Create validates spec, classifies the device when a MAC is known and stores it.
func (r *DeviceRegistry) Create(ctx context.Context, spec domain.DeviceSpec) (domain.Device, error) {
	d, err := r.build(ctx, spec)
	if err != nil {
		return domain.Device{}, err
	}
	r.insert(ctx, d)
	telemetry.DevicesCreated.WithLabelValues("manual").Inc()
	return d.Clone(), nil
}

func (r *DeviceRegistry) build(ctx context.Context, spec domain.DeviceSpec) (domain.Device, error) {
	if err := spec.Validate(); err != nil {
		return domain.Device{}, err
	}

	now := r.now().UTC()
	d := domain.Device{
		ID:                uuid.NewString(),
		Hostname:          spec.Hostname,
		DeviceName:        spec.DeviceName,
		Type:              spec.DeviceType,
		Status:            spec.Status,
		PrimaryIP:         domain.CanonicalIP(spec.PrimaryIP),
		OpenPorts:         domain.SortedPorts(spec.OpenPorts),
		Services:          domain.SortedSet(spec.Services),
		Protocols:         []string{},
		Vulnerabilities:   []domain.Vulnerability{},
		SecurityScore:     InitialSecurityScore,
		FirstSeen:         now,
		LastSeen:          now,
		LastUpdated:       now,
		Tags:              []string{},
		AutomationActions: []string{},
	}
	if d.Type == "" {
		d.Type = domain.DeviceTypeUnknown
	}
	if d.Status == "" {
		d.Status = domain.DeviceStatusUnknown
	}
	if spec.PrimaryMAC != "" {
		mac, _ := domain.ParseMAC(spec.PrimaryMAC) // validated above
		d.PrimaryMAC = mac.String()
	}
	d.Interfaces, _ = domain.NormalizeInterfaces([]domain.NetworkInterface{{
		IPAddress:  d.PrimaryIP,
		MACAddress: d.PrimaryMAC,
		IsPrimary:  true,
	}})

	if d.PrimaryMAC != "" && r.classifier != nil {
		id := r.classifier.Classify(ctx, domain.Signals{
			MAC:       d.PrimaryMAC,
			Hostname:  d.Hostname,
			OpenPorts: d.OpenPorts,
		})
		if id.KnownManufacturer() {
			d.Manufacturer = id.Manufacturer
		}
		if d.Type == domain.DeviceTypeUnknown {
			d.Type = id.DeviceType
		}
	}
	return d, nil
}

func (r *DeviceRegistry) insert(ctx context.Context, d domain.Device) {
	shard := r.getShard(d.ID)
	shard.mu.Lock()
	shard.devices[d.ID] = d
	shard.mu.Unlock()

	r.orderMu.Lock()
	r.order = append(r.order, d.ID)
	r.orderMu.Unlock()

	r.logger.Info("device created", "device_id", d.ID, "ip", d.PrimaryIP, "type", d.Type)
	r.subject.NotifyAdded(ctx, d)
}

// Update applies the set fields of patch and bumps LastUpdated.
func (r *DeviceRegistry) Update(ctx context.Context, id string, patch domain.DevicePatch) (domain.Device, error) {
	if err := patch.Validate(); err != nil {
		return domain.Device{}, err
	}
	return r.mutate(ctx, id, func(d *domain.Device, now time.Time) {
		patch.Apply(d)
		d.LastUpdated = now
	})
}

// mutate runs fn on the stored device under its shard lock and notifies
// observers with the result.
func (r *DeviceRegistry) mutate(ctx context.Context, id string, fn func(d *domain.Device, now time.Time)) (domain.Device, error) {
	shard := r.getShard(id)
	shard.mu.Lock()
	d, ok := shard.devices[id]
	if !ok {
		shard.mu.Unlock()
		return domain.Device{}, domain.NewNotFoundError("device", id)
	}
	d = d.Clone()
	fn(&d, r.now().UTC())
	shard.devices[id] = d
	shard.mu.Unlock()

	r.subject.NotifyUpdated(ctx, d)
	return d.Clone(), nil
}

// Delete removes the device. It reports false when the id is unknown.
func (r *DeviceRegistry) Delete(ctx context.Context, id string) (bool, error) {
	shard := r.getShard(id)
	shard.mu.Lock()
	_, ok := shard.devices[id]
	delete(shard.devices, id)
	shard.mu.Unlock()
	if !ok {
		return false, nil
	}

	r.orderMu.Lock()
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.orderMu.Unlock()

	r.logger.Info("device deleted", "device_id", id)
	r.subject.NotifyDeleted(ctx, id)
	return true, nil
}

// FindByIP returns the first device whose primary IP is ip, falling back to
// any interface carrying ip. Addresses compare by value, so "2001:DB8::1"
// matches "2001:db8::1". When several devices share an IP the earliest
// inserted one wins; callers must not rely on that order.
func (r *DeviceRegistry) FindByIP(ctx context.Context, ip string) (domain.Device, bool) {
	ip = domain.CanonicalIP(ip)
	if ip == "" {
		return domain.Device{}, false
	}
	ids := r.snapshotOrder()
	devices := make([]domain.Device, 0, len(ids))
	for _, id := range ids {
		d, ok := r.lookup(id)
		if !ok {
			continue
		}
		if domain.CanonicalIP(d.PrimaryIP) == ip {
			return d, true
		}
		devices = append(devices, d)
	}
	for _, d := range devices {
		if d.HasIP(ip) {
			return d, true
		}
	}
	return domain.Device{}, false
}

// UpsertObservation creates the device owning obs.IP or refreshes it. Calls
// for the same IP are serialised so one IP never yields two devices.
func (r *DeviceRegistry) UpsertObservation(ctx context.Context, obs domain.HostObservation) (domain.Device, bool, error) {
	obs.IP = domain.CanonicalIP(obs.IP)
	lock := r.ipLock(obs.IP)
	lock.Lock()
	defer lock.Unlock()

	if existing, ok := r.FindByIP(ctx, obs.IP); ok {
		d, err := r.mutate(ctx, existing.ID, func(d *domain.Device, now time.Time) {
			r.merger.MergeObservation(d, obs, now)
		})
		return d, false, err
	}

	spec := domain.DeviceSpec{
		Hostname:   obs.Hostname,
		PrimaryIP:  obs.IP,
		PrimaryMAC: obs.MAC,
		OpenPorts:  obs.OpenPorts,
		Services:   obs.Services,
		Status:     domain.StatusFromLiveness(obs.IsAlive),
	}
	if spec.PrimaryMAC != "" {
		if _, err := domain.ParseMAC(spec.PrimaryMAC); err != nil {
			r.logger.Debug("dropping unparseable MAC from observation", "ip", obs.IP, "mac", obs.MAC)
			spec.PrimaryMAC = ""
		}
	}
	d, err := r.build(ctx, spec)
	if err != nil {
		return domain.Device{}, false, err
	}
	r.insert(ctx, d)
	telemetry.DevicesCreated.WithLabelValues("discovery").Inc()
	return d.Clone(), true, nil
}

// RecordScanResult applies a per-device scan outcome.
func (r *DeviceRegistry) RecordScanResult(ctx context.Context, id string, outcome domain.ScanOutcome) (domain.Device, error) {
	return r.mutate(ctx, id, func(d *domain.Device, now time.Time) {
		r.merger.MergeScanOutcome(d, outcome, now)
	})
}

// AppendVulnerabilities adds findings and rescores the device.
func (r *DeviceRegistry) AppendVulnerabilities(ctx context.Context, id string, vulns []domain.Vulnerability) (domain.Device, error) {
	return r.mutate(ctx, id, func(d *domain.Device, now time.Time) {
		r.merger.AppendVulnerabilities(d, vulns, now)
	})
}

// RecordAutomation marks the device as triggered and appends entry to its history.
func (r *DeviceRegistry) RecordAutomation(ctx context.Context, id string, entry string) error {
	_, err := r.mutate(ctx, id, func(d *domain.Device, now time.Time) {
		d.AutomationTriggered = true
		d.AutomationActions = append(d.AutomationActions, entry)
	})
	return err
}

// Restore loads persisted devices without notifying observers. Devices are
// appended to the insertion order in the order given.
func (r *DeviceRegistry) Restore(devices []domain.Device) {
	for _, d := range devices {
		shard := r.getShard(d.ID)
		shard.mu.Lock()
		_, exists := shard.devices[d.ID]
		shard.devices[d.ID] = d.Clone()
		shard.mu.Unlock()
		if exists {
			continue
		}
		r.orderMu.Lock()
		r.order = append(r.order, d.ID)
		r.orderMu.Unlock()
	}
}

// Clear wipes all in-memory state.
func (r *DeviceRegistry) Clear(ctx context.Context) {
	for _, shard := range r.shards {
		shard.mu.Lock()
		shard.devices = make(map[string]domain.Device)
		shard.mu.Unlock()
	}
	r.orderMu.Lock()
	r.order = make([]string, 0)
	r.orderMu.Unlock()
}
