// Package automation delivers device events to the external automation system.
package automation

import (
	"context"
	"log/slog"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

// Trigger implements ports.AutomationTrigger. It is also a registry observer
// that announces newly created devices.
type Trigger struct {
	registry ports.DeviceRegistry
	notifier ports.Notifier
	enabled  bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewTrigger creates a trigger. When enabled is false every Fire is a
// logged no-op.
func NewTrigger(registry ports.DeviceRegistry, notifier ports.Notifier, enabled bool, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		registry: registry,
		notifier: notifier,
		enabled:  enabled,
		logger:   logger.With("component", "automation"),
		now:      time.Now,
	}
}

// Enabled reports whether events are delivered.
func (t *Trigger) Enabled() bool {
	return t.enabled
}

// Fire builds the payload for deviceID and hands it to the notifier. It
// reports whether the event was delivered; failures are logged, never retried.
func (t *Trigger) Fire(ctx context.Context, deviceID string, action domain.AutomationAction) bool {
	if !t.enabled || t.notifier == nil {
		t.logger.Debug("automation disabled, event dropped", "device_id", deviceID, "action", action)
		return false
	}

	d, err := t.registry.Get(ctx, deviceID)
	if err != nil {
		t.logger.Warn("automation target missing", "device_id", deviceID, "action", action, "error", err)
		return false
	}

	at := t.now().UTC()
	res := t.notifier.Deliver(ctx, action, domain.NewAutomationPayload(d, action, at))
	if !res.Delivered {
		aerr := &domain.AutomationError{Action: string(action), Sink: res.Sink, Err: res.Err}
		t.logger.Error("automation delivery failed", "device_id", deviceID, "status_code", res.StatusCode, "error", aerr)
		telemetry.AutomationDeliveries.WithLabelValues(string(action), res.Sink, "failed").Inc()
		return false
	}
	telemetry.AutomationDeliveries.WithLabelValues(string(action), res.Sink, "delivered").Inc()

	if err := t.registry.RecordAutomation(ctx, deviceID, domain.AutomationEntry(action, at)); err != nil {
		// Delivered, but the device vanished before we could flag it.
		t.logger.Warn("automation delivered for deleted device", "device_id", deviceID, "action", action)
	}
	t.logger.Info("automation triggered", "device_id", deviceID, "action", action, "sink", res.Sink)
	return true
}

// OnDeviceAdded fires device_created for every new device.
func (t *Trigger) OnDeviceAdded(ctx context.Context, device domain.Device) {
	if !t.enabled {
		return
	}
	t.Fire(ctx, device.ID, domain.ActionDeviceCreated)
}

// OnDeviceUpdated is a no-op.
func (t *Trigger) OnDeviceUpdated(ctx context.Context, device domain.Device) {}

// OnDeviceDeleted is a no-op.
func (t *Trigger) OnDeviceDeleted(ctx context.Context, id string) {}
