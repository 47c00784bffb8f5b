package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// MultiNotifier fans a delivery out to every sink. It reports delivered if
// at least one sink accepted the event.
type MultiNotifier struct {
	sinks []ports.Notifier
}

func NewMultiNotifier(sinks ...ports.Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

func (m *MultiNotifier) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m *MultiNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	result := domain.DeliveryResult{Sink: m.Name()}
	var errs []error
	for _, s := range m.sinks {
		r := s.Deliver(ctx, action, payload)
		if r.Delivered {
			result.Delivered = true
			if result.StatusCode == 0 {
				result.StatusCode = r.StatusCode
			}
			continue
		}
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if !result.Delivered {
		result.Err = errors.Join(errs...)
		if result.Err == nil {
			result.Err = ErrNotDelivered
		}
	}
	return result
}

// LogNotifier stands in when no sink is configured. It records the event
// and reports it as not delivered.
type LogNotifier struct {
	logger *slog.Logger
}

// ErrNotDelivered is reported when no sink accepted an event.
var ErrNotDelivered = errors.New("no automation sink accepted the event")

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	l.logger.Warn("Automation sink not configured, dropping event",
		"workflow", action.Workflow(), "device_id", payload.DeviceID, "priority", action.Priority())
	return domain.DeliveryResult{Sink: l.Name(), Err: ErrNotDelivered}
}
