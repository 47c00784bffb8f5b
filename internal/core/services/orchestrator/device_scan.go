package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// ScanDevice probes one known device synchronously and records the outcome.
// Scanner failures do not surface as errors: the device is marked with an
// unknown status and returned as is.
func (o *Orchestrator) ScanDevice(ctx context.Context, deviceID string) (domain.Device, error) {
	d, err := o.registry.Get(ctx, deviceID)
	if err != nil {
		return domain.Device{}, err
	}

	ctx, span := o.tracer.Start(ctx, "scan.device", trace.WithAttributes(
		attribute.String("device.id", d.ID),
		attribute.String("device.ip", d.PrimaryIP),
	))
	defer span.End()

	timeout := time.Duration(o.defaultTimeout) * time.Second
	host, err := o.scanner.ScanHost(ctx, d.PrimaryIP, nil, timeout)
	if err != nil {
		return o.markUnknown(ctx, d, err)
	}
	vulns, err := o.scanner.AssessVulnerabilities(ctx, d.PrimaryIP, false)
	if err != nil {
		return o.markUnknown(ctx, d, err)
	}

	updated, err := o.registry.RecordScanResult(ctx, d.ID, domain.ScanOutcome{
		Host:            &host,
		Vulnerabilities: vulns,
	})
	if err != nil {
		return domain.Device{}, err
	}
	o.logger.Info("device scanned", "device_id", d.ID, "ip", d.PrimaryIP, "vulnerabilities", len(vulns),
		"security_score", updated.SecurityScore)

	if len(vulns) > 0 && o.trigger != nil {
		if o.trigger.Fire(ctx, d.ID, domain.ActionVulnerabilitiesDetected) {
			if refreshed, err := o.registry.Get(ctx, d.ID); err == nil {
				updated = refreshed
			}
		}
	}
	return updated, nil
}

func (o *Orchestrator) markUnknown(ctx context.Context, d domain.Device, cause error) (domain.Device, error) {
	o.logger.Warn("device scan failed", "device_id", d.ID, "ip", d.PrimaryIP, "error", cause)
	status := domain.DeviceStatusUnknown
	updated, err := o.registry.Update(ctx, d.ID, domain.DevicePatch{Status: &status})
	if err != nil {
		// Deleted while we were scanning.
		return d, nil
	}
	return updated, nil
}
