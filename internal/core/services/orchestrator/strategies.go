package orchestrator

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// strategyOutcome is what a strategy hands back for the completed record.
type strategyOutcome struct {
	results              *domain.ScanResults
	devicesFound         int
	vulnerabilitiesFound int
}

// Strategies check ctx between registry writes. Writes already committed
// when a scan is cancelled or fails are kept.
func (o *Orchestrator) runStrategy(ctx context.Context, scan domain.Scan) (strategyOutcome, error) {
	switch scan.Type {
	case domain.ScanTypeDiscovery:
		return o.runDiscovery(ctx, scan)
	case domain.ScanTypePort:
		return o.runPortScan(ctx, scan)
	case domain.ScanTypeVulnerability:
		return o.runVulnerabilityScan(ctx, scan)
	}
	return strategyOutcome{}, fmt.Errorf("unsupported scan type %q", scan.Type)
}

func scanTimeout(scan domain.Scan) time.Duration {
	return time.Duration(scan.Timeout) * time.Second
}

func (o *Orchestrator) runDiscovery(ctx context.Context, scan domain.Scan) (strategyOutcome, error) {
	hosts, err := o.scanner.Discover(ctx, scan.Target, scanTimeout(scan))
	if err != nil {
		return strategyOutcome{}, fmt.Errorf("discover %s: %w", scan.Target, err)
	}

	recorded, created := 0, 0
	for _, h := range hosts {
		if err := ctx.Err(); err != nil {
			return strategyOutcome{}, err
		}
		_, isNew, err := o.registry.UpsertObservation(ctx, h)
		if err != nil {
			o.logger.Warn("skipping discovered host", "scan_id", scan.ID, "ip", h.IP, "error", err)
			continue
		}
		recorded++
		if isNew {
			created++
		}
	}

	return strategyOutcome{
		results: &domain.ScanResults{
			DiscoveredHosts: hosts,
			DevicesCreated:  created,
			ScanRange:       scan.Target,
		},
		devicesFound: recorded,
	}, nil
}

func (o *Orchestrator) runPortScan(ctx context.Context, scan domain.Scan) (strategyOutcome, error) {
	host, err := o.scanner.ScanHost(ctx, scan.Target, scan.Ports, scanTimeout(scan))
	if err != nil {
		return strategyOutcome{}, fmt.Errorf("scan host %s: %w", scan.Target, err)
	}

	results := &domain.ScanResults{Target: scan.Target, PortScan: &host}
	out := strategyOutcome{results: results}
	if !host.IsAlive {
		return out, nil
	}
	out.devicesFound = 1

	// Hostname targets have no IP to correlate a device with.
	if net.ParseIP(scan.Target) == nil {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return strategyOutcome{}, err
	}
	d, _, err := o.registry.UpsertObservation(ctx, domain.HostObservation{
		IP:        scan.Target,
		IsAlive:   true,
		OpenPorts: host.OpenPorts,
		Services:  host.Services,
	})
	if err != nil {
		return strategyOutcome{}, fmt.Errorf("record host %s: %w", scan.Target, err)
	}
	results.DeviceID = d.ID
	return out, nil
}

// runVulnerabilityScan only ever fires the critical action. Non-critical
// findings are recorded without notifying automation.
func (o *Orchestrator) runVulnerabilityScan(ctx context.Context, scan domain.Scan) (strategyOutcome, error) {
	host, err := o.scanner.ScanHost(ctx, scan.Target, scan.Ports, scanTimeout(scan))
	if err != nil {
		return strategyOutcome{}, fmt.Errorf("scan host %s: %w", scan.Target, err)
	}

	results := &domain.ScanResults{
		Target:          scan.Target,
		PortScan:        &host,
		Vulnerabilities: []domain.Vulnerability{},
	}
	out := strategyOutcome{results: results}
	if !host.IsAlive {
		return out, nil
	}
	out.devicesFound = 1

	if err := ctx.Err(); err != nil {
		return strategyOutcome{}, err
	}
	vulns, err := o.scanner.AssessVulnerabilities(ctx, scan.Target, scan.Aggressive)
	if err != nil {
		return strategyOutcome{}, fmt.Errorf("assess %s: %w", scan.Target, err)
	}
	results.Vulnerabilities = vulns
	out.vulnerabilitiesFound = len(vulns)
	if len(vulns) == 0 {
		return out, nil
	}

	d, ok := o.registry.FindByIP(ctx, scan.Target)
	if !ok {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return strategyOutcome{}, err
	}
	if _, err := o.registry.AppendVulnerabilities(ctx, d.ID, vulns); err != nil {
		return strategyOutcome{}, fmt.Errorf("record findings for %s: %w", d.ID, err)
	}
	results.DeviceID = d.ID

	if domain.HasCritical(vulns) && o.trigger != nil {
		o.trigger.Fire(ctx, d.ID, domain.ActionCriticalVulnerabilities)
	}
	return out, nil
}
