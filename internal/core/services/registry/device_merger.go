package registry

import (
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/scoring"
)

// DeviceMerger applies scanner output onto an existing device record. All
// methods mutate the record in place and expect the caller to hold the
// owning shard lock.
type DeviceMerger struct{}

// NewDeviceMerger creates a new DeviceMerger.
func NewDeviceMerger() *DeviceMerger {
	return &DeviceMerger{}
}

// MergeObservation refreshes a device seen again by discovery. Ports and
// services are only replaced when the observation carries them, and the
// scan counter is left alone.
func (dm *DeviceMerger) MergeObservation(existing *domain.Device, obs domain.HostObservation, now time.Time) {
	existing.LastSeen = now
	existing.LastUpdated = now
	existing.Status = domain.StatusFromLiveness(obs.IsAlive)

	if len(obs.OpenPorts) > 0 {
		existing.OpenPorts = domain.SortedPorts(obs.OpenPorts)
	}
	if len(obs.Services) > 0 {
		existing.Services = domain.SortedSet(obs.Services)
	}
	if obs.Hostname != "" && existing.Hostname == "" {
		existing.Hostname = obs.Hostname
	}
	if obs.MAC != "" && existing.PrimaryMAC == "" {
		if mac, err := domain.ParseMAC(obs.MAC); err == nil {
			existing.PrimaryMAC = mac.String()
			for i := range existing.Interfaces {
				if existing.Interfaces[i].IsPrimary {
					existing.Interfaces[i].MACAddress = existing.PrimaryMAC
				}
			}
		}
	}
}

// MergeScanOutcome applies a per-device scan. Vulnerabilities are appended
// and the score is recomputed only when something was added.
func (dm *DeviceMerger) MergeScanOutcome(existing *domain.Device, outcome domain.ScanOutcome, now time.Time) {
	if h := outcome.Host; h != nil {
		existing.OpenPorts = domain.SortedPorts(h.OpenPorts)
		existing.Services = domain.SortedSet(h.Services)
		if h.OSInfo != nil {
			os := *h.OSInfo
			existing.OperatingSystem = &os
		}
		existing.Status = domain.StatusFromLiveness(h.IsAlive)
		if h.IsAlive {
			existing.LastSeen = now
		}
	}

	dm.AppendVulnerabilities(existing, outcome.Vulnerabilities, now)

	existing.ScanCount++
	ts := now
	existing.LastSecurityScan = &ts
	existing.LastUpdated = now
}

// AppendVulnerabilities adds findings and keeps the score consistent with them.
func (dm *DeviceMerger) AppendVulnerabilities(existing *domain.Device, vulns []domain.Vulnerability, now time.Time) {
	if len(vulns) == 0 {
		return
	}
	for _, v := range vulns {
		if v.DiscoveredAt.IsZero() {
			v.DiscoveredAt = now
		}
		existing.Vulnerabilities = append(existing.Vulnerabilities, v)
	}
	existing.SecurityScore = scoring.Score(existing.Vulnerabilities)
	existing.LastUpdated = now
}
