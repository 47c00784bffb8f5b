// Package stats computes the inventory rollup served by the statistics endpoint.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/scoring"
)

// RecentWindow is the look-back of the recent activity counters.
const RecentWindow = 24 * time.Hour

// DeviceSource is the read side of the registry the aggregator needs.
type DeviceSource interface {
	All(ctx context.Context) []domain.Device
}

// Service implements ports.StatisticsService.
type Service struct {
	devices DeviceSource
	scans   ports.ScanHistory
	now     func() time.Time
}

// NewService creates the aggregator. scans may be nil.
func NewService(devices DeviceSource, scans ports.ScanHistory) *Service {
	return &Service{devices: devices, scans: scans, now: time.Now}
}

// WithClock overrides the time source used for the recent activity window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summarize walks the inventory once. It never mutates anything.
func (s *Service) Summarize(ctx context.Context) (domain.Statistics, error) {
	st := domain.NewStatistics()
	devices := s.devices.All(ctx)
	st.TotalDevices = len(devices)

	var scoreSum float64
	for _, d := range devices {
		st.DeviceTypes[d.Type]++
		st.StatusDistribution[d.Status]++

		scoreSum += d.SecurityScore
		st.SecuritySummary.TotalVulnerabilities += len(d.Vulnerabilities)
		if d.SecurityScore < domain.CriticalScoreThreshold {
			st.SecuritySummary.CriticalDevices++
		}
		if len(d.Vulnerabilities) > 0 {
			st.SecuritySummary.DevicesAtRisk++
		}
		for sev, n := range scoring.CountBySeverity(d.Vulnerabilities) {
			st.SecuritySummary.VulnerabilitiesBySeverity[sev] += n
		}
		if d.AutomationTriggered {
			st.RecentActivity.AutomationTriggers++
		}
	}
	if len(devices) > 0 {
		st.SecuritySummary.AverageSecurityScore = round2(scoreSum / float64(len(devices)))
	}

	if s.scans != nil {
		cutoff := s.now().Add(-RecentWindow)
		for _, scan := range s.scans.History(ctx) {
			if scan.StartedAt.After(cutoff) {
				st.RecentActivity.ScansLast24h++
			}
		}
	}
	return st, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
