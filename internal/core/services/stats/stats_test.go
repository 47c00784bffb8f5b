package stats

import (
	"context"
	"testing"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDevices []domain.Device

func (s staticDevices) All(ctx context.Context) []domain.Device { return s }

type staticHistory []domain.Scan

func (s staticHistory) History(ctx context.Context) []domain.Scan { return s }

func TestSummarize_Empty(t *testing.T) {
	svc := NewService(staticDevices(nil), nil)

	st, err := svc.Summarize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, st.TotalDevices)
	assert.Equal(t, 0.0, st.SecuritySummary.AverageSecurityScore)
	assert.Equal(t, 0, st.SecuritySummary.CriticalDevices)
	assert.Equal(t, 0, st.SecuritySummary.DevicesAtRisk)
	assert.Equal(t, 0, st.RecentActivity.ScansLast24h)
	assert.NotNil(t, st.DeviceTypes)
	assert.NotNil(t, st.StatusDistribution)
}

func TestSummarize_Rollup(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	devices := staticDevices{
		{ID: "a", Type: domain.DeviceTypeServer, Status: domain.DeviceStatusOnline, SecurityScore: 40,
			Vulnerabilities: []domain.Vulnerability{
				{Severity: domain.SeverityCritical}, {Severity: domain.SeverityCritical}, {Severity: "HIGH"},
			}, AutomationTriggered: true},
		{ID: "b", Type: domain.DeviceTypeServer, Status: domain.DeviceStatusOffline, SecurityScore: 100},
		{ID: "c", Type: domain.DeviceTypePrinter, Status: domain.DeviceStatusOnline, SecurityScore: 92,
			Vulnerabilities: []domain.Vulnerability{{Severity: domain.SeverityMedium}}},
	}
	history := staticHistory{
		{ID: "s1", StartedAt: now.Add(-time.Hour)},
		{ID: "s2", StartedAt: now.Add(-23 * time.Hour)},
		{ID: "s3", StartedAt: now.Add(-25 * time.Hour)},
	}
	svc := NewService(devices, history).WithClock(func() time.Time { return now })

	st, err := svc.Summarize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, st.TotalDevices)
	assert.Equal(t, 2, st.DeviceTypes[domain.DeviceTypeServer])
	assert.Equal(t, 1, st.DeviceTypes[domain.DeviceTypePrinter])
	assert.Equal(t, 2, st.StatusDistribution[domain.DeviceStatusOnline])
	assert.Equal(t, 77.33, st.SecuritySummary.AverageSecurityScore)
	assert.Equal(t, 4, st.SecuritySummary.TotalVulnerabilities)
	assert.Equal(t, 1, st.SecuritySummary.CriticalDevices)
	assert.Equal(t, 2, st.SecuritySummary.DevicesAtRisk)
	assert.Equal(t, 2, st.SecuritySummary.VulnerabilitiesBySeverity[domain.SeverityCritical])
	assert.Equal(t, 1, st.SecuritySummary.VulnerabilitiesBySeverity[domain.SeverityHigh])
	assert.Equal(t, 2, st.RecentActivity.ScansLast24h)
	assert.Equal(t, 1, st.RecentActivity.AutomationTriggers)
}

func TestSummarize_SingleCriticalDevice(t *testing.T) {
	svc := NewService(staticDevices{{ID: "x", SecurityScore: 40}}, nil)

	st, err := svc.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.SecuritySummary.CriticalDevices)
	assert.Equal(t, 40.0, st.SecuritySummary.AverageSecurityScore)
}
