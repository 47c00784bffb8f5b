package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAutomationAction_Policy(t *testing.T) {
	assert.Equal(t, "critical_security_alert", ActionCriticalVulnerabilities.Workflow())
	assert.Equal(t, PriorityCritical, ActionCriticalVulnerabilities.Priority())
	assert.True(t, ActionCriticalVulnerabilities.RequiresImmediateAttention())

	assert.Equal(t, "new_device_detected", ActionDeviceCreated.Workflow())
	assert.Equal(t, PriorityLow, ActionDeviceCreated.Priority())
	assert.False(t, ActionDeviceCreated.RequiresImmediateAttention())

	unknown := AutomationAction("custom_flow")
	assert.False(t, unknown.Valid())
	assert.Equal(t, "custom_flow", unknown.Workflow())
	assert.Equal(t, PriorityMedium, unknown.Priority())
}

func TestNewAutomationPayload_VulnerabilitiesOnlyForVulnActions(t *testing.T) {
	d := Device{
		ID:        "dev-1",
		PrimaryIP: "10.0.0.5",
		Vulnerabilities: []Vulnerability{
			{ID: "CVE-2024-0001", Severity: SeverityCritical, Score: 9.8, Description: "rce"},
		},
	}
	now := time.Now()

	created := NewAutomationPayload(d, ActionDeviceCreated, now)
	assert.Nil(t, created.Vulnerabilities)
	assert.Equal(t, "10.0.0.5", created.DeviceInfo.IPAddress)

	crit := NewAutomationPayload(d, ActionCriticalVulnerabilities, now)
	if assert.Len(t, crit.Vulnerabilities, 1) {
		assert.Equal(t, "CVE-2024-0001", crit.Vulnerabilities[0].ID)
	}
}

func TestAutomationEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "device_created:2026-03-01T12:00:00Z", AutomationEntry(ActionDeviceCreated, at))
}
