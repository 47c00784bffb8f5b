package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

func TestDeviceModelConversion(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	scanned := now.Add(-time.Hour)

	dev := domain.Device{
		ID:               "d-1",
		Hostname:         "fw-edge",
		Type:             domain.DeviceTypeFirewall,
		Status:           domain.DeviceStatusWarning,
		PrimaryIP:        "192.168.1.1",
		PrimaryMAC:       "00:09:0F:AA:BB:CC",
		Manufacturer:     "Fortinet",
		OperatingSystem:  &domain.OperatingSystem{Name: "FortiOS", Version: "7.4", Confidence: 0.9},
		Interfaces:       []domain.NetworkInterface{{IPAddress: "192.168.1.1", IsPrimary: true}},
		OpenPorts:        []int{443},
		Services:         []string{"https"},
		SecurityScore:    80,
		LastSecurityScan: &scanned,
		FirstSeen:        now,
		CustomFields:     map[string]string{"site": "hq"},

		AutomationActions: []string{"2024-05-01T12:00:00Z: vulnerabilities_detected"},
	}

	model, err := toDeviceModel(dev)
	require.NoError(t, err)
	assert.Equal(t, "firewall", model.Type)

	var ports []int
	require.NoError(t, json.Unmarshal([]byte(model.OpenPortsJSON), &ports))
	assert.Equal(t, []int{443}, ports)

	back, err := toDeviceDomain(model)
	require.NoError(t, err)
	assert.Equal(t, dev.OperatingSystem, back.OperatingSystem)
	assert.Equal(t, dev.CustomFields, back.CustomFields)
	assert.Equal(t, dev.AutomationActions, back.AutomationActions)
	assert.Equal(t, scanned, *back.LastSecurityScan)

	// Nil collections come back empty rather than nil.
	assert.NotNil(t, back.Protocols)
	assert.NotNil(t, back.Tags)
	assert.NotNil(t, back.Vulnerabilities)
}

func TestDeviceModelConversion_CorruptColumn(t *testing.T) {
	_, err := toDeviceDomain(DeviceModel{ID: "x", OpenPortsJSON: "{not json"})
	assert.Error(t, err)
}
