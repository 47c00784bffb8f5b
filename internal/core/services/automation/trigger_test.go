package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	args := m.Called(ctx, action, payload)
	return args.Get(0).(domain.DeliveryResult)
}

func (m *MockNotifier) Name() string { return "mock" }

func seedDevice(t *testing.T, reg *registry.DeviceRegistry) domain.Device {
	t.Helper()
	ctx := context.Background()
	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5", Hostname: "cam-01"})
	require.NoError(t, err)
	d, err = reg.AppendVulnerabilities(ctx, d.ID, []domain.Vulnerability{{ID: "CVE-2024-1", Severity: domain.SeverityHigh}})
	require.NoError(t, err)
	return d
}

func TestFire_DeliversAndRecords(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	d := seedDevice(t, reg)

	notifier := new(MockNotifier)
	notifier.On("Deliver", mock.Anything, domain.ActionVulnerabilitiesDetected, mock.MatchedBy(func(p domain.AutomationPayload) bool {
		return p.DeviceID == d.ID && p.DeviceInfo.IPAddress == "10.0.0.5" && len(p.Vulnerabilities) == 1
	})).Return(domain.DeliveryResult{Delivered: true, Sink: "webhook", StatusCode: 200})

	trigger := NewTrigger(reg, notifier, true, nil)
	trigger.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }

	assert.True(t, trigger.Fire(context.Background(), d.ID, domain.ActionVulnerabilitiesDetected))

	got, err := reg.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.True(t, got.AutomationTriggered)
	assert.Equal(t, []string{"vulnerabilities_detected:2026-05-01T08:00:00Z"}, got.AutomationActions)
	notifier.AssertExpectations(t)
}

func TestFire_PayloadOmitsVulnerabilitiesForOtherActions(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	d := seedDevice(t, reg)

	notifier := new(MockNotifier)
	notifier.On("Deliver", mock.Anything, domain.ActionDeviceOffline, mock.MatchedBy(func(p domain.AutomationPayload) bool {
		return p.Vulnerabilities == nil
	})).Return(domain.DeliveryResult{Delivered: true, Sink: "webhook"})

	trigger := NewTrigger(reg, notifier, true, nil)
	assert.True(t, trigger.Fire(context.Background(), d.ID, domain.ActionDeviceOffline))
	notifier.AssertExpectations(t)
}

func TestFire_FailureLeavesDeviceUnflagged(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	d := seedDevice(t, reg)

	notifier := new(MockNotifier)
	notifier.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.DeliveryResult{Sink: "webhook", StatusCode: 502, Err: errors.New("bad gateway")})

	trigger := NewTrigger(reg, notifier, true, nil)
	assert.False(t, trigger.Fire(context.Background(), d.ID, domain.ActionCriticalVulnerabilities))

	got, err := reg.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, got.AutomationTriggered)
	assert.Empty(t, got.AutomationActions)
	notifier.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestFire_DisabledOrMissing(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	d := seedDevice(t, reg)
	notifier := new(MockNotifier)

	disabled := NewTrigger(reg, notifier, false, nil)
	assert.False(t, disabled.Fire(context.Background(), d.ID, domain.ActionDeviceCreated))

	enabled := NewTrigger(reg, notifier, true, nil)
	assert.False(t, enabled.Fire(context.Background(), "missing", domain.ActionDeviceCreated))

	notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestOnDeviceAdded_FiresDeviceCreated(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Deliver", mock.Anything, domain.ActionDeviceCreated, mock.Anything).
		Return(domain.DeliveryResult{Delivered: true, Sink: "webhook"})

	reg := registry.NewDeviceRegistry(nil)
	trigger := NewTrigger(reg, notifier, true, nil)
	reg.AddObserver(trigger)

	d, err := reg.Create(context.Background(), domain.DeviceSpec{PrimaryIP: "10.0.0.9"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := reg.Get(context.Background(), d.ID)
		return err == nil && got.AutomationTriggered &&
			len(got.AutomationActions) == 1 && strings.HasPrefix(got.AutomationActions[0], "device_created:")
	}, 2*time.Second, 10*time.Millisecond)
}
