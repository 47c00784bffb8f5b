package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeScanner delegates to per-test funcs; nil funcs report nothing.
type fakeScanner struct {
	discover func(ctx context.Context, target string) ([]domain.HostObservation, error)
	scanHost func(ctx context.Context, target string) (domain.HostScan, error)
	assess   func(ctx context.Context, target string) ([]domain.Vulnerability, error)
}

func (f *fakeScanner) Discover(ctx context.Context, target string, _ time.Duration) ([]domain.HostObservation, error) {
	if f.discover == nil {
		return nil, nil
	}
	return f.discover(ctx, target)
}

func (f *fakeScanner) ScanHost(ctx context.Context, target string, _ []int, _ time.Duration) (domain.HostScan, error) {
	if f.scanHost == nil {
		return domain.HostScan{}, nil
	}
	return f.scanHost(ctx, target)
}

func (f *fakeScanner) AssessVulnerabilities(ctx context.Context, target string, aggressive bool) ([]domain.Vulnerability, error) {
	if f.assess == nil {
		return nil, nil
	}
	return f.assess(ctx, target)
}

// blockUntilCancelled returns a discover func that parks until ctx is done.
func blockUntilCancelled(started chan<- struct{}) func(ctx context.Context, target string) ([]domain.HostObservation, error) {
	var once sync.Once
	return func(ctx context.Context, target string) ([]domain.HostObservation, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) Fire(ctx context.Context, deviceID string, action domain.AutomationAction) bool {
	args := m.Called(ctx, deviceID, action)
	return args.Bool(0)
}

func newTestOrchestrator(scanner *fakeScanner, trigger *MockTrigger, maxConcurrent int) (*Orchestrator, *registry.DeviceRegistry) {
	reg := registry.NewDeviceRegistry(nil)
	var tr ports.AutomationTrigger
	if trigger != nil {
		tr = trigger
	}
	o := NewOrchestrator(scanner, reg, tr, Config{MaxConcurrentScans: maxConcurrent, DefaultScanRange: "192.168.1.0/24"})
	return o, reg
}

func waitScan(t *testing.T, o *Orchestrator, id string) domain.Scan {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	scan, err := o.Wait(ctx, id)
	require.NoError(t, err)
	return scan
}

func TestStart_DiscoveryCompletes(t *testing.T) {
	scanner := &fakeScanner{
		discover: func(ctx context.Context, target string) ([]domain.HostObservation, error) {
			return []domain.HostObservation{
				{IP: "10.0.0.1", IsAlive: true, OpenPorts: []int{22}},
				{IP: "10.0.0.2", IsAlive: true},
				{IP: "10.0.0.1", IsAlive: true},
			}, nil
		},
	}
	o, reg := newTestOrchestrator(scanner, nil, 0)
	ctx := context.Background()

	queued, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanQueued, queued.State)
	assert.Equal(t, domain.ScanTypeDiscovery, queued.Type)
	assert.Equal(t, domain.DefaultScanTimeout, queued.Timeout)
	assert.Nil(t, queued.CompletedAt)

	done := waitScan(t, o, queued.ID)
	assert.Equal(t, domain.ScanCompleted, done.State)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Results)
	assert.Equal(t, len(done.Results.DiscoveredHosts), done.DevicesFound)
	assert.Equal(t, 2, done.Results.DevicesCreated)
	assert.Equal(t, "10.0.0.0/24", done.Results.ScanRange)

	// Duplicate IPs in one discovery yield one device.
	assert.Equal(t, 2, reg.Count(ctx))
}

func TestStart_EventuallyCompletes(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)

	scan, err := o.Start(context.Background(), domain.ScanRequest{Target: "10.0.0.9", Type: domain.ScanTypePort})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s, err := o.Get(context.Background(), scan.ID)
		return err == nil && s.State == domain.ScanCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_Validation(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.ScanRequest
	}{
		{"empty target", domain.ScanRequest{}},
		{"bad target", domain.ScanRequest{Target: "not a host!"}},
		{"bad type", domain.ScanRequest{Target: "10.0.0.1", Type: "stealth"}},
		{"timeout too large", domain.ScanRequest{Target: "10.0.0.1", Timeout: 301}},
		{"negative timeout", domain.ScanRequest{Target: "10.0.0.1", Timeout: -1}},
		{"bad port", domain.ScanRequest{Target: "10.0.0.1", Ports: []int{70000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Start(ctx, tt.req)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, o.List(ctx, domain.ScanFilter{}, 0))
}

func TestScannerError_Fails(t *testing.T) {
	scanner := &fakeScanner{
		discover: func(ctx context.Context, target string) ([]domain.HostObservation, error) {
			return nil, errors.New("network unreachable")
		},
	}
	o, reg := newTestOrchestrator(scanner, nil, 0)

	scan, err := o.Start(context.Background(), domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)

	done := waitScan(t, o, scan.ID)
	assert.Equal(t, domain.ScanFailed, done.State)
	assert.Contains(t, done.Error, "network unreachable")
	assert.NotNil(t, done.CompletedAt)
	assert.Nil(t, done.Results)
	assert.Equal(t, 0, reg.Count(context.Background()))
}

func TestScannerError_NoMutationPastFailure(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{IsAlive: true}, nil
		},
		assess: func(ctx context.Context, target string) ([]domain.Vulnerability, error) {
			return nil, errors.New("assessment backend down")
		},
	}
	o, reg := newTestOrchestrator(scanner, nil, 0)
	ctx := context.Background()
	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5"})
	require.NoError(t, err)

	scan, err := o.VulnerabilityScan(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.True(t, scan.Aggressive)
	assert.Equal(t, domain.VulnScanTimeout, scan.Timeout)

	done := waitScan(t, o, scan.ID)
	assert.Equal(t, domain.ScanFailed, done.State)

	after, err := reg.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, after)
}

func TestScanPanic_Fails(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			panic("driver exploded")
		},
	}
	o, _ := newTestOrchestrator(scanner, nil, 0)

	scan, err := o.Start(context.Background(), domain.ScanRequest{Target: "10.0.0.1", Type: domain.ScanTypePort})
	require.NoError(t, err)

	done := waitScan(t, o, scan.ID)
	assert.Equal(t, domain.ScanFailed, done.State)
	assert.Contains(t, done.Error, "driver exploded")
}

func TestCancel_AfterCompletion(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)
	ctx := context.Background()

	scan, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.1"})
	require.NoError(t, err)
	waitScan(t, o, scan.ID)

	assert.False(t, o.Cancel(ctx, scan.ID))
	assert.False(t, o.Cancel(ctx, "unknown"))

	got, err := o.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCompleted, got.State)
}

func TestCancel_WhileRunning(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOrchestrator(&fakeScanner{discover: blockUntilCancelled(started)}, nil, 0)
	ctx := context.Background()

	scan, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)
	<-started

	running, err := o.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanRunning, running.State)

	assert.True(t, o.Cancel(ctx, scan.ID))
	done := waitScan(t, o, scan.ID)

	// The strategy saw a cancelled context, but the record stays cancelled.
	assert.Equal(t, domain.ScanCancelled, done.State)
	assert.Empty(t, done.Error)
	assert.NotNil(t, done.CompletedAt)
	assert.False(t, o.Cancel(ctx, scan.ID))
}

func TestCancel_WhileQueued(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOrchestrator(&fakeScanner{discover: blockUntilCancelled(started)}, nil, 1)
	ctx := context.Background()

	first, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)
	<-started

	second, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.1.0/24"})
	require.NoError(t, err)

	queued, err := o.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanQueued, queued.State)

	assert.True(t, o.Cancel(ctx, second.ID))
	done := waitScan(t, o, second.ID)
	assert.Equal(t, domain.ScanCancelled, done.State)

	assert.True(t, o.Cancel(ctx, first.ID))
	assert.Equal(t, domain.ScanCancelled, waitScan(t, o, first.ID).State)
}

func TestGet_NotFound(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)
	_, err := o.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	o := NewOrchestrator(&fakeScanner{}, reg, nil, Config{}, WithClock(clock))
	ctx := context.Background()

	var ids []string
	for _, target := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		s, err := o.Start(ctx, domain.ScanRequest{Target: target, Type: domain.ScanTypePort})
		require.NoError(t, err)
		waitScan(t, o, s.ID)
		ids = append(ids, s.ID)
	}

	all := o.List(ctx, domain.ScanFilter{}, 0)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited := o.List(ctx, domain.ScanFilter{State: domain.ScanCompleted}, 2)
	assert.Len(t, limited, 2)
	assert.Empty(t, o.List(ctx, domain.ScanFilter{State: domain.ScanRunning}, 0))
}

func TestPortScan_UpsertsAliveIPTarget(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{IsAlive: true, OpenPorts: []int{443}, Services: []string{"https"}}, nil
		},
	}
	o, reg := newTestOrchestrator(scanner, nil, 0)
	ctx := context.Background()

	scan, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.7", Type: domain.ScanTypePort})
	require.NoError(t, err)
	done := waitScan(t, o, scan.ID)
	require.Equal(t, domain.ScanCompleted, done.State)
	assert.Equal(t, 1, done.DevicesFound)

	d, ok := reg.FindByIP(ctx, "10.0.0.7")
	require.True(t, ok)
	assert.Equal(t, done.Results.DeviceID, d.ID)
	assert.Equal(t, []int{443}, d.OpenPorts)

	// Hostname targets are probed but not recorded.
	scan, err = o.Start(ctx, domain.ScanRequest{Target: "printer.lan", Type: domain.ScanTypePort})
	require.NoError(t, err)
	waitScan(t, o, scan.ID)
	assert.Equal(t, 1, reg.Count(ctx))
}

func mediumFinding() []domain.Vulnerability {
	return []domain.Vulnerability{{ID: "CVE-2023-1111", Severity: domain.SeverityMedium, Description: "weak cipher"}}
}

func TestTriggerAsymmetry_ScanDeviceFiresOnAnyFinding(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{IsAlive: true, OpenPorts: []int{443}}, nil
		},
		assess: func(ctx context.Context, target string) ([]domain.Vulnerability, error) {
			return mediumFinding(), nil
		},
	}
	trigger := new(MockTrigger)
	o, reg := newTestOrchestrator(scanner, trigger, 0)
	ctx := context.Background()

	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5"})
	require.NoError(t, err)
	trigger.On("Fire", mock.Anything, d.ID, domain.ActionVulnerabilitiesDetected).Return(true)

	scanned, err := o.ScanDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, scanned.ScanCount)
	assert.Equal(t, 92.0, scanned.SecurityScore)
	assert.Equal(t, domain.DeviceStatusOnline, scanned.Status)

	trigger.AssertCalled(t, "Fire", mock.Anything, d.ID, domain.ActionVulnerabilitiesDetected)
	trigger.AssertNumberOfCalls(t, "Fire", 1)
}

func TestTriggerAsymmetry_VulnerabilityScanIgnoresNonCritical(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{IsAlive: true}, nil
		},
		assess: func(ctx context.Context, target string) ([]domain.Vulnerability, error) {
			return mediumFinding(), nil
		},
	}
	trigger := new(MockTrigger)
	o, reg := newTestOrchestrator(scanner, trigger, 0)
	ctx := context.Background()

	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5"})
	require.NoError(t, err)

	scan, err := o.VulnerabilityScan(ctx, "10.0.0.5")
	require.NoError(t, err)
	done := waitScan(t, o, scan.ID)
	require.Equal(t, domain.ScanCompleted, done.State)
	assert.Equal(t, 1, done.VulnerabilitiesFound)

	after, err := reg.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, after.Vulnerabilities, 1)
	assert.Equal(t, 92.0, after.SecurityScore)

	trigger.AssertNotCalled(t, "Fire", mock.Anything, mock.Anything, mock.Anything)
}

func TestVulnerabilityScan_CriticalFires(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{IsAlive: true}, nil
		},
		assess: func(ctx context.Context, target string) ([]domain.Vulnerability, error) {
			return []domain.Vulnerability{{ID: "CVE-2024-9999", Severity: "CRITICAL"}}, nil
		},
	}
	trigger := new(MockTrigger)
	o, reg := newTestOrchestrator(scanner, trigger, 0)
	ctx := context.Background()

	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5"})
	require.NoError(t, err)
	trigger.On("Fire", mock.Anything, d.ID, domain.ActionCriticalVulnerabilities).Return(true)

	scan, err := o.VulnerabilityScan(ctx, "10.0.0.5")
	require.NoError(t, err)
	waitScan(t, o, scan.ID)

	trigger.AssertExpectations(t)
}

func TestScanDevice_ScannerErrorMarksUnknown(t *testing.T) {
	scanner := &fakeScanner{
		scanHost: func(ctx context.Context, target string) (domain.HostScan, error) {
			return domain.HostScan{}, errors.New("timeout")
		},
	}
	trigger := new(MockTrigger)
	o, reg := newTestOrchestrator(scanner, trigger, 0)
	ctx := context.Background()

	d, err := reg.Create(ctx, domain.DeviceSpec{PrimaryIP: "10.0.0.5"})
	require.NoError(t, err)
	online := domain.DeviceStatusOnline
	_, err = reg.Update(ctx, d.ID, domain.DevicePatch{Status: &online})
	require.NoError(t, err)

	scanned, err := o.ScanDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusUnknown, scanned.Status)
	assert.Equal(t, 0, scanned.ScanCount)
	trigger.AssertNotCalled(t, "Fire", mock.Anything, mock.Anything, mock.Anything)

	_, err = o.ScanDevice(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStart_DiscoveryCountsOnlyRecordedHosts(t *testing.T) {
	scanner := &fakeScanner{
		discover: func(ctx context.Context, target string) ([]domain.HostObservation, error) {
			return []domain.HostObservation{
				{IP: "10.0.0.1", IsAlive: true},
				{IP: "", IsAlive: true},
				{IP: "not-an-ip", IsAlive: true},
				{IP: "10.0.0.2", IsAlive: true},
			}, nil
		},
	}
	o, reg := newTestOrchestrator(scanner, nil, 0)
	ctx := context.Background()

	queued, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)

	done := waitScan(t, o, queued.ID)
	assert.Equal(t, domain.ScanCompleted, done.State)
	assert.Equal(t, 2, done.DevicesFound)
	require.NotNil(t, done.Results)
	assert.Len(t, done.Results.DiscoveredHosts, 4)
	assert.Equal(t, 2, done.Results.DevicesCreated)
	assert.Equal(t, 2, reg.Count(ctx))
}

func TestNetworkDiscovery_DefaultRange(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)

	scan, err := o.NetworkDiscovery(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.0/24", scan.Target)
	assert.Equal(t, domain.DiscoveryScanTimeout, scan.Timeout)
	waitScan(t, o, scan.ID)
}

func TestShutdown_CancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOrchestrator(&fakeScanner{discover: blockUntilCancelled(started)}, nil, 0)
	ctx := context.Background()

	scan, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)
	<-started

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(shutdownCtx))

	got, err := o.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCancelled, got.State)
}

// lateScanObserver records scan states after a delay.
type lateScanObserver struct {
	mu     sync.Mutex
	states map[string]domain.ScanState
}

func (o *lateScanObserver) OnScanUpdated(ctx context.Context, scan domain.Scan) {
	time.Sleep(20 * time.Millisecond)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.states == nil {
		o.states = make(map[string]domain.ScanState)
	}
	if scan.State.Terminal() || o.states[scan.ID] == "" {
		o.states[scan.ID] = scan.State
	}
}

func (o *lateScanObserver) state(id string) domain.ScanState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[id]
}

func TestShutdown_DeliversFinalTransitions(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOrchestrator(&fakeScanner{discover: blockUntilCancelled(started)}, nil, 0)
	obs := &lateScanObserver{}
	o.AddObserver(obs)
	ctx := context.Background()

	scan, err := o.Start(ctx, domain.ScanRequest{Target: "10.0.0.0/24"})
	require.NoError(t, err)
	<-started

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(shutdownCtx))

	assert.Equal(t, domain.ScanCancelled, obs.state(scan.ID))
}

func TestRestore_MarksInterrupted(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeScanner{}, nil, 0)
	ctx := context.Background()

	o.Restore([]domain.Scan{
		{ID: "done", State: domain.ScanCompleted, StartedAt: time.Now().Add(-time.Hour)},
		{ID: "inflight", State: domain.ScanRunning, StartedAt: time.Now().Add(-time.Minute)},
	})

	done, err := o.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCompleted, done.State)

	inflight, err := o.Get(ctx, "inflight")
	require.NoError(t, err)
	assert.Equal(t, domain.ScanFailed, inflight.State)
	assert.Equal(t, ErrInterrupted.Error(), inflight.Error)
	assert.NotNil(t, inflight.CompletedAt)
}

func TestStart_ConfiguredDefaultTimeout(t *testing.T) {
	reg := registry.NewDeviceRegistry(nil)
	o := NewOrchestrator(&fakeScanner{}, reg, nil, Config{DefaultTimeout: 90})

	queued, err := o.Start(context.Background(), domain.ScanRequest{Target: "10.0.0.1", Type: domain.ScanTypePort})
	require.NoError(t, err)
	assert.Equal(t, 90, queued.Timeout)

	explicit, err := o.Start(context.Background(), domain.ScanRequest{Target: "10.0.0.1", Type: domain.ScanTypePort, Timeout: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, explicit.Timeout)

	waitScan(t, o, queued.ID)
	waitScan(t, o, explicit.ID)
}
