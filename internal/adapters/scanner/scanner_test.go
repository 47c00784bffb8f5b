package scanner

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

func TestExpandTarget(t *testing.T) {
	tests := []struct {
		target string
		count  int
		first  string
		last   string
	}{
		{"10.0.0.7", 1, "10.0.0.7", "10.0.0.7"},
		{"10.0.0.0/30", 2, "10.0.0.1", "10.0.0.2"},
		{"10.0.0.0/24", 254, "10.0.0.1", "10.0.0.254"},
		{"10.0.0.5/32", 1, "10.0.0.5", "10.0.0.5"},
		{"10.0.0.4/31", 2, "10.0.0.4", "10.0.0.5"},
		{"nas.local", 1, "nas.local", "nas.local"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			hosts, err := expandTarget(tt.target)
			require.NoError(t, err)
			require.Len(t, hosts, tt.count)
			assert.Equal(t, tt.first, hosts[0])
			assert.Equal(t, tt.last, hosts[len(hosts)-1])
		})
	}

	_, err := expandTarget("10.0.0.0/8")
	assert.Error(t, err)
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "ssh", ServiceName(22))
	assert.Equal(t, "port-31337", ServiceName(31337))
	assert.Equal(t, []string{"http", "https", "ssh"}, servicesFor([]int{443, 22, 80, 22}))
}

func TestGuessOS(t *testing.T) {
	assert.Equal(t, "FortiOS", guessOS([]int{443, 541}).Name)
	assert.Equal(t, "Windows", guessOS([]int{3389}).Name)
	assert.Equal(t, "Linux", guessOS([]int{22, 80}).Name)
	assert.Nil(t, guessOS([]int{8080}))
}

func TestExposureRules_Default(t *testing.T) {
	rules := DefaultExposureRules()
	require.NotEmpty(t, rules.Rules)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	host := domain.HostScan{IsAlive: true, OpenPorts: []int{23, 80, 445}, Services: []string{"telnet", "http", "microsoft-ds"}}
	findings := rules.Evaluate(host, false, now)
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"EXPOSED-TELNET", "EXPOSED-SMB"}, ids)
	assert.Equal(t, domain.SeverityCritical, findings[0].Severity)
	assert.Equal(t, now, findings[0].DiscoveredAt)

	aggressive := rules.Evaluate(host, true, now)
	assert.Len(t, aggressive, 3)

	assert.Empty(t, rules.Evaluate(domain.HostScan{IsAlive: false, OpenPorts: []int{23}}, true, now))
}

func TestParseExposureRules(t *testing.T) {
	rules, err := ParseExposureRules([]byte(`
rules:
  - id: MQTT-SERVICE
    services: [MQTT]
    severity: HIGH
    score: 7
    description: broker
`))
	require.NoError(t, err)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, domain.SeverityHigh, rules.Rules[0].Severity)

	found := rules.Evaluate(domain.HostScan{IsAlive: true, Services: []string{"mqtt"}}, false, time.Now())
	assert.Len(t, found, 1)

	bad := []string{
		"rules: [{ports: [1], severity: low}]",
		"rules: [{id: A, severity: low}]",
		"rules: [{id: A, ports: [1], severity: urgent}]",
		"rules: [{id: A, ports: [1], severity: low}, {id: A, ports: [2], severity: low}]",
		"rules: {",
	}
	for _, doc := range bad {
		_, err := ParseExposureRules([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadExposureRules_EmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadExposureRules("")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultExposureRules().Rules), len(rules.Rules))

	_, err = LoadExposureRules("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func listen(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestTCPScanner_ScanHost(t *testing.T) {
	port := listen(t)
	s := NewTCPScanner(TCPConfig{ProbeTimeout: 200 * time.Millisecond}, nil, nil)

	host, err := s.ScanHost(context.Background(), "127.0.0.1", []int{port}, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, host.IsAlive)
	assert.Equal(t, []int{port}, host.OpenPorts)
	require.Len(t, host.Services, 1)
}

func TestTCPScanner_Discover(t *testing.T) {
	port := listen(t)
	s := NewTCPScanner(TCPConfig{LivenessPorts: []int{port}, ProbeTimeout: 200 * time.Millisecond}, nil, nil)

	hosts, err := s.Discover(context.Background(), "127.0.0.1/32", 2*time.Second)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "127.0.0.1", hosts[0].IP)
	assert.True(t, hosts[0].IsAlive)
	assert.Equal(t, []int{port}, hosts[0].OpenPorts)
}

func TestTCPScanner_Cancelled(t *testing.T) {
	s := NewTCPScanner(TCPConfig{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Discover(ctx, "127.0.0.1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.ScanHost(ctx, "127.0.0.1", []int{1}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedScanner_Deterministic(t *testing.T) {
	s := NewSimulatedScanner(nil, 0)
	ctx := context.Background()

	first, err := s.Discover(ctx, "192.168.1.0/24", time.Minute)
	require.NoError(t, err)
	second, err := s.Discover(ctx, "192.168.1.0/24", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)

	gw := first[0]
	assert.Equal(t, "192.168.1.1", gw.IP)
	assert.Equal(t, "fortigate-001", gw.Hostname)
	assert.Equal(t, "00:09:0F", gw.MAC[:8])

	for _, h := range first {
		host, err := s.ScanHost(ctx, h.IP, nil, time.Second)
		require.NoError(t, err)
		assert.True(t, host.IsAlive)
		assert.Equal(t, h.OpenPorts, host.OpenPorts)
	}
}

func TestSimulatedScanner_PortFilterAndAssess(t *testing.T) {
	s := NewSimulatedScanner(nil, 0)
	ctx := context.Background()

	host, err := s.ScanHost(ctx, "10.1.1.1", []int{443, 8080}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{443}, host.OpenPorts)

	dead, err := s.ScanHost(ctx, "printer.local", nil, time.Second)
	require.NoError(t, err)
	assert.False(t, dead.IsAlive)

	vulns, err := s.AssessVulnerabilities(ctx, "10.1.1.1", false)
	require.NoError(t, err)
	assert.Empty(t, vulns)
}

func TestSimulatedScanner_LatencyHonoursCancel(t *testing.T) {
	s := NewSimulatedScanner(nil, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Discover(ctx, "10.0.0.0/24", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
