package scanner

import (
	"context"
	"fmt"
	"hash/fnv"
	"net"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// hostProfile is one kind of synthetic device.
type hostProfile struct {
	name  string
	oui   string
	ports []int
}

var simulatedProfiles = []hostProfile{
	{name: "srv", oui: "00:14:22", ports: []int{22, 80, 443, 3306}},
	{name: "printer", oui: "00:01:E3", ports: []int{80, 515, 631, 9100}},
	{name: "ws", oui: "00:12:5A", ports: []int{135, 139, 445, 3389}},
	{name: "switch", oui: "00:1B:0D", ports: []int{22, 23, 161}},
	{name: "macbook", oui: "A8:96:75", ports: []int{22, 5900}},
	{name: "sensor", oui: "B8:27:EB", ports: []int{22, 1883}},
	{name: "ap", oui: "24:A4:3C", ports: []int{22, 443}},
}

var gatewayProfile = hostProfile{name: "fortigate", oui: "00:09:0F", ports: []int{22, 443, 541}}

// SimulatedScanner answers from a deterministic synthetic network so the
// service can run without touching a real one. The same address always
// yields the same host.
type SimulatedScanner struct {
	rules   *ExposureRules
	latency time.Duration
	now     func() time.Time
}

// NewSimulatedScanner sleeps latency per call, honouring cancellation, so
// scans are observable while running.
func NewSimulatedScanner(rules *ExposureRules, latency time.Duration) *SimulatedScanner {
	if rules == nil {
		rules = DefaultExposureRules()
	}
	return &SimulatedScanner{rules: rules, latency: latency, now: time.Now}
}

func (s *SimulatedScanner) Discover(ctx context.Context, target string, timeout time.Duration) ([]domain.HostObservation, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	hosts, err := expandTarget(target)
	if err != nil {
		return nil, err
	}

	out := []domain.HostObservation{}
	for _, ip := range hosts {
		profile, ok := simulatedHost(ip)
		if !ok {
			continue
		}
		out = append(out, domain.HostObservation{
			IP:        ip,
			MAC:       simulatedMAC(profile, ip),
			Hostname:  simulatedHostname(profile, ip),
			IsAlive:   true,
			OpenPorts: domain.SortedPorts(profile.ports),
			Services:  servicesFor(profile.ports),
		})
	}
	return out, nil
}

func (s *SimulatedScanner) ScanHost(ctx context.Context, target string, ports []int, timeout time.Duration) (domain.HostScan, error) {
	if err := s.wait(ctx); err != nil {
		return domain.HostScan{}, err
	}
	profile, ok := simulatedHost(target)
	if !ok {
		return domain.HostScan{IsAlive: false, OpenPorts: []int{}, Services: []string{}}, nil
	}

	open := domain.SortedPorts(profile.ports)
	if len(ports) > 0 {
		requested := make(map[int]bool, len(ports))
		for _, p := range ports {
			requested[p] = true
		}
		filtered := []int{}
		for _, p := range open {
			if requested[p] {
				filtered = append(filtered, p)
			}
		}
		open = filtered
	}

	return domain.HostScan{
		IsAlive:   true,
		OpenPorts: open,
		Services:  servicesFor(open),
		OSInfo:    guessOS(profile.ports),
	}, nil
}

func (s *SimulatedScanner) AssessVulnerabilities(ctx context.Context, target string, aggressive bool) ([]domain.Vulnerability, error) {
	host, err := s.ScanHost(ctx, target, nil, 0)
	if err != nil {
		return nil, err
	}
	return s.rules.Evaluate(host, aggressive, s.now()), nil
}

func (s *SimulatedScanner) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// simulatedHost decides whether ip is populated and with what. Address .1
// of every IPv4 /24 is the gateway; roughly a quarter of the rest are live.
// Hostnames are never live.
func simulatedHost(target string) (hostProfile, bool) {
	ip := net.ParseIP(target).To4()
	if ip == nil {
		return hostProfile{}, false
	}
	if ip[3] == 1 {
		return gatewayProfile, true
	}
	h := hash(target)
	if h%4 != 0 {
		return hostProfile{}, false
	}
	return simulatedProfiles[(h/4)%uint32(len(simulatedProfiles))], true
}

func simulatedMAC(p hostProfile, ip string) string {
	h := hash("mac:" + ip)
	return fmt.Sprintf("%s:%02X:%02X:%02X", p.oui, byte(h>>16), byte(h>>8), byte(h))
}

func simulatedHostname(p hostProfile, ip string) string {
	v4 := net.ParseIP(ip).To4()
	return fmt.Sprintf("%s-%03d", p.name, v4[3])
}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

var _ ports.Scanner = (*SimulatedScanner)(nil)
