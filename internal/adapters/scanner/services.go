// Package scanner provides the network probing behind scans: a TCP connect
// scanner for real networks and a deterministic simulated network for mock
// mode. Findings come from declarative exposure rules.
package scanner

import (
	"fmt"
	"net"
	"strings"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DefaultPorts is probed when a request names no ports.
var DefaultPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 135, 139, 143, 161, 389, 443, 445, 515,
	541, 631, 993, 1433, 1883, 3306, 3389, 5432, 5900, 8080, 8443, 9100,
}

// livenessPorts are tried during discovery; a refused connection still
// proves the host is up.
var livenessPorts = []int{80, 443, 22, 445, 3389}

var serviceNames = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	135:  "msrpc",
	139:  "netbios-ssn",
	143:  "imap",
	161:  "snmp",
	389:  "ldap",
	443:  "https",
	445:  "microsoft-ds",
	515:  "printer",
	541:  "fortimanager",
	631:  "ipp",
	993:  "imaps",
	1433: "mssql",
	1883: "mqtt",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	5900: "vnc",
	8080: "http-proxy",
	8443: "https-alt",
	9100: "jetdirect",
}

// ServiceName returns the well-known service for port, or "port-<n>".
func ServiceName(port int) string {
	if s, ok := serviceNames[port]; ok {
		return s
	}
	return fmt.Sprintf("port-%d", port)
}

func servicesFor(ports []int) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, ServiceName(p))
	}
	return domain.SortedSet(names)
}

// guessOS is a port-signature heuristic; confidence stays low on purpose
// because a TCP connect scan sees no stack fingerprint.
func guessOS(ports []int) *domain.OperatingSystem {
	has := make(map[int]bool, len(ports))
	for _, p := range ports {
		has[p] = true
	}
	switch {
	case has[541]:
		return &domain.OperatingSystem{Name: "FortiOS", Family: "fortinet", Confidence: 0.6}
	case has[3389] || has[135] || has[445] && has[139]:
		return &domain.OperatingSystem{Name: "Windows", Family: "windows", Confidence: 0.5}
	case has[9100] || has[515]:
		return &domain.OperatingSystem{Name: "Embedded printer firmware", Family: "embedded", Confidence: 0.4}
	case has[22]:
		return &domain.OperatingSystem{Name: "Linux", Family: "unix", Confidence: 0.4}
	}
	return nil
}

// maxSweepHosts caps a single discovery sweep (a /20).
const maxSweepHosts = 4096

// expandTarget turns an IP, CIDR or hostname into the addresses to probe.
// Network and broadcast addresses of IPv4 ranges wider than /31 are skipped.
func expandTarget(target string) ([]string, error) {
	target = strings.TrimSpace(target)
	if ip := net.ParseIP(target); ip != nil {
		return []string{ip.String()}, nil
	}

	ip, ipnet, err := net.ParseCIDR(target)
	if err != nil {
		// Hostname; the dialer resolves it.
		return []string{target}, nil
	}
	ones, bits := ipnet.Mask.Size()
	if bits-ones > 12 {
		return nil, fmt.Errorf("range %s exceeds %d hosts", target, maxSweepHosts)
	}

	var hosts []string
	for cur := ip.Mask(ipnet.Mask); ipnet.Contains(cur); cur = nextIP(cur) {
		hosts = append(hosts, cur.String())
	}
	if ip.To4() != nil && bits-ones > 1 && len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}
