package domain

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// ScanType selects the scan strategy.
type ScanType string

const (
	ScanTypeDiscovery     ScanType = "discovery"
	ScanTypePort          ScanType = "port"
	ScanTypeVulnerability ScanType = "vulnerability"
)

// Valid reports whether t is a supported scan type.
func (t ScanType) Valid() bool {
	switch t {
	case ScanTypeDiscovery, ScanTypePort, ScanTypeVulnerability:
		return true
	}
	return false
}

// ScanState is a node of the scan lifecycle:
// queued -> running -> completed|failed, and queued|running -> cancelled.
type ScanState string

const (
	ScanQueued    ScanState = "queued"
	ScanRunning   ScanState = "running"
	ScanCompleted ScanState = "completed"
	ScanFailed    ScanState = "failed"
	ScanCancelled ScanState = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s ScanState) Terminal() bool {
	return s == ScanCompleted || s == ScanFailed || s == ScanCancelled
}

// Valid reports whether s is a known state.
func (s ScanState) Valid() bool {
	switch s {
	case ScanQueued, ScanRunning, ScanCompleted, ScanFailed, ScanCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to ScanState) bool {
	switch from {
	case ScanQueued:
		return to == ScanRunning || to == ScanCancelled
	case ScanRunning:
		return to == ScanCompleted || to == ScanFailed || to == ScanCancelled
	}
	return false
}

// Scan limits.
const (
	DefaultScanTimeout   = 30
	MaxScanTimeout       = 300
	DiscoveryScanTimeout = 60
	VulnScanTimeout      = 180
)

// ScanRequest is the caller input for starting a scan.
type ScanRequest struct {
	Target     string   `json:"target"`
	Type       ScanType `json:"scan_type"`
	Ports      []int    `json:"ports,omitempty"`
	Timeout    int      `json:"timeout"`
	Aggressive bool     `json:"aggressive"`
}

// Normalize fills defaults for omitted fields.
func (r ScanRequest) Normalize() ScanRequest {
	r.Target = CanonicalIP(r.Target)
	if r.Type == "" {
		r.Type = ScanTypeDiscovery
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultScanTimeout
	}
	return r
}

// Validate rejects malformed requests before anything is scheduled.
func (r ScanRequest) Validate() error {
	if r.Target == "" {
		return NewValidationError("target", r.Target, ErrRequired)
	}
	if !IsValidTarget(r.Target) {
		return NewValidationError("target", r.Target, ErrInvalidTarget)
	}
	if !r.Type.Valid() {
		return NewValidationError("scan_type", string(r.Type), ErrInvalidEnum)
	}
	if r.Timeout < 1 || r.Timeout > MaxScanTimeout {
		return NewValidationError("timeout", strconv.Itoa(r.Timeout), ErrOutOfRange)
	}
	for _, p := range r.Ports {
		if p < 1 || p > 65535 {
			return NewValidationError("ports", strconv.Itoa(p), ErrOutOfRange)
		}
	}
	return nil
}

// Scan is one unit of scanning work. The orchestrator owns every Scan.
type Scan struct {
	ID         string   `json:"scan_id"`
	Target     string   `json:"target"`
	Type       ScanType `json:"scan_type"`
	Ports      []int    `json:"ports,omitempty"`
	Timeout    int      `json:"timeout"`
	Aggressive bool     `json:"aggressive"`

	State       ScanState  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	DevicesFound         int          `json:"devices_found"`
	VulnerabilitiesFound int          `json:"vulnerabilities_found"`
	Results              *ScanResults `json:"results,omitempty"`
}

// Clone returns a copy that does not share slices with s.
func (s Scan) Clone() Scan {
	c := s
	c.Ports = append([]int(nil), s.Ports...)
	if s.CompletedAt != nil {
		ts := *s.CompletedAt
		c.CompletedAt = &ts
	}
	if s.Results != nil {
		r := s.Results.clone()
		c.Results = &r
	}
	return c
}

// Duration returns the wall time of a finished scan.
func (s Scan) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// ScanResults carries the strategy specific payload. Only the fields of the
// scan's type are populated.
type ScanResults struct {
	// discovery
	DiscoveredHosts []HostObservation `json:"discovered_hosts,omitempty"`
	DevicesCreated  int               `json:"devices_created,omitempty"`
	ScanRange       string            `json:"scan_range,omitempty"`

	// port and vulnerability
	Target          string          `json:"target,omitempty"`
	PortScan        *HostScan       `json:"port_scan,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	DeviceID        string          `json:"device_id,omitempty"`
}

func (r ScanResults) clone() ScanResults {
	c := r
	c.DiscoveredHosts = append([]HostObservation(nil), r.DiscoveredHosts...)
	c.Vulnerabilities = append([]Vulnerability(nil), r.Vulnerabilities...)
	if r.PortScan != nil {
		ps := *r.PortScan
		c.PortScan = &ps
	}
	return c
}

// IsValidTarget accepts an IP, a CIDR range or a hostname.
func IsValidTarget(target string) bool {
	if net.ParseIP(target) != nil {
		return true
	}
	if _, _, err := net.ParseCIDR(target); err == nil {
		return true
	}
	return isHostname(target)
}

func isHostname(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				return false
			}
		}
	}
	return true
}
