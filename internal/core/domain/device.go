package domain

import (
	"maps"
	"net"
	"slices"
	"sort"
	"strings"
	"time"
)

// DeviceType classifies the role of a device on the network.
type DeviceType string

const (
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypeFirewall    DeviceType = "firewall"
	DeviceTypeAccessPoint DeviceType = "access_point"
	DeviceTypeServer      DeviceType = "server"
	DeviceTypeWorkstation DeviceType = "workstation"
	DeviceTypePrinter     DeviceType = "printer"
	DeviceTypeIoT         DeviceType = "iot_device"
	DeviceTypeMobile      DeviceType = "mobile_device"
	DeviceTypeUnknown     DeviceType = "unknown"
)

// Valid reports whether t is one of the known device types.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeRouter, DeviceTypeSwitch, DeviceTypeFirewall, DeviceTypeAccessPoint,
		DeviceTypeServer, DeviceTypeWorkstation, DeviceTypePrinter, DeviceTypeIoT,
		DeviceTypeMobile, DeviceTypeUnknown:
		return true
	}
	return false
}

// NetworkInfrastructure reports whether t routes, switches or filters traffic.
func (t DeviceType) NetworkInfrastructure() bool {
	switch t {
	case DeviceTypeRouter, DeviceTypeSwitch, DeviceTypeFirewall, DeviceTypeAccessPoint:
		return true
	}
	return false
}

// Title returns a human readable form, e.g. "Access Point".
func (t DeviceType) Title() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "iot" {
			words[i] = "IoT"
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// DeviceStatus is the last known reachability/health state.
type DeviceStatus string

const (
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusOffline  DeviceStatus = "offline"
	DeviceStatusWarning  DeviceStatus = "warning"
	DeviceStatusCritical DeviceStatus = "critical"
	DeviceStatusUnknown  DeviceStatus = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusWarning,
		DeviceStatusCritical, DeviceStatusUnknown:
		return true
	}
	return false
}

// NetworkInterface is one addressable interface of a device.
type NetworkInterface struct {
	IPAddress     string `json:"ip_address"`
	MACAddress    string `json:"mac_address,omitempty"`
	InterfaceName string `json:"interface_name,omitempty"`
	IsPrimary     bool   `json:"is_primary"`
}

// OperatingSystem is the best-effort OS identification reported by a scan.
type OperatingSystem struct {
	Name       string  `json:"name,omitempty"`
	Version    string  `json:"version,omitempty"`
	Family     string  `json:"family,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Device is one discovered endpoint. The registry owns every Device; callers
// only ever receive copies.
type Device struct {
	ID         string       `json:"device_id"`
	Hostname   string       `json:"hostname,omitempty"`
	DeviceName string       `json:"device_name,omitempty"`
	Type       DeviceType   `json:"device_type"`
	Status     DeviceStatus `json:"status"`

	Interfaces []NetworkInterface `json:"interfaces"`
	PrimaryIP  string             `json:"primary_ip"`
	PrimaryMAC string             `json:"primary_mac,omitempty"`

	Manufacturer    string           `json:"manufacturer,omitempty"`
	Model           string           `json:"model,omitempty"`
	OperatingSystem *OperatingSystem `json:"operating_system,omitempty"`

	OpenPorts []int    `json:"open_ports"`
	Services  []string `json:"services"`
	Protocols []string `json:"protocols"`

	Vulnerabilities  []Vulnerability `json:"vulnerabilities"`
	SecurityScore    float64         `json:"security_score"`
	LastSecurityScan *time.Time      `json:"last_security_scan,omitempty"`

	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastUpdated time.Time `json:"last_updated"`
	ScanCount   int       `json:"scan_count"`

	Tags         []string          `json:"tags"`
	Notes        string            `json:"notes,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`

	AutomationTriggered bool     `json:"automation_triggered"`
	AutomationActions   []string `json:"automation_actions"`
}

// Clone returns a deep copy so callers can never alias registry state.
func (d Device) Clone() Device {
	c := d
	c.Interfaces = slices.Clone(d.Interfaces)
	c.OpenPorts = slices.Clone(d.OpenPorts)
	c.Services = slices.Clone(d.Services)
	c.Protocols = slices.Clone(d.Protocols)
	c.Vulnerabilities = slices.Clone(d.Vulnerabilities)
	c.Tags = slices.Clone(d.Tags)
	c.AutomationActions = slices.Clone(d.AutomationActions)
	c.CustomFields = maps.Clone(d.CustomFields)
	if d.OperatingSystem != nil {
		os := *d.OperatingSystem
		c.OperatingSystem = &os
	}
	if d.LastSecurityScan != nil {
		ts := *d.LastSecurityScan
		c.LastSecurityScan = &ts
	}
	return c
}

// HasIP reports whether any interface carries ip, compared by address value.
func (d Device) HasIP(ip string) bool {
	ip = CanonicalIP(ip)
	for _, iface := range d.Interfaces {
		if CanonicalIP(iface.IPAddress) == ip {
			return true
		}
	}
	return false
}

// CanonicalIP returns the canonical text of an IP address: IPv6 lowercased
// and compressed, IPv4-mapped IPv6 unmapped to dotted IPv4. Anything that
// does not parse is returned trimmed.
func CanonicalIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.String()
	}
	return ip
}

// NormalizeInterfaces enforces the single-primary rule: the first interface
// flagged primary wins, and the first interface becomes primary if none is.
// PrimaryIP/PrimaryMAC are refreshed from the chosen interface.
func NormalizeInterfaces(ifaces []NetworkInterface) ([]NetworkInterface, NetworkInterface) {
	if len(ifaces) == 0 {
		return ifaces, NetworkInterface{}
	}
	primary := -1
	for i := range ifaces {
		if ifaces[i].IsPrimary && primary == -1 {
			primary = i
			continue
		}
		ifaces[i].IsPrimary = false
	}
	if primary == -1 {
		primary = 0
		ifaces[0].IsPrimary = true
	}
	return ifaces, ifaces[primary]
}

// DeviceSpec carries the caller supplied fields for creating a device.
type DeviceSpec struct {
	Hostname   string     `json:"hostname,omitempty"`
	DeviceName string     `json:"device_name,omitempty"`
	PrimaryIP  string     `json:"primary_ip"`
	PrimaryMAC string     `json:"primary_mac,omitempty"`
	DeviceType DeviceType `json:"device_type,omitempty"`

	// Populated by discovery, not accepted over the API.
	OpenPorts []int        `json:"-"`
	Services  []string     `json:"-"`
	Status    DeviceStatus `json:"-"`
}

// Validate checks the spec before it reaches the registry.
func (s DeviceSpec) Validate() error {
	if s.PrimaryIP == "" {
		return NewValidationError("primary_ip", s.PrimaryIP, ErrRequired)
	}
	if net.ParseIP(s.PrimaryIP) == nil {
		return NewValidationError("primary_ip", s.PrimaryIP, ErrInvalidIP)
	}
	if s.PrimaryMAC != "" {
		if _, err := ParseMAC(s.PrimaryMAC); err != nil {
			return err
		}
	}
	if s.DeviceType != "" && !s.DeviceType.Valid() {
		return NewValidationError("device_type", string(s.DeviceType), ErrInvalidEnum)
	}
	return nil
}

// HostObservation is what a discovery pass reports for one host.
type HostObservation struct {
	IP        string   `json:"ip"`
	MAC       string   `json:"mac,omitempty"`
	Hostname  string   `json:"hostname,omitempty"`
	IsAlive   bool     `json:"is_alive"`
	OpenPorts []int    `json:"open_ports,omitempty"`
	Services  []string `json:"services,omitempty"`
}

// HostScan is the result of probing a single host.
type HostScan struct {
	IsAlive   bool             `json:"is_alive"`
	OpenPorts []int            `json:"open_ports"`
	Services  []string         `json:"services"`
	OSInfo    *OperatingSystem `json:"os_info,omitempty"`
}

// ScanOutcome is applied to a device by RecordScanResult.
type ScanOutcome struct {
	Host            *HostScan
	Vulnerabilities []Vulnerability
}

// StatusFromLiveness maps a liveness probe to a device status.
func StatusFromLiveness(alive bool) DeviceStatus {
	if alive {
		return DeviceStatusOnline
	}
	return DeviceStatusOffline
}

// SortedPorts returns a sorted copy of ports with duplicates removed.
func SortedPorts(ports []int) []int {
	if len(ports) == 0 {
		return []int{}
	}
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// SortedSet returns a sorted, de-duplicated copy of values without empties.
func SortedSet(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
