package domain

// Category is the coarse manufacturer family an OUI maps to.
type Category string

const (
	CategoryNetworkSecurity  Category = "network_security"
	CategoryNetworkEquipment Category = "network_equipment"
	CategoryServer           Category = "server"
	CategoryEndpoint         Category = "endpoint"
	CategoryPrinter          Category = "printer"
	CategoryMobile           Category = "mobile"
	CategoryIoT              Category = "iot"
	CategoryUnknown          Category = "unknown"
)

// Confidence grades how the manufacturer was resolved.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // static OUI table
	ConfidenceMedium Confidence = "medium" // fallback vendor lookup
	ConfidenceNone   Confidence = "none"
)

// RiskLevel is the classification's exposure estimate.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Service hints derived from open ports.
const (
	HintWebService    = "web_service"
	HintSSHServer     = "ssh_server"
	HintPrinter       = "printer"
	HintManagedDevice = "managed_device"
)

// UnknownManufacturer is reported when no source knows the OUI.
const UnknownManufacturer = "Unknown"

// Signals are the raw, possibly partial inputs to classification.
type Signals struct {
	MAC       string
	Hostname  string
	OpenPorts []int
}

// Identity is the best-effort classification of a device.
type Identity struct {
	Manufacturer string     `json:"manufacturer"`
	Category     Category   `json:"category"`
	DeviceType   DeviceType `json:"device_type"`
	Confidence   Confidence `json:"confidence"`
	ServiceHint  string     `json:"service_hint,omitempty"`
	RiskLevel    RiskLevel  `json:"risk_level"`
	DisplayName  string     `json:"display_name"`
}

// KnownManufacturer reports whether a source resolved the manufacturer.
func (i Identity) KnownManufacturer() bool {
	return i.Manufacturer != "" && i.Manufacturer != UnknownManufacturer
}

// VendorLookupResult is the explicit outcome of a fallback vendor lookup.
// Err is set when a source failed, as opposed to simply not knowing the OUI.
type VendorLookupResult struct {
	Vendor string
	Source string
	Found  bool
	Err    error
}
