package domain

// SecuritySummary aggregates scores and findings across the inventory.
type SecuritySummary struct {
	AverageSecurityScore      float64          `json:"average_security_score"`
	TotalVulnerabilities      int              `json:"total_vulnerabilities"`
	CriticalDevices           int              `json:"critical_devices"`
	DevicesAtRisk             int              `json:"devices_at_risk"`
	VulnerabilitiesBySeverity map[Severity]int `json:"vulnerabilities_by_severity"`
}

// RecentActivity counts recent scans and automation triggers.
type RecentActivity struct {
	ScansLast24h       int `json:"scans_last_24h"`
	AutomationTriggers int `json:"automation_triggers"`
}

// Statistics is the read-only rollup served by the statistics endpoint.
type Statistics struct {
	TotalDevices       int                  `json:"total_devices"`
	DeviceTypes        map[DeviceType]int   `json:"device_types"`
	StatusDistribution map[DeviceStatus]int `json:"status_distribution"`
	SecuritySummary    SecuritySummary      `json:"security_summary"`
	RecentActivity     RecentActivity       `json:"recent_activity"`
}

// NewStatistics initializes a stats object with empty maps to prevent nil access.
func NewStatistics() Statistics {
	return Statistics{
		DeviceTypes:        make(map[DeviceType]int),
		StatusDistribution: make(map[DeviceStatus]int),
		SecuritySummary: SecuritySummary{
			VulnerabilitiesBySeverity: make(map[Severity]int),
		},
	}
}

// CriticalScoreThreshold marks devices whose score is below it as critical.
const CriticalScoreThreshold = 50.0
