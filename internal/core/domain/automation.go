package domain

import "time"

// AutomationAction names an event delivered to the automation system.
type AutomationAction string

const (
	ActionDeviceCreated           AutomationAction = "device_created"
	ActionVulnerabilitiesDetected AutomationAction = "vulnerabilities_detected"
	ActionCriticalVulnerabilities AutomationAction = "critical_vulnerabilities_detected"
	ActionDeviceOffline           AutomationAction = "device_offline"
	ActionSuspiciousActivity      AutomationAction = "suspicious_activity"
	ActionComplianceViolation     AutomationAction = "compliance_violation"
)

// Priority is attached to the delivered envelope.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

type actionPolicy struct {
	workflow  string
	priority  Priority
	immediate bool
}

var actionPolicies = map[AutomationAction]actionPolicy{
	ActionDeviceCreated:           {workflow: "new_device_detected", priority: PriorityLow},
	ActionVulnerabilitiesDetected: {workflow: "security_vulnerability_found", priority: PriorityHigh},
	ActionCriticalVulnerabilities: {workflow: "critical_security_alert", priority: PriorityCritical, immediate: true},
	ActionDeviceOffline:           {workflow: "device_connectivity_lost", priority: PriorityMedium},
	ActionSuspiciousActivity:      {workflow: "security_incident_detected", priority: PriorityMedium, immediate: true},
	ActionComplianceViolation:     {workflow: "compliance_alert", priority: PriorityHigh, immediate: true},
}

// Valid reports whether a is a known action.
func (a AutomationAction) Valid() bool {
	_, ok := actionPolicies[a]
	return ok
}

// Workflow returns the workflow the action is routed to. Unknown actions
// route to a workflow of the same name.
func (a AutomationAction) Workflow() string {
	if p, ok := actionPolicies[a]; ok {
		return p.workflow
	}
	return string(a)
}

// Priority returns the delivery priority; unknown actions are medium.
func (a AutomationAction) Priority() Priority {
	if p, ok := actionPolicies[a]; ok {
		return p.priority
	}
	return PriorityMedium
}

// RequiresImmediateAttention is set for the critical actions.
func (a AutomationAction) RequiresImmediateAttention() bool {
	return actionPolicies[a].immediate
}

// CarriesVulnerabilities reports whether the payload lists findings.
func (a AutomationAction) CarriesVulnerabilities() bool {
	return a == ActionVulnerabilitiesDetected || a == ActionCriticalVulnerabilities
}

// DeviceInfo is the device snapshot inside an automation payload.
type DeviceInfo struct {
	Hostname      string       `json:"hostname"`
	IPAddress     string       `json:"ip_address"`
	MACAddress    string       `json:"mac_address"`
	DeviceType    DeviceType   `json:"device_type"`
	Status        DeviceStatus `json:"status"`
	Manufacturer  string       `json:"manufacturer"`
	SecurityScore float64      `json:"security_score"`
}

// VulnerabilitySummary is one finding inside an automation payload.
type VulnerabilitySummary struct {
	ID          string   `json:"cve_id"`
	Severity    Severity `json:"severity"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
}

// AutomationPayload is handed to the Notifier.
type AutomationPayload struct {
	DeviceID        string                 `json:"device_id"`
	Action          AutomationAction       `json:"action"`
	Timestamp       time.Time              `json:"timestamp"`
	DeviceInfo      DeviceInfo             `json:"device_info"`
	Vulnerabilities []VulnerabilitySummary `json:"vulnerabilities,omitempty"`
}

// NewAutomationPayload snapshots d for delivery.
func NewAutomationPayload(d Device, action AutomationAction, at time.Time) AutomationPayload {
	p := AutomationPayload{
		DeviceID:  d.ID,
		Action:    action,
		Timestamp: at,
		DeviceInfo: DeviceInfo{
			Hostname:      d.Hostname,
			IPAddress:     d.PrimaryIP,
			MACAddress:    d.PrimaryMAC,
			DeviceType:    d.Type,
			Status:        d.Status,
			Manufacturer:  d.Manufacturer,
			SecurityScore: d.SecurityScore,
		},
	}
	if action.CarriesVulnerabilities() {
		p.Vulnerabilities = make([]VulnerabilitySummary, 0, len(d.Vulnerabilities))
		for _, v := range d.Vulnerabilities {
			p.Vulnerabilities = append(p.Vulnerabilities, VulnerabilitySummary{
				ID:          v.ID,
				Severity:    v.Severity,
				Score:       v.Score,
				Description: v.Description,
			})
		}
	}
	return p
}

// DeliveryResult is the explicit outcome of handing a payload to a sink.
type DeliveryResult struct {
	Delivered  bool
	Sink       string
	StatusCode int
	Err        error
}

// AutomationEntry formats a history entry "<action>:<timestamp>".
func AutomationEntry(action AutomationAction, at time.Time) string {
	return string(action) + ":" + at.UTC().Format(time.RFC3339)
}
