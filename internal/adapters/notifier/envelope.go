// Package notifier delivers automation events to external systems: a Power
// Automate style webhook, NATS subjects and AMQP queues.
package notifier

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

const (
	// Source names this system in every envelope.
	Source = "FortiGate Network Monitor Pro"
	// EnvelopeVersion is the envelope schema version.
	EnvelopeVersion = "1.0"
	// UserAgent is sent on outbound webhook calls.
	UserAgent = "FortiGate-Network-Monitor-Pro/1.0"
)

// Envelope is the message every sink receives.
type Envelope struct {
	Workflow  string           `json:"workflow"`
	Action    string           `json:"action"`
	Timestamp string           `json:"timestamp"`
	Source    string           `json:"source"`
	Data      EnvelopeData     `json:"data"`
	Metadata  EnvelopeMetadata `json:"metadata"`
}

// EnvelopeData is the payload plus the remediation advisory for findings.
type EnvelopeData struct {
	domain.AutomationPayload
	RecommendedActions []string `json:"recommended_actions,omitempty"`
	ComplianceImpact   string   `json:"compliance_impact,omitempty"`
}

type EnvelopeMetadata struct {
	Version                    string          `json:"version"`
	Priority                   domain.Priority `json:"priority"`
	RequiresImmediateAttention bool            `json:"requires_immediate_attention"`
}

// NewEnvelope wraps payload for action. Workflow, priority and the immediate
// attention flag come from the action policy.
func NewEnvelope(action domain.AutomationAction, payload domain.AutomationPayload, now time.Time) Envelope {
	data := EnvelopeData{AutomationPayload: payload}
	if action.CarriesVulnerabilities() {
		data.RecommendedActions = recommendedActions(payload.Vulnerabilities)
		data.ComplianceImpact = complianceImpact(payload.Vulnerabilities)
	}
	return Envelope{
		Workflow:  action.Workflow(),
		Action:    string(action),
		Timestamp: now.UTC().Format(time.RFC3339),
		Source:    Source,
		Data:      data,
		Metadata: EnvelopeMetadata{
			Version:                    EnvelopeVersion,
			Priority:                   action.Priority(),
			RequiresImmediateAttention: action.RequiresImmediateAttention(),
		},
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func recommendedActions(vulns []domain.VulnerabilitySummary) []string {
	set := make(map[string]struct{})
	for _, v := range vulns {
		switch v.Severity.Normalize() {
		case domain.SeverityCritical:
			set["Immediate patching required"] = struct{}{}
			set["Isolate device if possible"] = struct{}{}
		case domain.SeverityHigh:
			set["Schedule patching within 24 hours"] = struct{}{}
			set["Monitor device activity"] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func complianceImpact(vulns []domain.VulnerabilitySummary) string {
	var critical, high int
	for _, v := range vulns {
		switch v.Severity.Normalize() {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityHigh:
			high++
		}
	}
	switch {
	case critical > 0:
		return "high_compliance_risk"
	case high > 2:
		return "medium_compliance_risk"
	default:
		return "low_compliance_risk"
	}
}
