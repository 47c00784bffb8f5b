package domain

import (
	"strings"
	"time"
)

// Severity grades a vulnerability finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Normalize lowercases a severity so "CRITICAL" and "critical" compare equal.
func (s Severity) Normalize() Severity {
	return Severity(strings.ToLower(strings.TrimSpace(string(s))))
}

// Vulnerability is a finding attached to a device. Findings are appended and
// never edited in place.
type Vulnerability struct {
	ID               string    `json:"cve_id"`
	Severity         Severity  `json:"severity"`
	Score            float64   `json:"score"`
	Description      string    `json:"description"`
	AffectedSoftware string    `json:"affected_software,omitempty"`
	PatchAvailable   bool      `json:"patch_available"`
	DiscoveredAt     time.Time `json:"discovered_at"`
}

// IsCritical reports whether the finding is graded critical.
func (v Vulnerability) IsCritical() bool {
	return v.Severity.Normalize() == SeverityCritical
}

// HasCritical reports whether any finding in vulns is critical.
func HasCritical(vulns []Vulnerability) bool {
	for _, v := range vulns {
		if v.IsCritical() {
			return true
		}
	}
	return false
}
