// Package scoring derives a device security score from its findings.
package scoring

import (
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

const (
	// MaxScore is the score of a device without findings.
	MaxScore = 100.0
	// penaltyFactor scales the summed severity weights.
	penaltyFactor = 2.0
)

var severityWeights = map[domain.Severity]float64{
	domain.SeverityCritical: 10,
	domain.SeverityHigh:     7,
	domain.SeverityMedium:   4,
	domain.SeverityLow:      1,
}

// Weight returns the penalty weight of a severity. Unrecognized severities weigh 1.
func Weight(s domain.Severity) float64 {
	if w, ok := severityWeights[s.Normalize()]; ok {
		return w
	}
	return 1
}

// Score maps a set of findings to [0,100]. No findings scores 100; otherwise
// twice the summed weights is subtracted from 100 and the result is clamped.
func Score(vulns []domain.Vulnerability) float64 {
	if len(vulns) == 0 {
		return MaxScore
	}
	var total float64
	for _, v := range vulns {
		total += Weight(v.Severity)
	}
	penalty := total * penaltyFactor
	if penalty > MaxScore {
		penalty = MaxScore
	}
	return MaxScore - penalty
}

// CountBySeverity tallies findings per normalized severity.
func CountBySeverity(vulns []domain.Vulnerability) map[domain.Severity]int {
	counts := make(map[domain.Severity]int)
	for _, v := range vulns {
		counts[v.Severity.Normalize()]++
	}
	return counts
}
