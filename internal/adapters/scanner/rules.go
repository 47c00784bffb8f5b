package scanner

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ExposureRule turns an exposed port or service into a finding.
type ExposureRule struct {
	ID               string          `yaml:"id"`
	Ports            []int           `yaml:"ports"`
	Services         []string        `yaml:"services"`
	Severity         domain.Severity `yaml:"severity"`
	Score            float64         `yaml:"score"`
	Description      string          `yaml:"description"`
	AffectedSoftware string          `yaml:"affected_software"`
	PatchAvailable   bool            `yaml:"patch_available"`
	// AggressiveOnly rules run only for aggressive vulnerability scans.
	AggressiveOnly bool `yaml:"aggressive_only"`
}

// ExposureRules is an ordered rule set.
type ExposureRules struct {
	Rules []ExposureRule `yaml:"rules"`
}

// DefaultExposureRules returns the embedded rule set.
func DefaultExposureRules() *ExposureRules {
	rules, err := ParseExposureRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded exposure rules: %v", err))
	}
	return rules
}

// LoadExposureRules reads a rule file. An empty path yields the defaults.
func LoadExposureRules(path string) (*ExposureRules, error) {
	if path == "" {
		return DefaultExposureRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseExposureRules(data)
}

func ParseExposureRules(data []byte) (*ExposureRules, error) {
	var rules ExposureRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	seen := make(map[string]bool, len(rules.Rules))
	for i, r := range rules.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", r.ID)
		}
		seen[r.ID] = true
		if len(r.Ports) == 0 && len(r.Services) == 0 {
			return nil, fmt.Errorf("rule %s: needs ports or services", r.ID)
		}
		switch r.Severity.Normalize() {
		case domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
			rules.Rules[i].Severity = r.Severity.Normalize()
		default:
			return nil, fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
		}
	}
	return &rules, nil
}

// Evaluate returns one finding per matching rule, in rule order.
func (e *ExposureRules) Evaluate(host domain.HostScan, aggressive bool, now time.Time) []domain.Vulnerability {
	if !host.IsAlive {
		return []domain.Vulnerability{}
	}
	findings := []domain.Vulnerability{}
	for _, r := range e.Rules {
		if r.AggressiveOnly && !aggressive {
			continue
		}
		if !r.matches(host) {
			continue
		}
		findings = append(findings, domain.Vulnerability{
			ID:               r.ID,
			Severity:         r.Severity,
			Score:            r.Score,
			Description:      r.Description,
			AffectedSoftware: r.AffectedSoftware,
			PatchAvailable:   r.PatchAvailable,
			DiscoveredAt:     now,
		})
	}
	return findings
}

func (r ExposureRule) matches(host domain.HostScan) bool {
	for _, p := range r.Ports {
		if slices.Contains(host.OpenPorts, p) {
			return true
		}
	}
	for _, s := range r.Services {
		for _, hs := range host.Services {
			if strings.EqualFold(s, hs) {
				return true
			}
		}
	}
	return false
}
