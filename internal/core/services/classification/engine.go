// Package classification turns partial device signals (MAC prefix, hostname,
// open ports) into a best-effort identity.
package classification

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Engine classifies devices. It is safe for concurrent use. Apart from the
// optional fallback vendor lookup, classification is a pure function of its
// inputs.
type Engine struct {
	fallback ports.VendorLookup
	logger   *slog.Logger
}

// NewEngine creates an engine. fallback may be nil, in which case prefixes
// missing from the static table resolve to "Unknown".
func NewEngine(fallback ports.VendorLookup, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fallback: fallback,
		logger:   logger.With("component", "classification"),
	}
}

// Classify never fails: unknown inputs yield the unknown identity.
func (e *Engine) Classify(ctx context.Context, s domain.Signals) domain.Identity {
	id := e.resolveManufacturer(ctx, s.MAC)

	// Manufacturer keywords, then the category as a weaker fallback.
	if id.KnownManufacturer() {
		if t, ok := firstMatch(manufacturerTypeRules, id.Manufacturer); ok {
			id.DeviceType = t
		} else if t, ok := categoryTypes[id.Category]; ok {
			id.DeviceType = t
		}
	}

	// Hostname conventions override the manufacturer guess.
	if s.Hostname != "" {
		if t, ok := firstMatch(hostnameTypeRules, s.Hostname); ok {
			id.DeviceType = t
		}
	}

	if r, ok := matchPorts(s.OpenPorts); ok {
		id.ServiceHint = r.hint
		if r.dtype != "" {
			id.DeviceType = r.dtype
		}
	}

	id.RiskLevel = assessRisk(id, len(s.OpenPorts))
	id.DisplayName = DisplayName(s.Hostname, id)
	return id
}

func (e *Engine) resolveManufacturer(ctx context.Context, rawMAC string) domain.Identity {
	id := unknownIdentity()
	if rawMAC == "" {
		return id
	}
	mac, err := domain.ParseMAC(rawMAC)
	if err != nil {
		e.logger.Debug("unparseable MAC, skipping vendor resolution", "mac", rawMAC, "error", err)
		return id
	}

	if entry, ok := staticOUITable[mac.OUI()]; ok {
		id.Manufacturer = entry.Manufacturer
		id.Category = entry.Category
		id.Confidence = domain.ConfidenceHigh
		return id
	}

	if e.fallback == nil {
		return id
	}
	res := e.fallback.LookupVendor(ctx, mac)
	if res.Err != nil {
		e.logger.Debug("fallback vendor lookup failed", "oui", mac.OUI(), "source", res.Source, "error", res.Err)
	}
	if !res.Found || res.Vendor == "" {
		return id
	}
	id.Manufacturer = res.Vendor
	id.Category = InferCategory(res.Vendor)
	id.Confidence = domain.ConfidenceMedium
	return id
}

// InferCategory maps a manufacturer name onto a category. Names matching no
// rule are treated as endpoints.
func InferCategory(manufacturer string) domain.Category {
	if c, ok := firstMatch(manufacturerCategoryRules, manufacturer); ok {
		return c
	}
	return domain.CategoryEndpoint
}

func unknownIdentity() domain.Identity {
	return domain.Identity{
		Manufacturer: domain.UnknownManufacturer,
		Category:     domain.CategoryUnknown,
		DeviceType:   domain.DeviceTypeUnknown,
		Confidence:   domain.ConfidenceNone,
	}
}

// assessRisk works from the final device type, after hostname and port hints
// have had their say.
func assessRisk(id domain.Identity, openPorts int) domain.RiskLevel {
	switch {
	case !id.KnownManufacturer() && openPorts > 5:
		return domain.RiskHigh
	case id.DeviceType == domain.DeviceTypeIoT || id.DeviceType == domain.DeviceTypeUnknown || !id.KnownManufacturer():
		return domain.RiskMedium
	case id.DeviceType.NetworkInfrastructure():
		return domain.RiskLow
	}
	return domain.RiskLow
}

// DisplayName renders "hostname (Manufacturer)", "Manufacturer Type" or
// "Unknown Type", in that order of preference.
func DisplayName(hostname string, id domain.Identity) string {
	hostname = strings.TrimSpace(hostname)
	switch {
	case hostname != "":
		return hostname + " (" + id.Manufacturer + ")"
	case id.KnownManufacturer():
		return id.Manufacturer + " " + id.DeviceType.Title()
	}
	return "Unknown " + id.DeviceType.Title()
}
