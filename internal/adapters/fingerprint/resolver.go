// Package fingerprint resolves hardware vendors for MAC prefixes missing from
// the classifier's built-in table.
package fingerprint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

const cacheSource = "cache"

// VendorResolver implements ports.VendorLookup over a cached chain of
// repositories.
type VendorResolver struct {
	chain  *CompositeVendorRepository
	cache  *OUICache
	logger *slog.Logger
}

// NewVendorResolver caches answers from chain. Misses are not cached so a
// later import or a recovered remote source can still answer.
func NewVendorResolver(chain *CompositeVendorRepository, cacheSize int, logger *slog.Logger) *VendorResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorResolver{
		chain:  chain,
		cache:  NewOUICache(cacheSize),
		logger: logger.With("component", "vendor_resolver"),
	}
}

// LookupVendor never returns an error directly; failures are carried in the
// result so the classifier can fall back to Unknown.
func (r *VendorResolver) LookupVendor(ctx context.Context, mac domain.MACAddress) domain.VendorLookupResult {
	if !mac.IsValid() {
		return domain.VendorLookupResult{Err: ErrInvalidMAC}
	}

	prefix := mac.OUI()
	if vendor, ok := r.cache.Get(prefix); ok {
		telemetry.VendorLookups.WithLabelValues(cacheSource, "hit").Inc()
		return domain.VendorLookupResult{Vendor: vendor, Source: cacheSource, Found: true}
	}

	vendor, source, err := r.chain.Resolve(ctx, mac)
	switch {
	case err == nil:
		r.cache.Set(prefix, vendor)
		telemetry.VendorLookups.WithLabelValues(source, "hit").Inc()
		return domain.VendorLookupResult{Vendor: vendor, Source: source, Found: true}
	case errors.Is(err, ErrVendorNotFound):
		telemetry.VendorLookups.WithLabelValues("chain", "miss").Inc()
		return domain.VendorLookupResult{}
	default:
		telemetry.VendorLookups.WithLabelValues("chain", "error").Inc()
		r.logger.Debug("Vendor lookup failed", "oui", prefix, "error", err)
		return domain.VendorLookupResult{Err: err}
	}
}

// CacheStats exposes the resolver cache counters.
func (r *VendorResolver) CacheStats() CacheStats {
	return r.cache.Stats()
}

func (r *VendorResolver) Close() error {
	return r.chain.Close()
}

var _ ports.VendorLookup = (*VendorResolver)(nil)
