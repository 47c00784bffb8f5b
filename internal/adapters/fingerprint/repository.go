package fingerprint

import (
	"context"
	"errors"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// VendorRepository defines the interface for looking up device vendors by MAC address
type VendorRepository interface {
	// LookupVendor returns the vendor name for a given MAC address
	LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error)

	// Name identifies the source in lookup results and metrics
	Name() string

	// Close releases any resources held by the repository
	Close() error
}

// RepositoryStats contains statistics about a vendor repository
type RepositoryStats struct {
	TotalEntries int
	LastUpdated  string
}

// CompositeVendorRepository implements a chain-of-responsibility pattern
// for vendor lookups, trying multiple repositories in order
type CompositeVendorRepository struct {
	repositories []VendorRepository
}

// NewCompositeVendorRepository creates a new composite repository
// that tries each repository in order until one succeeds. Nil entries are
// skipped so optional sources can be passed unconditionally.
func NewCompositeVendorRepository(repos ...VendorRepository) *CompositeVendorRepository {
	c := &CompositeVendorRepository{}
	for _, r := range repos {
		if r != nil {
			c.repositories = append(c.repositories, r)
		}
	}
	return c
}

// Resolve tries each repository in order and reports which one answered.
// A source error does not stop the chain; the last one is returned only if
// no later source knows the vendor.
func (c *CompositeVendorRepository) Resolve(ctx context.Context, mac domain.MACAddress) (vendor, source string, err error) {
	if !mac.IsValid() {
		return "", "", ErrInvalidMAC
	}

	var lastErr error
	for _, repo := range c.repositories {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		v, err := repo.LookupVendor(ctx, mac)
		if err == nil && v != "" {
			return v, repo.Name(), nil
		}
		if err != nil && !errors.Is(err, ErrVendorNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", "", lastErr
	}
	return "", "", ErrVendorNotFound
}

// LookupVendor tries each repository in order until one returns a result
func (c *CompositeVendorRepository) LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error) {
	v, _, err := c.Resolve(ctx, mac)
	return v, err
}

func (c *CompositeVendorRepository) Name() string { return "composite" }

// Close closes all repositories
func (c *CompositeVendorRepository) Close() error {
	var firstErr error
	for _, repo := range c.repositories {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
