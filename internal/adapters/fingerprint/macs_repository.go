package fingerprint

import (
	"context"

	"github.com/google/gopacket/macs"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// MACsRepository resolves vendors from the OUI table compiled into gopacket.
// It needs no files or network and backs the chain when the registry
// database has not been imported.
type MACsRepository struct{}

func NewMACsRepository() *MACsRepository {
	return &MACsRepository{}
}

func (r *MACsRepository) Name() string { return "gopacket" }

func (r *MACsRepository) LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error) {
	if !mac.IsValid() {
		return "", ErrInvalidMAC
	}
	if vendor, ok := macs.ValidMACPrefixMap[mac.OUIBytes()]; ok && vendor != "" {
		return vendor, nil
	}
	return "", ErrVendorNotFound
}

func (r *MACsRepository) Close() error { return nil }
