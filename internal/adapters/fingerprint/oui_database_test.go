package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

func newTestOUIDatabase(t testing.TB) *OUIDatabase {
	t.Helper()
	db, err := NewOUIDatabase(filepath.Join(t.TempDir(), "oui.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOUIDatabaseBasic(t *testing.T) {
	db := newTestOUIDatabase(t)
	ctx := context.Background()

	entries := []OUIEntry{
		{Prefix: "00:09:0F", Vendor: "Fortinet, Inc.", VendorShort: "Fortinet", LastUpdated: time.Now()},
		{Prefix: "28-CD-C1", Vendor: "Raspberry Pi Trading Ltd", LastUpdated: time.Now()},
	}
	for _, entry := range entries {
		if err := db.Upsert(ctx, entry); err != nil {
			t.Fatalf("Failed to upsert OUI: %v", err)
		}
	}

	vendor, err := db.LookupVendor(ctx, domain.MustParseMAC("00:09:0f:11:22:33"))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if vendor != "Fortinet" {
		t.Errorf("Expected Fortinet, got %s", vendor)
	}

	// Without a short name the full vendor is returned.
	vendor, err = db.LookupVendor(ctx, domain.MustParseMAC("28:CD:C1:00:00:01"))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if vendor != "Raspberry Pi Trading Ltd" {
		t.Errorf("Expected Raspberry Pi Trading Ltd, got %s", vendor)
	}

	_, err = db.LookupVendor(ctx, domain.MustParseMAC("AA:AA:AA:00:00:01"))
	if !errors.Is(err, ErrVendorNotFound) {
		t.Errorf("Expected ErrVendorNotFound, got %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("Expected 2 entries, got %d", stats.TotalEntries)
	}
}

func TestOUIDatabaseImport(t *testing.T) {
	db := newTestOUIDatabase(t)
	ctx := context.Background()

	entries := make([]OUIEntry, 100)
	for i := 0; i < 100; i++ {
		entries[i] = OUIEntry{
			Prefix:      fmt.Sprintf("%02X%02X%02X", i, i, i),
			Vendor:      fmt.Sprintf("Vendor%d", i),
			LastUpdated: time.Now(),
		}
	}

	written, err := db.Import(ctx, entries, 30)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if written != 100 {
		t.Errorf("Expected 100 written, got %d", written)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEntries != 100 {
		t.Errorf("Expected 100 entries, got %d", stats.TotalEntries)
	}

	vendor, err := db.LookupVendor(ctx, domain.MustParseMAC("0A:0A:0A:00:00:00"))
	if err != nil || vendor != "Vendor10" {
		t.Errorf("Expected Vendor10, got %q (%v)", vendor, err)
	}
}

func TestOUIDatabaseEntry(t *testing.T) {
	db := newTestOUIDatabase(t)
	ctx := context.Background()

	updated := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	err := db.Upsert(ctx, OUIEntry{
		Prefix:      "00-09-0f",
		Vendor:      "Fortinet, Inc.",
		VendorShort: "Fortinet",
		Address:     "Sunnyvale CA US",
		LastUpdated: updated,
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	entry, err := db.Entry(ctx, "00090F")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if entry.Prefix != "00:09:0F" || entry.Vendor != "Fortinet, Inc." || entry.Address != "Sunnyvale CA US" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if !entry.LastUpdated.Equal(updated) {
		t.Errorf("Expected %v, got %v", updated, entry.LastUpdated)
	}

	if _, err := db.Entry(ctx, "FF:FF:FF"); !errors.Is(err, ErrVendorNotFound) {
		t.Errorf("Expected ErrVendorNotFound, got %v", err)
	}
}

func TestOUIDatabaseClosed(t *testing.T) {
	db := newTestOUIDatabase(t)
	db.Close()

	_, err := db.LookupVendor(context.Background(), domain.MustParseMAC("00:09:0F:00:00:01"))
	if !errors.Is(err, ErrRepositoryClosed) {
		t.Errorf("Expected ErrRepositoryClosed, got %v", err)
	}
	if _, err := db.Import(context.Background(), []OUIEntry{{Prefix: "00:00:01", Vendor: "x"}}, 10); !errors.Is(err, ErrRepositoryClosed) {
		t.Errorf("Expected ErrRepositoryClosed from Import, got %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"00:11:22", "00:11:22"},
		{"00-11-22", "00:11:22"},
		{"00.11.22", "00:11:22"},
		{"001122", "00:11:22"},
		{"aa:bb:cc", "AA:BB:CC"},
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC"},
	}

	for _, tt := range tests {
		result := NormalizePrefix(tt.input)
		if result != tt.expected {
			t.Errorf("NormalizePrefix(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func BenchmarkOUIDatabaseLookup(b *testing.B) {
	db := newTestOUIDatabase(b)
	ctx := context.Background()

	db.Upsert(ctx, OUIEntry{Prefix: "00:00:00", Vendor: "Test", LastUpdated: time.Now()})
	mac := domain.MustParseMAC("00:00:00:11:22:33")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		db.LookupVendor(ctx, mac)
	}
}
