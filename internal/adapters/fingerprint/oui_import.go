package fingerprint

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// OUIFormat names a registry dump layout understood by ParseOUIEntries.
type OUIFormat string

const (
	// FormatIEEE is the IEEE CSV: Registry,Assignment,Organization Name,Organization Address.
	FormatIEEE OUIFormat = "ieee"
	// FormatMacLookup is the maclookup CSV: Mac Prefix,Vendor Name,Private,Block Type,Last Update.
	FormatMacLookup OUIFormat = "maclookup"
	// FormatWireshark is the tab separated manuf file.
	FormatWireshark OUIFormat = "wireshark"
)

var ErrUnknownFormat = errors.New("unknown OUI format")

// ParseOUIEntries reads a registry dump. Malformed rows are skipped.
func ParseOUIEntries(r io.Reader, format OUIFormat, now time.Time) ([]OUIEntry, error) {
	switch format {
	case FormatIEEE:
		return parseOUICSV(r, now, 1, 2, 3)
	case FormatMacLookup:
		return parseOUICSV(r, now, 0, 1, -1)
	case FormatWireshark:
		return parseManuf(r, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func parseOUICSV(r io.Reader, now time.Time, prefixCol, vendorCol, addressCol int) ([]OUIEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var entries []OUIEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) <= vendorCol {
			continue
		}

		prefix := normalizeImportPrefix(record[prefixCol])
		vendor := strings.TrimSpace(record[vendorCol])
		if prefix == "" || vendor == "" {
			continue
		}

		entry := OUIEntry{
			Prefix:      prefix,
			Vendor:      vendor,
			VendorShort: ShortVendor(vendor),
			LastUpdated: now,
		}
		if addressCol >= 0 && len(record) > addressCol {
			entry.Address = strings.TrimSpace(record[addressCol])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseManuf(r io.Reader, now time.Time) ([]OUIEntry, error) {
	scanner := bufio.NewScanner(r)
	var entries []OUIEntry

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// XX:XX:XX<tab>ShortName<tab>LongName
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		prefix := normalizeImportPrefix(parts[0])
		short := strings.TrimSpace(parts[1])
		vendor := short
		if len(parts) >= 3 {
			vendor = strings.TrimSpace(parts[2])
		}
		if prefix == "" || vendor == "" {
			continue
		}

		entries = append(entries, OUIEntry{
			Prefix:      prefix,
			Vendor:      vendor,
			VendorShort: short,
			LastUpdated: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return entries, nil
}

// normalizeImportPrefix is NormalizePrefix that rejects anything shorter
// than a full 24-bit OUI. Longer MA-M/MA-S blocks are truncated.
func normalizeImportPrefix(prefix string) string {
	p := NormalizePrefix(strings.ReplaceAll(prefix, " ", ""))
	if len(p) != 8 || p[2] != ':' || p[5] != ':' {
		return ""
	}
	return p
}

var vendorSuffixes = []string{
	" Inc.", " Inc", " Corporation", " Corp.", " Corp",
	" Co., Ltd.", " Ltd.", " Ltd", " Limited", " Co.",
	" LLC", " GmbH", " S.A.", " AG",
}

// ShortVendor strips legal suffixes and anything after the first comma.
func ShortVendor(vendor string) string {
	vendor = strings.TrimSpace(vendor)
	if idx := strings.Index(vendor, ","); idx > 0 {
		vendor = vendor[:idx]
	}
	for _, suffix := range vendorSuffixes {
		vendor = strings.TrimSuffix(vendor, suffix)
	}
	return strings.TrimSpace(vendor)
}
