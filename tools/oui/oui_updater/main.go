package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/fingerprint"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/config"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

const (
	// IEEE OUI registry URL
	ieeeOUIURL = "https://standards-oui.ieee.org/oui/oui.csv"

	// Wireshark OUI database (alternative source)
	wiresharkOUIURL = "https://gitlab.com/wireshark/wireshark/-/raw/master/manuf"

	batchSize = 1000
)

func main() {
	dbPath := flag.String("db", config.DefaultOUIDBPath, "Path to OUI database")
	source := flag.String("source", "ieee", "Download source: ieee or wireshark")
	csvPath := flag.String("csv", "", "Import a local maclookup CSV instead of downloading")
	force := flag.Bool("force", false, "Force update even if recent")
	lookup := flag.String("lookup", "", "Only look up this MAC address and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		fatal("Failed to create database directory", err)
	}

	db, err := fingerprint.NewOUIDatabase(*dbPath)
	if err != nil {
		fatal("Failed to open database", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *lookup != "" {
		mac, err := domain.ParseMAC(*lookup)
		if err != nil {
			fatal("Invalid MAC address", err)
		}
		entry, err := db.Entry(ctx, mac.OUI())
		if err != nil {
			fatal("Lookup failed", err)
		}
		fmt.Printf("%s -> %s (%s)\n", mac, entry.Vendor, entry.Address)
		return
	}

	// Check if update needed
	stats, err := db.GetStats(ctx)
	if err != nil {
		slog.Warn("Could not get stats", "error", err)
	} else {
		slog.Info("Current database", "entries", stats.TotalEntries, "last_updated", stats.LastUpdated)
		if last, err := time.Parse("2006-01-02", stats.LastUpdated); err == nil && stats.TotalEntries > 0 &&
			!*force && *csvPath == "" && time.Since(last) < 30*24*time.Hour {
			slog.Info("Database is recent (< 30 days). Use -force to update anyway.")
			return
		}
	}

	var entries []fingerprint.OUIEntry
	if *csvPath != "" {
		entries, err = importFile(*csvPath)
	} else {
		entries, err = download(ctx, *source)
	}
	if err != nil {
		fatal("Failed to load OUI data", err)
	}
	slog.Info("Parsed OUI entries", "count", len(entries))

	written, err := db.Import(ctx, entries, batchSize)
	if err != nil {
		slog.Error("Import stopped early", "written", written, "error", err)
		os.Exit(1)
	}

	stats, err = db.GetStats(ctx)
	if err != nil {
		fatal("Failed to get final stats", err)
	}
	slog.Info("Update complete", "entries", stats.TotalEntries, "last_updated", stats.LastUpdated)
}

func importFile(path string) ([]fingerprint.OUIEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fingerprint.ParseOUIEntries(f, fingerprint.FormatMacLookup, time.Now())
}

func download(ctx context.Context, source string) ([]fingerprint.OUIEntry, error) {
	var url string
	var format fingerprint.OUIFormat
	switch source {
	case "ieee":
		url, format = ieeeOUIURL, fingerprint.FormatIEEE
	case "wireshark":
		url, format = wiresharkOUIURL, fingerprint.FormatWireshark
	default:
		return nil, fmt.Errorf("unknown source: %s", source)
	}

	slog.Info("Downloading OUI registry", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return fingerprint.ParseOUIEntries(resp.Body, format, time.Now())
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
