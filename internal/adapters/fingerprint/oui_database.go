package fingerprint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

const ouiSchema = `
CREATE TABLE IF NOT EXISTS oui_registry (
	prefix       TEXT PRIMARY KEY,
	vendor       TEXT NOT NULL,
	vendor_short TEXT,
	address      TEXT,
	country      TEXT,
	last_updated INTEGER
);
CREATE INDEX IF NOT EXISTS idx_vendor ON oui_registry(vendor);
`

const (
	selectVendor = `SELECT COALESCE(NULLIF(vendor_short, ''), vendor) FROM oui_registry WHERE prefix = ?`
	selectEntry  = `SELECT prefix, vendor, COALESCE(vendor_short, ''), COALESCE(address, ''), COALESCE(country, ''), COALESCE(last_updated, 0)
		FROM oui_registry WHERE prefix = ?`
	upsertEntry = `INSERT OR REPLACE INTO oui_registry (prefix, vendor, vendor_short, address, country, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`
)

// OUIEntry is one row of the IEEE registry.
type OUIEntry struct {
	Prefix      string
	Vendor      string
	VendorShort string
	Address     string
	Country     string
	LastUpdated time.Time
}

// OUIDatabase serves vendor lookups from an IEEE registry imported into
// SQLite. Lookups prefer the short vendor name.
type OUIDatabase struct {
	mu     sync.RWMutex
	db     *sql.DB
	lookup *sql.Stmt
	closed bool
}

// NewOUIDatabase opens (creating if needed) the OUI registry at dbPath.
func NewOUIDatabase(dbPath string) (*OUIDatabase, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "ping", Err: err}
	}
	if _, err := db.Exec(ouiSchema); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "initialize_schema", Err: err}
	}

	stmt, err := db.Prepare(selectVendor)
	if err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "prepare_statement", Err: err}
	}
	return &OUIDatabase{db: db, lookup: stmt}, nil
}

func (o *OUIDatabase) Name() string { return "oui_db" }

// LookupVendor implements VendorRepository.
func (o *OUIDatabase) LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return "", ErrRepositoryClosed
	}
	if !mac.IsValid() {
		return "", ErrInvalidMAC
	}

	var vendor string
	err := o.lookup.QueryRowContext(ctx, mac.OUI()).Scan(&vendor)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrVendorNotFound
	case err != nil:
		return "", &DatabaseError{Op: "lookup", Err: err}
	}
	return vendor, nil
}

// Entry returns the full registry row for prefix, in any separator format.
func (o *OUIDatabase) Entry(ctx context.Context, prefix string) (OUIEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return OUIEntry{}, ErrRepositoryClosed
	}

	var e OUIEntry
	var updated int64
	err := o.db.QueryRowContext(ctx, selectEntry, NormalizePrefix(prefix)).
		Scan(&e.Prefix, &e.Vendor, &e.VendorShort, &e.Address, &e.Country, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return OUIEntry{}, ErrVendorNotFound
	case err != nil:
		return OUIEntry{}, &DatabaseError{Op: "entry", Err: err}
	}
	e.LastUpdated = time.Unix(updated, 0).UTC()
	return e, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, ex execer, e OUIEntry) error {
	_, err := ex.ExecContext(ctx, upsertEntry,
		NormalizePrefix(e.Prefix), e.Vendor, e.VendorShort, e.Address, e.Country, e.LastUpdated.Unix())
	return err
}

// Upsert inserts or replaces a single entry.
func (o *OUIDatabase) Upsert(ctx context.Context, entry OUIEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrRepositoryClosed
	}
	if err := upsert(ctx, o.db, entry); err != nil {
		return &DatabaseError{Op: "upsert", Err: err}
	}
	return nil
}

// Import writes entries in transactions of batchSize rows and returns how
// many were written. A failed batch is rolled back; earlier batches stay.
func (o *OUIDatabase) Import(ctx context.Context, entries []OUIEntry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(entries)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, ErrRepositoryClosed
	}

	written := 0
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := o.importBatch(ctx, entries[start:end]); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

func (o *OUIDatabase) importBatch(ctx context.Context, batch []OUIEntry) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin_transaction", Err: err}
	}
	defer tx.Rollback()

	for _, e := range batch {
		if err := upsert(ctx, tx, e); err != nil {
			return &DatabaseError{Op: "import_entry", Err: fmt.Errorf("%s: %w", e.Prefix, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit_transaction", Err: err}
	}
	return nil
}

// GetStats returns the entry count and the newest import date.
func (o *OUIDatabase) GetStats(ctx context.Context) (RepositoryStats, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return RepositoryStats{}, ErrRepositoryClosed
	}

	var count int
	var newest int64
	err := o.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(last_updated), 0) FROM oui_registry",
	).Scan(&count, &newest)
	if err != nil {
		return RepositoryStats{}, &DatabaseError{Op: "get_stats", Err: err}
	}
	return RepositoryStats{
		TotalEntries: count,
		LastUpdated:  time.Unix(newest, 0).UTC().Format("2006-01-02"),
	}, nil
}

// Close implements VendorRepository. It is safe to call twice.
func (o *OUIDatabase) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.lookup.Close()
	return o.db.Close()
}

// NormalizePrefix converts a MAC or OUI in colon, dash, dot or bare form to
// XX:XX:XX.
func NormalizePrefix(mac string) string {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	mac = strings.NewReplacer("-", ":", ".", ":").Replace(mac)

	if len(mac) >= 8 && mac[2] == ':' && mac[5] == ':' {
		return mac[:8]
	}
	if len(mac) >= 6 {
		return fmt.Sprintf("%s:%s:%s", mac[0:2], mac[2:4], mac[4:6])
	}
	return mac
}
