// Package drugs implements the reference drug-information capability provider:
// an openFDA label search that stores summary records in SQLite and exposes
// them as MCP tools, resources, and a research prompt.
package drugs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Placeholder values used when a label omits a field.
const (
	Unknown      = "Unknown"
	NotSpecified = "Not specified"
	None         = "None"
)

// Record is the stored summary of one drug label.
type Record struct {
	BrandName        string `json:"brand_name"`
	SubstanceName    string `json:"substance_name"`
	Manufacturer     string `json:"manufacturer"`
	Route            string `json:"route"`
	Purpose          string `json:"purpose"`
	Usage            string `json:"usage"`
	Warnings         string `json:"warnings"`
	AdverseReactions string `json:"adverse_reactions"`
	BoxedWarning     string `json:"boxed_warning"`
}

// CategoryKey normalizes a substance or search name into a category key:
// lowercase with spaces replaced by underscores.
func CategoryKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Store persists drug records grouped by category.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("drugs: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("drugs: open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("drugs: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("drugs: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS drug_records (
			category          TEXT    NOT NULL,
			brand_name        TEXT    NOT NULL,
			substance_name    TEXT    NOT NULL,
			manufacturer      TEXT    NOT NULL,
			route             TEXT    NOT NULL,
			purpose           TEXT    NOT NULL,
			usage             TEXT    NOT NULL,
			warnings          TEXT    NOT NULL,
			adverse_reactions TEXT    NOT NULL,
			boxed_warning     TEXT    NOT NULL,
			position          INTEGER NOT NULL,
			saved_at          TEXT    NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (category, brand_name)
		);

		CREATE INDEX IF NOT EXISTS idx_drug_records_brand ON drug_records(brand_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveCategory replaces every record stored under category. Records sharing a
// brand name collapse to the last one, matching a keyed mapping.
func (s *Store) SaveCategory(ctx context.Context, category string, records []Record) error {
	key := CategoryKey(category)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drugs: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drug_records WHERE category = ?`, key); err != nil {
		return fmt.Errorf("drugs: clear category %s: %w", key, err)
	}

	const insert = `
		INSERT INTO drug_records (
			category, brand_name, substance_name, manufacturer, route,
			purpose, usage, warnings, adverse_reactions, boxed_warning, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, brand_name) DO UPDATE SET
			substance_name    = excluded.substance_name,
			manufacturer      = excluded.manufacturer,
			route             = excluded.route,
			purpose           = excluded.purpose,
			usage             = excluded.usage,
			warnings          = excluded.warnings,
			adverse_reactions = excluded.adverse_reactions,
			boxed_warning     = excluded.boxed_warning`
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, insert,
			key, r.BrandName, r.SubstanceName, r.Manufacturer, r.Route,
			r.Purpose, r.Usage, r.Warnings, r.AdverseReactions, r.BoxedWarning, i,
		); err != nil {
			return fmt.Errorf("drugs: save %s/%s: %w", key, r.BrandName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drugs: commit: %w", err)
	}
	return nil
}

// Categories returns the stored category keys in sorted order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM drug_records ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("drugs: list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("drugs: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const recordColumns = `brand_name, substance_name, manufacturer, route, purpose,
	usage, warnings, adverse_reactions, boxed_warning`

// CategoryRecords returns the records of one category in saved order.
func (s *Store) CategoryRecords(ctx context.Context, category string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM drug_records WHERE category = ? ORDER BY position`,
		CategoryKey(category))
	if err != nil {
		return nil, fmt.Errorf("drugs: list category: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindBrand returns the first stored record with an exact brand name match,
// searching categories in sorted order.
func (s *Store) FindBrand(ctx context.Context, brand string) (Record, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM drug_records WHERE brand_name = ? ORDER BY category, position LIMIT 1`,
		brand)
	if err != nil {
		return Record{}, false, fmt.Errorf("drugs: find brand: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Record{}, false, rows.Err()
	}
	r, err := scanRecord(rows)
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var r Record
	if err := rows.Scan(
		&r.BrandName, &r.SubstanceName, &r.Manufacturer, &r.Route, &r.Purpose,
		&r.Usage, &r.Warnings, &r.AdverseReactions, &r.BoxedWarning,
	); err != nil {
		return Record{}, fmt.Errorf("drugs: scan record: %w", err)
	}
	return r, nil
}
