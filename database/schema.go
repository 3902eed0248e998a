package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var inventoryMigrations = []migration{
	{name: "001_inventory_schema", apply: execAll(
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS components (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mpn TEXT NOT NULL UNIQUE,
			sku TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			manufacturer TEXT NOT NULL DEFAULT '',
			category_id INTEGER REFERENCES categories(id),
			stock_quantity INTEGER NOT NULL DEFAULT 0,
			unit_price TEXT,
			currency TEXT NOT NULL DEFAULT '',
			supplier_id TEXT NOT NULL DEFAULT '',
			supplier_part_number TEXT NOT NULL DEFAULT '',
			purchase_date TEXT,
			package TEXT NOT NULL DEFAULT '',
			mounting_type TEXT NOT NULL DEFAULT '',
			tolerance TEXT NOT NULL DEFAULT '',
			voltage_rating TEXT NOT NULL DEFAULT '',
			datasheet_url TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			attributes TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_components_category ON components(category_id)`,
		`CREATE TABLE IF NOT EXISTS supplier_field_mappings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			supplier_id TEXT NOT NULL,
			field TEXT NOT NULL,
			column_name TEXT NOT NULL,
			column_index INTEGER NOT NULL,
			data_type TEXT NOT NULL DEFAULT 'string',
			required INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_movements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			component_id INTEGER NOT NULL REFERENCES components(id),
			quantity INTEGER NOT NULL,
			job_id TEXT NOT NULL,
			invoice_number TEXT,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_job ON inventory_movements(job_id)`,
		`CREATE TABLE IF NOT EXISTS import_jobs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			supplier_id TEXT NOT NULL DEFAULT '',
			source_key TEXT NOT NULL DEFAULT '',
			source_name TEXT NOT NULL DEFAULT '',
			invoice TEXT,
			mapping_override TEXT,
			enrichment_filter TEXT,
			status TEXT NOT NULL CHECK (status IN ('queued', 'processing', 'completed', 'failed')),
			imported INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			details TEXT,
			error TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 1,
			lease_expires_at TEXT,
			heartbeat_at TEXT,
			created_at TEXT NOT NULL,
			started_at TEXT,
			finished_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs(status, created_at)`,
	)},
	// не более одного активного сопоставления на поле поставщика
	{name: "002_active_mapping_unique", apply: execAll(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_mappings_active
			ON supplier_field_mappings(supplier_id, field) WHERE active = 1`,
	)},
	{name: "003_import_jobs_lease_index", apply: execAll(
		`CREATE INDEX IF NOT EXISTS idx_import_jobs_lease ON import_jobs(status, lease_expires_at)`,
	)},
	{name: "004_components_enrichment_attempt", apply: execAll(
		`ALTER TABLE components ADD COLUMN enrichment_attempted_at TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_components_enrichment_attempt ON components(enrichment_attempted_at, id)`,
	)},
}

func execAll(statements ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// timeLayout фиксированной ширины, чтобы строки сравнивались в SQL как время
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

var timestampLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", ns.String, err)
	}
	return &d, nil
}
