package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const migrationsTableName = "schema_migrations"

// migration именованный шаг схемы, применяется один раз
type migration struct {
	name  string
	apply func(*sql.Tx) error
}

// ensureMigrationTable создает таблицу schema_migrations при необходимости.
func ensureMigrationTable(db *sql.DB) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`, migrationsTableName)

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	return nil
}

// isMigrationApplied проверяет, была ли уже применена миграция.
func isMigrationApplied(db *sql.DB, name string) (bool, error) {
	var appliedAt string
	query := fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTableName)
	err := db.QueryRow(query, name).Scan(&appliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return true, nil
}

// ensureMigrationApplied выполняет миграцию и отметку о ней в одной транзакции.
func ensureMigrationApplied(db *sql.DB, m migration) error {
	applied, err := isMigrationApplied(db, m.name)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.name, err)
	}

	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s(name, applied_at) VALUES(?, ?)`, migrationsTableName)
	if _, err := tx.Exec(query, m.name, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to mark migration %s as applied: %w", m.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
	}

	slog.Info("[Migrations] Migration applied", "name", m.name)
	return nil
}

// runMigrations применяет все миграции по порядку
func runMigrations(db *sql.DB, migrations []migration) error {
	if err := ensureMigrationTable(db); err != nil {
		return err
	}
	for _, m := range migrations {
		if err := ensureMigrationApplied(db, m); err != nil {
			return err
		}
	}
	return nil
}

// AppliedMigrations возвращает имена примененных миграций по порядку применения
func (db *InventoryDB) AppliedMigrations() ([]string, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`SELECT name FROM %s ORDER BY applied_at, name`, migrationsTableName))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
