package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// MappingStore хранилище сопоставлений колонок поставщиков.
// Старые сопоставления не удаляются, а деактивируются.
type MappingStore struct {
	db *sql.DB
}

// ActiveMappings возвращает активные сопоставления поставщика
func (s *MappingStore) ActiveMappings(ctx context.Context, supplierID string) ([]supplierimport.FieldMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, field, column_name, column_index, data_type, required, active, updated_at
		FROM supplier_field_mappings
		WHERE supplier_id = ? AND active = 1
		ORDER BY field`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings for %s: %w", supplierID, err)
	}
	defer rows.Close()

	var out []supplierimport.FieldMapping
	for rows.Next() {
		var (
			m         supplierimport.FieldMapping
			dataType  string
			updatedAt string
		)
		if err := rows.Scan(&m.ID, &m.SupplierID, &m.Field, &m.Column, &m.ColumnIndex,
			&dataType, &m.Required, &m.Active, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.DataType = supplierimport.DataType(dataType)
		if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceActive деактивирует текущие сопоставления и сохраняет новые в одной транзакции
func (s *MappingStore) ReplaceActive(ctx context.Context, supplierID string, mappings []supplierimport.FieldMapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`UPDATE supplier_field_mappings SET active = 0, updated_at = ? WHERE supplier_id = ? AND active = 1`,
		now, supplierID); err != nil {
		return fmt.Errorf("failed to deactivate mappings for %s: %w", supplierID, err)
	}

	for _, m := range mappings {
		dataType := m.DataType
		if dataType == "" {
			dataType = supplierimport.DataTypeString
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO supplier_field_mappings
				(supplier_id, field, column_name, column_index, data_type, required, active, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			supplierID, m.Field, m.Column, m.ColumnIndex, string(dataType), m.Required, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s.%s", supplierimport.ErrDuplicateMapping, supplierID, m.Field)
		}
		if err != nil {
			return fmt.Errorf("failed to insert mapping %s.%s: %w", supplierID, m.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mappings for %s: %w", supplierID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
