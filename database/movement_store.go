package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// MovementStore журнал складских движений, только добавление
type MovementStore struct {
	db dbtx
}

// Append добавляет движение и заполняет его ID
func (s *MovementStore) Append(ctx context.Context, m *supplierimport.InventoryMovement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	var invoice any
	if m.InvoiceNumber != nil {
		invoice = *m.InvoiceNumber
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_movements (component_id, quantity, job_id, invoice_number, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ComponentID, m.Quantity, m.JobID, invoice, string(m.Reason), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append movement for component %d: %w", m.ComponentID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read movement id: %w", err)
	}
	m.ID = id
	return nil
}

// ListByJob возвращает движения задачи в порядке добавления
func (s *MovementStore) ListByJob(ctx context.Context, jobID string) ([]supplierimport.InventoryMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, component_id, quantity, job_id, invoice_number, reason, created_at
		FROM inventory_movements WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []supplierimport.InventoryMovement
	for rows.Next() {
		var (
			m         supplierimport.InventoryMovement
			invoice   sql.NullString
			reason    string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ComponentID, &m.Quantity, &m.JobID, &invoice, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if invoice.Valid {
			number := invoice.String
			m.InvoiceNumber = &number
		}
		m.Reason = supplierimport.MovementReason(reason)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
