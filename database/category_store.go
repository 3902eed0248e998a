package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// CategoryStore хранилище категорий
type CategoryStore struct {
	db *sql.DB
}

// List возвращает все категории в порядке создания
func (s *CategoryStore) List(ctx context.Context) ([]supplierimport.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []supplierimport.Category
	for rows.Next() {
		var (
			c         supplierimport.Category
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create создает категорию. Если категория с таким именем уже есть, возвращает ее.
func (s *CategoryStore) Create(ctx context.Context, name string) (*supplierimport.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, formatTime(time.Now())); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	var (
		c         supplierimport.Category
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE name = ?`, name).Scan(&c.ID, &c.Name, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read category %q: %w", name, err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}
