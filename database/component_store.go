package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// ComponentStore хранилище компонентов склада на SQLite
type ComponentStore struct {
	db dbtx
}

const componentColumns = `id, mpn, sku, description, manufacturer, category_id, stock_quantity,
	unit_price, currency, supplier_id, supplier_part_number, purchase_date, package,
	mounting_type, tolerance, voltage_rating, datasheet_url, notes, attributes, created_at, updated_at`

// missingSpecsCondition хотя бы один технический атрибут не заполнен
const missingSpecsCondition = `(package = '' OR mounting_type = '' OR tolerance = ''
	OR voltage_rating = '' OR manufacturer = '' OR datasheet_url = '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComponent(row rowScanner) (*supplierimport.Component, error) {
	var (
		c          supplierimport.Component
		categoryID sql.NullInt64
		unitPrice  sql.NullString
		purchase   sql.NullString
		attributes string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&c.ID, &c.ManufacturerPartNumber, &c.SKU, &c.Description, &c.Manufacturer,
		&categoryID, &c.StockQuantity, &unitPrice, &c.Currency, &c.SupplierID, &c.SupplierPartNumber,
		&purchase, &c.Package, &c.MountingType, &c.Tolerance, &c.VoltageRating, &c.DatasheetURL,
		&c.Notes, &attributes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		id := categoryID.Int64
		c.CategoryID = &id
	}
	if c.UnitPrice, err = parseNullDecimal(unitPrice); err != nil {
		return nil, err
	}
	if c.PurchaseDate, err = parseNullTime(purchase); err != nil {
		return nil, err
	}
	if attributes != "" && attributes != "{}" {
		if err := json.Unmarshal([]byte(attributes), &c.Attributes); err != nil {
			return nil, fmt.Errorf("invalid attributes for component %d: %w", c.ID, err)
		}
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(data), nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// FindByMPN ищет компонент по manufacturer part number
func (s *ComponentStore) FindByMPN(ctx context.Context, mpn string) (*supplierimport.Component, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM components WHERE mpn = ?`, mpn)
	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, supplierimport.ErrComponentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find component %s: %w", mpn, err)
	}
	return c, nil
}

// GetByID возвращает компонент по идентификатору
func (s *ComponentStore) GetByID(ctx context.Context, id int64) (*supplierimport.Component, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM components WHERE id = ?`, id)
	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, supplierimport.ErrComponentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component %d: %w", id, err)
	}
	return c, nil
}

// Create добавляет компонент и заполняет его ID
func (s *ComponentStore) Create(ctx context.Context, c *supplierimport.Component) error {
	attrs, err := encodeAttributes(c.Attributes)
	if err != nil {
		return err
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO components (mpn, sku, description, manufacturer, category_id, stock_quantity,
			unit_price, currency, supplier_id, supplier_part_number, purchase_date, package,
			mounting_type, tolerance, voltage_rating, datasheet_url, notes, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ManufacturerPartNumber, c.SKU, c.Description, c.Manufacturer, nullableInt64(c.CategoryID),
		c.StockQuantity, formatDecimal(c.UnitPrice), c.Currency, c.SupplierID, c.SupplierPartNumber,
		formatTimePtr(c.PurchaseDate), c.Package, c.MountingType, c.Tolerance, c.VoltageRating,
		c.DatasheetURL, c.Notes, attrs, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", supplierimport.ErrComponentExists, c.ManufacturerPartNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to insert component %s: %w", c.ManufacturerPartNumber, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read component id: %w", err)
	}
	c.ID = id
	return nil
}

// ApplyImport применяет изменение из выгрузки одним UPDATE. Остаток увеличивается в SQL,
// поэтому параллельные импорты одного MPN не теряют приращения.
func (s *ComponentStore) ApplyImport(ctx context.Context, id int64, change supplierimport.ImportChange) (*supplierimport.Component, error) {
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = time.Now()
	}

	sets := []string{"stock_quantity = stock_quantity + ?"}
	args := []any{change.StockDelta}

	if change.UnitPrice != nil {
		sets = append(sets, "unit_price = ?", "currency = ?")
		args = append(args, formatDecimal(change.UnitPrice), change.Currency)
	}
	if change.PurchaseDate != nil {
		sets = append(sets, "purchase_date = ?")
		args = append(args, formatTime(*change.PurchaseDate))
	}
	if change.CategoryID != nil {
		sets = append(sets, "category_id = COALESCE(category_id, ?)")
		args = append(args, *change.CategoryID)
	}

	backfill := []struct {
		name  string
		value string
	}{
		{"description", change.Description},
		{"manufacturer", change.Manufacturer},
		{"supplier_id", change.SupplierID},
		{"supplier_part_number", change.SupplierPartNumber},
		{"datasheet_url", change.DatasheetURL},
		{"package", change.Package},
		{"sku", change.SKU},
	}
	for _, col := range backfill {
		if col.value == "" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%[1]s = CASE WHEN TRIM(%[1]s) = '' THEN ? ELSE %[1]s END", col.name))
		args = append(args, col.value)
	}

	if len(change.Attributes) > 0 {
		attrs, err := encodeAttributes(change.Attributes)
		if err != nil {
			return nil, err
		}
		// существующие ключи перекрывают новые
		sets = append(sets, "attributes = json_patch(?, attributes)")
		args = append(args, attrs)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(change.UpdatedAt), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE components SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply import to component %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, supplierimport.ErrComponentNotFound
	}
	return s.GetByID(ctx, id)
}

// ListMissingSpecs возвращает компоненты с незаполненными техническими атрибутами
func (s *ComponentStore) ListMissingSpecs(ctx context.Context, filter supplierimport.EnrichmentFilter, limit int) ([]*supplierimport.Component, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + componentColumns + ` FROM components WHERE ` + missingSpecsCondition
	args := []any{}
	if filter.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *filter.CategoryID)
	}
	// никогда не обработанные первыми, затем давно обработанные
	query += ` ORDER BY enrichment_attempted_at IS NOT NULL, enrichment_attempted_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list components missing specs: %w", err)
	}
	defer rows.Close()

	var out []*supplierimport.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MergeSpecs записывает атрибуты только в пустые колонки. Заполненные значения SQL не трогает.
func (s *ComponentStore) MergeSpecs(ctx context.Context, id int64, patch supplierimport.SpecPatch) (bool, error) {
	if patch.IsEmpty() {
		return false, nil
	}

	columns := []struct {
		name  string
		value string
	}{
		{"package", patch.Package},
		{"mounting_type", patch.MountingType},
		{"tolerance", patch.Tolerance},
		{"voltage_rating", patch.VoltageRating},
		{"manufacturer", patch.Manufacturer},
		{"datasheet_url", patch.DatasheetURL},
	}

	var (
		sets       []string
		conditions []string
		setArgs    []any
	)
	for _, col := range columns {
		if col.value == "" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%[1]s = CASE WHEN %[1]s = '' THEN ? ELSE %[1]s END", col.name))
		setArgs = append(setArgs, col.value)
		conditions = append(conditions, col.name+" = ''")
	}

	query := fmt.Sprintf(`UPDATE components SET %s, updated_at = ? WHERE id = ? AND (%s)`,
		strings.Join(sets, ", "), strings.Join(conditions, " OR "))
	args := append(setArgs, formatTime(time.Now()), id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to merge specs for component %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// MarkEnrichmentAttempted сдвигает компонент в конец очереди обогащения
func (s *ComponentStore) MarkEnrichmentAttempted(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE components SET enrichment_attempted_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark enrichment attempt for component %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return supplierimport.ErrComponentNotFound
	}
	return nil
}

// Count возвращает число компонентов
func (s *ComponentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM components`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count components: %w", err)
	}
	return n, nil
}
