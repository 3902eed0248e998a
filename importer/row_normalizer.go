package importer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// RateConverter курсы валют к базовой валюте
type RateConverter interface {
	Rate(ctx context.Context, currency string) (decimal.Decimal, error)
	Reference() string
}

// Normalizer приводит строку выгрузки к каноническому виду по сопоставлению колонок
type Normalizer struct {
	mapping *Mapping
	dialect SupplierDialect
	rates   RateConverter
	headers []string
	// mapped индексы колонок, занятых каноническими полями
	mapped map[int]bool
}

// NewNormalizer создает нормализатор для одной выгрузки
func NewNormalizer(mapping *Mapping, headers []string, dialect SupplierDialect, rates RateConverter) *Normalizer {
	mapped := make(map[int]bool, len(mapping.Columns))
	for _, ref := range mapping.Columns {
		mapped[ref.Index] = true
	}
	if dialect == nil {
		dialect = DialectFor(mapping.SupplierID)
	}
	return &Normalizer{mapping: mapping, dialect: dialect, rates: rates, mapped: mapped, headers: headers}
}

// Dialect возвращает диалект поставщика
func (n *Normalizer) Dialect() SupplierDialect {
	return n.dialect
}

// Normalize разбирает строку. Строка без manufacturer part number возвращает SkipSignal, а не ошибку.
func (n *Normalizer) Normalize(ctx context.Context, rowNumber int, row []string) (*supplierimport.NormalizedRow, *supplierimport.SkipSignal) {
	if isBlankRow(row) {
		return nil, &supplierimport.SkipSignal{RowNumber: rowNumber, Reason: "empty row"}
	}

	out := &supplierimport.NormalizedRow{RowNumber: rowNumber}

	out.ManufacturerPartNumber = n.dialect.CleanPartNumber(n.cell(row, supplierimport.FieldManufacturerPartNumber))
	if out.ManufacturerPartNumber == "" {
		return nil, &supplierimport.SkipSignal{RowNumber: rowNumber, Reason: "missing manufacturer part number"}
	}

	out.Description = n.dialect.CleanDescription(n.cell(row, supplierimport.FieldDescription))
	out.Manufacturer = n.cell(row, supplierimport.FieldManufacturer)
	out.SupplierPartNumber = n.dialect.CleanSupplierPartNumber(n.cell(row, supplierimport.FieldSupplierPartNumber))
	out.CategoryCandidate = n.cell(row, supplierimport.FieldCategory)
	out.DatasheetURL = n.cell(row, supplierimport.FieldDatasheetURL)

	var textValues map[string]string
	keepText := func(field, raw string) {
		if textValues == nil {
			textValues = make(map[string]string)
		}
		textValues[field] = raw
	}

	if raw := n.cell(row, supplierimport.FieldStockQuantity); raw != "" {
		n.normalizeQuantity(raw, out, keepText)
	}

	if raw := n.cell(row, supplierimport.FieldUnitPrice); raw != "" {
		switch dt := n.dataType(supplierimport.FieldUnitPrice); dt {
		case supplierimport.DataTypeString:
			keepText(supplierimport.FieldUnitPrice, raw)
		case supplierimport.DataTypeDate:
			out.Warnings = append(out.Warnings, fmt.Sprintf("price column declared as %s, value %q ignored", dt, raw))
		default:
			n.normalizePrice(ctx, raw, dt, out)
		}
	}

	if raw := n.cell(row, supplierimport.FieldPurchaseDate); raw != "" {
		n.normalizeDate(raw, out, keepText)
	}

	out.Attributes = n.attributes(row)
	if pkg := n.cell(row, supplierimport.FieldPackage); pkg != "" {
		keepText(supplierimport.FieldPackage, pkg)
	}
	for field, value := range textValues {
		if out.Attributes == nil {
			out.Attributes = make(map[string]string)
		}
		out.Attributes[field] = value
	}

	return out, nil
}

// defaultDataTypes типы полей, для которых сопоставление не объявило свой
var defaultDataTypes = map[string]supplierimport.DataType{
	supplierimport.FieldStockQuantity: supplierimport.DataTypeInteger,
	supplierimport.FieldUnitPrice:     supplierimport.DataTypeDecimal,
	supplierimport.FieldPurchaseDate:  supplierimport.DataTypeDate,
}

// dataType возвращает объявленный в сопоставлении тип колонки поля
func (n *Normalizer) dataType(field string) supplierimport.DataType {
	if ref, ok := n.mapping.Columns[field]; ok {
		switch ref.DataType {
		case supplierimport.DataTypeString, supplierimport.DataTypeDecimal,
			supplierimport.DataTypeInteger, supplierimport.DataTypeDate:
			return ref.DataType
		}
	}
	if dt, ok := defaultDataTypes[field]; ok {
		return dt
	}
	return supplierimport.DataTypeString
}

// normalizeQuantity разбирает количество по объявленному типу колонки.
// Колонка типа string не разбирается и сохраняется как атрибут.
func (n *Normalizer) normalizeQuantity(raw string, out *supplierimport.NormalizedRow, keepText func(field, raw string)) {
	switch dt := n.dataType(supplierimport.FieldStockQuantity); dt {
	case supplierimport.DataTypeString:
		keepText(supplierimport.FieldStockQuantity, raw)
	case supplierimport.DataTypeDecimal:
		d, err := ParseDecimal(raw)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("invalid quantity %q", raw))
			return
		}
		rounded := d.Round(0)
		qty, err := decimalToInt64(rounded)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("invalid quantity %q: %v", raw, err))
			return
		}
		if !rounded.Equal(d) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("quantity %s rounded to %d", d, qty))
		}
		out.StockQuantity = &qty
	case supplierimport.DataTypeDate:
		out.Warnings = append(out.Warnings, fmt.Sprintf("quantity column declared as %s, value %q ignored", dt, raw))
	default:
		qty, err := ParseInteger(raw)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("invalid quantity %q", raw))
			return
		}
		out.StockQuantity = &qty
	}
}

// normalizeDate разбирает дату закупки по объявленному типу колонки.
// integer допускает YYYYMMDD и серийный номер Excel, decimal только серийный номер Excel.
func (n *Normalizer) normalizeDate(raw string, out *supplierimport.NormalizedRow, keepText func(field, raw string)) {
	var (
		date time.Time
		err  error
	)
	switch n.dataType(supplierimport.FieldPurchaseDate) {
	case supplierimport.DataTypeString:
		keepText(supplierimport.FieldPurchaseDate, raw)
		return
	case supplierimport.DataTypeInteger:
		date, err = parseIntegerDate(raw)
	case supplierimport.DataTypeDecimal:
		date, err = parseSerialDate(raw)
	default:
		date, err = ParseDate(raw)
	}
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("invalid date %q", raw))
		return
	}
	out.PurchaseDate = &date
}

// normalizePrice разбирает цену и переводит ее в базовую валюту.
// Без курса цена сохраняется без конвертации, а строка получает предупреждение.
func (n *Normalizer) normalizePrice(ctx context.Context, raw string, dt supplierimport.DataType, out *supplierimport.NormalizedRow) {
	reference := "EUR"
	if n.rates != nil {
		reference = n.rates.Reference()
	}

	price, err := ParsePrice(raw, reference)
	if err != nil || price == nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("invalid price %q", raw))
		return
	}
	if dt == supplierimport.DataTypeInteger && !price.Amount.Equal(price.Amount.Truncate(0)) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("invalid price %q: integer column has fractional value", raw))
		return
	}

	original := price.Amount
	out.OriginalPrice = &original
	out.OriginalCurrency = price.Currency

	out.Currency = reference
	if price.Currency == reference {
		amount := price.Amount.Round(PricePrecision)
		out.UnitPrice = &amount
		return
	}

	if n.rates == nil {
		amount := price.Amount.Round(PricePrecision)
		out.UnitPrice = &amount
		out.Currency = price.Currency
		out.Warnings = append(out.Warnings, fmt.Sprintf("no exchange rate for %s, price stored unconverted", price.Currency))
		return
	}

	rate, err := n.rates.Rate(ctx, price.Currency)
	if err != nil {
		amount := price.Amount.Round(PricePrecision)
		out.UnitPrice = &amount
		out.Currency = price.Currency
		out.Warnings = append(out.Warnings, fmt.Sprintf("no exchange rate for %s, price stored unconverted: %v", price.Currency, err))
		return
	}

	converted := ConvertPrice(price.Amount, rate)
	out.UnitPrice = &converted
}

// attributes собирает непустые колонки, не занятые каноническими полями
func (n *Normalizer) attributes(row []string) map[string]string {
	var attrs map[string]string
	for i, raw := range row {
		if n.mapped[i] || i >= len(n.headers) {
			continue
		}
		name := n.headers[i]
		value := cleanCell(raw)
		if name == "" || value == "" {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[name] = value
	}
	return attrs
}

func (n *Normalizer) cell(row []string, field string) string {
	return cleanCell(n.mapping.Cell(row, field))
}

// ParseInteger разбирает количество: допускаются разделители тысяч и нулевая дробная часть
func ParseInteger(raw string) (int64, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("fractional quantity %s", d)
	}
	return decimalToInt64(d)
}

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// decimalToInt64 переводит целое значение в int64 без переполнения
func decimalToInt64(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0, fmt.Errorf("quantity %s out of range", d)
	}
	return d.IntPart(), nil
}

var compactDate = regexp.MustCompile(`^\d{8}$`)

func parseIntegerDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if compactDate.MatchString(s) {
		return time.Parse("20060102", s)
	}
	return parseSerialDate(s)
}

// parseSerialDate разбирает серийный номер даты Excel
func parseSerialDate(raw string) (time.Time, error) {
	serial, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid serial date %q: %w", raw, err)
	}
	f, _ := serial.Float64()
	if f < 1 || f >= 2958466 {
		return time.Time{}, fmt.Errorf("serial date %q out of range", raw)
	}
	return excelize.ExcelDateToTime(f, false)
}

var (
	excelSerial = regexp.MustCompile(`^\d{4,5}(\.\d+)?$`)
	slashDate   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate разбирает дату в ISO, европейском или американском формате, а также серийный номер Excel.
// Для дат через косую черту действует американский порядок, если первое число не больше 12.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	if excelSerial.MatchString(s) {
		if t, err := parseSerialDate(s); err == nil {
			return t, nil
		}
	}

	if m := slashDate.FindStringSubmatch(s); m != nil {
		layout := "1/2/2006"
		if first, _ := strconv.Atoi(m[1]); first > 12 {
			layout = "2/1/2006"
		}
		return time.Parse(layout, s)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
