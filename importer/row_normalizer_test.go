package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

func newTestNormalizer(t *testing.T, supplier string, headers []string, rates RateConverter) *Normalizer {
	t.Helper()
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	mapping, err := resolver.Resolve(context.Background(), supplier, headers)
	require.NoError(t, err)
	return NewNormalizer(mapping, headers, DialectFor(supplier), rates)
}

func TestNormalize_ConvertsForeignCurrency(t *testing.T) {
	headers := []string{"Mfr. #", "Description", "Order Qty.", "Unit Price", "Voltage"}
	rates := fixedRates{reference: "EUR", rates: map[string]decimal.Decimal{"USD": decimal.RequireFromString("0.9213")}}
	n := newTestNormalizer(t, "mouser", headers, rates)

	row, skip := n.Normalize(context.Background(), 2, []string{" GRM188R71H104KA93D ", "CAP CER 0.1UF 50V X7R 0603", "1,000", "$0.1234", "50V"})
	require.Nil(t, skip)

	assert.Equal(t, "GRM188R71H104KA93D", row.ManufacturerPartNumber)
	require.NotNil(t, row.StockQuantity)
	assert.Equal(t, int64(1000), *row.StockQuantity)

	want := decimal.RequireFromString("0.1234").Mul(decimal.RequireFromString("0.9213")).Round(PricePrecision)
	require.NotNil(t, row.UnitPrice)
	assert.True(t, row.UnitPrice.Equal(want), "UnitPrice = %s, want %s", row.UnitPrice, want)
	assert.Equal(t, "EUR", row.Currency)
	assert.Equal(t, "USD", row.OriginalCurrency)
	assert.Equal(t, map[string]string{"Voltage": "50V"}, row.Attributes)
	assert.Empty(t, row.Warnings)
}

func TestNormalize_RateUnavailableKeepsPrice(t *testing.T) {
	headers := []string{"MPN", "Description", "Price"}
	n := newTestNormalizer(t, "acme", headers, fixedRates{reference: "EUR"})

	row, skip := n.Normalize(context.Background(), 3, []string{"LM358", "Dual op amp", "GBP 1.25"})
	require.Nil(t, skip)
	require.NotNil(t, row.UnitPrice)
	assert.True(t, row.UnitPrice.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, "GBP", row.Currency)
	require.Len(t, row.Warnings, 1)
	assert.Contains(t, row.Warnings[0], "unconverted")
}

func TestNormalize_MissingPartNumberSkips(t *testing.T) {
	headers := []string{"MPN", "Description", "Qty"}
	n := newTestNormalizer(t, "acme", headers, nil)

	row, skip := n.Normalize(context.Background(), 4, []string{"  ", "Some resistor", "10"})
	assert.Nil(t, row)
	require.NotNil(t, skip)
	assert.Equal(t, 4, skip.RowNumber)
	assert.Contains(t, skip.Reason, "part number")

	_, skip = n.Normalize(context.Background(), 5, []string{"", "", ""})
	require.NotNil(t, skip)
}

func TestNormalize_MalformedValuesBecomeWarnings(t *testing.T) {
	headers := []string{"MPN", "Description", "Qty", "Price", "Order Date"}
	n := newTestNormalizer(t, "acme", headers, fixedRates{reference: "EUR"})

	row, skip := n.Normalize(context.Background(), 6, []string{"BC547", "NPN transistor", "2.5", "n/a", "someday"})
	require.Nil(t, skip)
	assert.Nil(t, row.StockQuantity)
	assert.Nil(t, row.UnitPrice)
	assert.Nil(t, row.PurchaseDate)
	assert.Len(t, row.Warnings, 3)
}

func TestNormalize_ShortRowAndDialectCleanup(t *testing.T) {
	headers := []string{"Digi-Key Part Number", "Manufacturer Part Number", "Description", "Quantity"}
	n := newTestNormalizer(t, "digikey", headers, nil)

	row, skip := n.Normalize(context.Background(), 2, []string{"311-10.0KHRCT-ND", "RC0603FR-0710KL", "RES SMD 10K OHM 1% 1/10W 0603"})
	require.Nil(t, skip)
	assert.Equal(t, "311-10.0KHRCT", row.SupplierPartNumber)
	assert.Nil(t, row.StockQuantity)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-05-10", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"10.05.2024", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"05/10/2024", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"25/12/2023", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"10-May-2024", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"45422", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.raw)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseDate("not a date"); err == nil {
		t.Error("ParseDate(text) should fail")
	}
}

func TestParseInteger(t *testing.T) {
	for raw, want := range map[string]int64{"10": 10, "1,000": 1000, "2.0": 2, " 5 ": 5, "1.000.000": 1000000} {
		got, err := ParseInteger(raw)
		if err != nil || got != want {
			t.Errorf("ParseInteger(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	if _, err := ParseInteger("2.5"); err == nil || !strings.Contains(err.Error(), "fractional") {
		t.Errorf("ParseInteger(2.5) error = %v, want fractional", err)
	}
}

// TestNormalize_PersistedDataTypesChooseParser тип колонки из сохраненного сопоставления определяет разбор
func TestNormalize_PersistedDataTypesChooseParser(t *testing.T) {
	db := setupInventory(t)
	ctx := context.Background()
	headers := []string{"Part", "Length (m)", "Ordered", "Price", "Desc", "Lot"}

	require.NoError(t, db.Mappings().ReplaceActive(ctx, "cablesupply", []supplierimport.FieldMapping{
		{Field: supplierimport.FieldManufacturerPartNumber, Column: "Part", ColumnIndex: 0, DataType: supplierimport.DataTypeString, Required: true, Active: true},
		{Field: supplierimport.FieldStockQuantity, Column: "Length (m)", ColumnIndex: 1, DataType: supplierimport.DataTypeDecimal, Active: true},
		{Field: supplierimport.FieldPurchaseDate, Column: "Ordered", ColumnIndex: 2, DataType: supplierimport.DataTypeInteger, Active: true},
		{Field: supplierimport.FieldUnitPrice, Column: "Price", ColumnIndex: 3, DataType: supplierimport.DataTypeInteger, Active: true},
		{Field: supplierimport.FieldDescription, Column: "Desc", ColumnIndex: 4, DataType: supplierimport.DataTypeString, Active: true},
	}))

	resolver := NewMappingResolver(db.Mappings(), nil, nil)
	mapping, err := resolver.Resolve(ctx, "cablesupply", headers)
	require.NoError(t, err)
	require.Equal(t, MappingPersisted, mapping.Source)
	n := NewNormalizer(mapping, headers, nil, nil)

	tests := []struct {
		name      string
		row       []string
		wantQty   *int64
		wantDate  *time.Time
		wantPrice string
		warning   string
	}{
		{
			name:      "decimal quantity and compact date",
			row:       []string{"UL1007-22", "2.0", "20240510", "3", "HOOKUP WIRE 22AWG", "L-7"},
			wantQty:   qty(2),
			wantDate:  timePtr(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)),
			wantPrice: "3",
		},
		{
			name:      "fractional length is rounded",
			row:       []string{"UL1007-24", "12.6", "45422", "4", "HOOKUP WIRE 24AWG", ""},
			wantQty:   qty(13),
			wantDate:  timePtr(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)),
			wantPrice: "4",
			warning:   "rounded to 13",
		},
		{
			name:    "fractional price rejected by integer column",
			row:     []string{"UL1007-26", "1", "2024-05-10", "0.35", "HOOKUP WIRE 26AWG", ""},
			wantQty: qty(1),
			warning: "integer column has fractional value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, skip := n.Normalize(ctx, 2, tt.row)
			require.Nil(t, skip)

			assert.Equal(t, tt.wantQty, row.StockQuantity)
			if tt.wantDate == nil {
				assert.Nil(t, row.PurchaseDate)
			} else {
				require.NotNil(t, row.PurchaseDate)
				assert.True(t, tt.wantDate.Equal(*row.PurchaseDate), "PurchaseDate = %s", row.PurchaseDate)
			}
			if tt.wantPrice == "" {
				assert.Nil(t, row.UnitPrice)
			} else {
				require.NotNil(t, row.UnitPrice)
				assert.True(t, row.UnitPrice.Equal(decimal.RequireFromString(tt.wantPrice)))
			}
			if tt.warning != "" {
				assert.Contains(t, strings.Join(row.Warnings, "; "), tt.warning)
			}
		})
	}
}

func TestNormalize_StringColumnKeepsRawText(t *testing.T) {
	mapping := &Mapping{SupplierID: "acme", Source: MappingOverride, Columns: map[string]ColumnRef{
		supplierimport.FieldManufacturerPartNumber: {Name: "MPN", Index: 0},
		supplierimport.FieldStockQuantity:          {Name: "Qty", Index: 1, DataType: supplierimport.DataTypeString},
		supplierimport.FieldPurchaseDate:           {Name: "Date", Index: 2, DataType: supplierimport.DataTypeString},
	}}
	n := NewNormalizer(mapping, []string{"MPN", "Qty", "Date"}, nil, nil)

	row, skip := n.Normalize(context.Background(), 2, []string{"BAV99", "approx. 100 pcs", "Q2 2024"})
	require.Nil(t, skip)
	assert.Nil(t, row.StockQuantity)
	assert.Nil(t, row.PurchaseDate)
	assert.Empty(t, row.Warnings)
	assert.Equal(t, "approx. 100 pcs", row.Attributes[supplierimport.FieldStockQuantity])
	assert.Equal(t, "Q2 2024", row.Attributes[supplierimport.FieldPurchaseDate])
}

func TestParseInteger_RejectsOverflow(t *testing.T) {
	for _, raw := range []string{"9223372036854775808", "99999999999999999999", "-9223372036854775809"} {
		_, err := ParseInteger(raw)
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "out of range")
	}

	got, err := ParseInteger("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func timePtr(t time.Time) *time.Time { return &t }
