package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

var mouserHeaders = []string{"Mouser #", "Mfr. #", "Manufacturer", "Description", "Order Qty.", "Price (USD)", "Ext.: (USD)"}

func TestDetect_Mouser(t *testing.T) {
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	mapping := resolver.Detect("Mouser", mouserHeaders)

	want := map[string]int{
		supplierimport.FieldSupplierPartNumber:     0,
		supplierimport.FieldManufacturerPartNumber: 1,
		supplierimport.FieldManufacturer:           2,
		supplierimport.FieldDescription:            3,
		supplierimport.FieldStockQuantity:          4,
		supplierimport.FieldUnitPrice:              5,
	}
	for field, idx := range want {
		ref, ok := mapping.Column(field)
		if !ok {
			t.Errorf("Detect() missing field %s", field)
			continue
		}
		if ref.Index != idx {
			t.Errorf("Detect() %s -> column %d (%s), want %d", field, ref.Index, ref.Name, idx)
		}
	}
	assert.Equal(t, MappingDetected, mapping.Source)
}

func TestDetect_ExclusionVetoesPattern(t *testing.T) {
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	mapping := resolver.Detect("acme", []string{"Part Number", "Description", "Extended Price", "Line Total"})

	_, ok := mapping.Column(supplierimport.FieldUnitPrice)
	assert.False(t, ok, "extended price must not map to unit_price")
}

func TestDetect_CommittedHeaderNotReused(t *testing.T) {
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	// колонка уже занята полем MPN и не может достаться manufacturer
	mapping := resolver.Detect("acme", []string{"Manufacturer Part Number", "Description"})

	ref, ok := mapping.Column(supplierimport.FieldManufacturerPartNumber)
	require.True(t, ok)
	assert.Equal(t, 0, ref.Index)
	_, ok = mapping.Column(supplierimport.FieldManufacturer)
	assert.False(t, ok)
}

func TestDetect_TieGoesToFirstHeader(t *testing.T) {
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	mapping := resolver.Detect("acme", []string{"MPN", "Item Description", "Short description"})

	ref, _ := mapping.Column(supplierimport.FieldDescription)
	assert.Equal(t, 1, ref.Index)
}

func TestResolve_PersistsDetectedMapping(t *testing.T) {
	repo := newMemoryMappings()
	resolver := NewMappingResolver(repo, nil, nil)
	ctx := context.Background()

	mapping, err := resolver.Resolve(ctx, "Mouser", mouserHeaders)
	require.NoError(t, err)
	assert.Equal(t, MappingDetected, mapping.Source)
	assert.Equal(t, 1, repo.replaced)

	again, err := resolver.Resolve(ctx, "Mouser", mouserHeaders)
	require.NoError(t, err)
	assert.Equal(t, MappingPersisted, again.Source)
	assert.Equal(t, 1, repo.replaced, "persisted mapping must not be re-detected")
	assert.Equal(t, mapping.Columns[supplierimport.FieldUnitPrice].Index, again.Columns[supplierimport.FieldUnitPrice].Index)
}

func TestResolve_PersistedIsCaseSensitiveWithIndexFallback(t *testing.T) {
	repo := newMemoryMappings()
	repo.active["acme"] = []supplierimport.FieldMapping{
		{SupplierID: "acme", Field: supplierimport.FieldManufacturerPartNumber, Column: "PN", ColumnIndex: 0, Required: true, Active: true},
		{SupplierID: "acme", Field: supplierimport.FieldDescription, Column: "Desc", ColumnIndex: 2, Required: true, Active: true},
	}
	resolver := NewMappingResolver(repo, nil, nil)

	mapping, err := resolver.Resolve(context.Background(), "acme", []string{"pn", "Extra", "Desc"})
	require.NoError(t, err)
	assert.Equal(t, MappingPersisted, mapping.Source)
	assert.Equal(t, 0, mapping.Columns[supplierimport.FieldManufacturerPartNumber].Index)
	assert.Equal(t, "pn", mapping.Columns[supplierimport.FieldManufacturerPartNumber].Name)
	assert.Equal(t, 2, mapping.Columns[supplierimport.FieldDescription].Index)
}

func TestResolve_MissingRequiredFails(t *testing.T) {
	repo := newMemoryMappings()
	resolver := NewMappingResolver(repo, nil, nil)

	_, err := resolver.Resolve(context.Background(), "acme", []string{"Qty", "Price", "Notes"})
	require.Error(t, err)

	var incomplete *supplierimport.MappingIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.ElementsMatch(t, []string{supplierimport.FieldManufacturerPartNumber, supplierimport.FieldDescription}, incomplete.Missing)
	assert.Equal(t, 0, repo.replaced, "incomplete detection must not be persisted")
}

func TestResolve_Override(t *testing.T) {
	repo := newMemoryMappings()
	resolver := NewMappingResolver(repo, nil, nil)
	headers := []string{"Code", "Text", "Qty"}

	mapping, err := resolver.ResolveWithOverride(context.Background(), "acme", headers, map[string]string{
		supplierimport.FieldManufacturerPartNumber: "Code",
		supplierimport.FieldDescription:            "text",
	})
	require.NoError(t, err)
	assert.Equal(t, MappingOverride, mapping.Source)
	assert.Equal(t, 1, mapping.Columns[supplierimport.FieldDescription].Index)
	assert.Equal(t, 0, repo.replaced, "override must not be persisted")

	_, err = resolver.ResolveWithOverride(context.Background(), "acme", headers, map[string]string{"colour": "Code"})
	assert.ErrorIs(t, err, supplierimport.ErrInvalidMappingField)

	_, err = resolver.ResolveWithOverride(context.Background(), "acme", headers, map[string]string{
		supplierimport.FieldManufacturerPartNumber: "Missing",
	})
	assert.True(t, supplierimport.IsMappingIncomplete(err))
}

func TestResolve_InvalidSupplier(t *testing.T) {
	resolver := NewMappingResolver(newMemoryMappings(), nil, nil)
	_, err := resolver.Resolve(context.Background(), " ", mouserHeaders)
	assert.ErrorIs(t, err, supplierimport.ErrInvalidSupplier)
}

func TestParsePatternTable(t *testing.T) {
	table, err := ParsePatternTable([]byte(`
fields:
  - field: manufacturer_part_number
    required: true
    exact:
      "*": ["Art.-Nr."]
  - field: description
    required: true
    patterns: ['(?i)bezeichnung']
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"manufacturer_part_number", "description"}, table.RequiredFields())

	resolver := NewMappingResolver(newMemoryMappings(), table, nil)
	mapping := resolver.Detect("conrad", []string{"Bezeichnung", "art.-nr."})
	assert.Equal(t, 1, mapping.Columns[supplierimport.FieldManufacturerPartNumber].Index)
	assert.Equal(t, 0, mapping.Columns[supplierimport.FieldDescription].Index)

	_, err = ParsePatternTable([]byte(`fields: [{field: x, patterns: ['(']}]`))
	assert.Error(t, err)
	_, err = ParsePatternTable([]byte(`fields: [{field: x}, {field: x}]`))
	assert.Error(t, err)
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		supplier string
		kind     SupplierKind
		prefix   string
	}{
		{"Mouser", SupplierMouser, "MOU"},
		{"digi-key", SupplierDigiKey, "DK"},
		{"Element14", SupplierFarnell, "FAR"},
		{"acme parts", SupplierGeneric, "ACM"},
		{"", SupplierGeneric, "GEN"},
	}
	for _, tt := range tests {
		d := DialectFor(tt.supplier)
		if d.Kind() != tt.kind || d.SKUPrefix() != tt.prefix {
			t.Errorf("DialectFor(%q) = %s/%s, want %s/%s", tt.supplier, d.Kind(), d.SKUPrefix(), tt.kind, tt.prefix)
		}
	}

	assert.Equal(t, "311-10.0KHRCT", DialectFor("digikey").CleanSupplierPartNumber("311-10.0KHRCT-ND"))
	assert.Equal(t, "1759122", DialectFor("farnell").CleanSupplierPartNumber(" 175 9122 "))
}

func TestReplace_ValidatesAndFillsDefaults(t *testing.T) {
	repo := newMemoryMappings()
	resolver := NewMappingResolver(repo, nil, nil)
	ctx := context.Background()

	saved, err := resolver.Replace(ctx, "Mouser", []supplierimport.FieldMapping{
		{Field: supplierimport.FieldManufacturerPartNumber, Column: " Mfr. # ", ColumnIndex: 1},
		{Field: supplierimport.FieldDescription, Column: "Description", ColumnIndex: 3},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Mfr. #", saved[0].Column)
	assert.Equal(t, supplierimport.DataTypeString, saved[0].DataType)
	assert.True(t, saved[0].Required)
	assert.True(t, saved[0].Active)
	assert.Equal(t, "Mouser", saved[1].SupplierID)
	assert.Equal(t, 1, repo.replaced)

	tests := []struct {
		name     string
		supplier string
		mappings []supplierimport.FieldMapping
		want     error
	}{
		{"unknown field", "Mouser", []supplierimport.FieldMapping{{Field: "colour", Column: "Colour"}}, supplierimport.ErrInvalidMappingField},
		{"empty column", "Mouser", []supplierimport.FieldMapping{{Field: supplierimport.FieldDescription}}, supplierimport.ErrInvalidMappingField},
		{"duplicate field", "Mouser", []supplierimport.FieldMapping{
			{Field: supplierimport.FieldDescription, Column: "A"},
			{Field: supplierimport.FieldDescription, Column: "B"},
		}, supplierimport.ErrDuplicateMapping},
		{"empty supplier", " ", nil, supplierimport.ErrInvalidSupplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Replace(ctx, tt.supplier, tt.mappings)
			if !errors.Is(err, tt.want) {
				t.Errorf("Replace() error = %v, want %v", err, tt.want)
			}
		})
	}
	assert.Equal(t, 1, repo.replaced, "rejected mappings never reach the store")
}
