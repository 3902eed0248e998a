package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

func TestParseCSV_DelimiterAndBOM(t *testing.T) {
	data := "\xEF\xBB\xBFMfr. #;Description;Qty\nABC-1;\"Widget; blue\";5\n\n"
	table, err := ParseCSV([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"Mfr. #", "Description", "Qty"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Widget; blue", table.Rows[0][1])
	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, 2, table.RowNumber(0))
}

func TestParseCSV_Windows1252(t *testing.T) {
	// 0x80 это знак евро в Windows-1252
	data := []byte("MPN,Description,Price\nR1,Resistor 10k\xB5,\x80 0.10\n")
	table, err := ParseCSV(data)
	require.NoError(t, err)

	assert.Equal(t, "windows-1252", table.Encoding)
	assert.Equal(t, "Resistor 10kµ", table.Rows[0][1])
	assert.Equal(t, "€ 0.10", table.Rows[0][2])
}

func TestParseCSV_SkipsLeadingBlankLines(t *testing.T) {
	table, err := ParseCSV([]byte("\n\nMPN\tDescription\nX1\tThing\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MPN", "Description"}, table.Headers)
	assert.Equal(t, "Thing", table.Rows[0][1])
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV([]byte("\n  \n"))
	assert.True(t, errors.Is(err, supplierimport.ErrEmptySource))
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Manufacturer Part Number", "Description", "Quantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"RC0603FR-0710KL", "RES SMD 10K", 100}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := ReadTable("order.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", table.Format)
	assert.Equal(t, []string{"Manufacturer Part Number", "Description", "Quantity"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "100", table.Rows[0][2])
}

func TestReadTable_UnsupportedFormat(t *testing.T) {
	_, err := ReadTable("order.pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, supplierimport.ErrUnsupportedFormat)
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "10 kOhm", cleanCell("  10 kOhm\t"))
	assert.Equal(t, "a b", cleanCell("a\x00b"))
	assert.Equal(t, "", cleanCell(""))
}
