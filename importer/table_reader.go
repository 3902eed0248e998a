package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// maxSourceSize предельный размер загружаемой выгрузки
const maxSourceSize = 64 << 20

// Table прочитанная выгрузка поставщика
type Table struct {
	Format   string     `json:"format"`
	Encoding string     `json:"encoding"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"-"`
	// FirstDataRow номер первой строки данных в исходном файле (с единицы)
	FirstDataRow int `json:"first_data_row"`
}

// RowNumber возвращает номер строки файла для индекса строки данных
func (t *Table) RowNumber(i int) int {
	return t.FirstDataRow + i
}

// IsSupportedFormat сообщает, умеет ли ReadTable читать файл с таким именем
func IsSupportedFormat(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadTable читает CSV или XLSX по расширению имени файла
func ReadTable(name string, r io.Reader) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv", ".txt", ".tsv":
		data, err := io.ReadAll(io.LimitReader(r, maxSourceSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return ParseCSV(data)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", supplierimport.ErrUnsupportedFormat, ext)
	}
}

// ParseCSV разбирает CSV выгрузку. Кодировка и разделитель определяются по содержимому.
func ParseCSV(data []byte) (*Table, error) {
	text, enc, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	table, err := newTable(records)
	if err != nil {
		return nil, err
	}
	table.Format = "csv"
	table.Encoding = enc
	return table, nil
}

// ReadXLSX читает первый лист книги Excel
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no sheets found in Excel file", supplierimport.ErrEmptySource)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	table, err := newTable(rows)
	if err != nil {
		return nil, err
	}
	table.Format = "xlsx"
	table.Encoding = "utf-8"
	return table, nil
}

// newTable отделяет строку заголовков: первая непустая строка файла
func newTable(records [][]string) (*Table, error) {
	start := -1
	for i, row := range records {
		if !isBlankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, supplierimport.ErrEmptySource
	}

	headers := make([]string, len(records[start]))
	for i, h := range records[start] {
		headers[i] = cleanCell(h)
	}

	rows := records[start+1:]
	// хвостовые пустые строки Excel
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	return &Table{Headers: headers, Rows: rows, FirstDataRow: start + 2}, nil
}

// decodeText приводит байты к UTF-8. Не-UTF-8 файлы считаются Windows-1252.
func decodeText(data []byte) (string, string, error) {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		decoded, _, err := transform.Bytes(xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM).NewDecoder(), data)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode utf-16: %w", err)
		}
		return string(decoded), "utf-16", nil
	}

	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode windows-1252: %w", err)
	}
	return string(decoded), "windows-1252", nil
}

// sniffDelimiter выбирает разделитель по первой непустой строке
func sniffDelimiter(text string) rune {
	line := strings.TrimLeft(text, "\r\n\t ")
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{';', ',', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// cleanCell обрезает пробелы, заменяет NBSP и управляющие символы пробелом
func cleanCell(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return ' '
		case r == '\u00a0' || r == '\u202f':
			return ' '
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)
	return collapseSpaces(s)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
