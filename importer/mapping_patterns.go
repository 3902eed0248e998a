package importer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// anySupplier ключ известных заголовков, общих для всех поставщиков
const anySupplier = "*"

// FieldPattern правило распознавания одного канонического поля
type FieldPattern struct {
	Field    string                  `yaml:"field"`
	DataType supplierimport.DataType `yaml:"data_type"`
	Required bool                    `yaml:"required"`
	// Exact известные заголовки по поставщикам; "*" общий набор
	Exact    map[string][]string `yaml:"exact"`
	Patterns []string            `yaml:"patterns"`
	// Exclude заголовок отклоняется, даже если сработал один из Patterns
	Exclude []string `yaml:"exclude"`

	patterns []*regexp.Regexp
	exclude  []*regexp.Regexp
}

// PatternTable упорядоченная таблица правил. Порядок полей задает приоритет.
type PatternTable struct {
	Fields []FieldPattern `yaml:"fields"`
}

// Ранги совпадения заголовка, меньше лучше
const (
	rankSupplierExact = iota
	rankCommonExact
	rankPattern
	rankNone = -1
)

// match возвращает ранг совпадения заголовка с полем или rankNone
func (p *FieldPattern) match(supplierKey, header string) int {
	h := normalizeHeader(header)
	if h == "" {
		return rankNone
	}

	for _, known := range p.Exact[supplierKey] {
		if normalizeHeader(known) == h {
			return rankSupplierExact
		}
	}
	for key, list := range p.Exact {
		if key == supplierKey {
			continue
		}
		for _, known := range list {
			if normalizeHeader(known) == h {
				return rankCommonExact
			}
		}
	}

	for _, re := range p.patterns {
		if !re.MatchString(header) {
			continue
		}
		for _, ex := range p.exclude {
			if ex.MatchString(header) {
				return rankNone
			}
		}
		return rankPattern
	}
	return rankNone
}

// compile компилирует регулярные выражения таблицы
func (t *PatternTable) compile() error {
	seen := make(map[string]bool)
	for i := range t.Fields {
		fp := &t.Fields[i]
		if fp.Field == "" {
			return fmt.Errorf("pattern table entry %d has no field", i)
		}
		if seen[fp.Field] {
			return fmt.Errorf("pattern table declares field %q twice", fp.Field)
		}
		seen[fp.Field] = true
		if fp.DataType == "" {
			fp.DataType = supplierimport.DataTypeString
		}

		fp.patterns = fp.patterns[:0]
		for _, expr := range fp.Patterns {
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("field %s: invalid pattern %q: %w", fp.Field, expr, err)
			}
			fp.patterns = append(fp.patterns, re)
		}
		fp.exclude = fp.exclude[:0]
		for _, expr := range fp.Exclude {
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("field %s: invalid exclusion %q: %w", fp.Field, expr, err)
			}
			fp.exclude = append(fp.exclude, re)
		}
	}
	return nil
}

// Field возвращает правило по имени поля
func (t *PatternTable) Field(name string) (*FieldPattern, bool) {
	for i := range t.Fields {
		if t.Fields[i].Field == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// RequiredFields возвращает обязательные поля в порядке объявления
func (t *PatternTable) RequiredFields() []string {
	var out []string
	for _, fp := range t.Fields {
		if fp.Required {
			out = append(out, fp.Field)
		}
	}
	return out
}

// ParsePatternTable разбирает таблицу правил из YAML
func ParsePatternTable(data []byte) (*PatternTable, error) {
	var table PatternTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse pattern table: %w", err)
	}
	if len(table.Fields) == 0 {
		return nil, fmt.Errorf("pattern table has no fields")
	}
	if err := table.compile(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadPatternTable читает таблицу правил из YAML файла
func LoadPatternTable(path string) (*PatternTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern table %s: %w", path, err)
	}
	return ParsePatternTable(data)
}

// DefaultPatternTable встроенные правила для Mouser, DigiKey, Farnell и типовых выгрузок
func DefaultPatternTable() *PatternTable {
	table, err := ParsePatternTable([]byte(defaultPatternsYAML))
	if err != nil {
		panic(fmt.Sprintf("builtin pattern table is invalid: %v", err))
	}
	return table
}

// normalizeHeader приводит заголовок к виду для точного сравнения
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

const defaultPatternsYAML = `
fields:
  - field: manufacturer_part_number
    data_type: string
    required: true
    exact:
      mouser: ["Mfr. #", "Mfr. No", "Mfr Part Number"]
      digikey: ["Manufacturer Part Number", "Mfr Part #"]
      farnell: ["Manufacturer Part No", "Mfr. Part No."]
      "*": ["MPN", "Manufacturer Part Number", "Part Number"]
    patterns:
      - '(?i)\bmpn\b'
      - '(?i)(mfr|mfg|manufacturer)\.?\s*(part)?\s*(#|no\.?|number)'
      - '(?i)^part\s*(#|no\.?|number)$'
    exclude:
      - '(?i)(mouser|digi-?key|farnell|supplier|distributor|customer|order\s*code)'

  - field: description
    data_type: string
    required: true
    exact:
      "*": ["Description", "Product Description", "Desc."]
    patterns:
      - '(?i)descr'
    exclude:
      - '(?i)(customer|reference|category)'

  - field: manufacturer
    data_type: string
    exact:
      mouser: ["Manufacturer"]
      digikey: ["Manufacturer"]
      farnell: ["Manufacturer"]
      "*": ["Mfr.", "Mfr", "Brand"]
    patterns:
      - '(?i)^(mfr|mfg|manufacturer|brand|maker)\.?(\s*name)?$'
    exclude:
      - '(?i)(part|#|\bno\b|number)'

  - field: supplier_part_number
    data_type: string
    exact:
      mouser: ["Mouser #", "Mouser No", "Mouser Part Number"]
      digikey: ["Digi-Key Part Number", "DigiKey Part #", "Digi-Key Part #"]
      farnell: ["Order Code", "Farnell Part No"]
      "*": ["Supplier Part Number", "SKU"]
    patterns:
      - '(?i)(mouser|digi-?key|farnell|supplier|distributor|vendor)\s*(part)?\s*(#|no\.?|number)'
      - '(?i)order\s*code'
      - '(?i)\bsku\b'
    exclude:
      - '(?i)(mfr|manufacturer)'

  - field: stock_quantity
    data_type: integer
    exact:
      mouser: ["Order Qty.", "Qty."]
      digikey: ["Quantity", "Quantity Shipped"]
      farnell: ["Quantity", "Qty Shipped"]
      "*": ["Qty", "Quantity"]
    patterns:
      - '(?i)\b(qty|quantity|shipped)\b'
    exclude:
      - '(?i)(price|back\s*order|minimum|\bmin\b|multiple|available|stock\s*level)'

  - field: unit_price
    data_type: decimal
    exact:
      mouser: ["Price (USD)", "Price (EUR)", "Unit Price"]
      digikey: ["Unit Price"]
      farnell: ["Unit Price", "Price For"]
      "*": ["Price", "Unit Cost"]
    patterns:
      - '(?i)unit\s*(price|cost)'
      - '(?i)\bprice\b'
      - '(?i)\bcost\b'
    exclude:
      - '(?i)(total|\bext\b|extended|tariff|subtotal|amount|line)'

  - field: category
    data_type: string
    exact:
      "*": ["Category", "Product Category"]
    patterns:
      - '(?i)categor'

  - field: purchase_date
    data_type: date
    exact:
      "*": ["Order Date", "Invoice Date", "Date"]
    patterns:
      - '(?i)\bdate\b'
    exclude:
      - '(?i)(ship|delivery|due|expected|code)'

  - field: package
    data_type: string
    exact:
      digikey: ["Package / Case"]
      "*": ["Package", "Case/Package", "Case"]
    patterns:
      - '(?i)\b(package|case)\b'
    exclude:
      - '(?i)(qty|quantity|packaging)'

  - field: datasheet_url
    data_type: string
    exact:
      "*": ["Datasheet", "Datasheet URL"]
    patterns:
      - '(?i)data\s*sheet'
`
