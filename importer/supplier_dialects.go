package importer

import (
	"regexp"
	"strings"
)

// SupplierKind закрытый набор поддерживаемых форматов поставщиков
type SupplierKind string

const (
	SupplierGeneric SupplierKind = "generic"
	SupplierMouser  SupplierKind = "mouser"
	SupplierDigiKey SupplierKind = "digikey"
	SupplierFarnell SupplierKind = "farnell"
)

// SupplierDialect различия выгрузок конкретного поставщика
type SupplierDialect interface {
	Kind() SupplierKind
	// SKUPrefix префикс складского кода для новых компонентов
	SKUPrefix() string
	// CleanSupplierPartNumber нормализует номер позиции поставщика
	CleanSupplierPartNumber(raw string) string
	// CleanPartNumber нормализует manufacturer part number
	CleanPartNumber(raw string) string
	// CleanDescription нормализует описание
	CleanDescription(raw string) string
}

var (
	digikeySuffix   = regexp.MustCompile(`(?i)-ND$`)
	mouserNoise     = regexp.MustCompile(`(?i)^(mfr\.?\s*#:?|mouser\s*#:?)\s*`)
	farnellNoise    = regexp.MustCompile(`[^0-9A-Za-z-]`)
	descriptionRuns = regexp.MustCompile(`\s*[;|]\s*`)
)

// DialectFor выбирает диалект по идентификатору поставщика
func DialectFor(supplierID string) SupplierDialect {
	key := strings.ToLower(strings.TrimSpace(supplierID))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)

	switch {
	case strings.HasPrefix(key, "mouser"):
		return mouserDialect{}
	case strings.HasPrefix(key, "digikey"):
		return digikeyDialect{}
	case strings.HasPrefix(key, "farnell"), strings.HasPrefix(key, "element14"), strings.HasPrefix(key, "newark"):
		return farnellDialect{}
	default:
		return genericDialect{prefix: genericPrefix(key)}
	}
}

// genericPrefix строит префикс SKU из идентификатора неизвестного поставщика
func genericPrefix(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return b.String()
}

type genericDialect struct{ prefix string }

func (d genericDialect) Kind() SupplierKind { return SupplierGeneric }
func (d genericDialect) SKUPrefix() string  { return d.prefix }
func (d genericDialect) CleanSupplierPartNumber(raw string) string {
	return strings.TrimSpace(raw)
}
func (d genericDialect) CleanPartNumber(raw string) string { return strings.TrimSpace(raw) }
func (d genericDialect) CleanDescription(raw string) string {
	return collapseSpaces(descriptionRuns.ReplaceAllString(raw, ", "))
}

type mouserDialect struct{}

func (mouserDialect) Kind() SupplierKind { return SupplierMouser }
func (mouserDialect) SKUPrefix() string  { return "MOU" }
func (mouserDialect) CleanSupplierPartNumber(raw string) string {
	return strings.TrimSpace(mouserNoise.ReplaceAllString(strings.TrimSpace(raw), ""))
}
func (mouserDialect) CleanPartNumber(raw string) string {
	return strings.TrimSpace(mouserNoise.ReplaceAllString(strings.TrimSpace(raw), ""))
}
func (mouserDialect) CleanDescription(raw string) string {
	return collapseSpaces(descriptionRuns.ReplaceAllString(raw, ", "))
}

type digikeyDialect struct{}

func (digikeyDialect) Kind() SupplierKind { return SupplierDigiKey }
func (digikeyDialect) SKUPrefix() string  { return "DK" }

// CleanSupplierPartNumber убирает суффикс -ND из номеров Digi-Key
func (digikeyDialect) CleanSupplierPartNumber(raw string) string {
	return digikeySuffix.ReplaceAllString(strings.TrimSpace(raw), "")
}
func (digikeyDialect) CleanPartNumber(raw string) string { return strings.TrimSpace(raw) }
func (digikeyDialect) CleanDescription(raw string) string {
	// Digi-Key пишет описания в верхнем регистре через пробелы, оставляем как есть
	return collapseSpaces(raw)
}

type farnellDialect struct{}

func (farnellDialect) Kind() SupplierKind { return SupplierFarnell }
func (farnellDialect) SKUPrefix() string  { return "FAR" }

// CleanSupplierPartNumber order code Farnell: только цифры и буквы
func (farnellDialect) CleanSupplierPartNumber(raw string) string {
	return farnellNoise.ReplaceAllString(strings.TrimSpace(raw), "")
}
func (farnellDialect) CleanPartNumber(raw string) string { return strings.TrimSpace(raw) }
func (farnellDialect) CleanDescription(raw string) string {
	return collapseSpaces(descriptionRuns.ReplaceAllString(raw, ", "))
}

// collapseSpaces схлопывает пробельные символы
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
