package enrichment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// Способы монтажа
const (
	MountingSMD = "SMD"
	MountingTHT = "THT"
)

var (
	packagePattern = regexp.MustCompile(`(?i)\b(` +
		`0201|0402|0603|0805|1206|1210|1812|2010|2512|` +
		`\d{1,2}-?(?:SOIC|TSSOP|SSOP|DIP|QFN|LQFP|TQFP)|` +
		`SOT-?\d{2,3}(?:-\d)?|SOIC-?\d{1,2}|TSSOP-?\d{1,2}|SSOP-?\d{1,2}|QFN-?\d{1,2}|` +
		`LQFP-?\d{2,3}|TQFP-?\d{2,3}|DIP-?\d{1,2}|BGA-?\d{1,4}|` +
		`TO-?220(?:AB|F)?|TO-?92|TO-?247|TO-?263|DPAK|D2PAK|` +
		`DO-?214(?:AA|AB|AC)?|DO-?41|DO-?35|SOD-?\d{2,3}|SMA|SMB|SMC)\b`)
	leadingPinsPattern = regexp.MustCompile(`^(\d{1,2})-?([A-Z]+)$`)
	missingDashPattern = regexp.MustCompile(`^(SOT|SOIC|TSSOP|SSOP|QFN|LQFP|TQFP|DIP|BGA|TO|DO|SOD)(\d)`)

	tolerancePattern = regexp.MustCompile(`(?:±|\+/-)?\s?(\d+(?:\.\d+)?)\s?%`)
	voltagePattern   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?(kV|V)(?:DC|AC)?\b`)

	// attributePriority известные названия атрибутов, более точные раньше общих.
	// Остальные ключи идут после них по алфавиту.
	attributePriority = []string{
		"mounting type", "mounting style", "mounting",
		"package / case", "package/case", "case/package", "package", "case",
		"supplier device package",
		"tolerance",
		"voltage - rated", "voltage rating", "rated voltage", "voltage - supply", "voltage",
		"datasheet", "datasheets",
		"manufacturer",
	}

	throughHoleWords = []string{"THROUGH HOLE", "THT", "AXIAL", "RADIAL"}
	surfaceWords     = []string{"SURFACE MOUNT", "SMD", "SMT"}
)

// ExtractSpecs извлекает технические атрибуты из описания
func ExtractSpecs(description string) supplierimport.SpecPatch {
	var patch supplierimport.SpecPatch
	upper := strings.ToUpper(description)

	if m := packagePattern.FindString(description); m != "" {
		patch.Package = CanonicalPackage(m)
	}
	patch.MountingType = mountingFromText(upper)
	if patch.MountingType == "" {
		patch.MountingType = InferMounting(patch.Package)
	}
	if m := tolerancePattern.FindStringSubmatch(description); m != nil {
		patch.Tolerance = "±" + m[1] + "%"
	}
	if m := voltagePattern.FindStringSubmatch(description); m != nil {
		unit := "V"
		if strings.EqualFold(m[2], "kV") {
			unit = "kV"
		}
		patch.VoltageRating = m[1] + unit
	}

	return patch
}

// CanonicalPackage приводит код корпуса к виду SOIC-8, SOT-23, 0603
func CanonicalPackage(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if m := leadingPinsPattern.FindStringSubmatch(code); m != nil {
		return m[2] + "-" + m[1]
	}
	return missingDashPattern.ReplaceAllString(code, "$1-$2")
}

// InferMounting определяет способ монтажа по корпусу
func InferMounting(pkg string) string {
	if pkg == "" {
		return ""
	}
	code := strings.ToUpper(pkg)
	switch {
	case strings.HasPrefix(code, "DIP"),
		strings.HasPrefix(code, "TO-220"),
		strings.HasPrefix(code, "TO-92"),
		strings.HasPrefix(code, "TO-247"),
		code == "DO-41", code == "DO-35":
		return MountingTHT
	default:
		return MountingSMD
	}
}

func mountingFromText(upper string) string {
	for _, w := range throughHoleWords {
		if containsWord(upper, w) {
			return MountingTHT
		}
	}
	for _, w := range surfaceWords {
		if containsWord(upper, w) {
			return MountingSMD
		}
	}
	return ""
}

// containsWord ищет слово целиком, без совпадений внутри других слов
func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isAlnum(text[start-1])) && (end == len(text) || !isAlnum(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}

// orderedAttributeKeys возвращает ключи в порядке attributePriority, чтобы результат не зависел от обхода map
func orderedAttributeKeys(attrs map[string]string) []string {
	rank := func(key string) int {
		k := strings.ToLower(strings.TrimSpace(key))
		for i, known := range attributePriority {
			if k == known {
				return i
			}
		}
		return len(attributePriority)
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// specFromAttributes извлекает атрибуты из пар «название: значение» поставщика или страницы
func specFromAttributes(attrs map[string]string) supplierimport.SpecPatch {
	var patch supplierimport.SpecPatch
	for _, key := range orderedAttributeKeys(attrs) {
		value := strings.TrimSpace(attrs[key])
		if value == "" || value == "-" {
			continue
		}
		k := strings.ToLower(key)
		switch {
		case strings.Contains(k, "mount"):
			if patch.MountingType == "" {
				patch.MountingType = normalizeMounting(value)
			}
		case strings.Contains(k, "package") || strings.Contains(k, "case"):
			if patch.Package == "" {
				patch.Package = packageFromValue(value)
			}
		case strings.Contains(k, "tolerance"):
			if patch.Tolerance == "" {
				patch.Tolerance = value
			}
		case strings.Contains(k, "voltage"):
			if patch.VoltageRating == "" {
				patch.VoltageRating = value
			}
		case strings.Contains(k, "datasheet"):
			if patch.DatasheetURL == "" && strings.HasPrefix(value, "http") {
				patch.DatasheetURL = value
			}
		case strings.Contains(k, "manufacturer") && !strings.Contains(k, "part"):
			if patch.Manufacturer == "" {
				patch.Manufacturer = value
			}
		}
	}
	return patch
}

func packageFromValue(value string) string {
	if m := packagePattern.FindString(value); m != "" {
		return CanonicalPackage(m)
	}
	return value
}

func normalizeMounting(value string) string {
	if m := mountingFromText(strings.ToUpper(value)); m != "" {
		return m
	}
	return value
}

// fillEmpty дополняет dst значениями из src только там, где dst пуст
func fillEmpty(dst *supplierimport.SpecPatch, src supplierimport.SpecPatch) {
	set := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	set(&dst.Package, src.Package)
	set(&dst.MountingType, src.MountingType)
	set(&dst.Tolerance, src.Tolerance)
	set(&dst.VoltageRating, src.VoltageRating)
	set(&dst.Manufacturer, src.Manufacturer)
	set(&dst.DatasheetURL, src.DatasheetURL)
}
