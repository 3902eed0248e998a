package enrichment

import (
	"strings"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// Названия целевых атрибутов
const (
	AttrPackage       = "package"
	AttrMountingType  = "mounting_type"
	AttrTolerance     = "tolerance"
	AttrVoltageRating = "voltage_rating"
	AttrManufacturer  = "manufacturer"
	AttrDatasheetURL  = "datasheet_url"
)

type weightedAttribute struct {
	name   string
	weight int
	value  func(c *supplierimport.Component) string
}

// веса в сумме дают 100
var targetAttributes = []weightedAttribute{
	{AttrPackage, 25, func(c *supplierimport.Component) string { return c.Package }},
	{AttrMountingType, 15, func(c *supplierimport.Component) string { return c.MountingType }},
	{AttrTolerance, 20, func(c *supplierimport.Component) string { return c.Tolerance }},
	{AttrVoltageRating, 20, func(c *supplierimport.Component) string { return c.VoltageRating }},
	{AttrManufacturer, 10, func(c *supplierimport.Component) string { return c.Manufacturer }},
	{AttrDatasheetURL, 10, func(c *supplierimport.Component) string { return c.DatasheetURL }},
}

// CompletenessScore взвешенный процент заполненных технических атрибутов
func CompletenessScore(c *supplierimport.Component) int {
	score := 0
	for _, attr := range targetAttributes {
		if strings.TrimSpace(attr.value(c)) != "" {
			score += attr.weight
		}
	}
	return score
}

// MissingAttributes возвращает незаполненные целевые атрибуты
func MissingAttributes(c *supplierimport.Component) []string {
	var missing []string
	for _, attr := range targetAttributes {
		if strings.TrimSpace(attr.value(c)) == "" {
			missing = append(missing, attr.name)
		}
	}
	return missing
}

// applicable оставляет в патче только поля, пустые у компонента
func applicable(c *supplierimport.Component, patch supplierimport.SpecPatch) supplierimport.SpecPatch {
	keep := func(current, value string) string {
		if strings.TrimSpace(current) != "" {
			return ""
		}
		return value
	}
	return supplierimport.SpecPatch{
		Package:       keep(c.Package, patch.Package),
		MountingType:  keep(c.MountingType, patch.MountingType),
		Tolerance:     keep(c.Tolerance, patch.Tolerance),
		VoltageRating: keep(c.VoltageRating, patch.VoltageRating),
		Manufacturer:  keep(c.Manufacturer, patch.Manufacturer),
		DatasheetURL:  keep(c.DatasheetURL, patch.DatasheetURL),
	}
}

// patchFields перечисляет заполненные поля патча
func patchFields(p supplierimport.SpecPatch) []string {
	var fields []string
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, name)
		}
	}
	add(AttrPackage, p.Package)
	add(AttrMountingType, p.MountingType)
	add(AttrTolerance, p.Tolerance)
	add(AttrVoltageRating, p.VoltageRating)
	add(AttrManufacturer, p.Manufacturer)
	add(AttrDatasheetURL, p.DatasheetURL)
	return fields
}
