package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

func TestExtractSpecs(t *testing.T) {
	tests := []struct {
		description string
		want        supplierimport.SpecPatch
	}{
		{
			description: "CAP CER 0.1UF 50V X7R 0603",
			want:        supplierimport.SpecPatch{Package: "0603", MountingType: MountingSMD, VoltageRating: "50V"},
		},
		{
			description: "RES SMD 10K OHM 1% 1/10W 0603",
			want:        supplierimport.SpecPatch{Package: "0603", MountingType: MountingSMD, Tolerance: "±1%"},
		},
		{
			description: "IC OPAMP GP 2 CIRCUIT 8SOIC",
			want:        supplierimport.SpecPatch{Package: "SOIC-8", MountingType: MountingSMD},
		},
		{
			description: "CAP ALUM 100UF 20% 25V RADIAL",
			want:        supplierimport.SpecPatch{MountingType: MountingTHT, Tolerance: "±20%", VoltageRating: "25V"},
		},
		{
			description: "Voltage regulator 5V TO220",
			want:        supplierimport.SpecPatch{Package: "TO-220", MountingType: MountingTHT, VoltageRating: "5V"},
		},
		{
			description: "Film capacitor 1.5kV ±5%",
			want:        supplierimport.SpecPatch{Tolerance: "±5%", VoltageRating: "1.5kV"},
		},
		{
			description: "Generic thing",
			want:        supplierimport.SpecPatch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSpecs(tt.description))
		})
	}
}

func TestCanonicalPackage(t *testing.T) {
	for raw, want := range map[string]string{
		"8SOIC":  "SOIC-8",
		"8-soic": "SOIC-8",
		"SOT23":  "SOT-23",
		"sot-23": "SOT-23",
		"0805":   "0805",
		"SMA":    "SMA",
	} {
		if got := CanonicalPackage(raw); got != want {
			t.Errorf("CanonicalPackage(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCompletenessScore(t *testing.T) {
	c := &supplierimport.Component{}
	assert.Equal(t, 0, CompletenessScore(c))
	assert.Len(t, MissingAttributes(c), 6)

	c.Package = "0603"
	c.Manufacturer = "Murata"
	assert.Equal(t, 35, CompletenessScore(c))

	c.MountingType, c.Tolerance, c.VoltageRating, c.DatasheetURL = "SMD", "±10%", "50V", "https://x"
	assert.Equal(t, 100, CompletenessScore(c))
	assert.Empty(t, MissingAttributes(c))
}

func TestSpecFromAttributes(t *testing.T) {
	patch := specFromAttributes(map[string]string{
		"Package / Case":    "0603 (1608 Metric)",
		"Mounting Type":     "Surface Mount, MLCC",
		"Tolerance":         "±10%",
		"Voltage - Rated":   "50V",
		"Manufacturer":      "Murata",
		"Manufacturer Part": "GRM188",
		"Notes":             "-",
	})

	assert.Equal(t, "0603", patch.Package)
	assert.Equal(t, MountingSMD, patch.MountingType)
	assert.Equal(t, "±10%", patch.Tolerance)
	assert.Equal(t, "50V", patch.VoltageRating)
	assert.Equal(t, "Murata", patch.Manufacturer)
}

func TestSpecFromAttributes_PriorityIsDeterministic(t *testing.T) {
	attrs := map[string]string{
		"Supplier Device Package": "SOT-23-3",
		"Package / Case":          "TO-236-3, SC-59, SOT-23-3",
		"Voltage - Breakdown":     "100V",
		"Voltage - Clamping":      "150V",
		"Voltage - Rated":         "75V",
		"Tolerance (Ohms)":        "±5%",
		"Tolerance":               "±1%",
	}

	first := specFromAttributes(attrs)
	assert.Equal(t, "75V", first.VoltageRating)
	assert.Equal(t, "±1%", first.Tolerance)
	assert.Equal(t, packageFromValue("TO-236-3, SC-59, SOT-23-3"), first.Package)

	for i := 0; i < 100; i++ {
		assert.Equal(t, first, specFromAttributes(attrs))
	}

	noRated := specFromAttributes(map[string]string{
		"Voltage - Clamping":  "150V",
		"Voltage - Breakdown": "100V",
	})
	assert.Equal(t, "100V", noRated.VoltageRating, "unknown keys fall back to alphabetical order")
}
