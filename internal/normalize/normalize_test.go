package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/models"
)

func ptrFloat(v float64) *float64 { return &v }

func TestNormalize_MapsFieldsAndAppliesConversions(t *testing.T) {
	raw := []map[string]any{
		{"commodity": "Wheat", "market": "Azadpur", "state": "Delhi", "price_kg": "21.5", "arrival_qty": "1,200"},
	}
	mapping := models.SchemaMapping{
		FieldMap: map[string]string{
			"commodity":   "cropName",
			"market":      "mandiName",
			"state":       "stateName",
			"price_kg":    "modalPrice",
			"arrival_qty": "arrival",
		},
		Conversions: map[string]models.FieldConversion{
			"modalPrice": {Multiply: ptrFloat(100)},
		},
	}

	records := Normalize(raw, mapping, "Agmarknet", arbor.NewLogger())
	require.Len(t, records, 1)
	assert.Equal(t, "Wheat", records[0].CropName)
	assert.Equal(t, "wheat", records[0].CropID)
	assert.Equal(t, 2150.0, records[0].ModalPrice)
	assert.Equal(t, 1200.0, records[0].Arrival)
	assert.Equal(t, DefaultPriceUnit, records[0].Unit)
	assert.Equal(t, "Agmarknet", records[0].Source)
}

func TestNormalize_DropsRecordsMissingRequiredFields(t *testing.T) {
	raw := []map[string]any{
		{"commodity": "", "price": "100"},
	}
	mapping := models.SchemaMapping{FieldMap: map[string]string{"commodity": "cropName", "price": "modalPrice"}}

	records := Normalize(raw, mapping, "", arbor.NewLogger())
	assert.Empty(t, records)
}

func TestNormalize_EmptyMappingSkipsNormalization(t *testing.T) {
	raw := []map[string]any{{"commodity": "Wheat"}}
	records := Normalize(raw, models.SchemaMapping{}, "", arbor.NewLogger())
	assert.Nil(t, records)
}

func TestNormalize_ParsesDateFormats(t *testing.T) {
	raw := []map[string]any{
		{"crop": "Onion", "mkt": "Vashi", "st": "Maharashtra", "mp": "1500", "dt": "15-03-2024"},
	}
	mapping := models.SchemaMapping{
		FieldMap: map[string]string{"crop": "cropName", "mkt": "mandiName", "st": "stateName", "mp": "modalPrice", "dt": "date"},
	}

	records := Normalize(raw, mapping, "", arbor.NewLogger())
	require.Len(t, records, 1)
	assert.Equal(t, "2024-03-15", records[0].Date)
}

func TestNameToID_NormalizesDisplayNames(t *testing.T) {
	assert.Equal(t, "azadpur-mandi", nameToID("Azadpur Mandi"))
	assert.Equal(t, "delhi", nameToID(" Delhi "))
}
