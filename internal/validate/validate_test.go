package validate

import (
	"testing"

	"github.com/ternarybob/mandi-agent/internal/models"
)

func TestSourceConfig_Valid(t *testing.T) {
	source := &models.Source{
		EntryURL:       "https://mandi.example.com",
		ExtractionType: models.ExtractionTypeAPI,
		Endpoint:       "https://mandi.example.com/api",
	}
	if errs := SourceConfig(source); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestSourceConfig_MissingEntryURL(t *testing.T) {
	source := &models.Source{}
	errs := SourceConfig(source)
	if len(errs) == 0 {
		t.Fatal("expected an error for missing entryUrl")
	}
}

func TestSourceConfig_APIRequiresEndpoint(t *testing.T) {
	source := &models.Source{EntryURL: "https://mandi.example.com", ExtractionType: models.ExtractionTypeAPI}
	errs := SourceConfig(source)
	found := false
	for _, e := range errs {
		if e == "endpoint is required when extractionType is 'api'" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing-endpoint error, got %v", errs)
	}
}

func TestPriceRecord_Valid(t *testing.T) {
	rec := models.UnifiedPriceRecord{
		CropName: "Tomato", MandiName: "Pune Mandi", StateName: "Maharashtra", Date: "2026-07-30",
		MinPrice: 1000, ModalPrice: 1500, MaxPrice: 2000,
	}
	if errs := PriceRecord(rec); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestPriceRecord_MissingRequiredFields(t *testing.T) {
	rec := models.UnifiedPriceRecord{}
	errs := PriceRecord(rec)
	if len(errs) == 0 {
		t.Fatal("expected errors for missing required fields")
	}
}

func TestPriceRecord_MinExceedsMax(t *testing.T) {
	rec := models.UnifiedPriceRecord{
		CropName: "Tomato", MandiName: "Pune Mandi", StateName: "Maharashtra", Date: "2026-07-30",
		MinPrice: 2000, MaxPrice: 1000,
	}
	errs := PriceRecord(rec)
	found := false
	for _, e := range errs {
		if e == "minPrice (2000) > maxPrice (1000)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected minPrice > maxPrice error, got %v", errs)
	}
}

func TestSchemaMapping_Valid(t *testing.T) {
	mapping := models.SchemaMapping{
		FieldMap: map[string]string{
			"crop":  "cropName",
			"mandi": "mandiName",
			"state": "stateName",
			"dt":    "date",
			"modal": "modalPrice",
		},
	}
	if errs := SchemaMapping(mapping); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestSchemaMapping_InvalidTarget(t *testing.T) {
	mapping := models.SchemaMapping{FieldMap: map[string]string{"foo": "notAField"}}
	errs := SchemaMapping(mapping)
	found := false
	for _, e := range errs {
		if e == `mapping target "notAField" (from "foo") is not a valid unified schema field` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected invalid-target error, got %v", errs)
	}
}

func TestSchemaMapping_MissingRequiredField(t *testing.T) {
	mapping := models.SchemaMapping{FieldMap: map[string]string{"crop": "cropName"}}
	errs := SchemaMapping(mapping)
	if len(errs) == 0 {
		t.Fatal("expected errors for unmapped required fields")
	}
}
