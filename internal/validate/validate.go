// Package validate checks Source configs, price records and schema
// mappings before they enter the pipeline or persistence layer,
// grounded on original_source/scraper/app/utils/validators.py and the
// go-playground/validator struct-tag idiom from
// _examples/ternarybob-quaero/internal/workers/processing/signal_analysis_schema.go.
package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/mandi-agent/internal/models"
)

var validate = validator.New()

// messagesFor converts a validator.Struct error into human-readable
// messages in the style validators.py's functions return (a flat list
// of strings, empty meaning valid).
func messagesFor(err error) []string {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag()))
	}
	return messages
}

// SourceConfig validates a Source document, matching
// validators.py's validate_source_config: entryUrl required,
// extractionType one of the known strategies, endpoint required when
// extractionType is "api".
func SourceConfig(source *models.Source) []string {
	errors := messagesFor(validate.Struct(source))

	if source.ExtractionType == models.ExtractionTypeAPI && source.Endpoint == "" {
		errors = append(errors, "endpoint is required when extractionType is 'api'")
	}

	return errors
}

// PriceRecord validates a normalized price record, matching
// validators.py's validate_price_record: required fields present,
// prices non-negative, minPrice <= modalPrice <= maxPrice when all
// three are known.
func PriceRecord(rec models.UnifiedPriceRecord) []string {
	errors := messagesFor(validate.Struct(rec))

	if rec.MinPrice != 0 && rec.MaxPrice != 0 && rec.MinPrice > rec.MaxPrice {
		errors = append(errors, fmt.Sprintf("minPrice (%v) > maxPrice (%v)", rec.MinPrice, rec.MaxPrice))
	}
	if rec.ModalPrice != 0 && rec.MaxPrice != 0 && rec.ModalPrice > rec.MaxPrice {
		errors = append(errors, fmt.Sprintf("modalPrice (%v) > maxPrice (%v)", rec.ModalPrice, rec.MaxPrice))
	}
	if rec.MinPrice != 0 && rec.ModalPrice != 0 && rec.MinPrice > rec.ModalPrice {
		errors = append(errors, fmt.Sprintf("minPrice (%v) > modalPrice (%v)", rec.MinPrice, rec.ModalPrice))
	}

	return errors
}

// SchemaMapping validates that mapping targets only the fixed unified
// schema field set and covers every required field, matching
// validators.py's validate_schema_mapping.
func SchemaMapping(mapping models.SchemaMapping) []string {
	var errors []string

	validTargets := make(map[string]bool, len(models.UnifiedFieldOrder))
	for _, f := range models.UnifiedFieldOrder {
		validTargets[f] = true
	}
	// stateName/cropName/mandiName/date are already in UnifiedFieldOrder;
	// adding RequiredUnifiedFields again keeps every required field a valid
	// mapping target even if the two lists drift apart.
	for _, f := range models.RequiredUnifiedFields {
		validTargets[f] = true
	}

	for sourceField, targetField := range mapping.FieldMap {
		if !validTargets[targetField] {
			errors = append(errors, fmt.Sprintf(
				"mapping target %q (from %q) is not a valid unified schema field", targetField, sourceField))
		}
	}

	for _, missing := range mapping.UnmappedRequiredFields() {
		errors = append(errors, fmt.Sprintf("required field %q has no source mapping", missing))
	}

	return errors
}
