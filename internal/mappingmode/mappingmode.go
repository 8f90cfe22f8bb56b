// Package mappingmode runs the LM oracle over a sample of raw extracted
// records to build a SchemaMapping onto the unified price schema, grounded
// on original_source's app/ai/mapping_mode.py.
package mappingmode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/mandi-agent/internal/llm"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

const sampleDataLimit = 3

// rawFieldConversion/rawSchemaMapping mirror mapping_mode.py's Pydantic
// SchemaMapping/FieldConversion wire shape, snake_case JSON keys included.
type rawFieldConversion struct {
	Multiply   *float64 `json:"multiply"`
	DateFormat string   `json:"date_format"`
	Comment    string   `json:"comment"`
}

type rawSchemaMapping struct {
	SchemaMapping  map[string]string             `json:"schema_mapping"`
	Conversions    map[string]rawFieldConversion `json:"conversions"`
	Confidence     float64                       `json:"confidence"`
	UnmappedFields []string                      `json:"unmapped_fields"`
	Notes          string                        `json:"notes"`
}

var mappingSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"schema_mapping": map[string]any{
			"type":        "object",
			"description": "Map of raw field names to unified schema field names",
		},
		"conversions": map[string]any{
			"type":        "object",
			"description": "Conversion rules keyed by unified field name",
		},
		"confidence":      map[string]any{"type": "number", "description": "Confidence score between 0.0 and 1.0"},
		"unmapped_fields": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"notes":           map[string]any{"type": "string"},
	},
	"required": []string{"schema_mapping", "confidence"},
}

const mappingSystemPrompt = `You are a data mapping specialist. Your job is to map raw field names from Indian agricultural market (mandi) data sources to a unified schema.

The unified schema has these fields:
- cropName: Name of the crop/commodity (e.g., "Wheat", "Rice", "Onion")
- mandiName: Name of the APMC market (e.g., "Azadpur", "Vashi")
- stateName: Indian state name (e.g., "Maharashtra", "Delhi")
- date: Date of the price record
- minPrice: Minimum price in INR
- maxPrice: Maximum price in INR
- modalPrice: Modal (most common) price in INR
- unit: Price unit (should normalize to "quintal")
- arrival: Quantity arrived at the market
- source: Data source identifier
- cropId: Unique crop identifier (can be derived)
- mandiId: Unique mandi identifier (can be derived)
- stateId: Unique state identifier (can be derived)

You must also identify any unit conversions needed (e.g., kg to quintal = multiply by 100) and date format patterns.

Return structured JSON output.`

const mappingUserPromptTemplate = `Map the following raw data fields to the unified mandi price schema.

## Raw Field Names
%s

## Sample Data (first 3 records)
%s

## Source Info
Source URL: %s
Extraction type: %s

## Instructions
1. Map each raw field to the corresponding unified schema field
2. Identify any fields that need conversion (unit, date format, etc.)
3. Note any raw fields that have no mapping (they will be dropped)
4. Set confidence score (0.0 to 1.0)

Return your mapping as JSON.`

// Run generates a SchemaMapping from a sample of raw extracted records.
// Returns nil, nil when rawFields is empty (logged as a warning only) or the
// oracle call fails (recorded via rc.AddError) — both are "no mapping"
// outcomes, not Go errors.
func Run(ctx context.Context, oracle llm.Oracle, rc *runctx.RunContext, rawFields []string, sampleData []map[string]any, sourceURL, extractionType string) (*models.SchemaMapping, error) {
	if len(rawFields) == 0 {
		rc.Logger.Warn().Msg("mappingmode: no raw fields provided — cannot generate mapping")
		return nil, nil
	}

	if len(sampleData) > sampleDataLimit {
		sampleData = sampleData[:sampleDataLimit]
	}

	rc.Logger.Info().Int("fieldCount", len(rawFields)).Msg("mappingmode: running AI schema mapping")

	rawFieldsJSON, err := json.Marshal(rawFields)
	if err != nil {
		return nil, fmt.Errorf("mappingmode: marshal raw fields: %w", err)
	}
	sampleJSON, err := json.MarshalIndent(sampleData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mappingmode: marshal sample data: %w", err)
	}

	raw, err := oracle.Generate(ctx, llm.Request{
		System: mappingSystemPrompt,
		User:   fmt.Sprintf(mappingUserPromptTemplate, string(rawFieldsJSON), string(sampleJSON), sourceURL, extractionType),
		Schema: mappingSchema,
	})
	if err != nil {
		rc.AddError(sourceURL, fmt.Sprintf("AI mapping error: %v", err), false)
		return nil, nil
	}

	var parsed rawSchemaMapping
	if err := json.Unmarshal(raw, &parsed); err != nil {
		rc.AddError(sourceURL, fmt.Sprintf("AI mapping error: malformed JSON response: %v", err), false)
		return nil, nil
	}

	rc.Logger.Info().
		Int("mapped", len(parsed.SchemaMapping)).
		Int("unmapped", len(parsed.UnmappedFields)).
		Float64("confidence", parsed.Confidence).
		Msg("mappingmode: AI mapping result")

	return toSchemaMapping(parsed), nil
}

func toSchemaMapping(parsed rawSchemaMapping) *models.SchemaMapping {
	mapping := &models.SchemaMapping{
		FieldMap:       parsed.SchemaMapping,
		Confidence:     parsed.Confidence,
		UnmappedFields: parsed.UnmappedFields,
		Notes:          parsed.Notes,
	}
	if len(parsed.Conversions) > 0 {
		mapping.Conversions = make(map[string]models.FieldConversion, len(parsed.Conversions))
		for field, conv := range parsed.Conversions {
			mapping.Conversions[field] = models.FieldConversion{
				Multiply:   conv.Multiply,
				DateFormat: conv.DateFormat,
				Comment:    conv.Comment,
			}
		}
	}
	return mapping
}
