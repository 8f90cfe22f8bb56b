// Package normalize applies a Source's SchemaMapping and per-field
// Conversions to raw extracted records, producing UnifiedPriceRecords,
// grounded on original_source/scraper/app/scraping/normalizer.py.
package normalize

import (
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/dateutil"
	"github.com/ternarybob/mandi-agent/internal/models"
)

// DefaultPriceUnit is the unit stamped on records whose mapping doesn't
// supply one, matching original_source's core/constants.py DEFAULT_PRICE_UNIT.
const DefaultPriceUnit = "quintal"

var priceFields = []string{"minPrice", "maxPrice", "modalPrice"}

// Normalize applies mapping's field map and conversions to rawRecords,
// returning the subset that satisfy the minimum-required-fields rule
// (non-empty cropName and a non-zero modalPrice). An empty mapping skips
// normalization entirely (the original's "no schema mapping — returning
// raw records" fallback can't apply here since UnifiedPriceRecord is a
// concrete struct, not a passthrough map).
func Normalize(rawRecords []map[string]any, mapping models.SchemaMapping, sourceName string, logger arbor.ILogger) []models.UnifiedPriceRecord {
	if len(mapping.FieldMap) == 0 {
		logger.Warn().Msg("normalize: no schema mapping provided — skipping normalization")
		return nil
	}

	var normalized []models.UnifiedPriceRecord
	for _, raw := range rawRecords {
		fields := mapFields(raw, mapping.FieldMap)
		applyConversions(fields, mapping.Conversions)
		normalizeDate(fields)
		normalizePriceFields(fields)
		normalizeArrival(fields)
		applyDefaults(fields, sourceName)
		applyDerivedIDs(fields)

		record := toRecord(fields)
		if record.CropName != "" && record.ModalPrice != 0 {
			normalized = append(normalized, record)
		}
	}

	logger.Info().Int("normalized", len(normalized)).Int("raw", len(rawRecords)).Msg("normalize: complete")
	return normalized
}

// fieldSet is a loosely-typed working record, mirroring the Python
// normalizer's plain dict before it's folded into a UnifiedPriceRecord.
type fieldSet map[string]any

func mapFields(raw map[string]any, fieldMap map[string]string) fieldSet {
	fields := fieldSet{}
	for rawField, unifiedField := range fieldMap {
		if v, ok := raw[rawField]; ok {
			fields[unifiedField] = v
		}
	}
	return fields
}

func applyConversions(fields fieldSet, conversions map[string]models.FieldConversion) {
	for fieldName, conv := range conversions {
		value, ok := fields[fieldName]
		if !ok {
			continue
		}

		if conv.Multiply != nil {
			if num, ok := toFloat(value); ok {
				fields[fieldName] = num * *conv.Multiply
			}
		}

		if conv.DateFormat != "" && fieldName == "date" {
			if parsed, ok := dateutil.ParseDate(toString(value)); ok {
				fields[fieldName] = dateutil.ToISOString(parsed)
			}
		}
	}
}

func normalizeDate(fields fieldSet) {
	v, ok := fields["date"]
	if !ok {
		return
	}
	if parsed, ok := dateutil.ParseDate(toString(v)); ok {
		fields["date"] = dateutil.ToISOString(parsed)
	}
}

func normalizePriceFields(fields fieldSet) {
	for _, field := range priceFields {
		v, ok := fields[field]
		if !ok {
			continue
		}
		num, parseOK := toFloat(stripThousandsSeparators(v))
		if !parseOK {
			fields[field] = 0.0
			continue
		}
		fields[field] = num
	}
}

func normalizeArrival(fields fieldSet) {
	v, ok := fields["arrival"]
	if !ok {
		return
	}
	num, parseOK := toFloat(stripThousandsSeparators(v))
	if !parseOK {
		fields["arrival"] = nil
		return
	}
	fields["arrival"] = num
}

func applyDefaults(fields fieldSet, sourceName string) {
	if _, ok := fields["unit"]; !ok {
		fields["unit"] = DefaultPriceUnit
	}
	if _, ok := fields["source"]; !ok {
		if sourceName != "" {
			fields["source"] = sourceName
		} else {
			fields["source"] = "other"
		}
	}
}

func applyDerivedIDs(fields fieldSet) {
	if _, ok := fields["cropId"]; !ok {
		if name, ok := fields["cropName"]; ok {
			fields["cropId"] = nameToID(toString(name))
		}
	}
	if _, ok := fields["mandiId"]; !ok {
		if name, ok := fields["mandiName"]; ok {
			fields["mandiId"] = nameToID(toString(name))
		}
	}
	if _, ok := fields["stateId"]; !ok {
		if name, ok := fields["stateName"]; ok {
			fields["stateId"] = nameToID(toString(name))
		}
	}
}

// nameToID converts a display name to a URL-safe ID, ported from
// normalizer.py's _name_to_id.
func nameToID(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, ",", "")
	return name
}

func stripThousandsSeparators(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		if val == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toRecord(fields fieldSet) models.UnifiedPriceRecord {
	record := models.UnifiedPriceRecord{
		CropID:    toString(fields["cropId"]),
		CropName:  toString(fields["cropName"]),
		MandiID:   toString(fields["mandiId"]),
		MandiName: toString(fields["mandiName"]),
		StateID:   toString(fields["stateId"]),
		StateName: toString(fields["stateName"]),
		Date:      toString(fields["date"]),
		Unit:      toString(fields["unit"]),
		Source:    toString(fields["source"]),
	}
	record.MinPrice, _ = toFloat(fields["minPrice"])
	record.MaxPrice, _ = toFloat(fields["maxPrice"])
	record.ModalPrice, _ = toFloat(fields["modalPrice"])
	if arrival, ok := fields["arrival"].(float64); ok {
		record.Arrival = arrival
	}
	return record
}
