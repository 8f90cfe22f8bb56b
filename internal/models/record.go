package models

// UnifiedFieldOrder is the exact unified schema field order spec.md §6
// requires for CSV headers and struct field ordering.
var UnifiedFieldOrder = []string{
	"cropId", "cropName", "mandiId", "mandiName", "stateId", "stateName",
	"date", "minPrice", "maxPrice", "modalPrice", "unit", "arrival", "source",
}

// UnifiedPriceRecord is the canonical output of the normalizer (C16),
// persisted to the "prices" collection.
type UnifiedPriceRecord struct {
	CropID    string  `json:"cropId" csv:"cropId"`
	CropName  string  `json:"cropName" csv:"cropName" validate:"required"`
	MandiID   string  `json:"mandiId" csv:"mandiId"`
	MandiName string  `json:"mandiName" csv:"mandiName" validate:"required"`
	StateID   string  `json:"stateId" csv:"stateId"`
	StateName string  `json:"stateName" csv:"stateName" validate:"required"`
	Date      string  `json:"date" csv:"date" validate:"required"` // YYYY-MM-DD
	MinPrice  float64 `json:"minPrice" csv:"minPrice" validate:"gte=0"`
	MaxPrice  float64 `json:"maxPrice" csv:"maxPrice" validate:"gte=0"`
	ModalPrice float64 `json:"modalPrice" csv:"modalPrice" validate:"gte=0"`
	Unit      string  `json:"unit" csv:"unit"` // default "quintal"
	Arrival   float64 `json:"arrival" csv:"arrival"`
	Source    string  `json:"source" csv:"source"`
}

// Valid reports whether the record satisfies spec §3's invariants:
// non-empty cropName/mandiName/stateName/date, non-negative prices, and
// (when all three prices are known/non-zero) minPrice <= modalPrice <=
// maxPrice.
func (r UnifiedPriceRecord) Valid() (bool, []string) {
	var problems []string

	if r.CropName == "" {
		problems = append(problems, "cropName is empty")
	}
	if r.MandiName == "" {
		problems = append(problems, "mandiName is empty")
	}
	if r.StateName == "" {
		problems = append(problems, "stateName is empty")
	}
	if r.Date == "" {
		problems = append(problems, "date is empty")
	}
	if r.MinPrice < 0 || r.MaxPrice < 0 || r.ModalPrice < 0 {
		problems = append(problems, "a price field is negative")
	}
	if r.MinPrice != 0 && r.MaxPrice != 0 && r.ModalPrice != 0 {
		if !(r.MinPrice <= r.ModalPrice && r.ModalPrice <= r.MaxPrice) {
			problems = append(problems, "minPrice <= modalPrice <= maxPrice violated")
		}
	}

	return len(problems) == 0, problems
}
