// Package models defines the data model of spec.md §3: Source, the
// discovery candidate types, ExtractionConfig, SchemaMapping,
// UnifiedPriceRecord and RunLog.
package models

import "time"

// ExtractionType is the strategy a Source uses to retrieve price data.
type ExtractionType string

const (
	ExtractionTypeAPI        ExtractionType = "api"
	ExtractionTypeHTMLTable  ExtractionType = "html_table"
	ExtractionTypePDFExcel   ExtractionType = "pdf_excel"
	ExtractionTypeUndefined  ExtractionType = "undefined"
)

// HealthStatus is the Source health state machine of spec.md §4.16.
type HealthStatus string

const (
	HealthOK     HealthStatus = "OK"
	HealthStale  HealthStatus = "STALE"
	HealthBroken HealthStatus = "BROKEN"
)

// FieldConversion describes a per-field transform applied by the normalizer
// (C16) after raw-to-unified field mapping.
type FieldConversion struct {
	Multiply   *float64 `json:"multiply,omitempty"`
	DateFormat string   `json:"dateFormat,omitempty"`
	Comment    string   `json:"comment,omitempty"`
}

// SchemaMapping maps a source's raw field names onto the fixed unified
// field set, with optional per-field conversions.
type SchemaMapping struct {
	// FieldMap is raw_field -> unified_field. Unified field names are drawn
	// from the fixed set: cropName, mandiName, stateName, date, minPrice,
	// maxPrice, modalPrice, unit, arrival, source, cropId, mandiId,
	// stateId, cropGroup.
	FieldMap map[string]string `json:"fieldMap"`

	// Conversions is keyed by unified field name.
	Conversions map[string]FieldConversion `json:"conversions,omitempty"`

	Confidence   float64  `json:"mappingConfidence"`
	UnmappedFields []string `json:"unmappedFields,omitempty"`
	Notes        string   `json:"mappingNotes,omitempty"`
}

// RequiredUnifiedFields are the fields spec §3 requires a SchemaMapping to
// cover; missing ones are reported, not fatal.
var RequiredUnifiedFields = []string{"cropName", "mandiName", "stateName", "date", "modalPrice"}

// UnmappedRequiredFields returns the subset of RequiredUnifiedFields that
// have no raw field mapped to them.
func (m SchemaMapping) UnmappedRequiredFields() []string {
	mapped := make(map[string]bool, len(m.FieldMap))
	for _, unified := range m.FieldMap {
		mapped[unified] = true
	}
	var missing []string
	for _, f := range RequiredUnifiedFields {
		if !mapped[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// PaginationMode is the API pagination strategy of spec §4.11.
type PaginationMode string

const (
	PaginationNone   PaginationMode = "none"
	PaginationPage   PaginationMode = "page"
	PaginationOffset PaginationMode = "offset"
)

// APIConfig is the api-variant ExtractionConfig payload.
type APIConfig struct {
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"endpointMethod"` // GET|POST
	Params          map[string]string `json:"endpointParams,omitempty"`
	Headers         map[string]string `json:"endpointHeaders,omitempty"`
	PostData        string            `json:"endpointPostData,omitempty"`
	PostContentType string            `json:"postContentType,omitempty"`
	Paginate        bool              `json:"paginate"`
	PaginationMode  PaginationMode    `json:"paginationMode,omitempty" validate:"omitempty,oneof=none page offset"`
}

// HTMLConfig is the html_table-variant ExtractionConfig payload.
type HTMLConfig struct {
	PageURL      string   `json:"htmlPageUrl"`
	Selector     string   `json:"htmlSelector"`
	TableHeaders []string `json:"htmlTableHeaders,omitempty"`
}

// FileConfig is the pdf_excel-variant ExtractionConfig payload.
type FileConfig struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"` // pdf|xlsx|xls|csv
}

// MinDiscoveryConfidence is the rejection threshold spec §3 names:
// ExtractionConfig with confidence below this is rejected.
const MinDiscoveryConfidence = 0.6

// ExtractionConfig is a closed-variant sum type (spec §9 design note) over
// the three extraction strategies, produced by C11 (discovery mode).
type ExtractionConfig struct {
	ExtractionType ExtractionType `json:"extractionType"`
	API            *APIConfig     `json:"api,omitempty"`
	HTML           *HTMLConfig    `json:"html,omitempty"`
	File           *FileConfig    `json:"file,omitempty"`
	Confidence     float64        `json:"aiConfidence"`
	Reasoning      string         `json:"aiReasoning"`
}

// Source is the persisted entity of spec.md §3, keyed by EntryURL.
type Source struct {
	ID             string         `json:"id"`
	EntryURL       string         `json:"entryUrl" validate:"required,url"`
	BaseURL        string         `json:"baseUrl"`
	Name           string         `json:"name,omitempty"`
	Region         string         `json:"region,omitempty"`
	ExtractionType ExtractionType `json:"extractionType" validate:"omitempty,oneof=api html_table pdf_excel undefined"`

	// Strategy configuration, populated once discovery (C9/C11) succeeds.
	Endpoint        string            `json:"endpoint,omitempty"`
	EndpointMethod  string            `json:"endpointMethod,omitempty"`
	EndpointParams  map[string]string `json:"endpointParams,omitempty"`
	EndpointHeaders map[string]string `json:"endpointHeaders,omitempty"`
	EndpointPostData string           `json:"endpointPostData,omitempty"`
	PostContentType  string           `json:"postContentType,omitempty"`
	Paginate         bool             `json:"paginate,omitempty"`
	PaginationMode   PaginationMode   `json:"paginationMode,omitempty"`

	HTMLPageURL      string   `json:"htmlPageUrl,omitempty"`
	HTMLSelector     string   `json:"htmlSelector,omitempty"`
	HTMLTableHeaders []string `json:"htmlTableHeaders,omitempty"`

	FileURL  string `json:"fileUrl,omitempty"`
	FileType string `json:"fileType,omitempty"`

	SchemaMapping SchemaMapping              `json:"schemaMapping"`
	Conversions   map[string]FieldConversion `json:"conversions,omitempty"`

	AIConfidence     float64 `json:"aiConfidence"`
	AIReasoning      string  `json:"aiReasoning,omitempty"`
	MappingConfidence float64 `json:"mappingConfidence"`
	UnmappedFields   []string `json:"unmappedFields,omitempty"`
	MappingNotes     string   `json:"mappingNotes,omitempty"`

	HealthStatus    HealthStatus `json:"healthStatus"`
	HealthUpdatedAt time.Time    `json:"healthUpdatedAt"`
	LastSuccessAt   *time.Time   `json:"lastSuccessAt,omitempty"`
	LastError       string       `json:"lastError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasConfig reports whether the source already has an ExtractionConfig
// (populated either via discovery or via CSV input), so the mode runner
// (C17) can skip re-running discovery for it.
func (s *Source) HasConfig() bool {
	switch s.ExtractionType {
	case ExtractionTypeAPI:
		return s.Endpoint != ""
	case ExtractionTypeHTMLTable:
		return s.HTMLPageURL != "" && s.HTMLSelector != ""
	case ExtractionTypePDFExcel:
		return s.FileURL != ""
	default:
		return false
	}
}

// ApplyExtractionConfig copies an ExtractionConfig's variant fields onto
// the Source, per spec §3's "candidates copied into ExtractionConfig owned
// by Source thereafter" ownership rule.
func (s *Source) ApplyExtractionConfig(cfg ExtractionConfig) {
	s.ExtractionType = cfg.ExtractionType
	s.AIConfidence = cfg.Confidence
	s.AIReasoning = cfg.Reasoning

	switch cfg.ExtractionType {
	case ExtractionTypeAPI:
		if cfg.API != nil {
			s.Endpoint = cfg.API.Endpoint
			s.EndpointMethod = cfg.API.Method
			s.EndpointParams = cfg.API.Params
			s.EndpointHeaders = cfg.API.Headers
			s.EndpointPostData = cfg.API.PostData
			s.PostContentType = cfg.API.PostContentType
			s.Paginate = cfg.API.Paginate
			s.PaginationMode = cfg.API.PaginationMode
		}
	case ExtractionTypeHTMLTable:
		if cfg.HTML != nil {
			s.HTMLPageURL = cfg.HTML.PageURL
			s.HTMLSelector = cfg.HTML.Selector
			s.HTMLTableHeaders = cfg.HTML.TableHeaders
		}
	case ExtractionTypePDFExcel:
		if cfg.File != nil {
			s.FileURL = cfg.File.FileURL
			s.FileType = cfg.File.FileType
		}
	}
}

// ApplySchemaMapping copies a SchemaMapping (from C12, mapping mode) onto
// the Source.
func (s *Source) ApplySchemaMapping(m SchemaMapping) {
	s.SchemaMapping = m
	s.Conversions = m.Conversions
	s.MappingConfidence = m.Confidence
	s.UnmappedFields = m.UnmappedFields
	s.MappingNotes = m.Notes
}
