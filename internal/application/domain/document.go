package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentStatus represents the processing state of an uploaded document
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentProcessed  DocumentStatus = "processed"
	DocumentFailed     DocumentStatus = "failed"
)

// Extraction methods recorded on a processed document
const (
	MethodDigitalText = "digital_text"
	MethodImageOCR    = "image_ocr"
	MethodNone        = "none"
)

// Extraction warning codes
const (
	WarningOCRUnavailable = "ocr_unavailable"
	WarningEmptyText      = "empty_text"
)

// ExtractedFields is the typed evidence bag produced by the extractor.
// Known keys are explicit fields; Extra keeps forward-compatible extensions.
// All slices hold distinct values; order carries no meaning but is kept
// stable (sorted) so repeated extraction runs serialize identically.
type ExtractedFields struct {
	Dates               []string       `json:"dates,omitempty"`
	PassportNumbers     []string       `json:"passport_numbers,omitempty"`
	Nationalities       []string       `json:"nationalities,omitempty"`
	Persons             []string       `json:"persons,omitempty"`
	Locations           []string       `json:"locations,omitempty"`
	CitizenshipKeywords []string       `json:"citizenship_keywords,omitempty"`
	LanguageSignals     []string       `json:"language_signals,omitempty"`
	ResidencySignals    []string       `json:"residency_signals,omitempty"`
	EntityRichness      float64        `json:"entity_richness"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// TotalEntities counts the distinct entities across all known keys.
func (f *ExtractedFields) TotalEntities() int {
	return len(f.Dates) + len(f.PassportNumbers) + len(f.Nationalities) +
		len(f.Persons) + len(f.Locations) + len(f.CitizenshipKeywords) +
		len(f.LanguageSignals) + len(f.ResidencySignals)
}

// Value implements driver.Valuer
func (f ExtractedFields) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner
func (f *ExtractedFields) Scan(src any) error {
	if src == nil {
		*f = ExtractedFields{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ExtractedFields", src)
	}
	return json.Unmarshal(b, f)
}

// Document is a supporting document attached to a case
type Document struct {
	ID               string          `db:"id" json:"id"`
	CaseID           string          `db:"case_id" json:"case_id"`
	DocumentType     string          `db:"document_type" json:"document_type"`
	OriginalFilename string          `db:"original_filename" json:"original_filename"`
	ContentType      string          `db:"content_type" json:"content_type"`
	SizeBytes        int64           `db:"size_bytes" json:"size_bytes"`
	StorageKey       string          `db:"storage_key" json:"-"`
	Status           DocumentStatus  `db:"status" json:"status"`
	ExtractedText    *string         `db:"extracted_text" json:"extracted_text,omitempty"`
	ExtractedFields  ExtractedFields `db:"extracted_fields" json:"extracted_fields"`
	ExtractionMethod string          `db:"extraction_method" json:"extraction_method,omitempty"`
	OCRConfidence    float64         `db:"ocr_confidence" json:"ocr_confidence"`
	PageCount        int             `db:"page_count" json:"page_count"`
	Warnings         StringList      `db:"warnings" json:"warnings,omitempty"`
	FailureReason    *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
