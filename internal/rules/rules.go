package rules

import (
	"fmt"
	"strings"
)

// Stable rule codes. Weights sum to exactly 1.0.
const (
	CodeIdentityDocument  = "identity_document_present"
	CodeResidencyEvidence = "residency_evidence_present"
	CodeDocumentQuality   = "document_quality"
	CodeLanguageEvidence  = "language_integration_evidence"
	CodeSecurityScreening = "security_screening_evidence"
	CodeEntityRichness    = "nlp_entity_richness"
	CodeResidencyDuration = "residency_duration_signal"
)

var (
	identityDocumentTypes  = []string{"passport", "id_card"}
	residencyDocumentTypes = []string{"residence_permit", "residence_proof", "tax_statement"}
	languageDocumentTypes  = []string{"language_certificate", "norwegian_test", "education_certificate"}

	notesDurationTokens = []string{"long-term", "years", "permanent"}
)

// buildRegistry returns the canonical rule set in evaluation order.
func buildRegistry() []Rule {
	return []Rule{
		{
			Code:     CodeIdentityDocument,
			Name:     "Identity document present",
			Weight:   0.20,
			Evaluate: evaluateIdentityDocument,
		},
		{
			Code:     CodeResidencyEvidence,
			Name:     "Residency evidence present",
			Weight:   0.18,
			Evaluate: evaluateResidencyEvidence,
		},
		{
			Code:     CodeDocumentQuality,
			Name:     "Document OCR/NLP quality",
			Weight:   0.17,
			Evaluate: evaluateDocumentQuality,
		},
		{
			Code:     CodeLanguageEvidence,
			Name:     "Language/integration evidence",
			Weight:   0.15,
			Evaluate: evaluateLanguageEvidence,
		},
		{
			Code:     CodeSecurityScreening,
			Name:     "Security screening evidence",
			Weight:   0.15,
			Evaluate: evaluateSecurityScreening,
		},
		{
			Code:     CodeEntityRichness,
			Name:     "NLP entity richness",
			Weight:   0.10,
			Evaluate: evaluateEntityRichness,
		},
		{
			Code:     CodeResidencyDuration,
			Name:     "Residency duration signal",
			Weight:   0.05,
			Evaluate: evaluateResidencyDuration,
		},
	}
}

func evaluateIdentityDocument(in *Input) Outcome {
	if anyDocumentType(in, identityDocumentTypes) {
		return Outcome{
			Score:     1.0,
			Passed:    true,
			Rationale: "Passport or national ID document uploaded",
			Evidence:  identityEvidence(in),
		}
	}
	if len(in.Merged.PassportNumbers) > 0 {
		return Outcome{
			Score:     0.6,
			Passed:    true,
			Rationale: "No identity document uploaded, but a passport number was extracted from text",
			Evidence:  identityEvidence(in),
		}
	}
	return Outcome{
		Score:     0.0,
		Passed:    false,
		Rationale: "No passport or national ID document uploaded",
		Evidence:  identityEvidence(in),
	}
}

func identityEvidence(in *Input) map[string]any {
	return map[string]any{
		"document_types":   sortedTypes(in),
		"passport_numbers": truncate(in.Merged.PassportNumbers, 3),
	}
}

func evaluateResidencyEvidence(in *Input) Outcome {
	score := 0.0
	rationale := "No residency proof document or residency signals detected"
	switch {
	case anyDocumentType(in, residencyDocumentTypes):
		score = 1.0
		rationale = "Residency-related document uploaded"
	case len(in.Merged.ResidencySignals) > 0:
		score = 0.5
		rationale = "Residency signals found in extracted text"
	}
	return Outcome{
		Score:     score,
		Passed:    score >= 0.5,
		Rationale: rationale,
		Evidence: map[string]any{
			"document_types":    sortedTypes(in),
			"residency_signals": truncate(in.Merged.ResidencySignals, 5),
		},
	}
}

func evaluateDocumentQuality(in *Input) Outcome {
	quality := 0.0
	if len(in.ProcessedRichness) > 0 {
		var sum float64
		for _, richness := range in.ProcessedRichness {
			sum += richness
		}
		quality = round4(sum / float64(len(in.ProcessedRichness)))
	}
	return Outcome{
		Score:     quality,
		Passed:    quality >= 0.4,
		Rationale: fmt.Sprintf("Mean entity richness %.2f across %d processed documents", quality, len(in.ProcessedRichness)),
		Evidence: map[string]any{
			"processed_documents": len(in.ProcessedRichness),
			"total_documents":     len(in.Documents),
			"mean_richness":       quality,
		},
	}
}

func evaluateLanguageEvidence(in *Input) Outcome {
	score := 0.0
	rationale := "No language certificate or proficiency indicators found"
	switch {
	case anyDocumentType(in, languageDocumentTypes):
		score = 1.0
		rationale = "Language or integration certificate uploaded"
	case len(in.Merged.LanguageSignals) > 0:
		score = 0.6
		rationale = "Language proficiency indicators found in extracted text"
	}
	return Outcome{
		Score:     score,
		Passed:    score >= 0.5,
		Rationale: rationale,
		Evidence: map[string]any{
			"document_types":   sortedTypes(in),
			"language_signals": truncate(in.Merged.LanguageSignals, 5),
		},
	}
}

func evaluateSecurityScreening(in *Input) Outcome {
	if in.DocumentTypes["police_clearance"] {
		return Outcome{
			Score:     1.0,
			Passed:    true,
			Rationale: "Police clearance document uploaded",
			Evidence:  map[string]any{"document_types": sortedTypes(in)},
		}
	}
	return Outcome{
		Score:     0.0,
		Passed:    false,
		Rationale: "No police clearance document uploaded",
		Evidence:  map[string]any{"document_types": sortedTypes(in)},
	}
}

func evaluateEntityRichness(in *Input) Outcome {
	score := float64(in.TotalEntities) / 40
	if score > 1 {
		score = 1
	}
	score = round4(score)
	return Outcome{
		Score:     score,
		Passed:    in.TotalEntities >= 10,
		Rationale: fmt.Sprintf("%d distinct entities extracted across %d documents", in.TotalEntities, len(in.Documents)),
		Evidence: map[string]any{
			"total_entities": in.TotalEntities,
			"nationalities":  truncate(in.Merged.Nationalities, 5),
			"keywords":       truncate(in.Merged.CitizenshipKeywords, 10),
			"dates":          len(in.Merged.Dates),
		},
	}
}

func evaluateResidencyDuration(in *Input) Outcome {
	notes := strings.ToLower(in.Notes)
	notesMention := false
	for _, token := range notesDurationTokens {
		if strings.Contains(notes, token) {
			notesMention = true
			break
		}
	}

	score := 0.0
	rationale := "No residency duration signal in notes or documents"
	switch {
	case notesMention || in.HasDurationPhrase:
		score = 1.0
		if notesMention {
			rationale = "Residency duration mentioned in case notes"
		} else {
			rationale = "Residency duration phrase found in document text"
		}
	case len(in.Merged.ResidencySignals) > 0:
		score = 0.5
		rationale = "Residency signals present without an explicit duration"
	}
	return Outcome{
		Score:     score,
		Passed:    score >= 0.5,
		Rationale: rationale,
		Evidence: map[string]any{
			"notes_mention":     notesMention,
			"duration_in_text":  in.HasDurationPhrase,
			"residency_signals": truncate(in.Merged.ResidencySignals, 5),
		},
	}
}

func anyDocumentType(in *Input, types []string) bool {
	for _, t := range types {
		if in.DocumentTypes[t] {
			return true
		}
	}
	return false
}

func sortedTypes(in *Input) []string {
	types := make([]string, 0, len(in.DocumentTypes))
	for t := range in.DocumentTypes {
		types = append(types, t)
	}
	return distinctSorted(types)
}

func truncate(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
