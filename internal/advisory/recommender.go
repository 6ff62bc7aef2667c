package advisory

import (
	"strings"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/rules"
)

// Recommendations lists the evidence a case is still missing.
type Recommendations struct {
	CaseID                   string            `json:"case_id"`
	RecommendedDocumentTypes []string          `json:"recommended_document_types"`
	RationaleByDocumentType  map[string]string `json:"rationale_by_document_type"`
	RecommendedNextActions   []string          `json:"recommended_next_actions"`
	GeneratedBy              string            `json:"generated_by"`
}

// ruleDocumentOptions maps each evidence rule to the document types that
// would satisfy it, in preference order.
var ruleDocumentOptions = []struct {
	ruleCode      string
	documentTypes []string
}{
	{rules.CodeIdentityDocument, []string{"passport", "id_card"}},
	{rules.CodeResidencyEvidence, []string{"residence_permit", "residence_proof", "tax_statement"}},
	{rules.CodeLanguageEvidence, []string{"language_certificate", "norwegian_test", "education_certificate"}},
	{rules.CodeSecurityScreening, []string{"police_clearance"}},
}

// Recommend derives the evidence gaps from the failed rules and the already
// uploaded document types. Fully deterministic; no external generator is
// involved.
func Recommend(c *domain.Case, results []domain.RuleResult, documents []domain.Document) *Recommendations {
	uploaded := make(map[string]bool, len(documents))
	for _, doc := range documents {
		uploaded[strings.ToLower(strings.TrimSpace(doc.DocumentType))] = true
	}

	failed := make(map[string]domain.RuleResult, len(results))
	for _, result := range results {
		if !result.Passed {
			failed[result.RuleCode] = result
		}
	}

	recommendation := &Recommendations{
		CaseID:                  c.ID,
		RationaleByDocumentType: make(map[string]string),
		GeneratedBy:             "fallback:evidence-recommendation-v1",
	}

	for _, option := range ruleDocumentOptions {
		failedRule, ok := failed[option.ruleCode]
		if !ok {
			continue
		}
		for _, documentType := range option.documentTypes {
			if uploaded[documentType] {
				continue
			}
			if _, seen := recommendation.RationaleByDocumentType[documentType]; !seen {
				recommendation.RecommendedDocumentTypes = append(recommendation.RecommendedDocumentTypes, documentType)
			}
			recommendation.RationaleByDocumentType[documentType] = failedRule.Rationale
		}
	}

	actions := []string{
		"Request only high-impact missing documents first",
		"Re-run processing after document upload",
		"Review the updated rule breakdown before the final decision",
	}
	switch c.Risk() {
	case domain.RiskHigh:
		actions = append([]string{"Prioritize this case for immediate reviewer follow-up"}, actions...)
	case domain.RiskMedium:
		actions = append([]string{"Schedule a targeted reviewer check after the top missing evidence arrives"}, actions...)
	}
	if len(actions) > 4 {
		actions = actions[:4]
	}
	recommendation.RecommendedNextActions = actions

	return recommendation
}
