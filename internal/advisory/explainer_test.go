package advisory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/rules"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

type memoryAudit struct {
	events []domain.AuditEvent
}

func (m *memoryAudit) Append(ctx context.Context, event *domain.AuditEvent) error {
	m.events = append(m.events, *event)
	return nil
}

func advisoryCase(risk domain.RiskLevel) *domain.Case {
	confidence := 0.9
	switch risk {
	case domain.RiskMedium:
		confidence = 0.6
	case domain.RiskHigh:
		confidence = 0.2
	}
	return &domain.Case{
		ID:              "33333333-3333-3333-3333-333333333333",
		Status:          domain.StatusReviewReady,
		ConfidenceScore: &confidence,
		RiskLevel:       &risk,
	}
}

func failedRule(code, name string, weight float64) domain.RuleResult {
	return domain.RuleResult{
		RuleCode:  code,
		RuleName:  name,
		Passed:    false,
		Weight:    weight,
		Rationale: "missing " + name,
	}
}

func TestExplain_FallbackWhenNoGenerator(t *testing.T) {
	audit := &memoryAudit{}
	explainer := NewExplainer(nil, audit, logger.New("test", "development"))

	results := []domain.RuleResult{
		failedRule(rules.CodeSecurityScreening, "Security screening evidence", 0.15),
		failedRule(rules.CodeResidencyEvidence, "Residency evidence present", 0.18),
	}

	explanation := explainer.Explain(context.Background(), advisoryCase(domain.RiskHigh), results, nil)

	assert.Equal(t, "fallback:rules-v1", explanation.GeneratedBy)
	assert.Equal(t, ActionReject, explanation.RecommendedAction)
	// Heaviest failed rule leads the risk list.
	assert.Equal(t, "Residency evidence present", explanation.KeyRisks[0])
	assert.NotEmpty(t, explanation.NextSteps)
	assert.Empty(t, audit.events, "fallback without a configured generator is not an outage")
}

func TestExplain_RecommendedActionByRisk(t *testing.T) {
	explainer := NewExplainer(nil, &memoryAudit{}, logger.New("test", "development"))

	tests := []struct {
		risk domain.RiskLevel
		want string
	}{
		{domain.RiskLow, ActionApprove},
		{domain.RiskMedium, ActionRequestMoreInfo},
		{domain.RiskHigh, ActionReject},
	}
	for _, tt := range tests {
		explanation := explainer.Explain(context.Background(), advisoryCase(tt.risk), nil, nil)
		assert.Equal(t, tt.want, explanation.RecommendedAction, "risk %s", tt.risk)
	}
}

func TestExplain_Idempotent(t *testing.T) {
	explainer := NewExplainer(nil, &memoryAudit{}, logger.New("test", "development"))
	c := advisoryCase(domain.RiskMedium)
	results := []domain.RuleResult{failedRule(rules.CodeLanguageEvidence, "Language/integration evidence", 0.15)}

	first := explainer.Explain(context.Background(), c, results, nil)
	second := explainer.Explain(context.Background(), c, results, nil)
	assert.Equal(t, first, second)
}

func TestParseExplanation_SchemaValidation(t *testing.T) {
	valid := `{"summary":"ok","recommended_action":"approve","key_risks":["a"],"missing_evidence":[],"next_steps":["b"]}`
	parsed, err := parseExplanation(valid)
	require.NoError(t, err)
	assert.Equal(t, "ok", parsed.Summary)

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "plain text"},
		{"missing summary", `{"recommended_action":"approve","key_risks":["a"],"next_steps":["b"]}`},
		{"bad action", `{"summary":"ok","recommended_action":"escalate","key_risks":["a"],"next_steps":["b"]}`},
		{"empty lists", `{"summary":"ok","recommended_action":"approve","key_risks":[],"next_steps":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExplanation(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestRecommend_MapsFailedRulesToDocumentTypes(t *testing.T) {
	results := []domain.RuleResult{
		failedRule(rules.CodeIdentityDocument, "Identity document present", 0.20),
		failedRule(rules.CodeSecurityScreening, "Security screening evidence", 0.15),
		{RuleCode: rules.CodeResidencyEvidence, RuleName: "Residency evidence present", Passed: true, Weight: 0.18},
	}
	documents := []domain.Document{
		{DocumentType: "id_card", Status: domain.DocumentProcessed},
	}

	recommendation := Recommend(advisoryCase(domain.RiskHigh), results, documents)

	assert.Contains(t, recommendation.RecommendedDocumentTypes, "passport")
	assert.Contains(t, recommendation.RecommendedDocumentTypes, "police_clearance")
	assert.NotContains(t, recommendation.RecommendedDocumentTypes, "id_card", "already uploaded")
	assert.NotContains(t, recommendation.RecommendedDocumentTypes, "residence_permit", "rule passed")
	assert.Equal(t, "missing Security screening evidence", recommendation.RationaleByDocumentType["police_clearance"])
	assert.LessOrEqual(t, len(recommendation.RecommendedNextActions), 4)
	assert.Equal(t, "Prioritize this case for immediate reviewer follow-up", recommendation.RecommendedNextActions[0])
}

func TestRecommend_NoGapsForCleanCase(t *testing.T) {
	results := []domain.RuleResult{
		{RuleCode: rules.CodeIdentityDocument, Passed: true},
		{RuleCode: rules.CodeSecurityScreening, Passed: true},
	}
	recommendation := Recommend(advisoryCase(domain.RiskLow), results, nil)
	assert.Empty(t, recommendation.RecommendedDocumentTypes)
	assert.NotEmpty(t, recommendation.RecommendedNextActions)
}
