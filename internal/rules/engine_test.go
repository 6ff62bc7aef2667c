package rules

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
)

var testDurationPhrases = []string{
	"years of residence", "years in norway", "år i norge",
	"continuous residence", "sammenhengende opphold", "botid",
}

func newTestEngine() *Engine {
	return NewEngine(testDurationPhrases)
}

func testCase(notes string) *domain.Case {
	c := &domain.Case{
		ID:                   "11111111-1111-1111-1111-111111111111",
		OwnerID:              "22222222-2222-2222-2222-222222222222",
		ApplicantFullName:    "Ola Nordmann",
		ApplicantNationality: "Filipino",
		Status:               domain.StatusProcessing,
	}
	if notes != "" {
		c.Notes = &notes
	}
	return c
}

func processedDoc(docType string, fields domain.ExtractedFields) domain.Document {
	return domain.Document{
		ID:              "doc-" + docType,
		CaseID:          "11111111-1111-1111-1111-111111111111",
		DocumentType:    docType,
		Status:          domain.DocumentProcessed,
		ExtractedFields: fields,
	}
}

func richFields() domain.ExtractedFields {
	return domain.ExtractedFields{
		Dates:               []string{"01.02.2015", "15.06.2020"},
		PassportNumbers:     []string{"NO1234567"},
		Nationalities:       []string{"filipino"},
		Persons:             []string{"Ola Nordmann"},
		Locations:           []string{"0150 Oslo"},
		CitizenshipKeywords: []string{"statsborgerskap", "passport", "søknad"},
		LanguageSignals:     []string{"norskprøve", "bestått"},
		ResidencySignals:    []string{"permanent opphold", "7 years"},
		EntityRichness:      0.65,
	}
}

func TestRuleWeightsSumToOne(t *testing.T) {
	engine := newTestEngine()
	assert.InDelta(t, 1.0, engine.TotalWeight(), 1e-9)
	assert.Len(t, engine.Rules(), 7)
}

func TestRuleRegistryOrderAndCodes(t *testing.T) {
	engine := newTestEngine()
	want := []string{
		CodeIdentityDocument,
		CodeResidencyEvidence,
		CodeDocumentQuality,
		CodeLanguageEvidence,
		CodeSecurityScreening,
		CodeEntityRichness,
		CodeResidencyDuration,
	}
	for i, rule := range engine.Rules() {
		assert.Equal(t, want[i], rule.Code)
	}
}

func TestEvaluate_HappyPathHighConfidence(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	documents := []domain.Document{
		processedDoc("passport", richFields()),
		processedDoc("residence_permit", richFields()),
		processedDoc("language_certificate", richFields()),
		processedDoc("police_clearance", richFields()),
	}

	breakdown := engine.Evaluate(testCase(""), documents, now)

	require.Len(t, breakdown.Rules, 7)
	for _, result := range breakdown.Rules {
		assert.True(t, result.Passed, "rule %s should pass", result.RuleCode)
		assert.GreaterOrEqual(t, result.Score, 0.0)
		assert.LessOrEqual(t, result.Score, 1.0)
	}
	assert.GreaterOrEqual(t, breakdown.ConfidenceScore, 0.85)
	assert.Equal(t, domain.RiskLow, breakdown.RiskLevel)
}

func TestEvaluate_ThinCaseHighRisk(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	documents := []domain.Document{
		processedDoc("passport", domain.ExtractedFields{}),
	}

	breakdown := engine.Evaluate(testCase(""), documents, now)

	byCode := make(map[string]domain.RuleResult)
	for _, result := range breakdown.Rules {
		byCode[result.RuleCode] = result
	}

	assert.True(t, byCode[CodeIdentityDocument].Passed)
	assert.Equal(t, 1.0, byCode[CodeIdentityDocument].Score)
	assert.Equal(t, 0.0, byCode[CodeResidencyEvidence].Score)
	assert.Equal(t, 0.0, byCode[CodeDocumentQuality].Score)
	assert.Equal(t, 0.0, byCode[CodeLanguageEvidence].Score)
	assert.Equal(t, 0.0, byCode[CodeSecurityScreening].Score)
	assert.Equal(t, 0.0, byCode[CodeEntityRichness].Score)
	assert.Equal(t, 0.0, byCode[CodeResidencyDuration].Score)

	assert.LessOrEqual(t, breakdown.ConfidenceScore, 0.35)
	assert.Equal(t, domain.RiskHigh, breakdown.RiskLevel)
}

func TestIdentityRule_PassportNumberWithoutDocument(t *testing.T) {
	engine := newTestEngine()
	documents := []domain.Document{
		processedDoc("tax_statement", domain.ExtractedFields{
			PassportNumbers: []string{"AB1234567"},
			EntityRichness:  0.05,
		}),
	}

	breakdown := engine.Evaluate(testCase(""), documents, time.Now().UTC())
	identity := breakdown.Rules[0]
	require.Equal(t, CodeIdentityDocument, identity.RuleCode)
	assert.Equal(t, 0.6, identity.Score)
	assert.True(t, identity.Passed)
}

func TestResidencyRule_SignalOnlyScoresHalf(t *testing.T) {
	engine := newTestEngine()
	documents := []domain.Document{
		processedDoc("other", domain.ExtractedFields{
			ResidencySignals: []string{"folkeregistrert"},
			EntityRichness:   0.05,
		}),
	}

	breakdown := engine.Evaluate(testCase(""), documents, time.Now().UTC())
	residency := breakdown.Rules[1]
	require.Equal(t, CodeResidencyEvidence, residency.RuleCode)
	assert.Equal(t, 0.5, residency.Score)
	assert.True(t, residency.Passed)
}

func TestDocumentQuality_MeanRichnessOverProcessedOnly(t *testing.T) {
	engine := newTestEngine()
	failedDoc := processedDoc("other", domain.ExtractedFields{EntityRichness: 0.9})
	failedDoc.Status = domain.DocumentFailed

	documents := []domain.Document{
		processedDoc("passport", domain.ExtractedFields{EntityRichness: 0.6}),
		processedDoc("other", domain.ExtractedFields{EntityRichness: 0.2}),
		failedDoc,
	}

	breakdown := engine.Evaluate(testCase(""), documents, time.Now().UTC())
	quality := breakdown.Rules[2]
	require.Equal(t, CodeDocumentQuality, quality.RuleCode)
	assert.InDelta(t, 0.4, quality.Score, 1e-9)
	assert.True(t, quality.Passed)
}

func TestEntityRichness_Thresholds(t *testing.T) {
	engine := newTestEngine()

	// 8 distinct entities: below the 10-entity pass threshold.
	documents := []domain.Document{
		processedDoc("passport", domain.ExtractedFields{
			Dates:           []string{"01.01.2020", "02.02.2021", "03.03.2022"},
			PassportNumbers: []string{"NO1234567"},
			Nationalities:   []string{"norwegian"},
			Persons:         []string{"Kari Nordmann"},
			Locations:       []string{"0150 Oslo"},
			LanguageSignals: []string{"b1"},
		}),
	}

	breakdown := engine.Evaluate(testCase(""), documents, time.Now().UTC())
	richness := breakdown.Rules[5]
	require.Equal(t, CodeEntityRichness, richness.RuleCode)
	assert.InDelta(t, 0.2, richness.Score, 1e-9)
	assert.False(t, richness.Passed)
}

func TestResidencyDuration_NotesTokens(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name      string
		notes     string
		wantScore float64
	}{
		{"long-term note", "Applicant has long-term residence", 1.0},
		{"years note", "Resident for 8 years", 1.0},
		{"permanent note", "Holds permanent residency", 1.0},
		{"no signal", "First-time visitor", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakdown := engine.Evaluate(testCase(tt.notes), nil, time.Now().UTC())
			duration := breakdown.Rules[6]
			require.Equal(t, CodeResidencyDuration, duration.RuleCode)
			assert.Equal(t, tt.wantScore, duration.Score)
		})
	}
}

func TestResidencyDuration_DocumentPhrase(t *testing.T) {
	engine := newTestEngine()
	documents := []domain.Document{
		processedDoc("residence_proof", domain.ExtractedFields{
			ResidencySignals: []string{"years in norway"},
			EntityRichness:   0.05,
		}),
	}

	breakdown := engine.Evaluate(testCase(""), documents, time.Now().UTC())
	duration := breakdown.Rules[6]
	assert.Equal(t, 1.0, duration.Score)
	assert.True(t, duration.Passed)
}

func TestEvaluate_Deterministic(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	documents := []domain.Document{
		processedDoc("passport", richFields()),
		processedDoc("residence_permit", richFields()),
	}

	first := engine.Evaluate(testCase("long-term resident"), documents, now)
	second := engine.Evaluate(testCase("long-term resident"), documents, now)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestRecommendation_NamesHeaviestFailedRules(t *testing.T) {
	engine := newTestEngine()
	breakdown := engine.Evaluate(testCase(""), nil, time.Now().UTC())

	assert.Equal(t, domain.RiskHigh, breakdown.RiskLevel)
	assert.Contains(t, breakdown.RecommendationSummary, "Identity document present")
	assert.Contains(t, breakdown.RecommendationSummary, "Residency evidence present")
}

func TestScoreBounds_AllRules(t *testing.T) {
	engine := newTestEngine()
	inputs := [][]domain.Document{
		nil,
		{processedDoc("passport", richFields())},
		{
			processedDoc("passport", richFields()),
			processedDoc("residence_permit", richFields()),
			processedDoc("language_certificate", richFields()),
			processedDoc("police_clearance", richFields()),
		},
	}

	for _, documents := range inputs {
		breakdown := engine.Evaluate(testCase("years of residence"), documents, time.Now().UTC())
		assert.GreaterOrEqual(t, breakdown.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, breakdown.ConfidenceScore, 1.0)
		for _, result := range breakdown.Rules {
			assert.GreaterOrEqual(t, result.Score, 0.0, result.RuleCode)
			assert.LessOrEqual(t, result.Score, 1.0, result.RuleCode)
		}
	}
}
