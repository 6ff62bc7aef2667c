// Package rules evaluates the weighted eligibility rule set over the
// aggregated evidence of a case. Evaluation is a pure function: identical
// inputs produce byte-identical breakdowns.
package rules

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
)

// Outcome is the result of evaluating a single rule.
type Outcome struct {
	Score     float64
	Passed    bool
	Rationale string
	Evidence  domain.JSONMap
}

// Rule is one enumerable, weighted rule. The registry of rules is immutable
// after engine construction.
type Rule struct {
	Code     string
	Name     string
	Weight   float64
	Evaluate func(in *Input) Outcome
}

// Input is the aggregated evidence the rules see. It is precomputed once per
// evaluation so each rule stays a cheap pure function.
type Input struct {
	Notes             string
	DocumentTypes     map[string]bool
	Documents         []domain.Document
	Merged            domain.ExtractedFields
	ProcessedRichness []float64
	TotalEntities     int
	HasDurationPhrase bool
}

// Engine holds the immutable rule registry.
type Engine struct {
	registry        []Rule
	durationPhrases []string
}

// durationSpan matches explicit residency durations like "7 years" / "3 år".
var durationSpan = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:years?|år)\b`)

// NewEngine builds the engine with the canonical rule set. The duration
// phrase list feeds the residency_duration_signal rule.
func NewEngine(durationPhrases []string) *Engine {
	return &Engine{
		registry:        buildRegistry(),
		durationPhrases: durationPhrases,
	}
}

// Rules returns the registry in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.registry
}

// TotalWeight returns the sum of all rule weights.
func (e *Engine) TotalWeight() float64 {
	var total float64
	for _, rule := range e.registry {
		total += rule.Weight
	}
	return total
}

// Evaluate runs every rule over the case evidence and aggregates the
// breakdown. evaluatedAt stamps each result so one run shares one timestamp.
func (e *Engine) Evaluate(c *domain.Case, documents []domain.Document, evaluatedAt time.Time) *domain.Breakdown {
	in := e.buildInput(c, documents)

	results := make([]domain.RuleResult, 0, len(e.registry))
	var weightedSum, totalWeight float64

	for _, rule := range e.registry {
		outcome := rule.Evaluate(in)
		results = append(results, domain.RuleResult{
			CaseID:      c.ID,
			RuleCode:    rule.Code,
			RuleName:    rule.Name,
			Passed:      outcome.Passed,
			Score:       outcome.Score,
			Weight:      rule.Weight,
			Rationale:   outcome.Rationale,
			Evidence:    outcome.Evidence,
			EvaluatedAt: evaluatedAt,
		})
		weightedSum += outcome.Score * rule.Weight
		totalWeight += rule.Weight
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = round4(weightedSum / totalWeight)
	}
	riskLevel := domain.RiskLevelFor(confidence)

	return &domain.Breakdown{
		CaseID:                c.ID,
		Rules:                 results,
		ConfidenceScore:       confidence,
		RiskLevel:             riskLevel,
		RecommendationSummary: recommendation(riskLevel, results),
	}
}

func (e *Engine) buildInput(c *domain.Case, documents []domain.Document) *Input {
	in := &Input{
		DocumentTypes: make(map[string]bool),
		Documents:     documents,
	}
	if c.Notes != nil {
		in.Notes = *c.Notes
	}

	for _, doc := range documents {
		in.DocumentTypes[strings.ToLower(strings.TrimSpace(doc.DocumentType))] = true

		f := doc.ExtractedFields
		in.Merged.Dates = append(in.Merged.Dates, f.Dates...)
		in.Merged.PassportNumbers = append(in.Merged.PassportNumbers, f.PassportNumbers...)
		in.Merged.Nationalities = append(in.Merged.Nationalities, f.Nationalities...)
		in.Merged.Persons = append(in.Merged.Persons, f.Persons...)
		in.Merged.Locations = append(in.Merged.Locations, f.Locations...)
		in.Merged.CitizenshipKeywords = append(in.Merged.CitizenshipKeywords, f.CitizenshipKeywords...)
		in.Merged.LanguageSignals = append(in.Merged.LanguageSignals, f.LanguageSignals...)
		in.Merged.ResidencySignals = append(in.Merged.ResidencySignals, f.ResidencySignals...)

		if doc.Status == domain.DocumentProcessed {
			in.ProcessedRichness = append(in.ProcessedRichness, f.EntityRichness)
		}
	}

	in.Merged.Dates = distinctSorted(in.Merged.Dates)
	in.Merged.PassportNumbers = distinctSorted(in.Merged.PassportNumbers)
	in.Merged.Nationalities = distinctSorted(in.Merged.Nationalities)
	in.Merged.Persons = distinctSorted(in.Merged.Persons)
	in.Merged.Locations = distinctSorted(in.Merged.Locations)
	in.Merged.CitizenshipKeywords = distinctSorted(in.Merged.CitizenshipKeywords)
	in.Merged.LanguageSignals = distinctSorted(in.Merged.LanguageSignals)
	in.Merged.ResidencySignals = distinctSorted(in.Merged.ResidencySignals)

	in.TotalEntities = in.Merged.TotalEntities()
	in.HasDurationPhrase = e.hasDurationPhrase(in.Merged.ResidencySignals)
	return in
}

// hasDurationPhrase checks the aggregated residency signals for a curated
// duration phrase or an explicit "N years / N år" span.
func (e *Engine) hasDurationPhrase(residencySignals []string) bool {
	for _, signal := range residencySignals {
		lower := strings.ToLower(signal)
		for _, phrase := range e.durationPhrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return true
			}
		}
		if durationSpan.MatchString(signal) {
			return true
		}
	}
	return false
}

// recommendation derives the summary sentence from the risk level and the
// two heaviest failed rules. Registry order breaks weight ties, so the text
// is stable for a fixed breakdown.
func recommendation(risk domain.RiskLevel, results []domain.RuleResult) string {
	var failed []domain.RuleResult
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].Weight > failed[j].Weight
	})

	var gaps []string
	for i := 0; i < len(failed) && i < 2; i++ {
		gaps = append(gaps, failed[i].RuleName)
	}

	var base string
	switch risk {
	case domain.RiskLow:
		base = "Strong evidence base; eligible for fast-track manual verification"
	case domain.RiskMedium:
		base = "Borderline evidence; prioritize targeted human review"
	default:
		base = "Insufficient evidence; request additional documents before review"
	}

	if len(gaps) == 0 {
		return base + "."
	}
	return fmt.Sprintf("%s. Key gaps: %s.", base, strings.Join(gaps, ", "))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func distinctSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	var result []string
	for _, item := range items {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}
	sort.Strings(result)
	return result
}
