// Package advisory produces non-binding reviewer guidance. External
// generator output is schema-validated and always recoverable to a
// deterministic fallback; nothing here may mutate case state.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// Recommended actions mirror the decision controller's vocabulary.
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionRequestMoreInfo = "request_more_info"
)

const (
	generatedByFallback = "fallback:rules-v1"
	maxListItems        = 5
)

// Explanation is the case explainer memo.
type Explanation struct {
	CaseID            string   `json:"case_id"`
	Summary           string   `json:"summary"`
	RecommendedAction string   `json:"recommended_action"`
	KeyRisks          []string `json:"key_risks"`
	MissingEvidence   []string `json:"missing_evidence"`
	NextSteps         []string `json:"next_steps"`
	GeneratedBy       string   `json:"generated_by"`
}

// AuditSink records advisory degradations on the case's audit trail.
type AuditSink interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
}

// Explainer generates case explanations with an LLM when configured and a
// deterministic rule-derived fallback otherwise.
type Explainer struct {
	client *Client
	audit  AuditSink
	log    *logger.Logger
}

// NewExplainer creates a new case explainer.
func NewExplainer(client *Client, audit AuditSink, log *logger.Logger) *Explainer {
	return &Explainer{
		client: client,
		audit:  audit,
		log:    log.WithComponent("advisory"),
	}
}

const explainerSystemPrompt = "You are an immigration case assistant. Return strict JSON with keys: " +
	"summary, recommended_action, key_risks, missing_evidence, next_steps. " +
	"recommended_action must be one of approve, reject, request_more_info. " +
	"Keep output concise, factual, and grounded in the provided evidence."

// Explain produces the advisory memo for a case. Identical case state yields
// a schema-equivalent memo on every call.
func (e *Explainer) Explain(ctx context.Context, c *domain.Case, results []domain.RuleResult, documents []domain.Document) *Explanation {
	fallback := e.fallbackExplanation(c, results, documents)

	if !e.client.Enabled() {
		return fallback
	}

	content, err := e.client.Complete(ctx, explainerSystemPrompt, explainerContext(c, results, documents))
	if err != nil {
		e.degrade(ctx, c.ID, "case_explainer", err)
		return fallback
	}

	parsed, err := parseExplanation(content)
	if err != nil {
		e.degrade(ctx, c.ID, "case_explainer", err)
		return fallback
	}

	parsed.CaseID = c.ID
	parsed.GeneratedBy = "llm:" + e.client.Model()
	return parsed
}

// fallbackExplanation derives the memo from the rule breakdown alone.
func (e *Explainer) fallbackExplanation(c *domain.Case, results []domain.RuleResult, documents []domain.Document) *Explanation {
	failed := failedByWeight(results)
	risk := c.Risk()

	keyRisks := make([]string, 0, 3)
	missingEvidence := make([]string, 0, 3)
	for i := 0; i < len(failed) && i < 3; i++ {
		keyRisks = append(keyRisks, failed[i].RuleName)
		missingEvidence = append(missingEvidence, failed[i].Rationale)
	}
	if len(keyRisks) == 0 {
		keyRisks = []string{"No critical rule failures detected"}
		missingEvidence = []string{"No material evidence gaps identified"}
	}

	documentTypes := make(map[string]bool, len(documents))
	for _, doc := range documents {
		documentTypes[strings.ToLower(strings.TrimSpace(doc.DocumentType))] = true
	}

	nextSteps := []string{
		"Validate identity details against uploaded evidence",
		"Confirm residency and language requirements against the policy checklist",
		"Capture the final caseworker reason before decision submission",
	}
	if !documentTypes["police_clearance"] {
		nextSteps = append([]string{"Request police clearance evidence for security screening"}, nextSteps...)
	}
	if !documentTypes["residence_permit"] && !documentTypes["residence_proof"] {
		nextSteps = append([]string{"Request residency proof document"}, nextSteps...)
	}
	if len(nextSteps) > 4 {
		nextSteps = nextSteps[:4]
	}

	return &Explanation{
		CaseID: c.ID,
		Summary: fmt.Sprintf("Case %s is currently %s risk with %d rule gaps. Prioritize evidence validation and a documented human decision.",
			c.ID, risk, len(failed)),
		RecommendedAction: recommendedActionFor(risk),
		KeyRisks:          keyRisks,
		MissingEvidence:   missingEvidence,
		NextSteps:         nextSteps,
		GeneratedBy:       generatedByFallback,
	}
}

// recommendedActionFor maps risk to the advisory action. Downstream policy
// belongs to the decision controller; this mirrors the default heuristic.
func recommendedActionFor(risk domain.RiskLevel) string {
	switch risk {
	case domain.RiskLow:
		return ActionApprove
	case domain.RiskMedium:
		return ActionRequestMoreInfo
	default:
		return ActionReject
	}
}

// parseExplanation validates external output against the memo schema.
func parseExplanation(content string) (*Explanation, error) {
	var parsed Explanation
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("advisory output is not valid JSON: %w", err)
	}

	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, fmt.Errorf("advisory output missing summary")
	}
	switch parsed.RecommendedAction {
	case ActionApprove, ActionReject, ActionRequestMoreInfo:
	default:
		return nil, fmt.Errorf("advisory output has invalid recommended_action %q", parsed.RecommendedAction)
	}

	parsed.KeyRisks = normalizeList(parsed.KeyRisks)
	parsed.MissingEvidence = normalizeList(parsed.MissingEvidence)
	parsed.NextSteps = normalizeList(parsed.NextSteps)
	if len(parsed.KeyRisks) == 0 || len(parsed.NextSteps) == 0 {
		return nil, fmt.Errorf("advisory output missing key_risks or next_steps")
	}

	return &parsed, nil
}

// degrade audits an advisory outage; the caller returns the fallback.
func (e *Explainer) degrade(ctx context.Context, caseID, operation string, cause error) {
	e.log.Warn().Err(cause).Str("case_id", caseID).Str("operation", operation).Msg("advisory generator degraded to fallback")
	event := &domain.AuditEvent{
		CaseID: caseID,
		Action: domain.AuditAdvisoryFallback,
		Metadata: domain.JSONMap{
			"operation": operation,
			"error":     cause.Error(),
		},
	}
	if err := e.audit.Append(ctx, event); err != nil {
		e.log.Error().Err(err).Str("case_id", caseID).Msg("failed to audit advisory fallback")
	}
}

func explainerContext(c *domain.Case, results []domain.RuleResult, documents []domain.Document) map[string]any {
	ruleRows := make([]map[string]any, 0, len(results))
	for _, result := range results {
		ruleRows = append(ruleRows, map[string]any{
			"rule_code": result.RuleCode,
			"rule_name": result.RuleName,
			"passed":    result.Passed,
			"score":     result.Score,
			"weight":    result.Weight,
			"rationale": result.Rationale,
		})
	}

	docRows := make([]map[string]any, 0, len(documents))
	for _, doc := range documents {
		docRows = append(docRows, map[string]any{
			"document_type": doc.DocumentType,
			"status":        string(doc.Status),
			"content_type":  doc.ContentType,
		})
	}

	return map[string]any{
		"case": map[string]any{
			"id":                    c.ID,
			"status":                string(c.Status),
			"applicant_nationality": c.ApplicantNationality,
			"confidence_score":      c.Confidence(),
			"risk_level":            string(c.Risk()),
		},
		"rules":     ruleRows,
		"documents": docRows,
	}
}

// failedByWeight returns the failed rules ordered heaviest first; persisted
// order (weight desc, code asc) breaks ties deterministically.
func failedByWeight(results []domain.RuleResult) []domain.RuleResult {
	var failed []domain.RuleResult
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].Weight > failed[j].Weight
	})
	return failed
}

func normalizeList(items []string) []string {
	var normalized []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	if len(normalized) > maxListItems {
		normalized = normalized[:maxListItems]
	}
	return normalized
}
