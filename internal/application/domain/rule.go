package domain

import "time"

// RuleResult is a single rule evaluation belonging to a case's breakdown
type RuleResult struct {
	ID          string    `db:"id" json:"id"`
	CaseID      string    `db:"case_id" json:"case_id"`
	RuleCode    string    `db:"rule_code" json:"rule_code"`
	RuleName    string    `db:"rule_name" json:"rule_name"`
	Passed      bool      `db:"passed" json:"passed"`
	Score       float64   `db:"score" json:"score"`
	Weight      float64   `db:"weight" json:"weight"`
	Rationale   string    `db:"rationale" json:"rationale"`
	Evidence    JSONMap   `db:"evidence" json:"evidence"`
	EvaluatedAt time.Time `db:"evaluated_at" json:"evaluated_at"`
}

// Breakdown is the full decision breakdown for a case: every rule result
// plus the aggregate confidence, risk and recommendation derived from them.
type Breakdown struct {
	CaseID                string       `json:"case_id"`
	Rules                 []RuleResult `json:"rules"`
	ConfidenceScore       float64      `json:"confidence_score"`
	RiskLevel             RiskLevel    `json:"risk_level"`
	RecommendationSummary string       `json:"recommendation_summary"`
}
