package repository

import (
	"context"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
)

// RuleResultRepository reads the persisted rule results of a case. Writes go
// through CaseRepository.CompleteProcessing so replacement stays atomic with
// the derived fields.
type RuleResultRepository struct {
	db *database.DB
}

// NewRuleResultRepository creates a new rule result repository
func NewRuleResultRepository(db *database.DB) *RuleResultRepository {
	return &RuleResultRepository{db: db}
}

// ListByCase returns the rule results of the latest processing run in stable
// registry order (heaviest weight first, code as tiebreak).
func (r *RuleResultRepository) ListByCase(ctx context.Context, caseID string) ([]domain.RuleResult, error) {
	var results []domain.RuleResult
	query := `
		SELECT id, case_id, rule_code, rule_name, passed, score, weight, rationale, evidence, evaluated_at
		FROM rule_results
		WHERE case_id = $1
		ORDER BY weight DESC, rule_code ASC
	`
	if err := r.db.SelectContext(ctx, &results, query, caseID); err != nil {
		return nil, err
	}
	return results, nil
}
