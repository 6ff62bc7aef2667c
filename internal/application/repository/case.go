package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
)

const caseColumns = `id, owner_id, applicant_full_name, applicant_nationality, notes, status,
	       confidence_score, risk_level, recommendation_summary, priority_score,
	       sla_due_at, queued_at, final_decision, created_at, updated_at`

// CaseRepository handles case persistence. Per-case mutations serialize on a
// row lock taken inside a transaction, which is the sole mutual-exclusion
// point for derived state.
type CaseRepository struct {
	db *database.DB
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *database.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create creates a new case in Draft
func (r *CaseRepository) Create(ctx context.Context, c *domain.Case) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO cases (id, owner_id, applicant_full_name, applicant_nationality, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.ApplicantFullName,
		c.ApplicantNationality,
		c.Notes,
		c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID gets a case by ID
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	var c domain.Case
	err := r.db.GetContext(ctx, &c, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("case")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List lists cases newest first. An empty ownerID lists all cases (reviewer
// scope); otherwise results are restricted to the owner.
func (r *CaseRepository) List(ctx context.Context, ownerID string, page, perPage int) ([]domain.Case, int64, error) {
	var total int64
	var cases []domain.Case
	offset := (page - 1) * perPage

	if ownerID == "" {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM cases`); err != nil {
			return nil, 0, err
		}
		query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		if err := r.db.SelectContext(ctx, &cases, query, perPage, offset); err != nil {
			return nil, 0, err
		}
		return cases, total, nil
	}

	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM cases WHERE owner_id = $1`, ownerID); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + caseColumns + ` FROM cases WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &cases, query, ownerID, perPage, offset); err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// ListPendingManual returns the cases awaiting a human reviewer.
func (r *CaseRepository) ListPendingManual(ctx context.Context) ([]domain.Case, error) {
	var cases []domain.Case
	query := `SELECT ` + caseColumns + ` FROM cases WHERE status IN ($1, $2)`
	err := r.db.SelectContext(ctx, &cases, query, domain.StatusReviewReady, domain.StatusMoreInfoRequired)
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// NextQueued returns the oldest queued case by queued_at, or nil when the
// queue is drained.
func (r *CaseRepository) NextQueued(ctx context.Context) (*domain.Case, error) {
	var c domain.Case
	query := `SELECT ` + caseColumns + ` FROM cases WHERE status = $1 ORDER BY queued_at ASC LIMIT 1`
	err := r.db.GetContext(ctx, &c, query, domain.StatusQueued)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateFields applies an owner-editable patch. Derived fields are out of
// reach of this method by construction.
func (r *CaseRepository) UpdateFields(ctx context.Context, c *domain.Case) error {
	query := `
		UPDATE cases
		SET applicant_full_name = $2, applicant_nationality = $3, notes = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, c.ID, c.ApplicantFullName, c.ApplicantNationality, c.Notes)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("case")
	}
	return nil
}

// UpdatePriorityScore persists a recomputed priority score.
func (r *CaseRepository) UpdatePriorityScore(ctx context.Context, caseID string, priorityScore int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE cases SET priority_score = $2 WHERE id = $1`, caseID, priorityScore)
	return err
}

// Mutation adjusts case fields while the row lock is held during a status
// transition.
type Mutation func(c *domain.Case)

// Transition moves a case along the lifecycle graph inside a transaction,
// failing with InvalidTransition for any edge the graph does not admit.
// The optional mutations run after the status change, still under the row
// lock, and their effect is persisted atomically with it.
func (r *CaseRepository) Transition(ctx context.Context, caseID string, to domain.CaseStatus, mutations ...Mutation) (*domain.Case, error) {
	var updated *domain.Case
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		c, err := lockCase(ctx, tx, caseID)
		if err != nil {
			return err
		}

		if !domain.CanTransition(c.Status, to) {
			return errors.InvalidTransition(string(c.Status), string(to))
		}

		c.Status = to
		for _, mutate := range mutations {
			mutate(c)
		}
		c.UpdatedAt = time.Now().UTC()

		return updateCaseTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	// Re-read outside the transaction for the committed timestamps.
	updated, err = r.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Derived carries the fields recomputed by a processing run.
type Derived struct {
	ConfidenceScore       float64
	RiskLevel             domain.RiskLevel
	RecommendationSummary string
	PriorityScore         int
	SLADueAt              *time.Time
}

// CompleteProcessing atomically replaces the case's rule results, applies the
// derived fields, and transitions Processing → ReviewReady. A reader that
// observes ReviewReady is guaranteed to see exactly this run's results.
func (r *CaseRepository) CompleteProcessing(ctx context.Context, caseID string, results []domain.RuleResult, derived Derived) (*domain.Case, error) {
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		c, err := lockCase(ctx, tx, caseID)
		if err != nil {
			return err
		}

		if !domain.CanTransition(c.Status, domain.StatusReviewReady) {
			return errors.InvalidTransition(string(c.Status), string(domain.StatusReviewReady))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM rule_results WHERE case_id = $1`, caseID); err != nil {
			return err
		}

		insert := `
			INSERT INTO rule_results (id, case_id, rule_code, rule_name, passed, score, weight, rationale, evidence, evaluated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		for i := range results {
			result := &results[i]
			if result.ID == "" {
				result.ID = uuid.New().String()
			}
			result.CaseID = caseID
			if _, err := tx.ExecContext(ctx, insert,
				result.ID,
				result.CaseID,
				result.RuleCode,
				result.RuleName,
				result.Passed,
				result.Score,
				result.Weight,
				result.Rationale,
				result.Evidence,
				result.EvaluatedAt,
			); err != nil {
				return err
			}
		}

		c.Status = domain.StatusReviewReady
		c.ConfidenceScore = &derived.ConfidenceScore
		risk := derived.RiskLevel
		c.RiskLevel = &risk
		summary := derived.RecommendationSummary
		c.RecommendationSummary = &summary
		c.PriorityScore = derived.PriorityScore
		c.SLADueAt = derived.SLADueAt
		c.UpdatedAt = time.Now().UTC()

		return updateCaseTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, caseID)
}

// lockCase reads the case row FOR UPDATE, serializing all mutations of one
// case for the duration of the transaction.
func lockCase(ctx context.Context, tx *sqlx.Tx, caseID string) (*domain.Case, error) {
	var c domain.Case
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &c, query, caseID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("case")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func updateCaseTx(ctx context.Context, tx *sqlx.Tx, c *domain.Case) error {
	query := `
		UPDATE cases
		SET status = $2, confidence_score = $3, risk_level = $4, recommendation_summary = $5,
		    priority_score = $6, sla_due_at = $7, queued_at = $8, final_decision = $9, updated_at = $10
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query,
		c.ID,
		c.Status,
		c.ConfidenceScore,
		c.RiskLevel,
		c.RecommendationSummary,
		c.PriorityScore,
		c.SLADueAt,
		c.QueuedAt,
		c.FinalDecision,
		c.UpdatedAt,
	)
	return err
}
