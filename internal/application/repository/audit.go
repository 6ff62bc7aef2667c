package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
)

// AuditRepository handles the append-only audit trail. There is no update or
// delete path: events are inserted once and read back in append order.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit event
func (r *AuditRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Metadata == nil {
		event.Metadata = domain.JSONMap{}
	}

	query := `
		INSERT INTO audit_events (id, case_id, actor_id, action, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		event.ID,
		event.CaseID,
		event.ActorID,
		event.Action,
		event.Reason,
		event.Metadata,
	).Scan(&event.CreatedAt)
}

// ListByCase returns a case's audit trail in chronological append order
func (r *AuditRepository) ListByCase(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	query := `
		SELECT id, case_id, actor_id, action, reason, metadata, created_at
		FROM audit_events
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`
	if err := r.db.SelectContext(ctx, &events, query, caseID); err != nil {
		return nil, err
	}
	return events, nil
}
