package repository

import (
	"context"
	"time"

	"github.com/devlinduldulao/citizenship-application/pkg/database"
)

// LockRepository backs the at-most-one-processing invariant with a
// case_locks table. Acquisition is non-blocking: contention surfaces as a
// false return, never a wait.
type LockRepository struct {
	db *database.DB
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *database.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Acquire attempts to take the processing lock for a case. Returns false
// when another holder already owns it.
func (r *LockRepository) Acquire(ctx context.Context, caseID, holderID string) (bool, error) {
	query := `
		INSERT INTO case_locks (case_id, holder_id, acquired_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (case_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, caseID, holderID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Release drops the lock if the holder still owns it.
func (r *LockRepository) Release(ctx context.Context, caseID, holderID string) error {
	query := `DELETE FROM case_locks WHERE case_id = $1 AND holder_id = $2`
	_, err := r.db.ExecContext(ctx, query, caseID, holderID)
	return err
}

// IsHeld reports whether any worker currently holds the case lock.
func (r *LockRepository) IsHeld(ctx context.Context, caseID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM case_locks WHERE case_id = $1`, caseID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReclaimStale deletes locks older than ttl and returns the affected case
// ids so the owner can requeue the orphaned cases.
func (r *LockRepository) ReclaimStale(ctx context.Context, ttl time.Duration) ([]string, error) {
	query := `
		DELETE FROM case_locks
		WHERE acquired_at < NOW() - ($1 * INTERVAL '1 second')
		RETURNING case_id
	`
	var caseIDs []string
	if err := r.db.SelectContext(ctx, &caseIDs, query, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	return caseIDs, nil
}
