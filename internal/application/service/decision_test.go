package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/application/repository"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

func newDecisionService(t *testing.T) (*DecisionService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewFromSqlx(sqlx.NewDb(mockDB, "sqlmock"), logger.New("test", "development"))
	return NewDecisionService(
		repository.NewCaseRepository(db),
		repository.NewAuditRepository(db),
		nil,
		logger.New("test", "development"),
	), mock
}

func reviewer() Actor {
	return Actor{UserID: "44444444-4444-4444-4444-444444444444", IsReviewer: true}
}

func TestSubmit_RequiresReviewer(t *testing.T) {
	svc, _ := newDecisionService(t)

	_, err := svc.Submit(context.Background(), Actor{UserID: "u1"}, "case-1", &ReviewDecisionRequest{
		Action: ActionApprove,
		Reason: "All evidence verified.",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestSubmit_ReasonLength(t *testing.T) {
	svc, _ := newDecisionService(t)

	tests := []struct {
		name   string
		reason string
	}{
		{"too short", "short"},
		{"whitespace only", "         "},
		{"trimmed below minimum", "  1234567  "},
		{"too long", strings.Repeat("x", 1001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), reviewer(), "case-1", &ReviewDecisionRequest{
				Action: ActionReject,
				Reason: tt.reason,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestSubmit_UnknownAction(t *testing.T) {
	svc, _ := newDecisionService(t)

	_, err := svc.Submit(context.Background(), reviewer(), "case-1", &ReviewDecisionRequest{
		Action: "escalate",
		Reason: "A perfectly valid reason.",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func caseRows(status domain.CaseStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "applicant_full_name", "applicant_nationality", "notes", "status",
		"confidence_score", "risk_level", "recommendation_summary", "priority_score",
		"sla_due_at", "queued_at", "final_decision", "created_at", "updated_at",
	}).AddRow(
		"case-1", "owner-1", "Ola Nordmann", "Filipino", nil, string(status),
		nil, nil, nil, 0, nil, nil, nil, sqlmockNow(), sqlmockNow(),
	)
}

func sqlmockNow() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestSubmit_InvalidStateRejected(t *testing.T) {
	svc, mock := newDecisionService(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM cases WHERE id = \$1`).
		WithArgs("case-1").
		WillReturnRows(caseRows(domain.StatusDraft))

	_, err := svc.Submit(context.Background(), reviewer(), "case-1", &ReviewDecisionRequest{
		Action: ActionApprove,
		Reason: "All evidence verified in detail.",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}
