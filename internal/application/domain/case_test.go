package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to CaseStatus
		want     bool
	}{
		{StatusDraft, StatusDocumentsUploaded, true},
		{StatusDocumentsUploaded, StatusQueued, true},
		{StatusQueued, StatusProcessing, true},
		{StatusProcessing, StatusReviewReady, true},
		{StatusProcessing, StatusDocumentsUploaded, true},
		{StatusProcessing, StatusQueued, true},
		{StatusReviewReady, StatusApproved, true},
		{StatusReviewReady, StatusRejected, true},
		{StatusReviewReady, StatusMoreInfoRequired, true},
		{StatusReviewReady, StatusQueued, true},
		{StatusMoreInfoRequired, StatusQueued, true},
		{StatusMoreInfoRequired, StatusApproved, true},
		{StatusMoreInfoRequired, StatusRejected, true},

		// No skipping, no backwards motion, terminals stay terminal.
		{StatusDraft, StatusQueued, false},
		{StatusDraft, StatusReviewReady, false},
		{StatusDocumentsUploaded, StatusProcessing, false},
		{StatusDocumentsUploaded, StatusReviewReady, false},
		{StatusQueued, StatusReviewReady, false},
		{StatusQueued, StatusDraft, false},
		{StatusReviewReady, StatusDraft, false},
		{StatusApproved, StatusQueued, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusReviewReady.IsTerminal())
	assert.False(t, StatusMoreInfoRequired.IsTerminal())
}

func TestPendingManual(t *testing.T) {
	assert.True(t, StatusReviewReady.PendingManual())
	assert.True(t, StatusMoreInfoRequired.PendingManual())
	assert.False(t, StatusQueued.PendingManual())
	assert.False(t, StatusApproved.PendingManual())
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{1.0, RiskLow},
		{0.75, RiskLow},
		{0.7499, RiskMedium},
		{0.50, RiskMedium},
		{0.4999, RiskHigh},
		{0.0, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.score), "score %v", tt.score)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdueCase := &Case{Status: StatusReviewReady, SLADueAt: &past}
	assert.True(t, overdueCase.IsOverdue(now))

	onTimeCase := &Case{Status: StatusReviewReady, SLADueAt: &future}
	assert.False(t, onTimeCase.IsOverdue(now))

	noSLA := &Case{Status: StatusReviewReady}
	assert.False(t, noSLA.IsOverdue(now))

	// Terminal cases are never overdue regardless of a stale SLA value.
	terminal := &Case{Status: StatusApproved, SLADueAt: &past}
	assert.False(t, terminal.IsOverdue(now))
}
