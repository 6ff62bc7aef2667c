package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		DailyManualCapacity:   20,
		HighPriorityThreshold: 70,
		SLAWindowDaysLow:      21,
		SLAWindowDaysMedium:   14,
		SLAWindowDaysHigh:     7,
	}
}

func TestPriorityScore(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now
	aged := now.Add(-14 * 24 * time.Hour)
	pastDue := now.Add(-time.Hour)
	futureDue := now.Add(time.Hour)

	tests := []struct {
		name       string
		confidence float64
		queuedAt   *time.Time
		slaDueAt   *time.Time
		want       int
	}{
		{"fresh confident case", 1.0, &fresh, &futureDue, 0},
		{"fresh zero-confidence case", 0.0, &fresh, &futureDue, 55},
		{"aged zero-confidence case", 0.0, &aged, &futureDue, 80},
		{"aged overdue zero-confidence case", 0.0, &aged, &pastDue, 100},
		{"overdue only", 1.0, &fresh, &pastDue, 20},
		{"no queue timestamp", 0.5, nil, nil, 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityScore(tt.confidence, tt.queuedAt, tt.slaDueAt, now))
		})
	}
}

func TestPriorityScore_Bounds(t *testing.T) {
	now := time.Now().UTC()
	longAgo := now.Add(-365 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	score := PriorityScore(0, &longAgo, &past, now)
	assert.LessOrEqual(t, score, 100)
	assert.GreaterOrEqual(t, score, 0)
}

func TestSLADueAt_WindowsByRisk(t *testing.T) {
	cfg := testQueueConfig()
	queuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, queuedAt.Add(21*24*time.Hour), SLADueAt(domain.RiskLow, queuedAt, cfg))
	assert.Equal(t, queuedAt.Add(14*24*time.Hour), SLADueAt(domain.RiskMedium, queuedAt, cfg))
	assert.Equal(t, queuedAt.Add(7*24*time.Hour), SLADueAt(domain.RiskHigh, queuedAt, cfg))
}

// fakeCaseLister is an in-memory CaseLister for queue tests.
type fakeCaseLister struct {
	cases   []domain.Case
	updated map[string]int
}

func (f *fakeCaseLister) ListPendingManual(ctx context.Context) ([]domain.Case, error) {
	out := make([]domain.Case, len(f.cases))
	copy(out, f.cases)
	return out, nil
}

func (f *fakeCaseLister) UpdatePriorityScore(ctx context.Context, caseID string, priorityScore int) error {
	if f.updated == nil {
		f.updated = make(map[string]int)
	}
	f.updated[caseID] = priorityScore
	return nil
}

func pendingCase(id string, confidence float64, queuedAgo, dueIn time.Duration, now time.Time) domain.Case {
	queuedAt := now.Add(-queuedAgo)
	dueAt := now.Add(dueIn)
	return domain.Case{
		ID:              id,
		Status:          domain.StatusReviewReady,
		ConfidenceScore: &confidence,
		QueuedAt:        &queuedAt,
		SLADueAt:        &dueAt,
		CreatedAt:       now.Add(-queuedAgo - time.Hour),
	}
}

func newTestService(lister CaseLister, now time.Time) *Service {
	svc := NewService(lister, testQueueConfig(), logger.New("test", "development"))
	svc.now = func() time.Time { return now }
	return svc
}

func TestList_OverdueFirstThenPriority(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeCaseLister{cases: []domain.Case{
		pendingCase("confident", 0.9, time.Hour, 24*time.Hour, now),
		pendingCase("overdue", 0.8, 24*time.Hour, -time.Hour, now),
		pendingCase("risky", 0.1, time.Hour, 24*time.Hour, now),
	}}

	svc := newTestService(lister, now)
	items, total, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 3)

	assert.Equal(t, "overdue", items[0].ID)
	assert.True(t, items[0].IsOverdue)
	assert.Equal(t, "risky", items[1].ID)
	assert.Equal(t, "confident", items[2].ID)
}

func TestList_RecomputesPriorityOnRead(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stale := pendingCase("stale", 0.0, 14*24*time.Hour, 24*time.Hour, now)
	stale.PriorityScore = 1 // stale persisted value

	lister := &fakeCaseLister{cases: []domain.Case{stale}}
	svc := newTestService(lister, now)

	items, _, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, 80, items[0].PriorityScore)
	assert.Equal(t, 80, lister.updated["stale"])
}

func TestList_Pagination(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeCaseLister{cases: []domain.Case{
		pendingCase("a", 0.2, time.Hour, 24*time.Hour, now),
		pendingCase("b", 0.4, time.Hour, 24*time.Hour, now),
		pendingCase("c", 0.6, time.Hour, 24*time.Hour, now),
	}}
	svc := newTestService(lister, now)

	items, total, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)
}

func TestComputeMetrics(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeCaseLister{cases: []domain.Case{
		pendingCase("overdue-risky", 0.0, 4*24*time.Hour, -time.Hour, now),
		pendingCase("waiting", 0.6, 2*24*time.Hour, 24*time.Hour, now),
		pendingCase("fresh", 0.9, 0, 24*time.Hour, now),
	}}
	svc := newTestService(lister, now)

	metrics, err := svc.ComputeMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, metrics.PendingManualCount)
	assert.Equal(t, 1, metrics.OverdueCount)
	assert.Equal(t, 1, metrics.HighPriorityCount)
	assert.InDelta(t, 2.0, metrics.AvgWaitingDays, 0.01)
	assert.Equal(t, 20, metrics.DailyManualCapacity)
	assert.Equal(t, 1, metrics.EstimatedDaysToClearBacklog)
}

func TestComputeMetrics_BacklogCeil(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var cases []domain.Case
	for i := 0; i < 21; i++ {
		cases = append(cases, pendingCase(string(rune('a'+i)), 0.9, time.Hour, 24*time.Hour, now))
	}
	lister := &fakeCaseLister{cases: cases}
	svc := newTestService(lister, now)

	metrics, err := svc.ComputeMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.EstimatedDaysToClearBacklog)
}
