package queue

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// CaseLister is the slice of the case store the review queue reads from.
type CaseLister interface {
	ListPendingManual(ctx context.Context) ([]domain.Case, error)
	UpdatePriorityScore(ctx context.Context, caseID string, priorityScore int) error
}

// Item is one row of the reviewer queue.
type Item struct {
	ID                    string            `json:"id"`
	ApplicantFullName     string            `json:"applicant_full_name"`
	ApplicantNationality  string            `json:"applicant_nationality"`
	Status                domain.CaseStatus `json:"status"`
	ConfidenceScore       *float64          `json:"confidence_score,omitempty"`
	RiskLevel             *domain.RiskLevel `json:"risk_level,omitempty"`
	RecommendationSummary *string           `json:"recommendation_summary,omitempty"`
	PriorityScore         int               `json:"priority_score"`
	SLADueAt              *time.Time        `json:"sla_due_at,omitempty"`
	IsOverdue             bool              `json:"is_overdue"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// Metrics summarizes the pending-manual backlog.
type Metrics struct {
	PendingManualCount          int     `json:"pending_manual_count"`
	OverdueCount                int     `json:"overdue_count"`
	HighPriorityCount           int     `json:"high_priority_count"`
	AvgWaitingDays              float64 `json:"avg_waiting_days"`
	DailyManualCapacity         int     `json:"daily_manual_capacity"`
	EstimatedDaysToClearBacklog int     `json:"estimated_days_to_clear_backlog"`
}

// Service derives the reviewer queue and its metrics from the case store.
type Service struct {
	cases CaseLister
	cfg   *config.QueueConfig
	now   func() time.Time
	log   *logger.Logger
}

// NewService creates a new review queue service.
func NewService(cases CaseLister, cfg *config.QueueConfig, log *logger.Logger) *Service {
	return &Service{
		cases: cases,
		cfg:   cfg,
		now:   time.Now,
		log:   log.WithComponent("review-queue"),
	}
}

// List returns the pending-manual cases in review order: overdue first, then
// by priority, then nearest SLA deadline, then oldest case. Priority scores
// are recomputed against the current clock on every read so aging cases
// climb without waiting for a processing run.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Item, int, error) {
	cases, err := s.refreshed(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	sort.SliceStable(cases, func(i, j int) bool {
		io, jo := cases[i].IsOverdue(now), cases[j].IsOverdue(now)
		if io != jo {
			return io
		}
		if cases[i].PriorityScore != cases[j].PriorityScore {
			return cases[i].PriorityScore > cases[j].PriorityScore
		}
		iDue, jDue := slaOrInfinity(&cases[i], now), slaOrInfinity(&cases[j], now)
		if !iDue.Equal(jDue) {
			return iDue.Before(jDue)
		}
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})

	total := len(cases)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]Item, 0, end-start)
	for _, c := range cases[start:end] {
		items = append(items, Item{
			ID:                    c.ID,
			ApplicantFullName:     c.ApplicantFullName,
			ApplicantNationality:  c.ApplicantNationality,
			Status:                c.Status,
			ConfidenceScore:       c.ConfidenceScore,
			RiskLevel:             c.RiskLevel,
			RecommendationSummary: c.RecommendationSummary,
			PriorityScore:         c.PriorityScore,
			SLADueAt:              c.SLADueAt,
			IsOverdue:             c.IsOverdue(now),
			CreatedAt:             c.CreatedAt,
			UpdatedAt:             c.UpdatedAt,
		})
	}
	return items, total, nil
}

// ComputeMetrics aggregates the backlog numbers for the reviewer dashboard.
func (s *Service) ComputeMetrics(ctx context.Context) (*Metrics, error) {
	cases, err := s.refreshed(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	metrics := &Metrics{
		PendingManualCount:  len(cases),
		DailyManualCapacity: s.cfg.DailyManualCapacity,
	}

	var waitingDays float64
	var waitingSamples int
	for i := range cases {
		c := &cases[i]
		if c.IsOverdue(now) {
			metrics.OverdueCount++
		}
		if c.PriorityScore >= s.cfg.HighPriorityThreshold {
			metrics.HighPriorityCount++
		}
		if c.QueuedAt != nil {
			days := now.Sub(*c.QueuedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
			waitingDays += days
			waitingSamples++
		}
	}

	if waitingSamples > 0 {
		metrics.AvgWaitingDays = math.Round(waitingDays/float64(waitingSamples)*100) / 100
	}
	if metrics.PendingManualCount > 0 && s.cfg.DailyManualCapacity > 0 {
		metrics.EstimatedDaysToClearBacklog = int(math.Ceil(float64(metrics.PendingManualCount) / float64(s.cfg.DailyManualCapacity)))
	}

	return metrics, nil
}

// refreshed loads the pending-manual set and recomputes each case's priority
// score, persisting changed scores so dashboards and the queue agree.
func (s *Service) refreshed(ctx context.Context) ([]domain.Case, error) {
	cases, err := s.cases.ListPendingManual(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range cases {
		c := &cases[i]
		score := PriorityScore(c.Confidence(), c.QueuedAt, c.SLADueAt, now)
		if score == c.PriorityScore {
			continue
		}
		c.PriorityScore = score
		if err := s.cases.UpdatePriorityScore(ctx, c.ID, score); err != nil {
			s.log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to persist recomputed priority score")
		}
	}
	return cases, nil
}

func slaOrInfinity(c *domain.Case, now time.Time) time.Time {
	if c.SLADueAt == nil {
		return now.Add(100 * 365 * 24 * time.Hour)
	}
	return *c.SLADueAt
}
