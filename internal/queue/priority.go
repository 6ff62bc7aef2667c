package queue

import (
	"math"
	"time"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
)

// Priority weighting: low confidence dominates, then queue age, then SLA
// breach.
const (
	confidenceWeight = 0.55
	ageWeight        = 0.25
	overdueWeight    = 0.20

	ageSaturationDays = 14
)

// PriorityScore computes the 0-100 review priority for a case.
func PriorityScore(confidenceScore float64, queuedAt *time.Time, slaDueAt *time.Time, now time.Time) int {
	ageFactor := 0.0
	if queuedAt != nil {
		days := now.Sub(*queuedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		ageFactor = math.Min(1, days/ageSaturationDays)
	}

	overdueFactor := 0.0
	if slaDueAt != nil && now.After(*slaDueAt) {
		overdueFactor = 1
	}

	score := 100 * (confidenceWeight*(1-confidenceScore) + ageWeight*ageFactor + overdueWeight*overdueFactor)
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// SLADueAt computes the review deadline set when a case becomes review-ready:
// queuedAt plus the configured window for its risk level (defaults 21 days
// for low risk, 14 for medium, 7 for high).
func SLADueAt(risk domain.RiskLevel, queuedAt time.Time, cfg *config.QueueConfig) time.Time {
	days := cfg.SLAWindowDaysHigh
	switch risk {
	case domain.RiskLow:
		days = cfg.SLAWindowDaysLow
	case domain.RiskMedium:
		days = cfg.SLAWindowDaysMedium
	}
	return queuedAt.Add(time.Duration(days) * 24 * time.Hour)
}
