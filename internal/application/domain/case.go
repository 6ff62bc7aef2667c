package domain

import (
	"time"
)

// CaseStatus represents the lifecycle state of a citizenship case
type CaseStatus string

const (
	StatusDraft             CaseStatus = "draft"
	StatusDocumentsUploaded CaseStatus = "documents_uploaded"
	StatusQueued            CaseStatus = "queued"
	StatusProcessing        CaseStatus = "processing"
	StatusReviewReady       CaseStatus = "review_ready"
	StatusApproved          CaseStatus = "approved"
	StatusRejected          CaseStatus = "rejected"
	StatusMoreInfoRequired  CaseStatus = "more_info_required"
)

// statusTransitions is the directed graph of permitted status changes.
// Processing can fall back to DocumentsUploaded on failure/cancellation and
// to Queued on stale-lock recovery. MoreInfoRequired reopens to Queued on a
// new upload or an explicit requeue, and still admits reviewer decisions
// (including repeating the more-info request). Approved and Rejected are
// terminal.
var statusTransitions = map[CaseStatus][]CaseStatus{
	StatusDraft:             {StatusDocumentsUploaded},
	StatusDocumentsUploaded: {StatusQueued},
	StatusQueued:            {StatusProcessing},
	StatusProcessing:        {StatusReviewReady, StatusDocumentsUploaded, StatusQueued},
	StatusReviewReady:       {StatusApproved, StatusRejected, StatusMoreInfoRequired, StatusQueued},
	StatusMoreInfoRequired:  {StatusQueued, StatusApproved, StatusRejected, StatusMoreInfoRequired},
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to CaseStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PendingManual reports whether the case is awaiting a human reviewer.
func (s CaseStatus) PendingManual() bool {
	return s == StatusReviewReady || s == StatusMoreInfoRequired
}

// RiskLevel buckets the aggregate confidence score
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelFor buckets a confidence score into a risk level.
func RiskLevelFor(confidenceScore float64) RiskLevel {
	switch {
	case confidenceScore >= 0.75:
		return RiskLow
	case confidenceScore >= 0.50:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Case is one applicant's citizenship application under review
type Case struct {
	ID                    string     `db:"id" json:"id"`
	OwnerID               string     `db:"owner_id" json:"owner_id"`
	ApplicantFullName     string     `db:"applicant_full_name" json:"applicant_full_name"`
	ApplicantNationality  string     `db:"applicant_nationality" json:"applicant_nationality"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	Status                CaseStatus `db:"status" json:"status"`
	ConfidenceScore       *float64   `db:"confidence_score" json:"confidence_score,omitempty"`
	RiskLevel             *RiskLevel `db:"risk_level" json:"risk_level,omitempty"`
	RecommendationSummary *string    `db:"recommendation_summary" json:"recommendation_summary,omitempty"`
	PriorityScore         int        `db:"priority_score" json:"priority_score"`
	SLADueAt              *time.Time `db:"sla_due_at" json:"sla_due_at,omitempty"`
	QueuedAt              *time.Time `db:"queued_at" json:"queued_at,omitempty"`
	FinalDecision         *string    `db:"final_decision" json:"final_decision,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the case has exceeded its SLA window.
func (c *Case) IsOverdue(now time.Time) bool {
	if !c.Status.PendingManual() || c.SLADueAt == nil {
		return false
	}
	return now.After(*c.SLADueAt)
}

// Confidence returns the derived confidence score, zero before processing.
func (c *Case) Confidence() float64 {
	if c.ConfidenceScore == nil {
		return 0
	}
	return *c.ConfidenceScore
}

// Risk returns the derived risk level, defaulting to high before processing.
func (c *Case) Risk() RiskLevel {
	if c.RiskLevel == nil {
		return RiskHigh
	}
	return *c.RiskLevel
}
