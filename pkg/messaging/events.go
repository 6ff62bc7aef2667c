package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Case lifecycle events
	EventCaseCreated         = "case.created"
	EventCaseUpdated         = "case.updated"
	EventDocumentUploaded    = "case.document.uploaded"
	EventProcessingQueued    = "case.processing.queued"
	EventProcessingStarted   = "case.processing.started"
	EventProcessingCompleted = "case.processing.completed"
	EventProcessingFailed    = "case.processing.failed"
	EventReviewDecided       = "case.review.decided"

	// Audit events
	EventAuditAppended = "case.audit.appended"
)

// Exchange names
const (
	ExchangeCaseEvents = "case.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ProcessingCompletedEvent is published when a processing run finishes
type ProcessingCompletedEvent struct {
	CaseID          string  `json:"case_id"`
	ConfidenceScore float64 `json:"confidence_score"`
	RiskLevel       string  `json:"risk_level"`
	PriorityScore   int     `json:"priority_score"`
	ProcessedDocs   int     `json:"processed_documents"`
	FailedDocs      int     `json:"failed_documents"`
}

// ProcessingFailedEvent is published when a processing run aborts
type ProcessingFailedEvent struct {
	CaseID     string `json:"case_id"`
	ErrorClass string `json:"error_class"`
}

// ReviewDecidedEvent is published when a reviewer finalizes a decision
type ReviewDecidedEvent struct {
	CaseID     string `json:"case_id"`
	Action     string `json:"action"`
	ReviewerID string `json:"reviewer_id"`
}

// AuditAppendedEvent mirrors a newly written audit trail entry
type AuditAppendedEvent struct {
	CaseID  string `json:"case_id"`
	Action  string `json:"action"`
	ActorID string `json:"actor_id,omitempty"`
}
