package service

import (
	"context"
	"strings"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/application/repository"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
	"github.com/devlinduldulao/citizenship-application/pkg/messaging"
)

// Review decision actions
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionRequestMoreInfo = "request_more_info"
)

const (
	reasonMinLength = 8
	reasonMaxLength = 1000
)

// DecisionService validates and applies reviewer decisions. It is the only
// component allowed to set final_decision.
type DecisionService struct {
	cases     *repository.CaseRepository
	audit     *repository.AuditRepository
	publisher *messaging.Publisher
	log       *logger.Logger
}

// NewDecisionService creates a new decision service
func NewDecisionService(
	cases *repository.CaseRepository,
	audit *repository.AuditRepository,
	publisher *messaging.Publisher,
	log *logger.Logger,
) *DecisionService {
	return &DecisionService{
		cases:     cases,
		audit:     audit,
		publisher: publisher,
		log:       log.WithComponent("decision"),
	}
}

// ReviewDecisionRequest is the reviewer's submission
type ReviewDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject request_more_info"`
	Reason string `json:"reason" validate:"required"`
}

// Submit applies a reviewer decision: approve and reject are terminal and
// clear the SLA; request_more_info keeps the case on the manual queue but
// also clears the SLA until new evidence arrives.
func (s *DecisionService) Submit(ctx context.Context, actor Actor, caseID string, req *ReviewDecisionRequest) (*domain.Case, error) {
	if !actor.IsReviewer {
		return nil, errors.Forbidden("reviewer role required")
	}

	reason := strings.TrimSpace(req.Reason)
	if len(reason) < reasonMinLength || len(reason) > reasonMaxLength {
		return nil, errors.Validation(map[string]string{
			"reason": "must be between 8 and 1000 characters after trimming",
		})
	}

	var target domain.CaseStatus
	var auditAction string
	switch req.Action {
	case ActionApprove:
		target = domain.StatusApproved
		auditAction = domain.AuditReviewApproved
	case ActionReject:
		target = domain.StatusRejected
		auditAction = domain.AuditReviewRejected
	case ActionRequestMoreInfo:
		target = domain.StatusMoreInfoRequired
		auditAction = domain.AuditReviewMoreInfo
	default:
		return nil, errors.Validation(map[string]string{
			"action": "must be one of: approve, reject, request_more_info",
		})
	}

	current, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !current.Status.PendingManual() {
		return nil, errors.InvalidTransition(string(current.Status), string(target))
	}
	previousStatus := current.Status

	updated, err := s.cases.Transition(ctx, caseID, target, func(c *domain.Case) {
		c.SLADueAt = nil
		if target.IsTerminal() {
			decision := string(target)
			c.FinalDecision = &decision
			c.PriorityScore = 0
		} else {
			decision := string(domain.StatusMoreInfoRequired)
			c.FinalDecision = &decision
		}
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, caseID, auditAction, actor.UserID, reason, domain.JSONMap{
		"decision_action": req.Action,
		"previous_status": string(previousStatus),
		"final_status":    string(target),
	})

	if err := s.publisher.Publish(ctx, messaging.EventReviewDecided, &messaging.ReviewDecidedEvent{
		CaseID:     caseID,
		Action:     req.Action,
		ReviewerID: actor.UserID,
	}); err != nil {
		s.log.Warn().Err(err).Str("case_id", caseID).Msg("failed to publish review decision event")
	}

	s.log.Info().
		Str("case_id", caseID).
		Str("action", req.Action).
		Str("reviewer_id", actor.UserID).
		Msg("review decision applied")

	return updated, nil
}

func (s *DecisionService) appendAudit(ctx context.Context, caseID, action, actorID, reason string, metadata domain.JSONMap) {
	event := &domain.AuditEvent{
		CaseID:   caseID,
		ActorID:  &actorID,
		Action:   action,
		Reason:   &reason,
		Metadata: metadata,
	}
	if err := s.audit.Append(ctx, event); err != nil {
		s.log.Error().Err(err).Str("case_id", caseID).Str("action", action).Msg("failed to append audit event")
	}
}
