package service

import (
	"context"
	"time"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/application/repository"
	"github.com/devlinduldulao/citizenship-application/internal/storage"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
	"github.com/devlinduldulao/citizenship-application/pkg/messaging"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UserID     string
	IsReviewer bool
}

// CaseService owns the case lifecycle outside of processing: intake, edits,
// uploads and reads, with owner-or-reviewer scoping throughout.
type CaseService struct {
	cases     *repository.CaseRepository
	documents *repository.DocumentRepository
	rules     *repository.RuleResultRepository
	audit     *repository.AuditRepository
	blobs     storage.BlobStore
	publisher *messaging.Publisher
	uploads   *config.UploadConfig
	log       *logger.Logger
}

// NewCaseService creates a new case service
func NewCaseService(
	cases *repository.CaseRepository,
	documents *repository.DocumentRepository,
	rules *repository.RuleResultRepository,
	audit *repository.AuditRepository,
	blobs storage.BlobStore,
	publisher *messaging.Publisher,
	uploads *config.UploadConfig,
	log *logger.Logger,
) *CaseService {
	return &CaseService{
		cases:     cases,
		documents: documents,
		rules:     rules,
		audit:     audit,
		blobs:     blobs,
		publisher: publisher,
		uploads:   uploads,
		log:       log.WithComponent("case-service"),
	}
}

// CreateCaseRequest is the intake payload
type CreateCaseRequest struct {
	ApplicantFullName    string  `json:"applicant_full_name" validate:"required,min=1,max=255"`
	ApplicantNationality string  `json:"applicant_nationality" validate:"required,min=1,max=128"`
	Notes                *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateCaseRequest is a partial patch of the owner-editable fields. Derived
// fields (status, scores, SLA, final decision) are not represented here and
// therefore cannot be mutated through this path.
type UpdateCaseRequest struct {
	ApplicantFullName    *string `json:"applicant_full_name" validate:"omitempty,min=1,max=255"`
	ApplicantNationality *string `json:"applicant_nationality" validate:"omitempty,min=1,max=128"`
	Notes                *string `json:"notes" validate:"omitempty,max=2000"`
}

// CreateCase creates a new case in Draft for the owner
func (s *CaseService) CreateCase(ctx context.Context, actor Actor, req *CreateCaseRequest) (*domain.Case, error) {
	c := &domain.Case{
		OwnerID:              actor.UserID,
		ApplicantFullName:    req.ApplicantFullName,
		ApplicantNationality: req.ApplicantNationality,
		Notes:                req.Notes,
		Status:               domain.StatusDraft,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, errors.Storage(err)
	}

	s.appendAudit(ctx, c.ID, domain.AuditCaseCreated, &actor.UserID, nil, domain.JSONMap{
		"applicant_full_name":   c.ApplicantFullName,
		"applicant_nationality": c.ApplicantNationality,
	})
	s.publish(ctx, messaging.EventCaseCreated, domain.JSONMap{"case_id": c.ID})

	return c, nil
}

// GetCase returns a case the actor may see
func (s *CaseService) GetCase(ctx context.Context, actor Actor, caseID string) (*domain.Case, error) {
	return s.authorizedCase(ctx, actor, caseID)
}

// ListCases lists the actor's cases, or every case for reviewers
func (s *CaseService) ListCases(ctx context.Context, actor Actor, page, perPage int) ([]domain.Case, int64, error) {
	ownerID := actor.UserID
	if actor.IsReviewer {
		ownerID = ""
	}
	return s.cases.List(ctx, ownerID, page, perPage)
}

// UpdateCase applies a partial update to the owner-editable fields and audits
// the change when anything actually changed.
func (s *CaseService) UpdateCase(ctx context.Context, actor Actor, caseID string, req *UpdateCaseRequest) (*domain.Case, error) {
	c, err := s.authorizedCase(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}

	changed := domain.JSONMap{}
	if req.ApplicantFullName != nil && *req.ApplicantFullName != c.ApplicantFullName {
		c.ApplicantFullName = *req.ApplicantFullName
		changed["applicant_full_name"] = *req.ApplicantFullName
	}
	if req.ApplicantNationality != nil && *req.ApplicantNationality != c.ApplicantNationality {
		c.ApplicantNationality = *req.ApplicantNationality
		changed["applicant_nationality"] = *req.ApplicantNationality
	}
	if req.Notes != nil {
		if c.Notes == nil || *c.Notes != *req.Notes {
			c.Notes = req.Notes
			changed["notes"] = *req.Notes
		}
	}

	if len(changed) == 0 {
		return c, nil
	}

	if err := s.cases.UpdateFields(ctx, c); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Storage(err)
	}

	s.appendAudit(ctx, c.ID, domain.AuditCaseUpdated, &actor.UserID, nil, changed)
	s.publish(ctx, messaging.EventCaseUpdated, domain.JSONMap{"case_id": c.ID})

	return s.cases.GetByID(ctx, caseID)
}

// AddDocument validates, stores and records an uploaded document. The first
// upload moves a Draft case to DocumentsUploaded; an upload to a case resting
// in MoreInfoRequired reopens it onto the processing queue.
func (s *CaseService) AddDocument(ctx context.Context, actor Actor, caseID, documentType, filename, contentType string, data []byte) (*domain.Document, error) {
	c, err := s.authorizedCase(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}

	if c.Status.IsTerminal() {
		return nil, errors.InvalidTransition(string(c.Status), string(domain.StatusDocumentsUploaded))
	}
	if !s.uploads.Allows(contentType) {
		return nil, errors.Validation(map[string]string{
			"file": "unsupported content type; allowed: PDF, JPEG, PNG, WEBP",
		})
	}
	if len(data) == 0 {
		return nil, errors.Validation(map[string]string{"file": "uploaded file is empty"})
	}
	if int64(len(data)) > s.uploads.MaxBytes {
		return nil, errors.Validation(map[string]string{"file": "file exceeds the upload size limit"})
	}
	if documentType == "" || len(documentType) > 128 {
		return nil, errors.Validation(map[string]string{"document_type": "must be 1-128 characters"})
	}

	key, err := s.blobs.Save(caseID, filename, data)
	if err != nil {
		return nil, errors.Storage(err)
	}

	doc := &domain.Document{
		CaseID:           caseID,
		DocumentType:     documentType,
		OriginalFilename: filename,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		StorageKey:       key,
		Status:           domain.DocumentUploaded,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, errors.Storage(err)
	}

	s.appendAudit(ctx, caseID, domain.AuditDocumentUploaded, &actor.UserID, nil, domain.JSONMap{
		"document_type":     doc.DocumentType,
		"original_filename": doc.OriginalFilename,
		"content_type":      doc.ContentType,
	})
	s.publish(ctx, messaging.EventDocumentUploaded, domain.JSONMap{"case_id": caseID, "document_id": doc.ID})

	switch c.Status {
	case domain.StatusDraft:
		if _, err := s.cases.Transition(ctx, caseID, domain.StatusDocumentsUploaded); err != nil {
			return nil, err
		}
	case domain.StatusMoreInfoRequired:
		if _, err := s.cases.Transition(ctx, caseID, domain.StatusQueued, func(c *domain.Case) {
			now := time.Now().UTC()
			c.QueuedAt = &now
			c.SLADueAt = nil
		}); err != nil {
			return nil, err
		}
		s.appendAudit(ctx, caseID, domain.AuditProcessingQueued, &actor.UserID, nil, domain.JSONMap{
			"force_reprocess": false,
			"reopened":        true,
		})
	}

	return doc, nil
}

// ListDocuments returns a case's documents
func (s *CaseService) ListDocuments(ctx context.Context, actor Actor, caseID string) ([]domain.Document, error) {
	if _, err := s.authorizedCase(ctx, actor, caseID); err != nil {
		return nil, err
	}
	return s.documents.ListByCase(ctx, caseID)
}

// Breakdown returns the rule results and derived scores of the latest run
func (s *CaseService) Breakdown(ctx context.Context, actor Actor, caseID string) (*domain.Breakdown, error) {
	c, err := s.authorizedCase(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}

	results, err := s.rules.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	summary := "Processing has not completed for this case yet"
	if c.RecommendationSummary != nil {
		summary = *c.RecommendationSummary
	}

	return &domain.Breakdown{
		CaseID:                c.ID,
		Rules:                 results,
		ConfidenceScore:       c.Confidence(),
		RiskLevel:             c.Risk(),
		RecommendationSummary: summary,
	}, nil
}

// AuditTrail returns the chronological audit events of a case
func (s *CaseService) AuditTrail(ctx context.Context, actor Actor, caseID string) ([]domain.AuditEvent, error) {
	if _, err := s.authorizedCase(ctx, actor, caseID); err != nil {
		return nil, err
	}
	return s.audit.ListByCase(ctx, caseID)
}

// authorizedCase loads a case and enforces owner-or-reviewer visibility.
// Non-owners get NotFound rather than Forbidden so case ids do not leak.
func (s *CaseService) authorizedCase(ctx context.Context, actor Actor, caseID string) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsReviewer && c.OwnerID != actor.UserID {
		return nil, errors.NotFound("case")
	}
	return c, nil
}

func (s *CaseService) appendAudit(ctx context.Context, caseID, action string, actorID *string, reason *string, metadata domain.JSONMap) {
	event := &domain.AuditEvent{
		CaseID:   caseID,
		ActorID:  actorID,
		Action:   action,
		Reason:   reason,
		Metadata: metadata,
	}
	if err := s.audit.Append(ctx, event); err != nil {
		s.log.Error().Err(err).Str("case_id", caseID).Str("action", action).Msg("failed to append audit event")
	}
}

func (s *CaseService) publish(ctx context.Context, eventType string, data domain.JSONMap) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
