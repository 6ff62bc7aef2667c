package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
)

const documentColumns = `id, case_id, document_type, original_filename, content_type, size_bytes,
	       storage_key, status, extracted_text, extracted_fields, extraction_method,
	       ocr_confidence, page_count, warnings, failure_reason, created_at, updated_at`

// DocumentRepository handles document persistence
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document record
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentUploaded
	}

	query := `
		INSERT INTO documents (id, case_id, document_type, original_filename, content_type,
		                       size_bytes, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		doc.ID,
		doc.CaseID,
		doc.DocumentType,
		doc.OriginalFilename,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

// GetByID gets a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("document")
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByCase returns a case's documents newest first
func (r *DocumentRepository) ListByCase(ctx context.Context, caseID string) ([]domain.Document, error) {
	var docs []domain.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE case_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &docs, query, caseID); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByCase counts a case's documents
func (r *DocumentRepository) CountByCase(ctx context.Context, caseID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents WHERE case_id = $1`, caseID)
	return count, err
}

// MarkProcessing flags a document as being extracted
func (r *DocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, domain.DocumentProcessing)
	return err
}

// StoreExtraction persists the evidence produced for a document and marks it
// processed.
func (r *DocumentRepository) StoreExtraction(ctx context.Context, doc *domain.Document) error {
	query := `
		UPDATE documents
		SET status = $2, extracted_text = $3, extracted_fields = $4, extraction_method = $5,
		    ocr_confidence = $6, page_count = $7, warnings = $8, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		domain.DocumentProcessed,
		doc.ExtractedText,
		doc.ExtractedFields,
		doc.ExtractionMethod,
		doc.OCRConfidence,
		doc.PageCount,
		doc.Warnings,
	)
	return err
}

// MarkFailed records an extraction failure on a document
func (r *DocumentRepository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `UPDATE documents SET status = $2, failure_reason = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, domain.DocumentFailed, reason)
	return err
}

// ResetForReprocess returns all of a case's documents to the uploaded state,
// clearing prior extraction output. Used by force_reprocess.
func (r *DocumentRepository) ResetForReprocess(ctx context.Context, caseID string) error {
	query := `
		UPDATE documents
		SET status = $2, extracted_text = NULL, extracted_fields = '{}', extraction_method = '',
		    ocr_confidence = 0, page_count = 0, warnings = '[]', failure_reason = NULL, updated_at = NOW()
		WHERE case_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, caseID, domain.DocumentUploaded)
	return err
}
