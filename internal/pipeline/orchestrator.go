// Package pipeline executes per-case processing jobs: extract every pending
// document, evaluate the rule set, persist the breakdown, and move the case
// through the lifecycle. A per-case lock guarantees at most one concurrent
// job per case across all workers.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/internal/application/repository"
	"github.com/devlinduldulao/citizenship-application/internal/extraction"
	"github.com/devlinduldulao/citizenship-application/internal/queue"
	"github.com/devlinduldulao/citizenship-application/internal/rules"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
	"github.com/devlinduldulao/citizenship-application/pkg/messaging"
)

// CaseStore is the slice of the case repository the orchestrator drives.
type CaseStore interface {
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	NextQueued(ctx context.Context) (*domain.Case, error)
	Transition(ctx context.Context, caseID string, to domain.CaseStatus, mutations ...repository.Mutation) (*domain.Case, error)
	CompleteProcessing(ctx context.Context, caseID string, results []domain.RuleResult, derived repository.Derived) (*domain.Case, error)
}

// DocumentStore is the slice of the document repository the orchestrator drives.
type DocumentStore interface {
	ListByCase(ctx context.Context, caseID string) ([]domain.Document, error)
	CountByCase(ctx context.Context, caseID string) (int, error)
	MarkProcessing(ctx context.Context, id string) error
	StoreExtraction(ctx context.Context, doc *domain.Document) error
	MarkFailed(ctx context.Context, id, reason string) error
	ResetForReprocess(ctx context.Context, caseID string) error
}

// LockStore backs the at-most-one-processing invariant.
type LockStore interface {
	Acquire(ctx context.Context, caseID, holderID string) (bool, error)
	Release(ctx context.Context, caseID, holderID string) error
	IsHeld(ctx context.Context, caseID string) (bool, error)
	ReclaimStale(ctx context.Context, ttl time.Duration) ([]string, error)
}

// AuditStore appends to the audit trail.
type AuditStore interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
}

// Extracting produces evidence for one document's bytes.
type Extracting interface {
	Extract(ctx context.Context, data []byte, contentType string) (*extraction.Evidence, error)
}

// BlobLoader reads stored document bytes.
type BlobLoader interface {
	Load(key string) ([]byte, error)
}

// Orchestrator owns the processing queue: it admits cases via
// QueueProcessing and drains them with a bounded worker pool.
type Orchestrator struct {
	cases     CaseStore
	documents DocumentStore
	locks     LockStore
	audit     AuditStore
	extractor Extracting
	blobs     BlobLoader
	engine    *rules.Engine
	publisher *messaging.Publisher
	metrics   *Metrics
	queueCfg  *config.QueueConfig
	cfg       *config.PipelineConfig
	log       *logger.Logger

	holderID string
	workers  *semaphore.Weighted
	wake     chan struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	now      func() time.Time
}

// NewOrchestrator creates the processing orchestrator.
func NewOrchestrator(
	cases CaseStore,
	documents DocumentStore,
	locks LockStore,
	audit AuditStore,
	extractor Extracting,
	blobs BlobLoader,
	engine *rules.Engine,
	publisher *messaging.Publisher,
	metrics *Metrics,
	queueCfg *config.QueueConfig,
	cfg *config.PipelineConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cases:     cases,
		documents: documents,
		locks:     locks,
		audit:     audit,
		extractor: extractor,
		blobs:     blobs,
		engine:    engine,
		publisher: publisher,
		metrics:   metrics,
		queueCfg:  queueCfg,
		cfg:       cfg,
		log:       log.WithComponent("pipeline"),
		holderID:  uuid.New().String(),
		workers:   semaphore.NewWeighted(int64(cfg.WorkerPoolSize)),
		wake:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// QueueProcessing admits a case onto the processing queue.
//
// Permitted from DocumentsUploaded, ReviewReady and MoreInfoRequired when at
// least one document exists; from Processing only with force_reprocess and no
// active lock holder (stale crash recovery). Calling it on a case that is
// already Queued is idempotent.
func (o *Orchestrator) QueueProcessing(ctx context.Context, caseID string, actorID string, forceReprocess bool) (*domain.Case, error) {
	c, err := o.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	count, err := o.documents.CountByCase(ctx, caseID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if count == 0 {
		return nil, errors.NoDocuments()
	}

	switch c.Status {
	case domain.StatusQueued:
		// Already waiting; nothing to do.
		return c, nil
	case domain.StatusProcessing:
		if !forceReprocess {
			return nil, errors.AlreadyProcessing()
		}
		held, err := o.locks.IsHeld(ctx, caseID)
		if err != nil {
			return nil, errors.Storage(err)
		}
		if held {
			return nil, errors.AlreadyProcessing()
		}
	case domain.StatusDocumentsUploaded, domain.StatusReviewReady, domain.StatusMoreInfoRequired:
		// Normal admission points.
	default:
		return nil, errors.InvalidTransition(string(c.Status), string(domain.StatusQueued))
	}

	if forceReprocess {
		if err := o.documents.ResetForReprocess(ctx, caseID); err != nil {
			return nil, errors.Storage(err)
		}
	}

	updated, err := o.cases.Transition(ctx, caseID, domain.StatusQueued, func(c *domain.Case) {
		now := o.now().UTC()
		c.QueuedAt = &now
		c.SLADueAt = nil
		c.PriorityScore = 0
	})
	if err != nil {
		return nil, err
	}

	o.appendAudit(ctx, caseID, domain.AuditProcessingQueued, &actorID, nil, domain.JSONMap{
		"force_reprocess": forceReprocess,
	})
	o.publishEvent(ctx, messaging.EventProcessingQueued, domain.JSONMap{"case_id": caseID})

	o.signal()
	return updated, nil
}

// Start launches the dispatcher loop.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.log.Info().
			Int("worker_pool_size", o.cfg.WorkerPoolSize).
			Dur("poll_interval", o.cfg.PollInterval).
			Msg("processing dispatcher started")

		ticker := time.NewTicker(o.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				o.log.Info().Msg("processing dispatcher stopped")
				return
			case <-ticker.C:
			case <-o.wake:
			}

			o.reclaimStaleLocks(ctx)
			o.dispatch(ctx)
		}
	}()
}

// Stop cancels the dispatcher and waits for in-flight workers. Workers
// observe the cancellation, finish the document they are on, and roll their
// case back with a processing_cancelled audit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// signal nudges the dispatcher without waiting for the next poll tick.
func (o *Orchestrator) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// dispatch drains the queued cases into the worker pool. When the pool is
// saturated the remaining cases simply stay Queued.
func (o *Orchestrator) dispatch(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !o.workers.TryAcquire(1) {
			return
		}

		c, err := o.cases.NextQueued(ctx)
		if err != nil {
			o.workers.Release(1)
			o.log.Error().Err(err).Msg("failed to read processing queue")
			return
		}
		if c == nil {
			o.workers.Release(1)
			return
		}

		acquired, err := o.locks.Acquire(ctx, c.ID, o.holderID)
		if err != nil || !acquired {
			o.workers.Release(1)
			if err != nil {
				o.log.Error().Err(err).Str("case_id", c.ID).Msg("failed to acquire case lock")
			}
			return
		}

		o.wg.Add(1)
		go func(caseID string) {
			defer o.wg.Done()
			defer o.workers.Release(1)
			defer func() {
				if err := o.locks.Release(context.Background(), caseID, o.holderID); err != nil {
					o.log.Error().Err(err).Str("case_id", caseID).Msg("failed to release case lock")
				}
			}()

			o.metrics.ActiveWorkers.Inc()
			defer o.metrics.ActiveWorkers.Dec()

			o.process(ctx, caseID)
		}(c.ID)
	}
}

// reclaimStaleLocks requeues cases whose worker died holding the lock.
func (o *Orchestrator) reclaimStaleLocks(ctx context.Context) {
	caseIDs, err := o.locks.ReclaimStale(ctx, o.cfg.StaleLockTTL)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to reclaim stale locks")
		return
	}

	for _, caseID := range caseIDs {
		c, err := o.cases.GetByID(ctx, caseID)
		if err != nil || c.Status != domain.StatusProcessing {
			continue
		}
		if _, err := o.cases.Transition(ctx, caseID, domain.StatusQueued, func(c *domain.Case) {
			now := o.now().UTC()
			c.QueuedAt = &now
		}); err != nil {
			o.log.Error().Err(err).Str("case_id", caseID).Msg("failed to requeue recovered case")
			continue
		}
		o.appendAudit(ctx, caseID, domain.AuditProcessingRecovered, nil, nil, domain.JSONMap{
			"stale_lock_ttl_seconds": int(o.cfg.StaleLockTTL.Seconds()),
		})
		o.metrics.JobsRecovered.Inc()
		o.log.Warn().Str("case_id", caseID).Msg("stale processing lock reclaimed, case requeued")
	}
}

// process runs one full processing job while the case lock is held.
func (o *Orchestrator) process(ctx context.Context, caseID string) {
	log := o.log.WithCaseID(caseID)

	c, err := o.cases.Transition(ctx, caseID, domain.StatusProcessing)
	if err != nil {
		log.Error().Err(err).Msg("failed to start processing")
		return
	}
	o.appendAudit(ctx, caseID, domain.AuditProcessingStarted, nil, nil, domain.JSONMap{})
	o.publishEvent(ctx, messaging.EventProcessingStarted, domain.JSONMap{"case_id": caseID})
	o.metrics.JobsStarted.Inc()

	documents, err := o.documents.ListByCase(ctx, caseID)
	if err != nil {
		o.failJob(caseID, "storage_error", err)
		return
	}

	processed, failed := 0, 0
	for i := range documents {
		doc := &documents[i]
		if doc.Status != domain.DocumentUploaded && doc.Status != domain.DocumentFailed {
			continue
		}

		// Shutdown: finish nothing more, roll back below.
		if ctx.Err() != nil {
			o.cancelJob(caseID)
			return
		}

		if err := o.extractDocument(ctx, doc); err != nil {
			if ctx.Err() != nil {
				o.cancelJob(caseID)
				return
			}
			failed++
			o.metrics.DocumentsFail.Inc()
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("document extraction failed")
			continue
		}
		processed++
		o.metrics.DocumentsOK.Inc()
	}

	if ctx.Err() != nil {
		o.cancelJob(caseID)
		return
	}

	// Re-read so the rule engine sees the stored extraction output.
	documents, err = o.documents.ListByCase(ctx, caseID)
	if err != nil {
		o.failJob(caseID, "storage_error", err)
		return
	}

	breakdown, err := o.evaluateRules(c, documents)
	if err != nil {
		o.failJob(caseID, "rule_engine_error", err)
		return
	}

	now := o.now().UTC()
	queuedAt := now
	if c.QueuedAt != nil {
		queuedAt = *c.QueuedAt
	}
	slaDueAt := queue.SLADueAt(breakdown.RiskLevel, queuedAt, o.queueCfg)
	derived := repository.Derived{
		ConfidenceScore:       breakdown.ConfidenceScore,
		RiskLevel:             breakdown.RiskLevel,
		RecommendationSummary: breakdown.RecommendationSummary,
		PriorityScore:         queue.PriorityScore(breakdown.ConfidenceScore, c.QueuedAt, &slaDueAt, now),
		SLADueAt:              &slaDueAt,
	}

	if _, err := o.cases.CompleteProcessing(ctx, caseID, breakdown.Rules, derived); err != nil {
		o.failJob(caseID, "storage_error", err)
		return
	}

	o.appendAudit(ctx, caseID, domain.AuditProcessingCompleted, nil, nil, domain.JSONMap{
		"confidence_score":    breakdown.ConfidenceScore,
		"risk_level":          string(breakdown.RiskLevel),
		"priority_score":      derived.PriorityScore,
		"processed_documents": processed,
		"failed_documents":    failed,
	})
	o.publishEvent(ctx, messaging.EventProcessingCompleted, &messaging.ProcessingCompletedEvent{
		CaseID:          caseID,
		ConfidenceScore: breakdown.ConfidenceScore,
		RiskLevel:       string(breakdown.RiskLevel),
		PriorityScore:   derived.PriorityScore,
		ProcessedDocs:   processed,
		FailedDocs:      failed,
	})
	o.metrics.JobsCompleted.Inc()

	log.Info().
		Float64("confidence_score", breakdown.ConfidenceScore).
		Str("risk_level", string(breakdown.RiskLevel)).
		Int("processed_documents", processed).
		Int("failed_documents", failed).
		Msg("processing completed")
}

// extractDocument runs the extractor for one document and stores the result.
func (o *Orchestrator) extractDocument(ctx context.Context, doc *domain.Document) error {
	if err := o.documents.MarkProcessing(ctx, doc.ID); err != nil {
		return err
	}

	data, err := o.blobs.Load(doc.StorageKey)
	if err != nil {
		markErr := o.documents.MarkFailed(ctx, doc.ID, "stored file unavailable: "+err.Error())
		if markErr != nil {
			return markErr
		}
		return err
	}

	evidence, err := o.extractor.Extract(ctx, data, doc.ContentType)
	if err != nil {
		markErr := o.documents.MarkFailed(ctx, doc.ID, err.Error())
		if markErr != nil {
			return markErr
		}
		return err
	}

	doc.Status = domain.DocumentProcessed
	doc.ExtractionMethod = evidence.Method
	doc.OCRConfidence = evidence.OCRConfidence
	doc.PageCount = evidence.PageCount
	doc.Warnings = evidence.Warnings
	doc.ExtractedFields = evidence.Fields
	if evidence.Text != "" {
		text := evidence.Text
		doc.ExtractedText = &text
	} else {
		doc.ExtractedText = nil
	}

	return o.documents.StoreExtraction(ctx, doc)
}

// evaluateRules guards the engine against panics so a bad rule cannot take
// a worker down; the job fails cleanly instead.
func (o *Orchestrator) evaluateRules(c *domain.Case, documents []domain.Document) (breakdown *domain.Breakdown, err error) {
	defer func() {
		if r := recover(); r != nil {
			breakdown = nil
			err = errors.RuleEngine(fmt.Errorf("panic: %v", r))
		}
	}()
	return o.engine.Evaluate(c, documents, o.now().UTC()), nil
}

// failJob rolls the case back to DocumentsUploaded without touching the
// previous rule results.
func (o *Orchestrator) failJob(caseID, errorClass string, cause error) {
	// The job context may already be cancelled; the rollback must still land.
	ctx := context.Background()

	o.log.Error().Err(cause).Str("case_id", caseID).Str("error_class", errorClass).Msg("processing failed")
	if _, err := o.cases.Transition(ctx, caseID, domain.StatusDocumentsUploaded); err != nil {
		o.log.Error().Err(err).Str("case_id", caseID).Msg("failed to roll back case after job failure")
	}
	o.appendAudit(ctx, caseID, domain.AuditProcessingFailed, nil, nil, domain.JSONMap{
		"error_class": errorClass,
	})
	o.publishEvent(ctx, messaging.EventProcessingFailed, &messaging.ProcessingFailedEvent{
		CaseID:     caseID,
		ErrorClass: errorClass,
	})
	o.metrics.JobsFailed.Inc()
}

// cancelJob rolls the case back after a shutdown interrupted the run.
func (o *Orchestrator) cancelJob(caseID string) {
	ctx := context.Background()

	if _, err := o.cases.Transition(ctx, caseID, domain.StatusDocumentsUploaded); err != nil {
		o.log.Error().Err(err).Str("case_id", caseID).Msg("failed to roll back cancelled case")
	}
	o.appendAudit(ctx, caseID, domain.AuditProcessingCancelled, nil, nil, domain.JSONMap{})
	o.metrics.JobsCancelled.Inc()
	o.log.Info().Str("case_id", caseID).Msg("processing cancelled by shutdown")
}

func (o *Orchestrator) appendAudit(ctx context.Context, caseID, action string, actorID *string, reason *string, metadata domain.JSONMap) {
	event := &domain.AuditEvent{
		CaseID:   caseID,
		ActorID:  actorID,
		Action:   action,
		Reason:   reason,
		Metadata: metadata,
	}
	if err := o.audit.Append(ctx, event); err != nil {
		o.log.Error().Err(err).Str("case_id", caseID).Str("action", action).Msg("failed to append audit event")
	}
}

func (o *Orchestrator) publishEvent(ctx context.Context, eventType string, data interface{}) {
	if err := o.publisher.Publish(ctx, eventType, data); err != nil {
		o.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
