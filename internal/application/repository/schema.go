package repository

import (
	"context"

	"github.com/devlinduldulao/citizenship-application/pkg/database"
)

// schemaStatements create only missing tables, never drop or overwrite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_reviewer   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id                     UUID PRIMARY KEY,
		owner_id               UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		applicant_full_name    VARCHAR(255) NOT NULL,
		applicant_nationality  VARCHAR(128) NOT NULL,
		notes                  VARCHAR(2000),
		status                 VARCHAR(32) NOT NULL DEFAULT 'draft',
		confidence_score       DOUBLE PRECISION,
		risk_level             VARCHAR(16),
		recommendation_summary VARCHAR(2000),
		priority_score         INTEGER NOT NULL DEFAULT 0,
		sla_due_at             TIMESTAMPTZ,
		queued_at              TIMESTAMPTZ,
		final_decision         VARCHAR(32),
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_owner ON cases(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id                UUID PRIMARY KEY,
		case_id           UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		document_type     VARCHAR(128) NOT NULL,
		original_filename VARCHAR(255) NOT NULL,
		content_type      VARCHAR(100) NOT NULL,
		size_bytes        BIGINT NOT NULL,
		storage_key       VARCHAR(1024) NOT NULL,
		status            VARCHAR(32) NOT NULL DEFAULT 'uploaded',
		extracted_text    TEXT,
		extracted_fields  JSONB NOT NULL DEFAULT '{}',
		extraction_method VARCHAR(32) NOT NULL DEFAULT '',
		ocr_confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
		page_count        INTEGER NOT NULL DEFAULT 0,
		warnings          JSONB NOT NULL DEFAULT '[]',
		failure_reason    VARCHAR(512),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_case ON documents(case_id)`,
	`CREATE TABLE IF NOT EXISTS rule_results (
		id           UUID PRIMARY KEY,
		case_id      UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		rule_code    VARCHAR(64) NOT NULL,
		rule_name    VARCHAR(255) NOT NULL,
		passed       BOOLEAN NOT NULL,
		score        DOUBLE PRECISION NOT NULL,
		weight       DOUBLE PRECISION NOT NULL,
		rationale    VARCHAR(1000) NOT NULL,
		evidence     JSONB NOT NULL DEFAULT '{}',
		evaluated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rule_results_case ON rule_results(case_id)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id         UUID PRIMARY KEY,
		case_id    UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		actor_id   UUID,
		action     VARCHAR(64) NOT NULL,
		reason     VARCHAR(2000),
		metadata   JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_case ON audit_events(case_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS case_locks (
		case_id     UUID PRIMARY KEY REFERENCES cases(id) ON DELETE CASCADE,
		holder_id   VARCHAR(64) NOT NULL,
		acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates any missing tables and indexes. Existing data is left
// untouched.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
