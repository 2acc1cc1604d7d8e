package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// entityTables lists the per-domain record tables. They share one shape: the
// workflow columns are first-class, the domain fields live in a JSONB payload.
var entityTables = []string{
	"employees", "projects", "exports", "raw_materials", "workforce",
	"buyers", "financials", "media", "updates", "companies",
}

const entityTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	id               UUID PRIMARY KEY,
	manager_id       UUID NOT NULL,
	status           TEXT NOT NULL DEFAULT 'Draft',
	verified_by      UUID,
	verified_at      TIMESTAMPTZ,
	rejection_reason TEXT NOT NULL DEFAULT '',
	payload          JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%s_manager ON %s (manager_id);
CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status);
`

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS submissions (
	id            UUID PRIMARY KEY,
	manager_id    UUID NOT NULL,
	entity_type   TEXT NOT NULL,
	entity_id     UUID NOT NULL,
	data_snapshot JSONB NOT NULL,
	status        TEXT NOT NULL DEFAULT 'Pending',
	submitted_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_entity ON submissions (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status);

CREATE TABLE IF NOT EXISTS approvals (
	id            UUID PRIMARY KEY,
	submission_id UUID NOT NULL,
	admin_id      UUID NOT NULL,
	action        TEXT NOT NULL,
	comments      TEXT NOT NULL DEFAULT '',
	action_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approvals_submission ON approvals (submission_id);

CREATE TABLE IF NOT EXISTS activities (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   UUID,
	details     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_user ON activities (user_id);
CREATE INDEX IF NOT EXISTS idx_activities_created ON activities (created_at);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	full_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// Schema returns the full DDL for the service. Kept in code rather than a
// migration tool because the table set is small and append-only.
func Schema() string {
	var b strings.Builder
	for _, table := range entityTables {
		fmt.Fprintf(&b, entityTableDDL, table, table, table, table, table)
	}
	b.WriteString(ledgerDDL)
	return b.String()
}

// EnsureSchema applies the schema. All statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, Schema()); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
