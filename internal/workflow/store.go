package workflow

import (
	"context"

	"github.com/google/uuid"

	"loomworks/internal/domain"
	"loomworks/pkg/errors"
)

// ErrNotFound keeps store-level 404s consistent across the in-memory and
// Postgres implementations. Services translate it into domain errors.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// EntityStore persists the per-domain record tables. Implementations route
// by the record's EntityType; records are never hard-deleted by the workflow.
type EntityStore interface {
	Save(ctx context.Context, record domain.Record) error
	Find(ctx context.Context, entityType domain.EntityType, id uuid.UUID) (domain.Record, error)
	List(ctx context.Context, entityType domain.EntityType) ([]domain.Record, error)
	ListByManager(ctx context.Context, entityType domain.EntityType, managerID uuid.UUID) ([]domain.Record, error)
	// FindByUnique returns the record holding the given unique field value,
	// or ErrNotFound. Used for duplicate checks before insert.
	FindByUnique(ctx context.Context, entityType domain.EntityType, key domain.UniqueKey) (domain.Record, error)
}

// SubmissionStore is the append-only submission ledger. Update touches only
// the status column; snapshots are immutable.
type SubmissionStore interface {
	Append(ctx context.Context, sub Submission) error
	Find(ctx context.Context, id uuid.UUID) (Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status SubmissionStatus) error
	ListByStatus(ctx context.Context, status SubmissionStatus) ([]Submission, error)
	ListResolved(ctx context.Context, limit int) ([]Submission, error)
	CountByStatus(ctx context.Context) (map[SubmissionStatus]int, error)
}

// ApprovalStore is the append-only decision ledger.
type ApprovalStore interface {
	Append(ctx context.Context, approval Approval) error
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]Approval, error)
}

// Transactor wraps a function in a storage transaction when the backing store
// supports one. The in-memory stores run the function directly; the Postgres
// stores open a *sql.Tx and thread it through context.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs the function without transactional guarantees. The
// reapply operation exists to recover the cases this leaves open.
type NopTransactor struct{}

func (NopTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
