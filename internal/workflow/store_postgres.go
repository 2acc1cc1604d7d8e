package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loomworks/internal/domain"
	txcontext "loomworks/pkg/platform/tx"
)

// PostgresEntityStore persists the ten per-domain tables. Each table carries
// the workflow columns first-class and the domain fields as a JSONB payload,
// so one store implementation serves every descriptor.
type PostgresEntityStore struct {
	db *sql.DB
}

func NewPostgresEntityStore(db *sql.DB) *PostgresEntityStore {
	return &PostgresEntityStore{db: db}
}

func tableFor(entityType domain.EntityType) (string, error) {
	desc, ok := domain.Describe(entityType)
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return desc.Table, nil
}

func (s *PostgresEntityStore) Save(ctx context.Context, record domain.Record) error {
	table, err := tableFor(record.Type())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	meta := record.Workflow()

	var verifiedBy *uuid.UUID
	var verifiedAt *time.Time
	rejectionReason := ""
	if v := meta.Verification; v != nil {
		verifiedBy = &v.VerifiedBy
		verifiedAt = &v.VerifiedAt
		rejectionReason = v.RejectionReason
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, manager_id, status, verified_by, verified_at, rejection_reason, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			verified_by = EXCLUDED.verified_by,
			verified_at = EXCLUDED.verified_at,
			rejection_reason = EXCLUDED.rejection_reason,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, table)

	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		meta.ID,
		meta.ManagerID,
		string(meta.Status),
		verifiedBy,
		verifiedAt,
		rejectionReason,
		payload,
		meta.CreatedAt,
		meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert %s record: %w", table, err)
	}
	return nil
}

func (s *PostgresEntityStore) Find(ctx context.Context, entityType domain.EntityType, id uuid.UUID) (domain.Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, table)
	return s.scanOne(entityType, txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, id))
}

func (s *PostgresEntityStore) List(ctx context.Context, entityType domain.EntityType) ([]domain.Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT payload FROM %s ORDER BY created_at`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return s.scanAll(entityType, rows)
}

func (s *PostgresEntityStore) ListByManager(ctx context.Context, entityType domain.EntityType, managerID uuid.UUID) ([]domain.Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE manager_id = $1 ORDER BY created_at`, table)
	rows, err := s.db.QueryContext(ctx, query, managerID)
	if err != nil {
		return nil, fmt.Errorf("query %s by manager: %w", table, err)
	}
	defer rows.Close()
	return s.scanAll(entityType, rows)
}

func (s *PostgresEntityStore) FindByUnique(ctx context.Context, entityType domain.EntityType, key domain.UniqueKey) (domain.Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	// key.Field is descriptor-defined, never caller input, so interpolating
	// it into the JSONB path is safe. The value stays parameterized.
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE payload->>'%s' = $1`, table, key.Field)
	return s.scanOne(entityType, txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, key.Value))
}

func (s *PostgresEntityStore) scanOne(entityType domain.EntityType, row *sql.Row) (domain.Record, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	desc, _ := domain.Describe(entityType)
	return desc.Decode(payload)
}

func (s *PostgresEntityStore) scanAll(entityType domain.EntityType, rows *sql.Rows) ([]domain.Record, error) {
	desc, _ := domain.Describe(entityType)
	var out []domain.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		record, err := desc.Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// PostgresSubmissionStore is the append-only submission ledger.
type PostgresSubmissionStore struct {
	db *sql.DB
}

func NewPostgresSubmissionStore(db *sql.DB) *PostgresSubmissionStore {
	return &PostgresSubmissionStore{db: db}
}

func (s *PostgresSubmissionStore) Append(ctx context.Context, sub Submission) error {
	query := `
		INSERT INTO submissions (id, manager_id, entity_type, entity_id, data_snapshot, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		sub.ID,
		sub.ManagerID,
		string(sub.EntityType),
		sub.EntityID,
		[]byte(sub.DataSnapshot),
		string(sub.Status),
		sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

const submissionColumns = `id, manager_id, entity_type, entity_id, data_snapshot, status, submitted_at`

func (s *PostgresSubmissionStore) Find(ctx context.Context, id uuid.UUID) (Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, id)
	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	return sub, err
}

func (s *PostgresSubmissionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status SubmissionStatus) error {
	query := `UPDATE submissions SET status = $2 WHERE id = $1`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresSubmissionStore) ListByStatus(ctx context.Context, status SubmissionStatus) ([]Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE status = $1 ORDER BY submitted_at`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *PostgresSubmissionStore) ListResolved(ctx context.Context, limit int) ([]Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE status <> 'Pending'
		ORDER BY submitted_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query resolved submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *PostgresSubmissionStore) CountByStatus(ctx context.Context) (map[SubmissionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[SubmissionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan submission count: %w", err)
		}
		counts[SubmissionStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanSubmission(scan func(...any) error) (Submission, error) {
	var (
		sub        Submission
		entityType string
		status     string
		snapshot   []byte
	)
	err := scan(&sub.ID, &sub.ManagerID, &entityType, &sub.EntityID, &snapshot, &status, &sub.SubmittedAt)
	if err != nil {
		return Submission{}, err
	}
	sub.EntityType = domain.EntityType(entityType)
	sub.Status = SubmissionStatus(status)
	sub.DataSnapshot = json.RawMessage(snapshot)
	return sub, nil
}

func scanSubmissions(rows *sql.Rows) ([]Submission, error) {
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// PostgresApprovalStore is the append-only decision ledger.
type PostgresApprovalStore struct {
	db *sql.DB
}

func NewPostgresApprovalStore(db *sql.DB) *PostgresApprovalStore {
	return &PostgresApprovalStore{db: db}
}

func (s *PostgresApprovalStore) Append(ctx context.Context, approval Approval) error {
	query := `
		INSERT INTO approvals (id, submission_id, admin_id, action, comments, action_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		approval.ID,
		approval.SubmissionID,
		approval.AdminID,
		string(approval.Action),
		approval.Comments,
		approval.ActionAt,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (s *PostgresApprovalStore) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]Approval, error) {
	query := `
		SELECT id, submission_id, admin_id, action, comments, action_at
		FROM approvals
		WHERE submission_id = $1
		ORDER BY action_at
	`
	rows, err := s.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		var action string
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.AdminID, &action, &a.Comments, &a.ActionAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Action = DecisionAction(action)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SQLTransactor wraps operations in a database transaction carried through
// context, so the entity and ledger writes of one workflow operation land or
// fail together.
type SQLTransactor struct {
	db *sql.DB
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

func (t *SQLTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
