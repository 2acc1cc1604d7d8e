package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loomworks/internal/activity"
	"loomworks/internal/domain"
	wfmetrics "loomworks/internal/workflow/metrics"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// ActivityPublisher appends to the activity stream. The activity package's
// Publisher satisfies this.
type ActivityPublisher interface {
	Emit(ctx context.Context, entry activity.Entry) error
}

// Engine drives the Draft → PendingApproval → {Approved, Rejected} state
// machine uniformly across all ten entity domains and keeps the three
// ledgers consistent with entity transitions. One engine instance serves
// every domain; the descriptor registry supplies the per-domain pieces.
type Engine struct {
	entities    EntityStore
	submissions SubmissionStore
	approvals   ApprovalStore
	activities  ActivityPublisher
	transactor  Transactor
	metrics     *wfmetrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewEngine(
	entities EntityStore,
	submissions SubmissionStore,
	approvals ApprovalStore,
	activities ActivityPublisher,
	transactor Transactor,
	metrics *wfmetrics.Metrics,
	logger *slog.Logger,
) *Engine {
	if transactor == nil {
		transactor = NopTransactor{}
	}
	return &Engine{
		entities:    entities,
		submissions: submissions,
		approvals:   approvals,
		activities:  activities,
		transactor:  transactor,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("loomworks/workflow"),
	}
}

// Create constructs a new entity record owned by the caller. With submit the
// record enters review immediately: status PendingApproval, a ledger snapshot,
// and a Submitted activity entry; otherwise it stays Draft with a Created
// entry.
func (e *Engine) Create(ctx context.Context, domainName string, payload []byte, submit bool) (domain.Record, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Create",
		trace.WithAttributes(attribute.String("entity_type", domainName)))
	defer span.End()

	desc, err := domain.Lookup(domainName)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	managerID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}

	record := desc.New()
	if err := desc.ApplyPayload(record, payload); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	meta := record.Workflow()
	meta.ID = uuid.New()
	meta.ManagerID = managerID
	meta.Status = domain.StatusDraft
	meta.CreatedAt = now
	meta.UpdatedAt = now
	if submit {
		meta.Status = domain.StatusPendingApproval
	}

	if err := desc.Validate(record); err != nil {
		return nil, err
	}
	if err := e.checkUnique(ctx, desc, record); err != nil {
		return nil, err
	}

	err = e.transactor.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.entities.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "save record")
		}
		if submit {
			return e.recordSubmission(ctx, record, now)
		}
		return e.activities.Emit(ctx, activity.Entry{
			UserID:     managerID,
			Action:     activity.ActionCreated,
			EntityType: record.Type(),
			EntityID:   meta.ID,
			Details:    fmt.Sprintf("%s record created as draft", record.Type()),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update mutates an existing record. The current status is re-read from the
// store immediately before applying so the lock check never runs against a
// stale copy. Non-admin edits are refused while the record is pending review
// or already approved.
func (e *Engine) Update(ctx context.Context, domainName string, id uuid.UUID, payload []byte, submit bool) (domain.Record, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Update",
		trace.WithAttributes(attribute.String("entity_type", domainName)))
	defer span.End()

	desc, err := domain.Lookup(domainName)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	callerID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}

	var record domain.Record
	err = e.transactor.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		record, err = e.entities.Find(ctx, desc.Type, id)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %s not found", desc.Type, id)
			}
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load record")
		}

		meta := record.Workflow()
		if meta.ManagerID != callerID && !caller.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "record belongs to another manager")
		}
		if !meta.Status.Editable() && !caller.IsAdmin() {
			e.metrics.IncLockedEdits()
			return pkgerrors.Newf(pkgerrors.CodeLocked,
				"record is %s and cannot be edited", meta.Status)
		}

		if err := desc.ApplyPayload(record, payload); err != nil {
			return err
		}
		if err := desc.Validate(record); err != nil {
			return err
		}
		if err := e.checkUnique(ctx, desc, record); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		meta.UpdatedAt = now
		// An entity in review keeps exactly one open submission. An admin
		// editing a pending record refreshes the entity without opening a
		// second review cycle.
		opensReview := submit && meta.Status != domain.StatusPendingApproval
		if opensReview {
			meta.Status = domain.StatusPendingApproval
			// A resubmit starts a fresh review cycle; the previous rejection
			// reason stays on the old ledger rows.
			meta.Verification = nil
		}

		if err := e.entities.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "save record")
		}
		if opensReview {
			return e.recordSubmission(ctx, record, now)
		}
		return e.activities.Emit(ctx, activity.Entry{
			UserID:     callerID,
			Action:     activity.ActionUpdated,
			EntityType: record.Type(),
			EntityID:   meta.ID,
			Details:    fmt.Sprintf("%s record updated", record.Type()),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Get returns one record, restricted to the owning manager unless the caller
// is an admin.
func (e *Engine) Get(ctx context.Context, domainName string, id uuid.UUID) (domain.Record, error) {
	desc, err := domain.Lookup(domainName)
	if err != nil {
		return nil, err
	}
	record, err := e.entities.Find(ctx, desc.Type, id)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %s not found", desc.Type, id)
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load record")
	}
	caller := requestcontext.Caller(ctx)
	if record.Workflow().ManagerID.String() != caller.UserID && !caller.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "record belongs to another manager")
	}
	return record, nil
}

// List returns the caller's own records, or every record for admins.
func (e *Engine) List(ctx context.Context, domainName string) ([]domain.Record, error) {
	desc, err := domain.Lookup(domainName)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if caller.IsAdmin() {
		return e.entities.List(ctx, desc.Type)
	}
	managerID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	return e.entities.ListByManager(ctx, desc.Type, managerID)
}

// PendingSubmissions returns the admin review queue, oldest first.
func (e *Engine) PendingSubmissions(ctx context.Context) ([]Submission, error) {
	return e.submissions.ListByStatus(ctx, SubmissionPending)
}

// Decide executes an admin decision: flips the submission status, appends the
// approval record, propagates the terminal status onto the entity, and logs
// the activity. On Postgres all writes share one transaction; on stores
// without transactions a failed entity propagation leaves the ledger ahead
// and surfaces a reconciliation error recoverable via ReapplyDecision.
func (e *Engine) Decide(ctx context.Context, submissionID uuid.UUID, action DecisionAction, comments string) error {
	ctx, span := e.tracer.Start(ctx, "workflow.Decide",
		trace.WithAttributes(attribute.String("action", string(action))))
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.ObserveDecideLatency(time.Since(start)) }()

	if !action.Valid() {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "unknown decision action %q", action)
	}
	caller := requestcontext.Caller(ctx)
	adminID, err := uuid.Parse(caller.UserID)
	if err != nil || !caller.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "decisions require the admin role")
	}

	sub, err := e.submissions.Find(ctx, submissionID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "submission %s not found", submissionID)
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load submission")
	}
	if sub.Status != SubmissionPending {
		return pkgerrors.Newf(pkgerrors.CodeConflict,
			"submission %s already decided (%s)", submissionID, sub.Status)
	}

	now := requestcontext.Now(ctx)
	err = e.transactor.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.submissions.UpdateStatus(ctx, submissionID, SubmissionStatus(action)); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update submission status")
		}
		if err := e.approvals.Append(ctx, Approval{
			ID:           uuid.New(),
			SubmissionID: submissionID,
			AdminID:      adminID,
			Action:       action,
			Comments:     comments,
			ActionAt:     now,
		}); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "append approval")
		}

		// Ledger writes are done; from here a failure leaves the ledger
		// ahead of the entity store.
		if err := e.propagateDecision(ctx, sub, action, adminID, comments, now); err != nil {
			e.metrics.IncReconciliationFailures()
			e.logger.ErrorContext(ctx, "decision propagation failed, ledger ahead of entity",
				"submission_id", submissionID.String(),
				"entity_type", string(sub.EntityType),
				"entity_id", sub.EntityID.String(),
				"error", err,
			)
			return pkgerrors.Wrap(err, pkgerrors.CodeReconciliation,
				"decision recorded but entity update failed; reapply the decision")
		}

		return e.activities.Emit(ctx, activity.Entry{
			UserID:     adminID,
			Action:     string(action),
			EntityType: sub.EntityType,
			EntityID:   sub.EntityID,
			Details:    fmt.Sprintf("%s submission %s", sub.EntityType, action),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	e.metrics.IncDecisions(string(action))
	return nil
}

// ReapplyDecision re-propagates an already-decided submission onto its
// entity. Idempotent: reapplying a decision that already landed rewrites the
// same status and verification metadata. Pending submissions are refused.
func (e *Engine) ReapplyDecision(ctx context.Context, submissionID uuid.UUID) error {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "reapply requires the admin role")
	}

	sub, err := e.submissions.Find(ctx, submissionID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "submission %s not found", submissionID)
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load submission")
	}
	if sub.Status == SubmissionPending {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "submission %s has no decision to reapply", submissionID)
	}

	decisions, err := e.approvals.ListBySubmission(ctx, submissionID)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load approvals")
	}
	if len(decisions) == 0 {
		return pkgerrors.Newf(pkgerrors.CodeReconciliation,
			"submission %s is decided but has no approval record", submissionID)
	}
	last := decisions[len(decisions)-1]

	if err := e.propagateDecision(ctx, sub, last.Action, last.AdminID, last.Comments, last.ActionAt); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeReconciliation, "entity update failed again")
	}

	e.logger.InfoContext(ctx, "decision reapplied",
		"submission_id", submissionID.String(),
		"action", string(last.Action),
	)
	return nil
}

func (e *Engine) propagateDecision(ctx context.Context, sub Submission, action DecisionAction, adminID uuid.UUID, comments string, at time.Time) error {
	record, err := e.entities.Find(ctx, sub.EntityType, sub.EntityID)
	if err != nil {
		return fmt.Errorf("load entity: %w", err)
	}

	reason := ""
	if action == DecisionRejected {
		reason = comments
	}
	meta := record.Workflow()
	meta.Status = domain.SubmissionStatus(action)
	meta.Verification = &domain.Verification{
		VerifiedBy:      adminID,
		VerifiedAt:      at,
		RejectionReason: reason,
	}
	meta.UpdatedAt = at

	if err := e.entities.Save(ctx, record); err != nil {
		return fmt.Errorf("save entity: %w", err)
	}
	return nil
}

func (e *Engine) recordSubmission(ctx context.Context, record domain.Record, now time.Time) error {
	meta := record.Workflow()
	snapshot, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "snapshot record")
	}
	if err := e.submissions.Append(ctx, Submission{
		ID:           uuid.New(),
		ManagerID:    meta.ManagerID,
		EntityType:   record.Type(),
		EntityID:     meta.ID,
		DataSnapshot: snapshot,
		Status:       SubmissionPending,
		SubmittedAt:  now,
	}); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "append submission")
	}

	e.metrics.IncSubmissions(string(record.Type()))
	return e.activities.Emit(ctx, activity.Entry{
		UserID:     meta.ManagerID,
		Action:     activity.ActionSubmitted,
		EntityType: record.Type(),
		EntityID:   meta.ID,
		Details:    fmt.Sprintf("%s record submitted for review", record.Type()),
		CreatedAt:  now,
	})
}

func (e *Engine) checkUnique(ctx context.Context, desc domain.Descriptor, record domain.Record) error {
	for _, key := range desc.UniqueKeys(record) {
		if key.Value == "" {
			continue
		}
		existing, err := e.entities.FindByUnique(ctx, desc.Type, key)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				continue
			}
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "uniqueness check")
		}
		if existing.Workflow().ID != record.Workflow().ID {
			return pkgerrors.Newf(pkgerrors.CodeConflict,
				"%s with %s %q already exists", desc.Type, key.Field, key.Value)
		}
	}
	return nil
}
