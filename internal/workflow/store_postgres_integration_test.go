//go:build integration

package workflow_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"loomworks/internal/activity"
	"loomworks/internal/domain"
	"loomworks/internal/workflow"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/testutil"
	"loomworks/pkg/testutil/containers"
)

type PostgresWorkflowSuite struct {
	suite.Suite
	pg          *containers.PostgresContainer
	entities    *workflow.PostgresEntityStore
	submissions *workflow.PostgresSubmissionStore
	approvals   *workflow.PostgresApprovalStore
	engine      *workflow.Engine
	managerID   uuid.UUID
	adminID     uuid.UUID
}

func TestPostgresWorkflowSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresWorkflowSuite))
}

func (s *PostgresWorkflowSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.entities = workflow.NewPostgresEntityStore(s.pg.DB)
	s.submissions = workflow.NewPostgresSubmissionStore(s.pg.DB)
	s.approvals = workflow.NewPostgresApprovalStore(s.pg.DB)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := activity.NewPublisher(activity.NewPostgresStore(s.pg.DB), logger)
	s.engine = workflow.NewEngine(
		s.entities, s.submissions, s.approvals, publisher,
		workflow.NewSQLTransactor(s.pg.DB), nil, logger,
	)
}

func (s *PostgresWorkflowSuite) SetupTest() {
	s.managerID = uuid.New()
	s.adminID = uuid.New()
	err := s.pg.TruncateTables(context.Background(),
		"employees", "submissions", "approvals", "activities")
	s.Require().NoError(err)
}

func (s *PostgresWorkflowSuite) TestEntityRoundTrip() {
	ctx := context.Background()

	e := &domain.Employee{EmployeeCode: "PG-1", FullName: "Round Trip", Department: "Sewing"}
	e.ID = uuid.New()
	e.ManagerID = s.managerID
	e.Status = domain.StatusApproved
	e.Verification = &domain.Verification{
		VerifiedBy: s.adminID,
		VerifiedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	e.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	e.UpdatedAt = e.CreatedAt
	s.Require().NoError(s.entities.Save(ctx, e))

	got, err := s.entities.Find(ctx, domain.TypeEmployee, e.ID)
	s.Require().NoError(err)
	emp := got.(*domain.Employee)
	s.Equal("PG-1", emp.EmployeeCode)
	s.Equal(domain.StatusApproved, emp.Status)
	s.Require().NotNil(emp.Verification)
	s.Equal(s.adminID, emp.Verification.VerifiedBy)

	s.Run("upsert replaces in place", func() {
		emp.FullName = "Renamed"
		s.Require().NoError(s.entities.Save(ctx, emp))

		records, err := s.entities.List(ctx, domain.TypeEmployee)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("Renamed", records[0].(*domain.Employee).FullName)
	})

	s.Run("FindByUnique matches the payload field", func() {
		got, err := s.entities.FindByUnique(ctx, domain.TypeEmployee,
			domain.UniqueKey{Field: "employeeId", Value: "PG-1"})
		s.Require().NoError(err)
		s.Equal(e.ID, got.Workflow().ID)

		_, err = s.entities.FindByUnique(ctx, domain.TypeEmployee,
			domain.UniqueKey{Field: "employeeId", Value: "PG-missing"})
		s.Require().ErrorIs(err, workflow.ErrNotFound)
	})
}

func (s *PostgresWorkflowSuite) TestSubmissionLedger() {
	ctx := context.Background()

	sub := workflow.Submission{
		ID:           uuid.New(),
		ManagerID:    s.managerID,
		EntityType:   domain.TypeEmployee,
		EntityID:     uuid.New(),
		DataSnapshot: []byte(`{"employeeId":"PG-2"}`),
		Status:       workflow.SubmissionPending,
		SubmittedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.submissions.Append(ctx, sub))

	got, err := s.submissions.Find(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(sub.EntityID, got.EntityID)
	s.JSONEq(`{"employeeId":"PG-2"}`, string(got.DataSnapshot))

	s.Require().NoError(s.submissions.UpdateStatus(ctx, sub.ID, workflow.SubmissionApproved))
	counts, err := s.submissions.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[workflow.SubmissionApproved])

	s.Require().ErrorIs(s.submissions.UpdateStatus(ctx, uuid.New(), workflow.SubmissionApproved),
		workflow.ErrNotFound)
}

func (s *PostgresWorkflowSuite) TestTransactorRollsBack() {
	ctx := context.Background()
	transactor := workflow.NewSQLTransactor(s.pg.DB)

	e := &domain.Employee{EmployeeCode: "PG-3", FullName: "Rollback", Department: "Cutting"}
	e.ID = uuid.New()
	e.ManagerID = s.managerID
	e.Status = domain.StatusDraft
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt

	err := transactor.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.entities.Save(ctx, e); err != nil {
			return err
		}
		return fmt.Errorf("forced failure after the write")
	})
	s.Require().Error(err)

	_, err = s.entities.Find(ctx, domain.TypeEmployee, e.ID)
	s.Require().ErrorIs(err, workflow.ErrNotFound, "the write must not survive the rollback")
}

// The full submit-and-decide path over real SQL, including the transactional
// coupling of entity and ledger writes.
func (s *PostgresWorkflowSuite) TestEngineDecideTransactional() {
	managerCtx := testutil.ManagerContext(s.managerID)
	adminCtx := testutil.AdminContext(s.adminID)
	ctx := context.Background()

	record, err := s.engine.Create(managerCtx, "employee", []byte(
		`{"employeeId":"PG-4","fullName":"Through SQL","department":"Dyeing"}`), true)
	s.Require().NoError(err)

	pending, err := s.engine.PendingSubmissions(adminCtx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	s.Require().NoError(s.engine.Decide(adminCtx, pending[0].ID, workflow.DecisionRejected, "wrong department"))

	got, err := s.entities.Find(ctx, domain.TypeEmployee, record.Workflow().ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, got.Workflow().Status)
	s.Equal("wrong department", got.Workflow().Verification.RejectionReason)

	decisions, err := s.approvals.ListBySubmission(ctx, pending[0].ID)
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)
	s.Equal(workflow.DecisionRejected, decisions[0].Action)

	err = s.engine.Decide(adminCtx, pending[0].ID, workflow.DecisionApproved, "second thoughts")
	s.Require().Error(err)
	s.Equal(pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}
