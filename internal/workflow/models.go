package workflow

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"loomworks/internal/domain"
)

// SubmissionStatus is the ledger-side status, independent of the entity's own
// submissionStatus field.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "Pending"
	SubmissionApproved SubmissionStatus = "Approved"
	SubmissionRejected SubmissionStatus = "Rejected"
)

// DecisionAction is an admin's verdict on a submission.
type DecisionAction string

const (
	DecisionApproved DecisionAction = "Approved"
	DecisionRejected DecisionAction = "Rejected"
)

// Valid reports whether the action is one of the two known verdicts.
func (a DecisionAction) Valid() bool {
	return a == DecisionApproved || a == DecisionRejected
}

// Submission is one append-only ledger row: the verbatim snapshot of an
// entity at the moment a manager submitted it. DataSnapshot is immutable once
// written; Status flips exactly once when an admin decides.
type Submission struct {
	ID           uuid.UUID         `json:"id"`
	ManagerID    uuid.UUID         `json:"managerId"`
	EntityType   domain.EntityType `json:"entityType"`
	EntityID     uuid.UUID         `json:"entityId"`
	DataSnapshot json.RawMessage   `json:"dataSnapshot"`
	Status       SubmissionStatus  `json:"status"`
	SubmittedAt  time.Time         `json:"submittedAt"`
}

// Approval is the immutable audit record of one admin decision.
type Approval struct {
	ID           uuid.UUID      `json:"id"`
	SubmissionID uuid.UUID      `json:"submissionId"`
	AdminID      uuid.UUID      `json:"adminId"`
	Action       DecisionAction `json:"action"`
	Comments     string         `json:"comments"`
	ActionAt     time.Time      `json:"actionAt"`
}
