// Package domain defines the record types subject to the submission workflow
// and the descriptor registry that lets one engine drive all of them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the lifecycle state carried on every entity record.
type SubmissionStatus string

const (
	StatusDraft           SubmissionStatus = "Draft"
	StatusPendingApproval SubmissionStatus = "PendingApproval"
	StatusApproved        SubmissionStatus = "Approved"
	StatusRejected        SubmissionStatus = "Rejected"
)

// Editable reports whether a manager may still mutate the record. Pending
// records are locked so a reviewer never sees the data shift underneath, and
// Approved is terminal.
func (s SubmissionStatus) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// EntityType tags which domain table a record belongs to.
type EntityType string

const (
	TypeEmployee    EntityType = "Employee"
	TypeProject     EntityType = "Project"
	TypeExport      EntityType = "Export"
	TypeRawMaterial EntityType = "RawMaterial"
	TypeWorkforce   EntityType = "Workforce"
	TypeBuyer       EntityType = "Buyer"
	TypeFinancial   EntityType = "Financial"
	TypeMedia       EntityType = "Media"
	TypeUpdate      EntityType = "Update"
	TypeCompany     EntityType = "Company"
)

// EntityTypes lists every workflow-managed domain in stable order.
var EntityTypes = []EntityType{
	TypeEmployee, TypeProject, TypeExport, TypeRawMaterial, TypeWorkforce,
	TypeBuyer, TypeFinancial, TypeMedia, TypeUpdate, TypeCompany,
}

// Verification is set exactly once per admin decision and overwritten on the
// next decision after a resubmit.
type Verification struct {
	VerifiedBy      uuid.UUID `json:"verifiedBy"`
	VerifiedAt      time.Time `json:"verifiedAt"`
	RejectionReason string    `json:"rejectionReason"`
}

// Meta carries the workflow fields shared by every entity record. ManagerID
// is set at creation and immutable thereafter.
type Meta struct {
	ID           uuid.UUID        `json:"id"`
	ManagerID    uuid.UUID        `json:"managerId"`
	Status       SubmissionStatus `json:"submissionStatus"`
	Verification *Verification    `json:"verificationMetadata,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Record is implemented by all ten entity types. Type returns the domain tag;
// Workflow exposes the shared workflow fields for the engine to mutate.
// Records embed Meta so snapshots serialize the workflow fields at the top
// level alongside the domain fields.
type Record interface {
	Type() EntityType
	Workflow() *Meta
}
