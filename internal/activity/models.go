package activity

import (
	"time"

	"github.com/google/uuid"

	"loomworks/internal/domain"
)

// Well-known action labels. The field stays free-form so system events like
// CREATE_USER can reuse the stream.
const (
	ActionCreated    = "Created"
	ActionUpdated    = "Updated"
	ActionSubmitted  = "Submitted"
	ActionApproved   = "Approved"
	ActionRejected   = "Rejected"
	ActionCreateUser = "CREATE_USER"
	ActionDeleteUser = "DELETE_USER"
)

// Entry is one append-only event in the activity stream. Entries are never
// mutated or deleted; dashboards and audit views read them back.
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"userId"`
	Action     string            `json:"action"`
	EntityType domain.EntityType `json:"entityType,omitempty"`
	EntityID   uuid.UUID         `json:"entityId,omitempty"`
	Details    string            `json:"details"`
	CreatedAt  time.Time         `json:"createdAt"`
}
