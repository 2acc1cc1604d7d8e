package user

import (
	"time"

	"github.com/google/uuid"

	"loomworks/pkg/requestcontext"
)

// User is a system account (admin or manager). Users sit outside the
// submission workflow; they are the only records the system hard-deletes.
type User struct {
	ID           uuid.UUID           `json:"id"`
	Email        string              `json:"email"`
	FullName     string              `json:"fullName"`
	Role         requestcontext.Role `json:"role"`
	PasswordHash string              `json:"-"`
	CreatedAt    time.Time           `json:"createdAt"`
}
