package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loomworks/pkg/requestcontext"
)

// ManagerContext returns a context carrying a manager identity, the state the
// auth middleware leaves behind for authenticated requests.
func ManagerContext(managerID uuid.UUID) context.Context {
	return requestcontext.WithCaller(context.Background(), requestcontext.Identity{
		UserID: managerID.String(),
		Role:   requestcontext.RoleManager,
	})
}

// AdminContext returns a context carrying an admin identity.
func AdminContext(adminID uuid.UUID) context.Context {
	return requestcontext.WithCaller(context.Background(), requestcontext.Identity{
		UserID: adminID.String(),
		Role:   requestcontext.RoleAdmin,
	})
}

// WithFrozenClock pins the request-scoped time so ledger timestamps are
// deterministic.
func WithFrozenClock(ctx context.Context, at time.Time) context.Context {
	return requestcontext.WithTime(ctx, at)
}
