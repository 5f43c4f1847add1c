package rbac

import (
	"context"
	"time"
)

// Assignment binds a principal to a role. At most one assignment per principal
// is active at any instant; assigning a new role retires the previous row
// atomically.
type Assignment struct {
	PrincipalID string    `json:"principal_id"`
	RoleID      string    `json:"role_id"`
	Active      bool      `json:"active"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// PrincipalStore resolves and mutates role assignments. Implementations must
// make the one-active-row invariant structurally impossible to break (the
// Postgres store carries a partial unique index on (principal_id) WHERE
// active).
type PrincipalStore interface {
	// ActiveAssignment returns the single active assignment for the
	// principal. ErrUnassigned when none exists; ErrIntegrity when the store
	// holds more than one active row, which callers must treat as a deny.
	ActiveAssignment(ctx context.Context, principalID string) (Assignment, error)

	// Assign retires any active assignment and activates the new role inside
	// a single transaction.
	Assign(ctx context.Context, principalID, roleID string) (Assignment, error)
}
