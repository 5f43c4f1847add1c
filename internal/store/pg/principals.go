package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meridiancare.org/internal/ids"
	"meridiancare.org/internal/rbac"
)

var _ rbac.PrincipalStore = (*Store)(nil)

// ActiveAssignment returns the single active row for the principal. The
// schema's partial unique index makes a second active row impossible through
// this code path; finding one anyway is reported as an integrity violation,
// never resolved by picking a row arbitrarily.
func (s *Store) ActiveAssignment(ctx context.Context, principalID string) (rbac.Assignment, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return rbac.Assignment{}, fmt.Errorf("%w: principal_id is required", rbac.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		select principal_id, role_id, active, assigned_at
		from principal_assignments
		where principal_id = $1 and active
		limit 2
	`, principalID)
	if err != nil {
		return rbac.Assignment{}, err
	}
	defer rows.Close()

	var found []rbac.Assignment
	for rows.Next() {
		var a rbac.Assignment
		if err := rows.Scan(&a.PrincipalID, &a.RoleID, &a.Active, &a.AssignedAt); err != nil {
			return rbac.Assignment{}, err
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return rbac.Assignment{}, err
	}

	switch len(found) {
	case 0:
		return rbac.Assignment{}, rbac.ErrUnassigned
	case 1:
		return found[0], nil
	default:
		return rbac.Assignment{}, fmt.Errorf("%w: multiple active rows for %s", rbac.ErrIntegrity, principalID)
	}
}

// Assign retires the active row and inserts the replacement in one
// transaction. Two concurrent assigns race on the partial unique index; the
// loser rolls back with no partial effect.
func (s *Store) Assign(ctx context.Context, principalID, roleID string) (rbac.Assignment, error) {
	principalID = strings.TrimSpace(principalID)
	roleID = strings.TrimSpace(roleID)
	if principalID == "" || roleID == "" {
		return rbac.Assignment{}, fmt.Errorf("%w: principal_id and role_id are required", rbac.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rbac.Assignment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		update principal_assignments set active = false
		where principal_id = $1 and active
	`, principalID); err != nil {
		return rbac.Assignment{}, err
	}

	assignedAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		insert into principal_assignments (id, principal_id, role_id, active, assigned_at)
		values ($1, $2, $3, true, $4)
	`, ids.New(), principalID, roleID, assignedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return rbac.Assignment{}, fmt.Errorf("%w: concurrent assignment for %s", rbac.ErrIntegrity, principalID)
			case pgErrForeignKeyViolation:
				return rbac.Assignment{}, fmt.Errorf("%w: %q", rbac.ErrRoleNotFound, roleID)
			}
		}
		return rbac.Assignment{}, err
	}

	if err := tx.Commit(); err != nil {
		return rbac.Assignment{}, err
	}

	return rbac.Assignment{
		PrincipalID: principalID,
		RoleID:      roleID,
		Active:      true,
		AssignedAt:  assignedAt,
	}, nil
}
