package rbac

import "errors"

var (
	ErrRoleNotFound      = errors.New("rbac: role not found")
	ErrUnknownCapability = errors.New("rbac: unknown capability")
	ErrUnassigned        = errors.New("rbac: principal has no active role")
	ErrIntegrity         = errors.New("rbac: assignment integrity violation")
	ErrInvalidInput      = errors.New("rbac: invalid input")
)
