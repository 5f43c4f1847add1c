package rbac

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// InMemory implements PrincipalStore with in-process concurrency safety.
// Used by tests, the smoke CLI, and DSN-less development startup.
type InMemory struct {
	catalog *Catalog

	mu   sync.RWMutex
	rows []Assignment
}

var _ PrincipalStore = (*InMemory)(nil)

// NewInMemory creates an empty assignment store backed by the catalog.
func NewInMemory(catalog *Catalog) *InMemory {
	return &InMemory{catalog: catalog}
}

func (s *InMemory) ActiveAssignment(ctx context.Context, principalID string) (Assignment, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return Assignment{}, fmt.Errorf("%w: principal_id is required", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []Assignment
	for _, a := range s.rows {
		if a.PrincipalID == principalID && a.Active {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return Assignment{}, ErrUnassigned
	case 1:
		return found[0], nil
	default:
		return Assignment{}, fmt.Errorf("%w: %d active assignments for %s", ErrIntegrity, len(found), principalID)
	}
}

func (s *InMemory) Assign(ctx context.Context, principalID, roleID string) (Assignment, error) {
	principalID = strings.TrimSpace(principalID)
	roleID = strings.TrimSpace(roleID)
	if principalID == "" || roleID == "" {
		return Assignment{}, fmt.Errorf("%w: principal_id and role_id are required", ErrInvalidInput)
	}
	if _, err := s.catalog.Resolve(roleID); err != nil {
		return Assignment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].PrincipalID == principalID && s.rows[i].Active {
			s.rows[i].Active = false
		}
	}
	next := Assignment{
		PrincipalID: principalID,
		RoleID:      roleID,
		Active:      true,
		AssignedAt:  time.Now().UTC(),
	}
	s.rows = append(s.rows, next)
	return next, nil
}

// History returns every assignment row ever written for the principal, oldest
// first. Fixture and test support.
func (s *InMemory) History(principalID string) []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Assignment
	for _, a := range s.rows {
		if a.PrincipalID == principalID {
			out = append(out, a)
		}
	}
	return out
}

// SeedRow appends an assignment row verbatim, bypassing the deactivation step.
// It exists so tests can construct corrupted states (two active rows) that
// Assign itself can never produce.
func (s *InMemory) SeedRow(a Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, a)
}
