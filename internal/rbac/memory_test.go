package rbac

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAssignAndActiveAssignment(t *testing.T) {
	s := NewInMemory(DefaultCatalog())
	ctx := context.Background()

	if _, err := s.ActiveAssignment(ctx, "p1"); !errors.Is(err, ErrUnassigned) {
		t.Fatalf("expected ErrUnassigned, got %v", err)
	}

	a, err := s.Assign(ctx, "p1", RoleDirectCare)
	if err != nil {
		t.Fatal(err)
	}
	if a.RoleID != RoleDirectCare || !a.Active {
		t.Fatalf("unexpected assignment %+v", a)
	}

	got, err := s.ActiveAssignment(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RoleID != RoleDirectCare {
		t.Fatalf("active role = %s", got.RoleID)
	}
}

func TestReassignDeactivatesPrevious(t *testing.T) {
	s := NewInMemory(DefaultCatalog())
	ctx := context.Background()

	if _, err := s.Assign(ctx, "p1", RoleTechnician); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Assign(ctx, "p1", RoleSupervisor); err != nil {
		t.Fatal(err)
	}

	got, err := s.ActiveAssignment(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RoleID != RoleSupervisor {
		t.Fatalf("active role = %s, want supervisor", got.RoleID)
	}

	history := s.History("p1")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	active := 0
	for _, a := range history {
		if a.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active rows = %d, want exactly 1", active)
	}
}

func TestAssignUnknownRole(t *testing.T) {
	s := NewInMemory(DefaultCatalog())
	if _, err := s.Assign(context.Background(), "p1", "janitor"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestDoubleActiveRowsIsIntegrityError(t *testing.T) {
	s := NewInMemory(DefaultCatalog())
	now := time.Now().UTC()
	s.SeedRow(Assignment{PrincipalID: "p1", RoleID: RoleTechnician, Active: true, AssignedAt: now})
	s.SeedRow(Assignment{PrincipalID: "p1", RoleID: RoleSupervisor, Active: true, AssignedAt: now})

	if _, err := s.ActiveAssignment(context.Background(), "p1"); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}
