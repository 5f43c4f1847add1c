package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/rbac"
)

func newFixture(t *testing.T) (*Evaluator, *rbac.InMemory, *audit.InMemory) {
	t.Helper()
	principals := rbac.NewInMemory(rbac.DefaultCatalog())
	log := audit.NewInMemory()
	eval, err := NewEvaluator(rbac.DefaultCatalog(), principals, log)
	if err != nil {
		t.Fatal(err)
	}
	return eval, principals, log
}

func TestEvaluateGrant(t *testing.T) {
	eval, principals, log := newFixture(t)
	ctx := context.Background()
	if _, err := principals.Assign(ctx, "p1", rbac.RoleSupervisor); err != nil {
		t.Fatal(err)
	}

	d, err := eval.Evaluate(ctx, "p1", rbac.CapViewBilling, "claim:c1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Granted {
		t.Fatalf("expected grant, got %+v", d)
	}
	if d.RoleID != rbac.RoleSupervisor {
		t.Fatalf("role = %s", d.RoleID)
	}

	events := log.Events()
	if len(events) != 1 {
		t.Fatalf("audit rows = %d, want exactly 1", len(events))
	}
	ev := events[0]
	if ev.Outcome != audit.OutcomeGranted || ev.Action != "view_billing" || ev.Resource != "claim:c1" {
		t.Fatalf("unexpected audit row %+v", ev)
	}
	if d.EventID != ev.ID {
		t.Fatalf("decision event id %q != recorded %q", d.EventID, ev.ID)
	}
}

func TestEvaluateDenyCapabilityNotHeld(t *testing.T) {
	eval, principals, log := newFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "p1", rbac.RoleTechnician)

	d, err := eval.Evaluate(ctx, "p1", rbac.CapViewClientIdentifiers, "client:c1")
	if err != nil {
		t.Fatalf("a deny is not an error: %v", err)
	}
	if d.Granted {
		t.Fatal("technician must not view client identifiers")
	}
	events := log.Events()
	if len(events) != 1 || events[0].Outcome != audit.OutcomeDenied {
		t.Fatalf("expected one denied audit row, got %+v", events)
	}
}

func TestEvaluateDenyUnassigned(t *testing.T) {
	eval, _, log := newFixture(t)

	d, err := eval.Evaluate(context.Background(), "ghost", rbac.CapViewBilling, "claim")
	if err != nil {
		t.Fatal(err)
	}
	if d.Granted {
		t.Fatal("principal without a role must be denied")
	}
	if len(log.Events()) != 1 {
		t.Fatalf("audit rows = %d", len(log.Events()))
	}
}

// An unknown capability name is a caller bug: no decision, no audit row.
func TestEvaluateUnknownCapabilityFailsFast(t *testing.T) {
	eval, principals, log := newFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "p1", rbac.RoleAdministrator)

	_, err := eval.Evaluate(ctx, "p1", rbac.Capability("fly_helicopters"), "hangar")
	if !errors.Is(err, rbac.ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
	if len(log.Events()) != 0 {
		t.Fatalf("fail-fast must not audit, got %d rows", len(log.Events()))
	}
}

func TestEvaluateDoubleActiveAssignment(t *testing.T) {
	eval, principals, log := newFixture(t)
	now := time.Now().UTC()
	principals.SeedRow(rbac.Assignment{PrincipalID: "p1", RoleID: rbac.RoleTechnician, Active: true, AssignedAt: now})
	principals.SeedRow(rbac.Assignment{PrincipalID: "p1", RoleID: rbac.RoleAdministrator, Active: true, AssignedAt: now})

	d, err := eval.Evaluate(context.Background(), "p1", rbac.CapViewBilling, "claim")
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if d.Granted {
		t.Fatal("integrity violation must never grant")
	}
	events := log.Events()
	if len(events) != 1 || events[0].Outcome != audit.OutcomeIntegrityViolation {
		t.Fatalf("expected integrity_violation audit row, got %+v", events)
	}
}

func TestEvaluateRoleMissingFromCatalog(t *testing.T) {
	// A store seeded outside the catalog simulates a deploy where a role was
	// removed while assignments referencing it survived.
	principals := rbac.NewInMemory(rbac.DefaultCatalog())
	principals.SeedRow(rbac.Assignment{PrincipalID: "p1", RoleID: "retired_role", Active: true, AssignedAt: time.Now().UTC()})
	log := audit.NewInMemory()
	eval, err := NewEvaluator(rbac.DefaultCatalog(), principals, log)
	if err != nil {
		t.Fatal(err)
	}

	_, err = eval.Evaluate(context.Background(), "p1", rbac.CapViewBilling, "claim")
	if !errors.Is(err, ErrCatalog) {
		t.Fatalf("expected ErrCatalog, got %v", err)
	}
	events := log.Events()
	if len(events) != 1 || events[0].Outcome != audit.OutcomeIntegrityViolation {
		t.Fatalf("expected integrity_violation audit row, got %+v", events)
	}
}

func TestEvaluateEmptyPrincipal(t *testing.T) {
	eval, _, _ := newFixture(t)
	if _, err := eval.Evaluate(context.Background(), "  ", rbac.CapViewBilling, "claim"); !errors.Is(err, rbac.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
