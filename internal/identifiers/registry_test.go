package identifiers

import (
	"context"
	"errors"
	"testing"
	"time"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/rbac"
)

func registryFixture(t *testing.T) (*Registry, *rbac.InMemory, *InMemory, *audit.InMemory) {
	t.Helper()
	principals := rbac.NewInMemory(rbac.DefaultCatalog())
	log := audit.NewInMemory()
	eval, err := access.NewEvaluator(rbac.DefaultCatalog(), principals, log)
	if err != nil {
		t.Fatal(err)
	}
	store := NewInMemory()
	r, err := NewRegistry(eval, store, log)
	if err != nil {
		t.Fatal(err)
	}
	return r, principals, store, log
}

func TestCreateOrgIdentifierAsAdministrator(t *testing.T) {
	r, principals, _, log := registryFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "admin", rbac.RoleAdministrator)

	created, err := r.Create(ctx, "admin", CreateOrgIdentifierInput{
		ProgramID:     "day-program",
		Value:         "84-7654321",
		EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || !created.Active {
		t.Fatalf("unexpected identifier %+v", created)
	}

	var found bool
	for _, ev := range log.Events() {
		if ev.Action == "org_identifier.create" && ev.Outcome == audit.OutcomeGranted {
			found = true
		}
	}
	if !found {
		t.Fatal("create must leave an audit row")
	}
}

// Creation is double-gated: the supervisor holds ManageAuthorizations but not
// ViewOrgIdentifiers, so the attempt is refused.
func TestCreateOrgIdentifierDeniedForSupervisor(t *testing.T) {
	r, principals, _, _ := registryFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "sup", rbac.RoleSupervisor)

	_, err := r.Create(ctx, "sup", CreateOrgIdentifierInput{
		ProgramID:     "day-program",
		Value:         "84-7654321",
		EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestCreateOrgIdentifierValidation(t *testing.T) {
	r, principals, _, _ := registryFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "admin", rbac.RoleAdministrator)

	_, err := r.Create(ctx, "admin", CreateOrgIdentifierInput{ProgramID: "p", Value: ""})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("blank value: expected ErrValidation, got %v", err)
	}

	_, err = r.Create(ctx, "admin", CreateOrgIdentifierInput{
		ProgramID:      "p",
		Value:          "84-1",
		EffectiveDate:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted window: expected ErrValidation, got %v", err)
	}
}

func TestDeactivateOrgIdentifier(t *testing.T) {
	r, principals, store, _ := registryFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "admin", rbac.RoleAdministrator)
	_, _ = store.CreateOrgIdentifier(ctx, OrgIdentifier{ID: "org-9", ProgramID: "p", Value: "v", Active: true})

	updated, err := r.Deactivate(ctx, "admin", "org-9")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Active {
		t.Fatal("identifier still active")
	}
}

func TestListOrgIdentifiersGated(t *testing.T) {
	r, principals, _, _ := registryFixture(t)
	ctx := context.Background()
	_, _ = principals.Assign(ctx, "sup", rbac.RoleSupervisor)

	if _, err := r.List(ctx, "sup", ""); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestSweeperRetiresExpired(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	_, _ = store.CreateOrgIdentifier(ctx, OrgIdentifier{
		ID: "stale", ProgramID: "p", Value: "v", Active: true,
		EffectiveDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	_, _ = store.CreateOrgIdentifier(ctx, OrgIdentifier{
		ID: "fresh", ProgramID: "p", Value: "v2", Active: true,
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	s, err := NewSweeper(store, DefaultSweepSchedule)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("retired %d, want 1", n)
	}
	got, _ := store.GetOrgIdentifier(ctx, "stale")
	if got.Active {
		t.Fatal("expired identifier still active")
	}
	got, _ = store.GetOrgIdentifier(ctx, "fresh")
	if !got.Active {
		t.Fatal("unexpired identifier was retired")
	}
}
