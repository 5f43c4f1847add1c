package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"meridiancare.org/internal/rbac"
)

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"principal_id", "role_id", "active", "assigned_at"})
}

func TestActiveAssignmentSingleRow(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select principal_id, role_id, active, assigned_at").
		WithArgs("p1").
		WillReturnRows(assignmentRows().AddRow("p1", "supervisor", true, now))

	a, err := store.ActiveAssignment(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if a.RoleID != "supervisor" || !a.Active {
		t.Fatalf("assignment %+v", a)
	}
}

func TestActiveAssignmentUnassigned(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select principal_id, role_id, active, assigned_at").
		WithArgs("ghost").
		WillReturnRows(assignmentRows())

	if _, err := store.ActiveAssignment(context.Background(), "ghost"); !errors.Is(err, rbac.ErrUnassigned) {
		t.Fatalf("expected ErrUnassigned, got %v", err)
	}
}

// Two active rows can only mean the partial unique index was bypassed. The
// store reports it instead of picking one.
func TestActiveAssignmentIntegrityViolation(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select principal_id, role_id, active, assigned_at").
		WithArgs("p1").
		WillReturnRows(assignmentRows().
			AddRow("p1", "technician", true, now).
			AddRow("p1", "administrator", true, now))

	if _, err := store.ActiveAssignment(context.Background(), "p1"); !errors.Is(err, rbac.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestAssignRetiresThenInserts(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("update principal_assignments set active = false").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into principal_assignments").
		WithArgs(sqlmock.AnyArg(), "p1", "case_manager", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := store.Assign(context.Background(), "p1", "case_manager")
	if err != nil {
		t.Fatal(err)
	}
	if a.RoleID != "case_manager" || !a.Active {
		t.Fatalf("assignment %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
