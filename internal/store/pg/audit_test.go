package pg

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"meridiancare.org/internal/audit"
)

func TestRecordReturnsGeneratedID(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	id, err := store.Record(context.Background(), audit.Event{
		PrincipalID: "p1",
		Action:      "view_billing",
		Outcome:     audit.OutcomeGranted,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a generated event id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListBuildsFilteredQuery(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, seq, principal_id, action, resource, outcome, detail, occurred_at, source_ip").
		WithArgs("p1", "denied", 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "seq", "principal_id", "action", "resource", "outcome", "detail", "occurred_at", "source_ip",
		}).AddRow("ev-1", int64(7), "p1", "view_billing", "claim:c1", "denied", "no role", now, "10.0.0.1"))

	out, err := store.List(context.Background(), audit.Filter{
		PrincipalID: "p1",
		Outcome:     audit.OutcomeDenied,
		Limit:       50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Seq != 7 || out[0].Outcome != audit.OutcomeDenied {
		t.Fatalf("events %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
