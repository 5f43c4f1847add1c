package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordAssignsSequence(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Record(ctx, Event{PrincipalID: "p1", Action: "view_billing", Outcome: OutcomeGranted}); err != nil {
			t.Fatal(err)
		}
	}
	events := l.Events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("seq[%d] = %d", i, ev.Seq)
		}
		if ev.ID == "" || ev.OccurredAt.IsZero() {
			t.Fatalf("event %d missing id or timestamp: %+v", i, ev)
		}
	}
}

func TestListFilters(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_, _ = l.Record(ctx, Event{PrincipalID: "p1", Action: "view_billing", Outcome: OutcomeGranted})
	_, _ = l.Record(ctx, Event{PrincipalID: "p2", Action: "view_billing", Outcome: OutcomeDenied})
	_, _ = l.Record(ctx, Event{PrincipalID: "p1", Action: "manage_staff", Outcome: OutcomeDenied})

	out, err := l.List(ctx, Filter{PrincipalID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("by principal: %d, want 2", len(out))
	}

	out, _ = l.List(ctx, Filter{Outcome: OutcomeDenied})
	if len(out) != 2 {
		t.Fatalf("by outcome: %d, want 2", len(out))
	}

	out, _ = l.List(ctx, Filter{PrincipalID: "p1", Action: "manage_staff"})
	if len(out) != 1 {
		t.Fatalf("combined: %d, want 1", len(out))
	}

	out, _ = l.List(ctx, Filter{To: time.Now().Add(-time.Hour)})
	if len(out) != 0 {
		t.Fatalf("time window: %d, want 0", len(out))
	}
}

func TestSourceIPFromContext(t *testing.T) {
	ctx := WithSourceIP(context.Background(), "10.0.0.9")
	l := NewInMemory()
	_, _ = l.Record(ctx, Event{PrincipalID: "p1", Action: "view_billing", Outcome: OutcomeGranted})
	if got := l.Events()[0].SourceIP; got != "10.0.0.9" {
		t.Fatalf("source ip = %q", got)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(ctx context.Context, ev Event) (string, error) {
	return "", errors.New("disk full")
}

// A lost audit write is escalated but never turns into a failure for the
// decision being audited.
func TestRecordOrAlertSwallowsFailure(t *testing.T) {
	id := RecordOrAlert(context.Background(), failingRecorder{}, Event{
		PrincipalID: "p1",
		Action:      "view_billing",
		Outcome:     OutcomeGranted,
	})
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
