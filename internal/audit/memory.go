package audit

import (
	"context"
	"sync"
)

// InMemory implements Log for tests and DSN-less startup. Events are held in
// append order; Seq is assigned on write.
type InMemory struct {
	mu   sync.RWMutex
	seq  uint64
	rows []Event
}

var _ Log = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (l *InMemory) Record(ctx context.Context, ev Event) (string, error) {
	ev = Fill(ctx, ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ev.Seq = l.seq
	l.rows = append(l.rows, ev)
	return ev.ID, nil
}

func (l *InMemory) List(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, ev := range l.rows {
		if f.PrincipalID != "" && ev.PrincipalID != f.PrincipalID {
			continue
		}
		if f.Action != "" && ev.Action != f.Action {
			continue
		}
		if f.Outcome != "" && ev.Outcome != f.Outcome {
			continue
		}
		if !f.From.IsZero() && ev.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && ev.OccurredAt.After(f.To) {
			continue
		}
		out = append(out, ev)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Events returns a copy of everything recorded so far, in write order.
// Test support.
func (l *InMemory) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.rows))
	copy(out, l.rows)
	return out
}
