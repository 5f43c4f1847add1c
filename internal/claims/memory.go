package claims

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. The single
// mutex gives the same "at most one winning transition per state" behavior
// the Postgres store gets from row locks.
type InMemory struct {
	mu   sync.RWMutex
	rows map[string]Claim
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[string]Claim)}
}

func (s *InMemory) Insert(ctx context.Context, c Claim) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[c.ID]; exists {
		return Claim{}, fmt.Errorf("%w: duplicate claim id %s", ErrValidation, c.ID)
	}
	s.rows[c.ID] = c
	return c, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[id]
	if !ok {
		return Claim{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemory) List(ctx context.Context, f ListFilter) ([]Claim, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Claim
	for _, c := range s.rows {
		if f.ClientID != "" && c.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	// Same order the SQL store produces; ULID ids break created_at ties.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Transition(ctx context.Context, id string, target Status, paymentCents int64) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[id]
	if !ok {
		return Claim{}, ErrNotFound
	}
	// Current status re-read under the lock: a concurrent winner has already
	// moved the row, so the loser fails the graph check here.
	if !CanTransition(cur.Status, target) {
		return Claim{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, target)
	}

	cur.Status = target
	cur.PaymentCents = paymentCents
	cur.UpdatedAt = time.Now().UTC()
	s.rows[id] = cur
	return cur, nil
}

func (s *InMemory) Aggregate(ctx context.Context, f AggregateFilter) (Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := Aggregate{Buckets: make(map[Status]Bucket)}
	for _, c := range s.rows {
		if !matchAggregate(c, f) {
			continue
		}
		b := agg.Buckets[c.Status]
		b.Count++
		b.TotalCents += c.TotalCents
		b.PaymentCents += c.PaymentCents
		agg.Buckets[c.Status] = b
		if c.Status == StatusPaid {
			agg.CollectedCents += c.PaymentCents
		}
	}
	return agg, nil
}

func matchAggregate(c Claim, f AggregateFilter) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && c.ServiceTo.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.ServiceFrom.After(f.To) {
		return false
	}
	return true
}
