package claims

import "context"

// Store is the persistence contract for claims. Transition implementations
// must re-read the current row under a per-row lock (or equivalent optimistic
// check) inside the same transaction that applies the update, so that two
// concurrent attempts from the same prior status cannot both succeed.
type Store interface {
	Insert(ctx context.Context, c Claim) (Claim, error)
	Get(ctx context.Context, id string) (Claim, error)
	List(ctx context.Context, f ListFilter) ([]Claim, error)

	// Transition validates target against the claim's current status inside
	// the transaction and applies status plus payment atomically. A crash
	// mid-transition must never leave one of the two updated without the
	// other. ErrInvalidTransition carries the observed from/to pair.
	Transition(ctx context.Context, id string, target Status, paymentCents int64) (Claim, error)

	// Aggregate computes per-status buckets from one consistent snapshot.
	Aggregate(ctx context.Context, f AggregateFilter) (Aggregate, error)
}
