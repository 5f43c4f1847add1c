package claims

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is a claim's position in the billing lifecycle.
//
//	draft -> generated -> submitted -> {paid, denied}
//	denied -> draft (resubmission)
//
// paid is terminal. No other transitions exist; an attempt outside the graph
// is ErrInvalidTransition, never coerced to the nearest valid state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusGenerated Status = "generated"
	StatusSubmitted Status = "submitted"
	StatusPaid      Status = "paid"
	StatusDenied    Status = "denied"
)

var allStatuses = []Status{StatusDraft, StatusGenerated, StatusSubmitted, StatusPaid, StatusDenied}

// transitions is the entire legal graph. Mutating this table is the only way
// to change lifecycle behavior.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusGenerated},
	StatusGenerated: {StatusSubmitted},
	StatusSubmitted: {StatusPaid, StatusDenied},
	StatusDenied:    {StatusDraft},
	StatusPaid:      {},
}

// ParseStatus maps a wire-format value onto the lifecycle vocabulary.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range allStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Claim is a billable unit of service spanning a date range. TotalCents is
// fixed at creation; only Status and PaymentCents change afterwards. Amounts
// are minor units (cents). No floats.
type Claim struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	ClaimNumber  string    `json:"claim_number"`
	ServiceFrom  time.Time `json:"service_date_from"`
	ServiceTo    time.Time `json:"service_date_to"`
	TotalCents   int64     `json:"total_amount_cents"`
	PaymentCents int64     `json:"payment_amount_cents"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("claims: not found")
	ErrInvalidTransition = errors.New("claims: invalid status transition")
	ErrValidation        = errors.New("claims: invalid input")
	ErrDenied            = errors.New("claims: insufficient privileges")
	ErrIntegrity         = errors.New("claims: claim state integrity violation")
)

// CheckInvariants verifies the payment invariant: a non-zero payment amount is
// only legal on a paid claim. A violating row indicates a bug or tampering.
func (c Claim) CheckInvariants() error {
	if c.PaymentCents != 0 && c.Status != StatusPaid {
		return fmt.Errorf("%w: payment %d recorded with status %s", ErrIntegrity, c.PaymentCents, c.Status)
	}
	return nil
}

// CreateInput is the caller-supplied shape for a new claim.
type CreateInput struct {
	ClientID    string
	ServiceFrom time.Time
	ServiceTo   time.Time
	TotalCents  int64
}

// ListFilter narrows a claim listing.
type ListFilter struct {
	ClientID string
	Status   Status
	Limit    int
}

// AggregateFilter selects the claims included in an aggregate: every claim
// whose service window intersects [From, To], optionally narrowed by client
// or status.
type AggregateFilter struct {
	From     time.Time
	To       time.Time
	ClientID string
	Status   Status
}

// Bucket is the per-status slice of an aggregate.
type Bucket struct {
	Count        int64 `json:"count"`
	TotalCents   int64 `json:"total_amount_cents"`
	PaymentCents int64 `json:"payment_amount_cents"`
}

// Aggregate is a consistent snapshot of claim totals: no bucket mixes pre-
// and post-transition rows for the same claim.
type Aggregate struct {
	Buckets        map[Status]Bucket `json:"buckets"`
	CollectedCents int64             `json:"total_collected_cents"`
}
