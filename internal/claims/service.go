package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/ids"
	"meridiancare.org/internal/obs"
	"meridiancare.org/internal/rbac"
)

// Ledger is the authorization-gated front of the claim state machine.
// Capability grants the right to attempt a mutation; the lifecycle graph in
// the store independently decides whether the mutation is legal.
type Ledger struct {
	store Store
	eval  *access.Evaluator
	log   audit.Recorder
}

func NewLedger(store Store, eval *access.Evaluator, log audit.Recorder) (*Ledger, error) {
	if store == nil || eval == nil || log == nil {
		return nil, errors.New("claims: store, evaluator and audit log are required")
	}
	return &Ledger{store: store, eval: eval, log: log}, nil
}

// Create opens a new claim in draft. Requires ManageAuthorizations.
func (l *Ledger) Create(ctx context.Context, actorID string, in CreateInput) (Claim, error) {
	d, err := l.eval.Evaluate(ctx, actorID, rbac.CapManageAuthorizations, "claim")
	if err != nil {
		return Claim{}, err
	}
	if !d.Granted {
		return Claim{}, ErrDenied
	}

	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return Claim{}, fmt.Errorf("%w: client_id is required", ErrValidation)
	}
	if in.TotalCents <= 0 {
		return Claim{}, fmt.Errorf("%w: total_amount must be > 0", ErrValidation)
	}
	if in.ServiceFrom.IsZero() || in.ServiceTo.IsZero() {
		return Claim{}, fmt.Errorf("%w: service window is required", ErrValidation)
	}
	if in.ServiceTo.Before(in.ServiceFrom) {
		return Claim{}, fmt.Errorf("%w: service window end precedes start", ErrValidation)
	}

	now := time.Now().UTC()
	id := ids.New()
	created, err := l.store.Insert(ctx, Claim{
		ID:          id,
		ClientID:    in.ClientID,
		ClaimNumber: "CLM-" + id,
		ServiceFrom: in.ServiceFrom,
		ServiceTo:   in.ServiceTo,
		TotalCents:  in.TotalCents,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Claim{}, err
	}

	audit.RecordOrAlert(ctx, l.log, audit.Event{
		PrincipalID: actorID,
		Action:      "claim.create",
		Resource:    "claim:" + created.ID,
		Outcome:     audit.OutcomeGranted,
		Detail:      fmt.Sprintf("client %s, total %d", created.ClientID, created.TotalCents),
	})
	return created, nil
}

// Transition moves a claim along the lifecycle graph. On paid the payment
// amount is required and recorded; on every other target it must be absent.
// An out-of-graph attempt is audited as a denied mutation even when the actor
// held the capability.
func (l *Ledger) Transition(ctx context.Context, actorID, claimID string, target Status, paymentCents *int64) (Claim, error) {
	d, err := l.eval.Evaluate(ctx, actorID, rbac.CapManageAuthorizations, "claim:"+claimID)
	if err != nil {
		return Claim{}, err
	}
	if !d.Granted {
		obs.ObserveClaimTransition(string(target), "denied")
		return Claim{}, ErrDenied
	}

	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return Claim{}, fmt.Errorf("%w: claim_id is required", ErrValidation)
	}
	if _, err := ParseStatus(string(target)); err != nil {
		return Claim{}, err
	}

	var payment int64
	if target == StatusPaid {
		if paymentCents == nil {
			return Claim{}, fmt.Errorf("%w: payment_amount is required when marking paid", ErrValidation)
		}
		if *paymentCents <= 0 {
			return Claim{}, fmt.Errorf("%w: payment_amount must be > 0", ErrValidation)
		}
		payment = *paymentCents
	} else if paymentCents != nil {
		return Claim{}, fmt.Errorf("%w: payment_amount is only accepted on paid", ErrValidation)
	}

	updated, err := l.store.Transition(ctx, claimID, target, payment)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			obs.ObserveClaimTransition(string(target), "invalid")
			audit.RecordOrAlert(ctx, l.log, audit.Event{
				PrincipalID: actorID,
				Action:      "claim.transition",
				Resource:    "claim:" + claimID,
				Outcome:     audit.OutcomeDenied,
				Detail:      err.Error(),
			})
		} else {
			obs.ObserveClaimTransition(string(target), "error")
		}
		return Claim{}, err
	}

	if err := updated.CheckInvariants(); err != nil {
		obs.Alert("claims.integrity_violation", map[string]any{
			"claim_id": updated.ID,
			"error":    err.Error(),
		})
		return Claim{}, err
	}

	obs.ObserveClaimTransition(string(target), "ok")
	audit.RecordOrAlert(ctx, l.log, audit.Event{
		PrincipalID: actorID,
		Action:      "claim.transition",
		Resource:    "claim:" + claimID,
		Outcome:     audit.OutcomeGranted,
		Detail:      string(target),
	})
	return updated, nil
}

// Get returns one claim. Requires ViewBilling.
func (l *Ledger) Get(ctx context.Context, actorID, claimID string) (Claim, error) {
	d, err := l.eval.Evaluate(ctx, actorID, rbac.CapViewBilling, "claim:"+claimID)
	if err != nil {
		return Claim{}, err
	}
	if !d.Granted {
		return Claim{}, ErrDenied
	}
	c, err := l.store.Get(ctx, claimID)
	if err != nil {
		return Claim{}, err
	}
	if err := c.CheckInvariants(); err != nil {
		obs.Alert("claims.integrity_violation", map[string]any{
			"claim_id": c.ID,
			"error":    err.Error(),
		})
		return Claim{}, err
	}
	return c, nil
}

// List returns claims matching the filter. Requires ViewBilling.
func (l *Ledger) List(ctx context.Context, actorID string, f ListFilter) ([]Claim, error) {
	d, err := l.eval.Evaluate(ctx, actorID, rbac.CapViewBilling, "claim")
	if err != nil {
		return nil, err
	}
	if !d.Granted {
		return nil, ErrDenied
	}
	return l.store.List(ctx, f)
}

// Aggregate returns per-status totals and collected revenue for the range.
// Requires ViewBilling.
func (l *Ledger) Aggregate(ctx context.Context, actorID string, f AggregateFilter) (Aggregate, error) {
	d, err := l.eval.Evaluate(ctx, actorID, rbac.CapViewBilling, "claim_aggregate")
	if err != nil {
		return Aggregate{}, err
	}
	if !d.Granted {
		return Aggregate{}, ErrDenied
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Aggregate{}, fmt.Errorf("%w: date range end precedes start", ErrValidation)
	}
	return l.store.Aggregate(ctx, f)
}
