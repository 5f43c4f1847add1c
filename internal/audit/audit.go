package audit

import (
	"context"
	"strings"
	"time"

	"meridiancare.org/internal/ids"
	"meridiancare.org/internal/obs"
)

// Outcome classifies an audited decision. IntegrityViolation is deliberately
// distinct from Denied so that compliance review can separate "policy said no"
// from "the data itself was in an impossible state".
type Outcome string

const (
	OutcomeGranted            Outcome = "granted"
	OutcomeDenied             Outcome = "denied"
	OutcomeIntegrityViolation Outcome = "integrity_violation"
)

// Event is one append-only audit row. There is no update or delete in the
// public contract; ordering is occurred_at with the store-assigned Seq as a
// tiebreaker for events landing in the same millisecond.
type Event struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	PrincipalID string    `json:"principal_id"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	SourceIP    string    `json:"source_ip,omitempty"`
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) (string, error)
}

// Log is the full audit store contract: append plus the compliance-review
// listing.
type Log interface {
	Recorder
	List(ctx context.Context, f Filter) ([]Event, error)
}

// Filter narrows a compliance-review listing.
type Filter struct {
	PrincipalID string
	Action      string
	Outcome     Outcome
	From        time.Time
	To          time.Time
	Limit       int
}

type ctxKey string

const sourceIPKey ctxKey = "audit_source_ip"

// WithSourceIP attaches the request's client address for audit enrichment.
func WithSourceIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceIPKey, ip)
}

func sourceIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sourceIPKey).(string); ok {
		return v
	}
	return ""
}

// Fill populates the fields a caller normally leaves blank.
func Fill(ctx context.Context, ev Event) Event {
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if ev.SourceIP == "" {
		ev.SourceIP = sourceIPFromContext(ctx)
	}
	return ev
}

// RecordOrAlert writes the event and swallows storage failure: the decision
// being audited stands either way, but a lost write is escalated through the
// alert channel and counted, never dropped silently.
func RecordOrAlert(ctx context.Context, rec Recorder, ev Event) string {
	ev = Fill(ctx, ev)
	id, err := rec.Record(ctx, ev)
	if err != nil {
		obs.ObserveAuditFailure()
		obs.Alert("audit.write_failed", map[string]any{
			"principal_id": ev.PrincipalID,
			"action":       ev.Action,
			"outcome":      string(ev.Outcome),
			"error":        err.Error(),
		})
		return ""
	}
	return id
}
