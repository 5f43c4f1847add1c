package pg

import (
	"context"
	"fmt"
	"strings"

	"meridiancare.org/internal/audit"
)

var _ audit.Log = (*Store)(nil)

// Record appends one audit row. seq is a bigserial assigned by the database,
// giving two events in the same millisecond a stable order. There is no
// update or delete statement for this table anywhere in the codebase.
func (s *Store) Record(ctx context.Context, ev audit.Event) (string, error) {
	ev = audit.Fill(ctx, ev)
	err := s.db.QueryRowContext(ctx, `
		insert into audit_events (id, principal_id, action, resource, outcome, detail, occurred_at, source_ip)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning seq
	`, ev.ID, ev.PrincipalID, ev.Action, ev.Resource, string(ev.Outcome), ev.Detail, ev.OccurredAt, ev.SourceIP).Scan(&ev.Seq)
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// List returns events for compliance review, ordered by occurred_at with seq
// as the tiebreaker.
func (s *Store) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.PrincipalID != "" {
		add("principal_id = $%d", f.PrincipalID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Outcome != "" {
		add("outcome = $%d", string(f.Outcome))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at <= $%d", f.To)
	}

	query := `
		select id, seq, principal_id, action, resource, outcome, detail, occurred_at, source_ip
		from audit_events`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" order by occurred_at, seq limit $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			ev      audit.Event
			outcome string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.PrincipalID, &ev.Action, &ev.Resource, &outcome, &ev.Detail, &ev.OccurredAt, &ev.SourceIP); err != nil {
			return nil, err
		}
		ev.Outcome = audit.Outcome(outcome)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
