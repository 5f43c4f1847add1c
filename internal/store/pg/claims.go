package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"meridiancare.org/internal/claims"
)

// ClaimStore is a view over Store satisfying claims.Store. The name List is
// already taken on *Store by the audit log's List, so the claims listing
// lives here; every other claims method is promoted from the embedded Store.
type ClaimStore struct{ *Store }

// Claims returns the claims.Store view of this store.
func (s *Store) Claims() ClaimStore { return ClaimStore{s} }

var _ claims.Store = ClaimStore{}

const claimColumns = `id, client_id, claim_number, service_date_from, service_date_to, total_cents, payment_cents, status, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into claims (`+claimColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.ClientID, c.ClaimNumber, c.ServiceFrom, c.ServiceTo, c.TotalCents, c.PaymentCents, string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return claims.Claim{}, fmt.Errorf("%w: duplicate claim %s", claims.ErrValidation, c.ClaimNumber)
		}
		return claims.Claim{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (claims.Claim, error) {
	c, err := scanClaim(s.db.QueryRowContext(ctx, `
		select `+claimColumns+` from claims where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return claims.Claim{}, claims.ErrNotFound
	}
	return c, err
}

func (s ClaimStore) List(ctx context.Context, f claims.ListFilter) ([]claims.Claim, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var (
		where []string
		args  []any
	)
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `select ` + claimColumns + ` from claims`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" order by created_at desc limit $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []claims.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition re-reads the claim under FOR UPDATE inside the transaction that
// applies the change. Of two concurrent attempts from the same prior status,
// the second blocks on the row lock, then re-reads the winner's status and
// fails the graph check. Status and payment commit together or not at all.
func (s *Store) Transition(ctx context.Context, id string, target claims.Status, paymentCents int64) (claims.Claim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return claims.Claim{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var current claims.Status
	err = tx.QueryRowContext(ctx, `
		select status from claims where id = $1 for update
	`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return claims.Claim{}, claims.ErrNotFound
	}
	if err != nil {
		return claims.Claim{}, err
	}

	if !claims.CanTransition(current, target) {
		return claims.Claim{}, fmt.Errorf("%w: %s -> %s", claims.ErrInvalidTransition, current, target)
	}

	c, err := scanClaim(tx.QueryRowContext(ctx, `
		update claims
		set status = $2, payment_cents = $3, updated_at = $4
		where id = $1
		returning `+claimColumns+`
	`, id, string(target), paymentCents, time.Now().UTC()))
	if err != nil {
		return claims.Claim{}, err
	}

	if err := tx.Commit(); err != nil {
		return claims.Claim{}, err
	}
	return c, nil
}

// Aggregate runs inside a repeatable-read transaction so every bucket reflects
// the same snapshot: no claim appears pre-transition in one bucket and
// post-transition in another.
func (s *Store) Aggregate(ctx context.Context, f claims.AggregateFilter) (claims.Aggregate, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return claims.Aggregate{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("service_date_to >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("service_date_from <= $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `
		select status, count(*), coalesce(sum(total_cents), 0), coalesce(sum(payment_cents), 0)
		from claims`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " group by status"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return claims.Aggregate{}, err
	}
	defer rows.Close()

	agg := claims.Aggregate{Buckets: make(map[claims.Status]claims.Bucket)}
	for rows.Next() {
		var (
			status string
			b      claims.Bucket
		)
		if err := rows.Scan(&status, &b.Count, &b.TotalCents, &b.PaymentCents); err != nil {
			return claims.Aggregate{}, err
		}
		agg.Buckets[claims.Status(status)] = b
		if claims.Status(status) == claims.StatusPaid {
			agg.CollectedCents += b.PaymentCents
		}
	}
	if err := rows.Err(); err != nil {
		return claims.Aggregate{}, err
	}

	if err := tx.Commit(); err != nil {
		return claims.Aggregate{}, err
	}
	return agg, nil
}

func scanClaim(row rowScanner) (claims.Claim, error) {
	var (
		c      claims.Claim
		status string
	)
	if err := row.Scan(&c.ID, &c.ClientID, &c.ClaimNumber, &c.ServiceFrom, &c.ServiceTo, &c.TotalCents, &c.PaymentCents, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return claims.Claim{}, err
	}
	c.Status = claims.Status(status)
	return c, nil
}
