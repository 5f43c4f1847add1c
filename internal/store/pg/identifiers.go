package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"meridiancare.org/internal/identifiers"
)

var _ identifiers.Store = (*Store)(nil)

func (s *Store) GetClient(ctx context.Context, clientID string) (identifiers.ClientRecord, error) {
	var (
		rec   identifiers.ClientRecord
		birth sql.NullTime
		indiv sql.NullString
		ref   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select client_id, first_name, last_name, birth_date, program_id, individual_identifier, org_identifier_ref
		from clients
		where client_id = $1
	`, clientID).Scan(&rec.ClientID, &rec.FirstName, &rec.LastName, &birth, &rec.ProgramID, &indiv, &ref)
	if errors.Is(err, sql.ErrNoRows) {
		return identifiers.ClientRecord{}, identifiers.ErrNotFound
	}
	if err != nil {
		return identifiers.ClientRecord{}, err
	}
	if birth.Valid {
		rec.BirthDate = birth.Time
	}
	if indiv.Valid {
		rec.IndividualIdentifier = indiv.String
	}
	if ref.Valid {
		rec.OrgIdentifierRef = ref.String
	}
	return rec, nil
}

func (s *Store) CreateOrgIdentifier(ctx context.Context, o identifiers.OrgIdentifier) (identifiers.OrgIdentifier, error) {
	var expiration any
	if !o.ExpirationDate.IsZero() {
		expiration = o.ExpirationDate
	}
	_, err := s.db.ExecContext(ctx, `
		insert into org_identifiers (id, program_id, value, effective_date, expiration_date, active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.ProgramID, o.Value, o.EffectiveDate, expiration, o.Active, o.CreatedAt)
	if err != nil {
		return identifiers.OrgIdentifier{}, err
	}
	return o, nil
}

func (s *Store) GetOrgIdentifier(ctx context.Context, id string) (identifiers.OrgIdentifier, error) {
	return s.scanOrgIdentifier(s.db.QueryRowContext(ctx, `
		select id, program_id, value, effective_date, expiration_date, active, created_at
		from org_identifiers
		where id = $1
	`, id))
}

func (s *Store) ListOrgIdentifiers(ctx context.Context, programID string) ([]identifiers.OrgIdentifier, error) {
	query := `
		select id, program_id, value, effective_date, expiration_date, active, created_at
		from org_identifiers`
	var args []any
	if programID != "" {
		query += ` where program_id = $1`
		args = append(args, programID)
	}
	query += ` order by effective_date desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identifiers.OrgIdentifier
	for rows.Next() {
		o, err := s.scanOrgIdentifierRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateOrgIdentifier soft-retires a row. Deletion does not exist:
// historical claims may still reference the value.
func (s *Store) DeactivateOrgIdentifier(ctx context.Context, id string) (identifiers.OrgIdentifier, error) {
	return s.scanOrgIdentifier(s.db.QueryRowContext(ctx, `
		update org_identifiers set active = false
		where id = $1
		returning id, program_id, value, effective_date, expiration_date, active, created_at
	`, id))
}

func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update org_identifiers set active = false
		where active and expiration_date is not null and expiration_date < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOrgIdentifier(row rowScanner) (identifiers.OrgIdentifier, error) {
	o, err := s.scanOrgIdentifierRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identifiers.OrgIdentifier{}, identifiers.ErrNotFound
	}
	return o, err
}

func (s *Store) scanOrgIdentifierRows(row rowScanner) (identifiers.OrgIdentifier, error) {
	var (
		o          identifiers.OrgIdentifier
		expiration sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.ProgramID, &o.Value, &o.EffectiveDate, &expiration, &o.Active, &o.CreatedAt); err != nil {
		return identifiers.OrgIdentifier{}, err
	}
	if expiration.Valid {
		o.ExpirationDate = expiration.Time
	}
	return o, nil
}
