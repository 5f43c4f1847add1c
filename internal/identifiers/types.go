package identifiers

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("identifiers: not found")
	ErrDenied     = errors.New("identifiers: insufficient privileges")
	ErrValidation = errors.New("identifiers: invalid input")
)

// ClientRecord is the stored shape of a client. The individual identifier is
// the client's own regulatory number; OrgIdentifierRef points at the provider
// level billing number in a separate table and is never embedded here.
type ClientRecord struct {
	ClientID             string
	FirstName            string
	LastName             string
	BirthDate            time.Time
	ProgramID            string
	IndividualIdentifier string
	OrgIdentifierRef     string
}

// OrgIdentifier is a provider-level regulatory billing number shared across a
// program. Rows are never deleted, only deactivated: historical claims may
// reference an expired value.
type OrgIdentifier struct {
	ID             string    `json:"id"`
	ProgramID      string    `json:"program_id"`
	Value          string    `json:"value"`
	EffectiveDate  time.Time `json:"effective_date"`
	ExpirationDate time.Time `json:"expiration_date,omitzero"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the identifier's expiration date has passed.
func (o OrgIdentifier) Expired(now time.Time) bool {
	return !o.ExpirationDate.IsZero() && o.ExpirationDate.Before(now)
}

// OrgIdentifierView is the payload shape released to authorized callers.
type OrgIdentifierView struct {
	ProgramID     string `json:"program_id"`
	Value         string `json:"value"`
	EffectiveDate string `json:"effective_date"`
}

// ClientView is what the page layer receives. The identifier fields are
// omitted (not nulled, not masked) when the caller lacks the matching
// capability, so a consumer cannot distinguish "empty" from "not authorized",
// and masked values cannot confirm existence.
type ClientView struct {
	ClientID  string `json:"client_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date,omitempty"`
	ProgramID string `json:"program_id"`

	IndividualIdentifier   *string            `json:"individual_identifier,omitempty"`
	OrganizationIdentifier *OrgIdentifierView `json:"organization_identifier,omitempty"`
}
