package identifiers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/rbac"
)

// Guard partitions a client record into the views a principal is entitled to.
// The two identifier classes are checked independently: a principal may see
// one, the other, both, or neither, and each check produces its own audit
// event so "who saw what, when" can be reconstructed exactly.
type Guard struct {
	eval  *access.Evaluator
	store Store
}

func NewGuard(eval *access.Evaluator, store Store) (*Guard, error) {
	if eval == nil {
		return nil, errors.New("identifiers: evaluator is required")
	}
	if store == nil {
		return nil, errors.New("identifiers: store is required")
	}
	return &Guard{eval: eval, store: store}, nil
}

// ViewClient returns the client view the principal is entitled to. Demographic
// fields are always present; the individual identifier requires
// ViewClientIdentifiers and the organizational identifier requires the
// stricter ViewOrgIdentifiers. Denied fields are absent from the structure.
func (g *Guard) ViewClient(ctx context.Context, principalID, clientID string) (ClientView, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return ClientView{}, fmt.Errorf("%w: client_id is required", ErrValidation)
	}

	rec, err := g.store.GetClient(ctx, clientID)
	if err != nil {
		return ClientView{}, err
	}

	view := ClientView{
		ClientID:  rec.ClientID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		ProgramID: rec.ProgramID,
	}
	if !rec.BirthDate.IsZero() {
		view.BirthDate = rec.BirthDate.Format("2006-01-02")
	}

	indiv, err := g.eval.Evaluate(ctx, principalID, rbac.CapViewClientIdentifiers, "client:"+clientID)
	if err != nil {
		return ClientView{}, err
	}
	if indiv.Granted && rec.IndividualIdentifier != "" {
		value := rec.IndividualIdentifier
		view.IndividualIdentifier = &value
	}

	org, err := g.eval.Evaluate(ctx, principalID, rbac.CapViewOrgIdentifiers, "client:"+clientID)
	if err != nil {
		return ClientView{}, err
	}
	if org.Granted && rec.OrgIdentifierRef != "" {
		oid, err := g.store.GetOrgIdentifier(ctx, rec.OrgIdentifierRef)
		if err != nil {
			return ClientView{}, err
		}
		view.OrganizationIdentifier = &OrgIdentifierView{
			ProgramID:     oid.ProgramID,
			Value:         oid.Value,
			EffectiveDate: oid.EffectiveDate.Format("2006-01-02"),
		}
	}

	return view, nil
}
