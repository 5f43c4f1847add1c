package identifiers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/ids"
	"meridiancare.org/internal/rbac"
)

// Registry owns the org identifier lifecycle: created by an administrator
// action, never deleted, only deactivated. Mutations are double-gated so that
// only roles holding both ViewOrgIdentifiers and ManageAuthorizations (the
// Administrator in the shipped catalog) can register a new number.
type Registry struct {
	eval  *access.Evaluator
	store Store
	log   audit.Recorder
}

// CreateOrgIdentifierInput is the administrator-supplied shape.
type CreateOrgIdentifierInput struct {
	ProgramID      string
	Value          string
	EffectiveDate  time.Time
	ExpirationDate time.Time
}

func NewRegistry(eval *access.Evaluator, store Store, log audit.Recorder) (*Registry, error) {
	if eval == nil || store == nil || log == nil {
		return nil, errors.New("identifiers: evaluator, store and audit log are required")
	}
	return &Registry{eval: eval, store: store, log: log}, nil
}

func (r *Registry) Create(ctx context.Context, actorID string, in CreateOrgIdentifierInput) (OrgIdentifier, error) {
	view, err := r.eval.Evaluate(ctx, actorID, rbac.CapViewOrgIdentifiers, "org_identifier")
	if err != nil {
		return OrgIdentifier{}, err
	}
	manage, err := r.eval.Evaluate(ctx, actorID, rbac.CapManageAuthorizations, "org_identifier")
	if err != nil {
		return OrgIdentifier{}, err
	}
	if !view.Granted || !manage.Granted {
		return OrgIdentifier{}, ErrDenied
	}

	in.ProgramID = strings.TrimSpace(in.ProgramID)
	in.Value = strings.TrimSpace(in.Value)
	if in.ProgramID == "" || in.Value == "" {
		return OrgIdentifier{}, fmt.Errorf("%w: program_id and value are required", ErrValidation)
	}
	if in.EffectiveDate.IsZero() {
		return OrgIdentifier{}, fmt.Errorf("%w: effective_date is required", ErrValidation)
	}
	if !in.ExpirationDate.IsZero() && in.ExpirationDate.Before(in.EffectiveDate) {
		return OrgIdentifier{}, fmt.Errorf("%w: expiration_date precedes effective_date", ErrValidation)
	}

	created, err := r.store.CreateOrgIdentifier(ctx, OrgIdentifier{
		ID:             ids.New(),
		ProgramID:      in.ProgramID,
		Value:          in.Value,
		EffectiveDate:  in.EffectiveDate,
		ExpirationDate: in.ExpirationDate,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return OrgIdentifier{}, err
	}

	audit.RecordOrAlert(ctx, r.log, audit.Event{
		PrincipalID: actorID,
		Action:      "org_identifier.create",
		Resource:    "org_identifier:" + created.ID,
		Outcome:     audit.OutcomeGranted,
		Detail:      "program " + created.ProgramID,
	})
	return created, nil
}

func (r *Registry) Deactivate(ctx context.Context, actorID, id string) (OrgIdentifier, error) {
	d, err := r.eval.Evaluate(ctx, actorID, rbac.CapViewOrgIdentifiers, "org_identifier:"+id)
	if err != nil {
		return OrgIdentifier{}, err
	}
	if !d.Granted {
		return OrgIdentifier{}, ErrDenied
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return OrgIdentifier{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	updated, err := r.store.DeactivateOrgIdentifier(ctx, id)
	if err != nil {
		return OrgIdentifier{}, err
	}

	audit.RecordOrAlert(ctx, r.log, audit.Event{
		PrincipalID: actorID,
		Action:      "org_identifier.deactivate",
		Resource:    "org_identifier:" + id,
		Outcome:     audit.OutcomeGranted,
	})
	return updated, nil
}

func (r *Registry) List(ctx context.Context, actorID, programID string) ([]OrgIdentifier, error) {
	d, err := r.eval.Evaluate(ctx, actorID, rbac.CapViewOrgIdentifiers, "org_identifier")
	if err != nil {
		return nil, err
	}
	if !d.Granted {
		return nil, ErrDenied
	}
	return r.store.ListOrgIdentifiers(ctx, strings.TrimSpace(programID))
}
