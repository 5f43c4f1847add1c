// Package access is the single chokepoint for capability checks. Every page
// and service verb goes through Evaluate, so every decision is auditable and
// testable in one place instead of being re-implemented per endpoint.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/obs"
	"meridiancare.org/internal/rbac"
)

var (
	// ErrIntegrity is returned when the assignment data is in a state the
	// schema is supposed to make impossible (two active roles). The operation
	// is denied and the condition escalated; it indicates a bug or tampering.
	ErrIntegrity = errors.New("access: assignment integrity violation")

	// ErrCatalog is returned when an assigned role is missing from the
	// catalog. This is a deploy-time configuration fault, not a runtime
	// recoverable condition.
	ErrCatalog = errors.New("access: role missing from catalog")
)

// Decision is the outcome of one capability evaluation. The corresponding
// audit row is written synchronously before the decision is returned, so a
// caller never observes a grant or deny without it.
type Decision struct {
	Granted bool
	Reason  string
	RoleID  string
	EventID string
}

// Evaluator resolves a principal's active role and checks the requested
// capability against it. Stateless between calls; safe for any number of
// concurrent goroutines.
type Evaluator struct {
	catalog    *rbac.Catalog
	principals rbac.PrincipalStore
	log        audit.Recorder
}

func NewEvaluator(catalog *rbac.Catalog, principals rbac.PrincipalStore, log audit.Recorder) (*Evaluator, error) {
	if catalog == nil {
		return nil, errors.New("access: role catalog is required")
	}
	if principals == nil {
		return nil, errors.New("access: principal store is required")
	}
	if log == nil {
		return nil, errors.New("access: audit recorder is required")
	}
	return &Evaluator{catalog: catalog, principals: principals, log: log}, nil
}

// Evaluate decides whether the principal holds the capability. Denials are
// ordinary results, not errors; errors are reserved for malformed input,
// integrity violations, and storage failure.
func (e *Evaluator) Evaluate(ctx context.Context, principalID string, capability rbac.Capability, resource string) (Decision, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return Decision{}, fmt.Errorf("%w: principal_id is required", rbac.ErrInvalidInput)
	}
	// An unknown capability is a programming error: fail fast, never a
	// silent deny.
	if _, err := rbac.ParseCapability(string(capability)); err != nil {
		return Decision{}, err
	}

	assignment, err := e.principals.ActiveAssignment(ctx, principalID)
	switch {
	case errors.Is(err, rbac.ErrUnassigned):
		return e.deny(ctx, principalID, capability, resource, "", "no role"), nil
	case errors.Is(err, rbac.ErrIntegrity):
		d := e.record(ctx, principalID, capability, resource, "", audit.OutcomeIntegrityViolation, "multiple active role assignments")
		obs.Alert("access.integrity_violation", map[string]any{
			"principal_id": principalID,
			"capability":   capability.String(),
		})
		return d, fmt.Errorf("%w: principal %s", ErrIntegrity, principalID)
	case err != nil:
		return Decision{}, fmt.Errorf("resolve assignment: %w", err)
	}

	role, err := e.catalog.Resolve(assignment.RoleID)
	if err != nil {
		d := e.record(ctx, principalID, capability, resource, assignment.RoleID, audit.OutcomeIntegrityViolation, "assigned role absent from catalog")
		obs.Alert("access.role_missing", map[string]any{
			"principal_id": principalID,
			"role_id":      assignment.RoleID,
		})
		return d, fmt.Errorf("%w: %s", ErrCatalog, assignment.RoleID)
	}

	if !role.Has(capability) {
		return e.deny(ctx, principalID, capability, resource, role.ID, "capability not held by role "+role.ID), nil
	}

	d := e.record(ctx, principalID, capability, resource, role.ID, audit.OutcomeGranted, "")
	d.Granted = true
	return d, nil
}

func (e *Evaluator) deny(ctx context.Context, principalID string, capability rbac.Capability, resource, roleID, reason string) Decision {
	return e.record(ctx, principalID, capability, resource, roleID, audit.OutcomeDenied, reason)
}

func (e *Evaluator) record(ctx context.Context, principalID string, capability rbac.Capability, resource, roleID string, outcome audit.Outcome, detail string) Decision {
	eventID := audit.RecordOrAlert(ctx, e.log, audit.Event{
		PrincipalID: principalID,
		Action:      capability.String(),
		Resource:    resource,
		Outcome:     outcome,
		Detail:      detail,
	})
	obs.ObserveAccessDecision(capability.String(), string(outcome))
	return Decision{
		Reason:  detail,
		RoleID:  roleID,
		EventID: eventID,
	}
}
