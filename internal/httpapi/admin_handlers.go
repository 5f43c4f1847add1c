package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/identifiers"
	"meridiancare.org/internal/rbac"
)

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

type createOrgIdentifierRequest struct {
	ProgramID      string `json:"program_id"`
	Value          string `json:"value"`
	EffectiveDate  string `json:"effective_date"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// handlePrincipalResource serves /v1/principals/{id}/assignments: POST moves
// the principal to a new role, GET reports the active assignment.
func (a *API) handlePrincipalResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/principals/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "assignments" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	subjectID := parts[0]
	switch r.Method {
	case http.MethodPost:
		a.assignRole(w, r, subjectID)
	case http.MethodGet:
		a.getAssignment(w, r, subjectID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request, subjectID string) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	d, err := a.eval.Evaluate(r.Context(), actor, rbac.CapManageStaff, "principal:"+subjectID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if !d.Granted {
		writeError(w, r, http.StatusForbidden, "insufficient privileges")
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RoleID) == "" {
		writeError(w, r, http.StatusBadRequest, "role_id is required")
		return
	}
	as, err := a.principals.Assign(r.Context(), subjectID, req.RoleID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	audit.RecordOrAlert(r.Context(), a.auditLog, audit.Event{
		PrincipalID: actor,
		Action:      "principal.assign",
		Resource:    "principal:" + subjectID,
		Outcome:     audit.OutcomeGranted,
		Detail:      "role " + req.RoleID,
	})
	writeJSON(w, http.StatusCreated, as)
}

func (a *API) getAssignment(w http.ResponseWriter, r *http.Request, subjectID string) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	d, err := a.eval.Evaluate(r.Context(), actor, rbac.CapManageStaff, "principal:"+subjectID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if !d.Granted {
		writeError(w, r, http.StatusForbidden, "insufficient privileges")
		return
	}
	as, err := a.principals.ActiveAssignment(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, rbac.ErrUnassigned) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

// handleAuditListing serves GET /v1/audit for principals who manage staff.
func (a *API) handleAuditListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	d, err := a.eval.Evaluate(r.Context(), actor, rbac.CapManageStaff, "audit")
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if !d.Granted {
		writeError(w, r, http.StatusForbidden, "insufficient privileges")
		return
	}
	q := r.URL.Query()
	f := audit.Filter{
		PrincipalID: q.Get("principal_id"),
		Action:      q.Get("action"),
		Outcome:     audit.Outcome(q.Get("outcome")),
	}
	if v := q.Get("from"); v != "" {
		if f.From, err = parseDate(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "from: "+err.Error())
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, err = parseDate(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "to: "+err.Error())
			return
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	events, err := a.auditLog.List(r.Context(), f)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) handleOrgIdentifiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrgIdentifier(w, r)
	case http.MethodGet:
		a.listOrgIdentifiers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createOrgIdentifier(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	var req createOrgIdentifierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	in := identifiers.CreateOrgIdentifierInput{
		ProgramID: req.ProgramID,
		Value:     req.Value,
	}
	var err error
	if in.EffectiveDate, err = parseDate(req.EffectiveDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "effective_date: "+err.Error())
		return
	}
	if req.ExpirationDate != "" {
		if in.ExpirationDate, err = parseDate(req.ExpirationDate); err != nil {
			writeError(w, r, http.StatusBadRequest, "expiration_date: "+err.Error())
			return
		}
	}
	id, err := a.registry.Create(r.Context(), actor, in)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, id)
}

func (a *API) listOrgIdentifiers(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	out, err := a.registry.List(r.Context(), actor, r.URL.Query().Get("program_id"))
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if out == nil {
		out = []identifiers.OrgIdentifier{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"org_identifiers": out})
}

func (a *API) handleOrgIdentifierResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/org-identifiers/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "deactivate" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	id, err := a.registry.Deactivate(r.Context(), actor, parts[0])
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}
