package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"meridiancare.org/internal/claims"
)

const dateLayout = "2006-01-02"

type createClaimRequest struct {
	ClientID         string `json:"client_id"`
	ServiceDateFrom  string `json:"service_date_from"`
	ServiceDateTo    string `json:"service_date_to"`
	TotalAmountCents int64  `json:"total_amount_cents"`
}

type claimTransitionRequest struct {
	TargetStatus       string `json:"target_status"`
	PaymentAmountCents *int64 `json:"payment_amount_cents,omitempty"`
}

func (a *API) handleClaimsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createClaim(w, r)
	case http.MethodGet:
		a.listClaims(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	var req createClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseDate(req.ServiceDateFrom)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "service_date_from: "+err.Error())
		return
	}
	to, err := parseDate(req.ServiceDateTo)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "service_date_to: "+err.Error())
		return
	}
	c, err := a.ledger.Create(r.Context(), actor, claims.CreateInput{
		ClientID:    req.ClientID,
		ServiceFrom: from,
		ServiceTo:   to,
		TotalCents:  req.TotalAmountCents,
	})
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) listClaims(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := claims.ListFilter{ClientID: q.Get("client_id")}
	if s := q.Get("status"); s != "" {
		st, err := claims.ParseStatus(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = st
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	out, err := a.ledger.List(r.Context(), actor, f)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if out == nil {
		out = []claims.Claim{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": out})
}

// handleClaimResource dispatches /v1/claims/{id}, /v1/claims/{id}/transitions
// and /v1/claims/aggregate.
func (a *API) handleClaimResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/claims/")
	if rest == "aggregate" {
		a.aggregateClaims(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		a.getClaim(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] == "transitions":
		a.transitionClaim(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getClaim(w http.ResponseWriter, r *http.Request, claimID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	c, err := a.ledger.Get(r.Context(), actor, claimID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) transitionClaim(w http.ResponseWriter, r *http.Request, claimID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	var req claimTransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	target, err := claims.ParseStatus(req.TargetStatus)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.ledger.Transition(r.Context(), actor, claimID, target, req.PaymentAmountCents)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) aggregateClaims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var f claims.AggregateFilter
	var err error
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
	f.ClientID = q.Get("client_id")
	if s := q.Get("status"); s != "" {
		st, err := claims.ParseStatus(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = st
	}
	agg, err := a.ledger.Aggregate(r.Context(), actor, f)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}
