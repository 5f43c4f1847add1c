package httpapi

import (
	"net/http"
	"strings"
)

// handleClientResource serves GET /v1/clients/{id}. The response shape
// depends on the caller's role: identifier fields the caller may not see are
// absent from the JSON entirely.
func (a *API) handleClientResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	clientID := strings.TrimPrefix(r.URL.Path, "/v1/clients/")
	if clientID == "" || strings.Contains(clientID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	actor, ok := a.principalID(w, r)
	if !ok {
		return
	}
	view, err := a.guard.ViewClient(r.Context(), actor, clientID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
