package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/claims"
	"meridiancare.org/internal/identifiers"
	"meridiancare.org/internal/rbac"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleCoreError maps core sentinels onto HTTP statuses. Denials carry a
// fixed message with no hint of what the capability would have exposed;
// integrity violations surface as a generic system error.
func handleCoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, claims.ErrValidation),
		errors.Is(err, identifiers.ErrValidation),
		errors.Is(err, rbac.ErrInvalidInput),
		errors.Is(err, rbac.ErrUnknownCapability):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, claims.ErrDenied),
		errors.Is(err, identifiers.ErrDenied):
		writeError(w, r, http.StatusForbidden, "insufficient privileges")
	case errors.Is(err, claims.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, claims.ErrNotFound),
		errors.Is(err, identifiers.ErrNotFound),
		errors.Is(err, rbac.ErrRoleNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, access.ErrIntegrity),
		errors.Is(err, access.ErrCatalog),
		errors.Is(err, claims.ErrIntegrity),
		errors.Is(err, rbac.ErrIntegrity):
		writeError(w, r, http.StatusInternalServerError, "system error")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
