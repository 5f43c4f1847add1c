package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/claims"
	"meridiancare.org/internal/identifiers"
	"meridiancare.org/internal/obs"
	"meridiancare.org/internal/rbac"
)

// ReadyProbe pings the backing store for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the access/claims core.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	eval       *access.Evaluator
	guard      *identifiers.Guard
	registry   *identifiers.Registry
	ledger     *claims.Ledger
	principals rbac.PrincipalStore
	catalog    *rbac.Catalog
	auditLog   audit.Log

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, eval *access.Evaluator, guard *identifiers.Guard, registry *identifiers.Registry, ledger *claims.Ledger, principals rbac.PrincipalStore, catalog *rbac.Catalog, auditLog audit.Log) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		eval:       eval,
		guard:      guard,
		registry:   registry,
		ledger:     ledger,
		principals: principals,
		catalog:    catalog,
		auditLog:   auditLog,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/clients/", a.handleClientResource)
	a.mux.HandleFunc("/v1/claims", a.handleClaimsCollection)
	a.mux.HandleFunc("/v1/claims/", a.handleClaimResource)
	a.mux.HandleFunc("/v1/principals/", a.handlePrincipalResource)
	a.mux.HandleFunc("/v1/audit", a.handleAuditListing)
	a.mux.HandleFunc("/v1/org-identifiers", a.handleOrgIdentifiers)
	a.mux.HandleFunc("/v1/org-identifiers/", a.handleOrgIdentifierResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- shared handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "meridian-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "meridian-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
