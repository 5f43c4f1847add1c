package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/claims"
	"meridiancare.org/internal/httpapi"
	"meridiancare.org/internal/identifiers"
	"meridiancare.org/internal/obs"
	"meridiancare.org/internal/rbac"
	"meridiancare.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	catalog := rbac.DefaultCatalog()

	// With MERIDIAN_PG_DSN set all state lives in Postgres; without it the
	// process runs on in-memory stores, which is enough for local work.
	var (
		principals rbac.PrincipalStore
		auditLog   audit.Log
		idStore    identifiers.Store
		claimStore claims.Store
		probe      httpapi.ReadyProbe
		pgStore    *pg.Store
	)
	if dsn := os.Getenv("MERIDIAN_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		principals = pgStore
		auditLog = pgStore
		idStore = pgStore
		claimStore = pgStore.Claims()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Print("MERIDIAN_PG_DSN is empty, using in-memory stores")
		principals = rbac.NewInMemory(catalog)
		auditLog = audit.NewInMemory()
		idStore = identifiers.NewInMemory()
		claimStore = claims.NewInMemory()
	}

	eval, err := access.NewEvaluator(catalog, principals, auditLog)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}
	guard, err := identifiers.NewGuard(eval, idStore)
	if err != nil {
		log.Fatalf("guard: %v", err)
	}
	registry, err := identifiers.NewRegistry(eval, idStore, auditLog)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	ledger, err := claims.NewLedger(claimStore, eval, auditLog)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}

	sweeper, err := identifiers.NewSweeper(idStore, identifiers.DefaultSweepSchedule)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	sweeper.Start()

	api := httpapi.New(probe, version, eval, guard, registry, ledger, principals, catalog, auditLog)

	addr := os.Getenv("MERIDIAN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("starting meridian-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Print("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	sweeper.Stop()
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Print("stopped")
}
