package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"meridiancare.org/internal/access"
	"meridiancare.org/internal/audit"
	"meridiancare.org/internal/claims"
	"meridiancare.org/internal/identifiers"
	"meridiancare.org/internal/rbac"
)

// Smoke walk over the in-memory stores: assign roles, read a client record
// as two different roles, then push a claim through its full lifecycle and
// check that the audit trail saw every decision.
func main() {
	log.SetFlags(0)

	catalog := rbac.DefaultCatalog()
	principals := rbac.NewInMemory(catalog)
	auditLog := audit.NewInMemory()
	idStore := identifiers.NewInMemory()
	claimStore := claims.NewInMemory()

	eval, err := access.NewEvaluator(catalog, principals, auditLog)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}
	guard, err := identifiers.NewGuard(eval, idStore)
	if err != nil {
		log.Fatalf("guard: %v", err)
	}
	ledger, err := claims.NewLedger(claimStore, eval, auditLog)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}

	ctx := context.Background()

	if _, err := principals.Assign(ctx, "smoke-supervisor", rbac.RoleSupervisor); err != nil {
		log.Fatalf("assign supervisor: %v", err)
	}
	if _, err := principals.Assign(ctx, "smoke-technician", rbac.RoleTechnician); err != nil {
		log.Fatalf("assign technician: %v", err)
	}

	idStore.PutClient(identifiers.ClientRecord{
		ClientID:             "smoke-client",
		FirstName:            "Robin",
		LastName:             "Hale",
		BirthDate:            time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		ProgramID:            "day-program",
		IndividualIdentifier: "600987654",
	})

	supView, err := guard.ViewClient(ctx, "smoke-supervisor", "smoke-client")
	if err != nil {
		log.Fatalf("supervisor view: %v", err)
	}
	if supView.IndividualIdentifier == nil {
		log.Fatal("supervisor should see the individual identifier")
	}
	techView, err := guard.ViewClient(ctx, "smoke-technician", "smoke-client")
	if err != nil {
		log.Fatalf("technician view: %v", err)
	}
	if techView.IndividualIdentifier != nil {
		log.Fatal("technician must not see the individual identifier")
	}

	claim, err := ledger.Create(ctx, "smoke-supervisor", claims.CreateInput{
		ClientID:    "smoke-client",
		ServiceFrom: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		ServiceTo:   time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		TotalCents:  125_00,
	})
	if err != nil {
		log.Fatalf("create claim: %v", err)
	}

	for _, target := range []claims.Status{claims.StatusGenerated, claims.StatusSubmitted} {
		if claim, err = ledger.Transition(ctx, "smoke-supervisor", claim.ID, target, nil); err != nil {
			log.Fatalf("transition to %s: %v", target, err)
		}
	}
	payment := int64(110_00)
	if claim, err = ledger.Transition(ctx, "smoke-supervisor", claim.ID, claims.StatusPaid, &payment); err != nil {
		log.Fatalf("transition to paid: %v", err)
	}
	if claim.PaymentCents != payment {
		log.Fatalf("payment mismatch: got %d", claim.PaymentCents)
	}
	if _, err = ledger.Transition(ctx, "smoke-supervisor", claim.ID, claims.StatusDraft, nil); err == nil {
		log.Fatal("paid claim must be terminal")
	}

	agg, err := ledger.Aggregate(ctx, "smoke-supervisor", claims.AggregateFilter{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		log.Fatalf("aggregate: %v", err)
	}
	if agg.CollectedCents != payment {
		log.Fatalf("aggregate collected %d, want %d", agg.CollectedCents, payment)
	}

	events, err := auditLog.List(ctx, audit.Filter{Limit: 1000})
	if err != nil {
		log.Fatalf("audit list: %v", err)
	}
	if len(events) == 0 {
		log.Fatal("audit trail is empty")
	}

	out, _ := json.MarshalIndent(map[string]any{
		"claim":        claim,
		"aggregate":    agg,
		"audit_events": len(events),
	}, "", "  ")
	fmt.Println(string(out))
	fmt.Println("smoke OK")
}
