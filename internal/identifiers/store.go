package identifiers

import (
	"context"
	"time"
)

// Store is the persistence contract for client records and the org identifier
// table. Client identifier rows and org identifier rows live in separate
// tables so that the organizational view can be withheld at the query level.
type Store interface {
	GetClient(ctx context.Context, clientID string) (ClientRecord, error)

	CreateOrgIdentifier(ctx context.Context, o OrgIdentifier) (OrgIdentifier, error)
	GetOrgIdentifier(ctx context.Context, id string) (OrgIdentifier, error)
	ListOrgIdentifiers(ctx context.Context, programID string) ([]OrgIdentifier, error)

	// DeactivateOrgIdentifier flips active to false. There is no delete.
	DeactivateOrgIdentifier(ctx context.Context, id string) (OrgIdentifier, error)

	// DeactivateExpired retires every active identifier whose expiration date
	// precedes now and returns how many rows changed.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
