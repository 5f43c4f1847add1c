package rbac

import (
	"fmt"
	"strings"
)

// Capability is a named permission flag a role may hold. The vocabulary is
// fixed; extending it is a catalog update shipped with a deploy, never a
// runtime operation.
type Capability string

const (
	CapViewOrgIdentifiers    Capability = "view_org_identifiers"
	CapViewClientIdentifiers Capability = "view_client_identifiers"
	CapEditClientData        Capability = "edit_client_data"
	CapScheduleSessions      Capability = "schedule_sessions"
	CapManageStaff           Capability = "manage_staff"
	CapViewBilling           Capability = "view_billing"
	CapManageAuthorizations  Capability = "manage_authorizations"
)

var allCapabilities = []Capability{
	CapViewOrgIdentifiers,
	CapViewClientIdentifiers,
	CapEditClientData,
	CapScheduleSessions,
	CapManageStaff,
	CapViewBilling,
	CapManageAuthorizations,
}

// Capabilities returns the full vocabulary in declaration order.
func Capabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// ParseCapability maps a wire-format name onto the vocabulary. An unknown name
// is a programming error on the caller's side, surfaced as an error rather
// than a silent deny.
func ParseCapability(raw string) (Capability, error) {
	c := Capability(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range allCapabilities {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCapability, raw)
}

func (c Capability) String() string { return string(c) }
