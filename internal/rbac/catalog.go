package rbac

import "fmt"

// Role couples a hierarchy level with an explicitly declared capability set.
// Capability sets are not monotonic in level: a Supervisor (4) cannot see
// organizational identifiers while an Administrator (5) can, and a Direct
// Care worker (2) cannot edit client data while a Case Manager (3) can.
type Role struct {
	ID    string
	Name  string
	Level int

	caps map[Capability]struct{}
}

// Has reports whether the role holds the capability.
func (r Role) Has(c Capability) bool {
	_, ok := r.caps[c]
	return ok
}

// Capabilities returns the role's declared capability set in vocabulary order.
func (r Role) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.caps))
	for _, c := range allCapabilities {
		if _, ok := r.caps[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// NewRole builds an immutable role. The capability slice is copied; the role
// never aliases caller memory.
func NewRole(id, name string, level int, caps ...Capability) (Role, error) {
	if id == "" || name == "" {
		return Role{}, fmt.Errorf("%w: role id and name are required", ErrInvalidInput)
	}
	if level < 1 || level > 5 {
		return Role{}, fmt.Errorf("%w: role level must be within 1..5, got %d", ErrInvalidInput, level)
	}
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		if _, err := ParseCapability(string(c)); err != nil {
			return Role{}, err
		}
		set[c] = struct{}{}
	}
	return Role{ID: id, Name: name, Level: level, caps: set}, nil
}

// Catalog is the process-wide role table. It is populated once at startup and
// is read-only afterwards, so it is safe for concurrent readers without locks.
type Catalog struct {
	roles map[string]Role
}

// NewCatalog builds a catalog from the given roles. Duplicate ids are a
// configuration error.
func NewCatalog(roles ...Role) (*Catalog, error) {
	m := make(map[string]Role, len(roles))
	for _, r := range roles {
		if _, exists := m[r.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate role id %q", ErrInvalidInput, r.ID)
		}
		m[r.ID] = r
	}
	return &Catalog{roles: m}, nil
}

// Resolve looks up a role by id.
func (c *Catalog) Resolve(roleID string) (Role, error) {
	r, ok := c.roles[roleID]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrRoleNotFound, roleID)
	}
	return r, nil
}

// Roles returns all catalog entries, lowest level first.
func (c *Catalog) Roles() []Role {
	out := make([]Role, 0, len(c.roles))
	for level := 1; level <= 5; level++ {
		for _, r := range c.roles {
			if r.Level == level {
				out = append(out, r)
			}
		}
	}
	return out
}

// Well-known role ids used by the default catalog and the seed data.
const (
	RoleTechnician    = "technician"
	RoleDirectCare    = "direct_care"
	RoleCaseManager   = "case_manager"
	RoleSupervisor    = "supervisor"
	RoleAdministrator = "administrator"
)

// DefaultCatalog returns the fixed five-role hierarchy the portal ships with.
// A missing role here is fatal at startup, not a recoverable runtime state.
func DefaultCatalog() *Catalog {
	mustRole := func(id, name string, level int, caps ...Capability) Role {
		r, err := NewRole(id, name, level, caps...)
		if err != nil {
			panic(fmt.Sprintf("default catalog misconfigured: %v", err))
		}
		return r
	}

	catalog, err := NewCatalog(
		mustRole(RoleTechnician, "Technician", 1,
			CapScheduleSessions,
		),
		mustRole(RoleDirectCare, "Direct Care", 2,
			CapViewClientIdentifiers,
			CapScheduleSessions,
		),
		mustRole(RoleCaseManager, "Case Manager", 3,
			CapViewClientIdentifiers,
			CapEditClientData,
			CapScheduleSessions,
			CapViewBilling,
			CapManageAuthorizations,
		),
		mustRole(RoleSupervisor, "Supervisor", 4,
			CapViewClientIdentifiers,
			CapEditClientData,
			CapScheduleSessions,
			CapManageStaff,
			CapViewBilling,
			CapManageAuthorizations,
		),
		mustRole(RoleAdministrator, "Administrator", 5,
			CapViewOrgIdentifiers,
			CapViewClientIdentifiers,
			CapEditClientData,
			CapScheduleSessions,
			CapManageStaff,
			CapViewBilling,
			CapManageAuthorizations,
		),
	)
	if err != nil {
		panic(fmt.Sprintf("default catalog misconfigured: %v", err))
	}
	return catalog
}
