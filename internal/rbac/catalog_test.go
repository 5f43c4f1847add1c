package rbac

import "testing"

func TestDefaultCatalogMatrix(t *testing.T) {
	c := DefaultCatalog()

	cases := []struct {
		roleID string
		level  int
		has    []Capability
		lacks  []Capability
	}{
		{RoleTechnician, 1,
			[]Capability{CapScheduleSessions},
			[]Capability{CapViewClientIdentifiers, CapViewOrgIdentifiers, CapEditClientData, CapManageStaff, CapViewBilling, CapManageAuthorizations}},
		{RoleDirectCare, 2,
			[]Capability{CapViewClientIdentifiers, CapScheduleSessions},
			[]Capability{CapViewOrgIdentifiers, CapEditClientData, CapManageStaff, CapViewBilling, CapManageAuthorizations}},
		{RoleCaseManager, 3,
			[]Capability{CapViewClientIdentifiers, CapEditClientData, CapScheduleSessions, CapViewBilling, CapManageAuthorizations},
			[]Capability{CapViewOrgIdentifiers, CapManageStaff}},
		{RoleSupervisor, 4,
			[]Capability{CapViewClientIdentifiers, CapEditClientData, CapScheduleSessions, CapManageStaff, CapViewBilling, CapManageAuthorizations},
			[]Capability{CapViewOrgIdentifiers}},
		{RoleAdministrator, 5,
			Capabilities(),
			nil},
	}
	for _, tc := range cases {
		role, err := c.Resolve(tc.roleID)
		if err != nil {
			t.Fatalf("resolve %s: %v", tc.roleID, err)
		}
		if role.Level != tc.level {
			t.Fatalf("%s level = %d, want %d", tc.roleID, role.Level, tc.level)
		}
		for _, cap := range tc.has {
			if !role.Has(cap) {
				t.Errorf("%s should hold %s", tc.roleID, cap)
			}
		}
		for _, cap := range tc.lacks {
			if role.Has(cap) {
				t.Errorf("%s must not hold %s", tc.roleID, cap)
			}
		}
	}
}

// The grant set is not monotonic in level: ViewOrgIdentifiers skips the level-4
// supervisor while the level-3 case manager holds ManageAuthorizations.
func TestCatalogNotMonotonicInLevel(t *testing.T) {
	c := DefaultCatalog()
	supervisor, _ := c.Resolve(RoleSupervisor)
	admin, _ := c.Resolve(RoleAdministrator)
	if supervisor.Has(CapViewOrgIdentifiers) {
		t.Fatal("supervisor must not hold view_org_identifiers")
	}
	if !admin.Has(CapViewOrgIdentifiers) {
		t.Fatal("administrator must hold view_org_identifiers")
	}
}

func TestResolveUnknownRole(t *testing.T) {
	if _, err := DefaultCatalog().Resolve("janitor"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseCapability(t *testing.T) {
	if _, err := ParseCapability("view_billing"); err != nil {
		t.Fatalf("view_billing: %v", err)
	}
	if _, err := ParseCapability("launch_rockets"); err == nil {
		t.Fatal("expected ErrUnknownCapability")
	}
}

func TestNewRoleLevelBounds(t *testing.T) {
	if _, err := NewRole("x", "X", 0, CapScheduleSessions); err == nil {
		t.Fatal("level 0 must be rejected")
	}
	if _, err := NewRole("x", "X", 6, CapScheduleSessions); err == nil {
		t.Fatal("level 6 must be rejected")
	}
}
