package authz

import "testing"

func TestPermissionsFor_UnknownRoleEmpty(t *testing.T) {
	if got := PermissionsFor(Role("SUPERVISOR")); len(got) != 0 {
		t.Fatalf("unknown role should yield no permissions, got %v", got)
	}
}

func TestNoInheritance(t *testing.T) {
	// OWNER-only permissions must not leak into ADMIN or MEMBER
	for _, p := range []Permission{PermOrgDelete, PermUserCreateOwner, PermUserPromoteOwner, PermUserRemoveOwner} {
		if HasPermission(RoleAdmin, p) {
			t.Fatalf("ADMIN should not hold %s", p)
		}
		if HasPermission(RoleMember, p) {
			t.Fatalf("MEMBER should not hold %s", p)
		}
		if !HasPermission(RoleOwner, p) {
			t.Fatalf("OWNER should hold %s", p)
		}
	}
}

func TestHasAny(t *testing.T) {
	if !HasAny(RoleMember, []Permission{PermUserDelete, PermJobList}) {
		t.Fatalf("MEMBER holds job:list, HasAny should pass")
	}
	if HasAny(RoleMember, []Permission{PermUserDelete, PermJobCreate}) {
		t.Fatalf("MEMBER holds neither permission, HasAny should fail")
	}
	if HasAny(RoleMember, nil) {
		t.Fatalf("empty permission list should never match")
	}
}

func TestHasAll(t *testing.T) {
	if !HasAll(RoleAdmin, []Permission{PermJobCreate, PermJobDelete, PermSettingsUpdate}) {
		t.Fatalf("ADMIN holds all three permissions")
	}
	// missing even one of the required permissions denies
	if HasAll(RoleAdmin, []Permission{PermJobCreate, PermOrgDelete}) {
		t.Fatalf("ADMIN lacks org:delete, HasAll should fail")
	}
	if !HasAll(RoleOwner, nil) {
		t.Fatalf("vacuous HasAll should pass")
	}
}

func TestCatalogRoles(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleMember} {
		if len(PermissionsFor(role)) == 0 {
			t.Fatalf("role %s has no permissions listed", role)
		}
	}
}
