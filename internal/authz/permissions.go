package authz

// Role is a user's role within an organization.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Permission is a fine-grained capability, formatted "resource:action".
type Permission string

const (
	PermOrgList   Permission = "org:list"
	PermOrgRead   Permission = "org:read"
	PermOrgCreate Permission = "org:create"
	PermOrgUpdate Permission = "org:update"
	PermOrgDelete Permission = "org:delete"
	PermOrgSwitch Permission = "org:switch"

	PermUserList        Permission = "user:list"
	PermUserRead        Permission = "user:read"
	PermUserCreate      Permission = "user:create"
	PermUserUpdate      Permission = "user:update"
	PermUserDelete      Permission = "user:delete"
	PermUserCreateOwner Permission = "user:create-owner"
	PermUserPromoteOwner Permission = "user:promote-owner"
	PermUserRemoveOwner  Permission = "user:remove-owner"

	PermJobList   Permission = "job:list"
	PermJobCreate Permission = "job:create"
	PermJobUpdate Permission = "job:update"
	PermJobDelete Permission = "job:delete"

	PermSettingsRead   Permission = "settings:read"
	PermSettingsUpdate Permission = "settings:update"
)

// rolePermissions maps each role to its explicit permission list.
// There is no inheritance: a role holds exactly what is listed here,
// and a higher-privilege role does not imply a lower one.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermOrgList, PermOrgRead, PermOrgCreate, PermOrgUpdate, PermOrgDelete, PermOrgSwitch,
		PermUserList, PermUserRead, PermUserCreate, PermUserUpdate, PermUserDelete,
		PermUserCreateOwner, PermUserPromoteOwner, PermUserRemoveOwner,
		PermJobList, PermJobCreate, PermJobUpdate, PermJobDelete,
		PermSettingsRead, PermSettingsUpdate,
	},
	RoleAdmin: {
		PermOrgList, PermOrgRead, PermOrgCreate, PermOrgSwitch,
		PermUserList, PermUserRead, PermUserCreate, PermUserUpdate, PermUserDelete,
		PermJobList, PermJobCreate, PermJobUpdate, PermJobDelete,
		PermSettingsRead, PermSettingsUpdate,
	},
	RoleMember: {
		PermOrgList, PermOrgRead, PermOrgCreate, PermOrgSwitch,
		PermJobList,
		PermSettingsRead,
	},
}

// PermissionsFor returns the permission list for a role. An unknown role
// yields the empty list (fails closed).
func PermissionsFor(role Role) []Permission {
	return rolePermissions[role]
}

// HasPermission reports whether the role holds the given permission.
func HasPermission(role Role, p Permission) bool {
	for _, held := range rolePermissions[role] {
		if held == p {
			return true
		}
	}
	return false
}

// HasAny reports whether the role holds at least one of the permissions.
func HasAny(role Role, perms []Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role holds every one of the permissions.
func HasAll(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}
