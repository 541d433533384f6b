package rbac

// Global permission names, seeded in
// db/migrations/20250901000002_seed_roles_permissions.sql
const (
	PermManageUsers     = "users.manage"          // CRUD operations on users
	PermViewUsers       = "users.view"            // List/inspect users
	PermManageRoles     = "roles.manage"          // Create/delete custom roles, sync permissions
	PermAssignRoles     = "roles.assign"          // Assign/remove role memberships
	PermCreateTemplates = "templates.create"      // Create logbook templates
	PermUpdateOwnTmpl   = "templates.update.own"  // Update templates the user owns
	PermViewAudit       = "audit.view"            // Read the audit trail
	PermManageInstit    = "institutions.manage"   // Institution-scoped administration
	PermViewOwnLogbooks = "logbooks.view.own"     // View logbooks the user participates in
)

// Global role names. All five are seeded as system roles and cannot be
// deleted.
const (
	RoleSuperAdmin       = "super_admin"
	RoleAdmin            = "admin"
	RoleManager          = "manager"
	RoleInstitutionAdmin = "institution_admin"
	RoleUser             = "user" // default role assigned at registration
)

// PlatformOverrideRoles bypass per-template grant lookups entirely: holders
// get full access to every template so platform operators are never locked
// out by a missing grant row. Every resource guard consults this one list.
var PlatformOverrideRoles = []string{RoleSuperAdmin, RoleAdmin}

// OwnershipOverrideRoles is the widened list honored by ownership checks on
// destructive/structural template operations.
var OwnershipOverrideRoles = []string{RoleSuperAdmin, RoleAdmin, RoleManager, RoleInstitutionAdmin}

// Logbook (per-template) role names, strictly ordered by capability.
const (
	LogbookRoleOwner      = "owner"
	LogbookRoleSupervisor = "supervisor"
	LogbookRoleEditor     = "editor"
	LogbookRoleViewer     = "viewer"
)

// Logbook permission names. These are fixed per role; a grant only ever
// carries a role, never a partial permission override.
const (
	PermViewLogbook    = "view_logbook"
	PermCreateEntry    = "create_entry"
	PermEditEntry      = "edit_entry"
	PermDeleteEntry    = "delete_entry"
	PermExportLogbook  = "export_logbook"
	PermManageAccess   = "manage_access"
	PermManageTemplate = "manage_template"
)

// logbookRoleRanks orders logbook roles by capability, highest first.
var logbookRoleRanks = map[string]int{
	LogbookRoleOwner:      4,
	LogbookRoleSupervisor: 3,
	LogbookRoleEditor:     2,
	LogbookRoleViewer:     1,
}

// logbookRolePermissions maps each logbook role to its fixed permission set.
var logbookRolePermissions = map[string][]string{
	LogbookRoleViewer: {
		PermViewLogbook,
	},
	LogbookRoleEditor: {
		PermViewLogbook,
		PermCreateEntry,
		PermEditEntry,
	},
	LogbookRoleSupervisor: {
		PermViewLogbook,
		PermCreateEntry,
		PermEditEntry,
		PermDeleteEntry,
		PermExportLogbook,
	},
	LogbookRoleOwner: {
		PermViewLogbook,
		PermCreateEntry,
		PermEditEntry,
		PermDeleteEntry,
		PermExportLogbook,
		PermManageAccess,
		PermManageTemplate,
	},
}

// IsLogbookRole reports whether name is a recognized logbook role.
func IsLogbookRole(name string) bool {
	_, ok := logbookRoleRanks[name]
	return ok
}

// LogbookRoleRank returns the capability rank of a logbook role (higher is
// more capable), or 0 for unknown names.
func LogbookRoleRank(name string) int {
	return logbookRoleRanks[name]
}

// LogbookRoleHasPermission reports whether the given logbook role carries
// the given logbook permission. Unknown roles carry nothing.
func LogbookRoleHasPermission(role, permission string) bool {
	for _, p := range logbookRolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// LogbookRolePermissions returns a copy of the fixed permission set for a
// logbook role.
func LogbookRolePermissions(role string) []string {
	perms := logbookRolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
