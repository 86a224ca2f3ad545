package authz

import "sort"

// permKey identifies a (resource, action) pair inside the matrix.
type permKey struct {
	resource Resource
	action   Action
}

// Matrix is the static role -> (resource, action, scope) table. It is built
// once at startup and never mutated afterwards; concurrent reads are safe.
// Roles are flat, fully-enumerated tables rather than a hierarchy: the
// duplication between SUPER_ADMIN and ADMIN is intentional so the two can
// diverge later without refactoring an inheritance chain.
type Matrix struct {
	grants map[Role]map[permKey]Scope
}

// NewMatrix builds a matrix from fully-enumerated role permission sets.
// Every role in the system gets an entry, possibly empty.
func NewMatrix(perms map[Role][]Permission) *Matrix {
	m := &Matrix{grants: make(map[Role]map[permKey]Scope, len(perms))}
	for _, role := range Roles() {
		m.grants[role] = make(map[permKey]Scope)
	}
	for role, list := range perms {
		if _, ok := m.grants[role]; !ok {
			m.grants[role] = make(map[permKey]Scope)
		}
		for _, p := range list {
			// At most one scope per (resource, action): last entry wins,
			// matching the hand-authored table below which never repeats
			// a pair within a role.
			m.grants[role][permKey{p.Resource, p.Action}] = p.Scope
		}
	}
	return m
}

// HasPermission reports exact tuple membership for (role, resource, action).
func (m *Matrix) HasPermission(role Role, resource Resource, action Action) bool {
	_, ok := m.grants[role][permKey{resource, action}]
	return ok
}

// ScopeFor returns the scope granted to (role, resource, action), if any.
func (m *Matrix) ScopeFor(role Role, resource Resource, action Action) (Scope, bool) {
	scope, ok := m.grants[role][permKey{resource, action}]
	return scope, ok
}

// PermittedActions enumerates the actions a role may perform on a resource,
// sorted for stable navigation/UI output.
func (m *Matrix) PermittedActions(role Role, resource Resource) []Action {
	var actions []Action
	for key := range m.grants[role] {
		if key.resource == resource {
			actions = append(actions, key.action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// AccessibleResources enumerates the resources a role may perform an action
// on, sorted for stable navigation/UI output.
func (m *Matrix) AccessibleResources(role Role, action Action) []Resource {
	var resources []Resource
	for key := range m.grants[role] {
		if key.action == action {
			resources = append(resources, key.resource)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })
	return resources
}

// Permissions returns the full permission set for a role, sorted by
// resource then action.
func (m *Matrix) Permissions(role Role) []Permission {
	perms := make([]Permission, 0, len(m.grants[role]))
	for key, scope := range m.grants[role] {
		perms = append(perms, Permission{Resource: key.resource, Action: key.action, Scope: scope})
	}
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource != perms[j].Resource {
			return perms[i].Resource < perms[j].Resource
		}
		return perms[i].Action < perms[j].Action
	})
	return perms
}

// fullAccess enumerates every action an admin-level role holds on a
// resource, all at scope=all.
func fullAccess(resource Resource, actions ...Action) []Permission {
	perms := make([]Permission, 0, len(actions))
	for _, a := range actions {
		perms = append(perms, Permission{Resource: resource, Action: a, Scope: ScopeAll})
	}
	return perms
}

// adminPermissions is the fully-enumerated grant set shared by SUPER_ADMIN
// and ADMIN. Kept as a function so each role gets its own copy; the two
// tables are duplicated on purpose.
func adminPermissions() []Permission {
	var perms []Permission
	perms = append(perms, fullAccess(ResourceClients, ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport)...)
	perms = append(perms, fullAccess(ResourcePrograms, ActionCreate, ActionRead, ActionUpdate, ActionDelete)...)
	perms = append(perms, fullAccess(ResourceForms, ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionPublish, ActionUse)...)
	perms = append(perms, fullAccess(ResourceCalls, ActionCreate, ActionRead, ActionUpdate, ActionDelete)...)
	perms = append(perms, fullAccess(ResourceGoals, ActionCreate, ActionRead, ActionUpdate, ActionDelete)...)
	perms = append(perms, fullAccess(ResourceSettings, ActionRead, ActionUpdate)...)
	perms = append(perms, fullAccess(ResourceBilling, ActionRead, ActionUpdate)...)
	perms = append(perms, fullAccess(ResourceAdmin, ActionCreate, ActionRead, ActionUpdate, ActionDelete)...)
	perms = append(perms, fullAccess(ResourceExports, ActionCreate, ActionRead)...)
	perms = append(perms, fullAccess(ResourceAttendance, ActionRead, ActionUpdate)...)
	return perms
}

// DefaultMatrix returns the hand-authored production permission table.
func DefaultMatrix() *Matrix {
	return NewMatrix(map[Role][]Permission{
		RoleSuperAdmin: adminPermissions(),
		RoleAdmin:      adminPermissions(),

		RoleProgramManager: {
			{ResourceClients, ActionCreate, ScopeProgram},
			{ResourceClients, ActionRead, ScopeProgram},
			{ResourceClients, ActionUpdate, ScopeProgram},
			{ResourceClients, ActionDelete, ScopeProgram},
			{ResourceClients, ActionExport, ScopeProgram},
			{ResourcePrograms, ActionRead, ScopeProgram},
			{ResourcePrograms, ActionUpdate, ScopeProgram},
			{ResourceForms, ActionCreate, ScopeProgram},
			{ResourceForms, ActionRead, ScopeProgram},
			{ResourceForms, ActionUpdate, ScopeProgram},
			{ResourceForms, ActionPublish, ScopeProgram},
			{ResourceForms, ActionUse, ScopeProgram},
			{ResourceCalls, ActionRead, ScopeProgram},
			{ResourceCalls, ActionUpdate, ScopeProgram},
			{ResourceGoals, ActionCreate, ScopeProgram},
			{ResourceGoals, ActionRead, ScopeProgram},
			{ResourceGoals, ActionUpdate, ScopeProgram},
			{ResourceGoals, ActionDelete, ScopeProgram},
			{ResourceExports, ActionCreate, ScopeProgram},
			{ResourceExports, ActionRead, ScopeProgram},
			{ResourceAttendance, ActionRead, ScopeProgram},
			{ResourceAttendance, ActionUpdate, ScopeProgram},
		},

		RoleCaseManager: {
			{ResourceClients, ActionCreate, ScopeProgram},
			{ResourceClients, ActionRead, ScopeAssigned},
			{ResourceClients, ActionUpdate, ScopeAssigned},
			{ResourceClients, ActionExport, ScopeAssigned},
			{ResourcePrograms, ActionRead, ScopeProgram},
			{ResourceForms, ActionRead, ScopeProgram},
			{ResourceForms, ActionUse, ScopeAssigned},
			{ResourceCalls, ActionCreate, ScopeAssigned},
			{ResourceCalls, ActionRead, ScopeAssigned},
			{ResourceCalls, ActionUpdate, ScopeAssigned},
			{ResourceGoals, ActionCreate, ScopeAssigned},
			{ResourceGoals, ActionRead, ScopeAssigned},
			{ResourceGoals, ActionUpdate, ScopeAssigned},
			{ResourceExports, ActionCreate, ScopeAssigned},
			{ResourceAttendance, ActionRead, ScopeAssigned},
		},

		RoleFacilitator: {
			{ResourceClients, ActionRead, ScopeSession},
			{ResourcePrograms, ActionRead, ScopeProgram},
			{ResourceForms, ActionRead, ScopeProgram},
			{ResourceForms, ActionUse, ScopeSession},
			{ResourceCalls, ActionRead, ScopeSession},
			{ResourceAttendance, ActionRead, ScopeSession},
			{ResourceAttendance, ActionUpdate, ScopeSession},
		},

		RoleViewer: {
			{ResourceClients, ActionRead, ScopeProgram},
			{ResourcePrograms, ActionRead, ScopeProgram},
			{ResourceForms, ActionRead, ScopeProgram},
			{ResourceCalls, ActionRead, ScopeProgram},
			{ResourceGoals, ActionRead, ScopeProgram},
			{ResourceAttendance, ActionRead, ScopeProgram},
		},
	})
}
