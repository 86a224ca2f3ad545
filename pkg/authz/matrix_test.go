package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatrix_AdminRolesHaveFullAccess(t *testing.T) {
	m := DefaultMatrix()

	for _, role := range []Role{RoleSuperAdmin, RoleAdmin} {
		scope, ok := m.ScopeFor(role, ResourceBilling, ActionUpdate)
		assert.True(t, ok, "%s should hold billing:update", role)
		assert.Equal(t, ScopeAll, scope)

		scope, ok = m.ScopeFor(role, ResourceAdmin, ActionDelete)
		assert.True(t, ok)
		assert.Equal(t, ScopeAll, scope)
	}
}

func TestDefaultMatrix_ViewerHoldsNoWriteGrants(t *testing.T) {
	m := DefaultMatrix()

	for _, resource := range []Resource{ResourceClients, ResourcePrograms, ResourceForms, ResourceCalls, ResourceGoals} {
		for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete, ActionPublish} {
			assert.False(t, m.HasPermission(RoleViewer, resource, action),
				"VIEWER must not hold %s:%s", resource, action)
		}
	}

	scope, ok := m.ScopeFor(RoleViewer, ResourceClients, ActionRead)
	assert.True(t, ok)
	assert.Equal(t, ScopeProgram, scope)
}

func TestDefaultMatrix_CaseManagerScopes(t *testing.T) {
	m := DefaultMatrix()

	scope, ok := m.ScopeFor(RoleCaseManager, ResourceClients, ActionUpdate)
	assert.True(t, ok)
	assert.Equal(t, ScopeAssigned, scope)

	// Creation happens before assignment, so it is program-scoped.
	scope, ok = m.ScopeFor(RoleCaseManager, ResourceClients, ActionCreate)
	assert.True(t, ok)
	assert.Equal(t, ScopeProgram, scope)

	assert.False(t, m.HasPermission(RoleCaseManager, ResourceClients, ActionDelete))
	assert.False(t, m.HasPermission(RoleCaseManager, ResourceBilling, ActionRead))
}

func TestDefaultMatrix_FacilitatorIsSessionScoped(t *testing.T) {
	m := DefaultMatrix()

	scope, ok := m.ScopeFor(RoleFacilitator, ResourceAttendance, ActionUpdate)
	assert.True(t, ok)
	assert.Equal(t, ScopeSession, scope)

	scope, ok = m.ScopeFor(RoleFacilitator, ResourceClients, ActionRead)
	assert.True(t, ok)
	assert.Equal(t, ScopeSession, scope)

	assert.False(t, m.HasPermission(RoleFacilitator, ResourceClients, ActionUpdate))
	assert.False(t, m.HasPermission(RoleFacilitator, ResourceExports, ActionCreate))
}

func TestDefaultMatrix_NonAdminsHoldNoAdminGrants(t *testing.T) {
	m := DefaultMatrix()

	for _, role := range []Role{RoleProgramManager, RoleCaseManager, RoleFacilitator, RoleViewer} {
		for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
			assert.False(t, m.HasPermission(role, ResourceAdmin, action),
				"%s must not hold admin:%s", role, action)
			assert.False(t, m.HasPermission(role, ResourceBilling, action),
				"%s must not hold billing:%s", role, action)
		}
	}
}

func TestMatrix_UnknownRoleHasNothing(t *testing.T) {
	m := DefaultMatrix()

	assert.False(t, m.HasPermission(Role("INTERN"), ResourceClients, ActionRead))
	assert.Empty(t, m.Permissions(Role("INTERN")))
	assert.Empty(t, m.PermittedActions(Role("INTERN"), ResourceClients))
}

func TestMatrix_PermittedActionsSorted(t *testing.T) {
	m := DefaultMatrix()

	actions := m.PermittedActions(RoleProgramManager, ResourceClients)
	assert.Equal(t, []Action{ActionCreate, ActionDelete, ActionExport, ActionRead, ActionUpdate}, actions)
}

func TestMatrix_AccessibleResources(t *testing.T) {
	m := DefaultMatrix()

	resources := m.AccessibleResources(RoleViewer, ActionRead)
	assert.Equal(t, []Resource{ResourceAttendance, ResourceCalls, ResourceClients, ResourceForms, ResourceGoals, ResourcePrograms}, resources)

	assert.Empty(t, m.AccessibleResources(RoleViewer, ActionDelete))
}
