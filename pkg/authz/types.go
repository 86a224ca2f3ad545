package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/contextkeys"
)

// Role represents a user's role in the system. Roles are a closed set,
// assigned once per user and immutable within this subsystem.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleAdmin          Role = "ADMIN"
	RoleProgramManager Role = "PROGRAM_MANAGER"
	RoleCaseManager    Role = "CASE_MANAGER"
	RoleFacilitator    Role = "FACILITATOR"
	RoleViewer         Role = "VIEWER"
)

// Roles returns all roles in the system.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleAdmin,
		RoleProgramManager,
		RoleCaseManager,
		RoleFacilitator,
		RoleViewer,
	}
}

// IsAdminRole reports whether a role bypasses scope resolution and
// delegation checks entirely.
func IsAdminRole(role Role) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}

// Resource represents a resource type in the system
type Resource string

const (
	ResourceClients    Resource = "clients"
	ResourcePrograms   Resource = "programs"
	ResourceForms      Resource = "forms"
	ResourceCalls      Resource = "calls"
	ResourceGoals      Resource = "goals"
	ResourceSettings   Resource = "settings"
	ResourceBilling    Resource = "billing"
	ResourceAdmin      Resource = "admin"
	ResourceExports    Resource = "exports"
	ResourceAttendance Resource = "attendance"
)

// Resources returns all resource types in the system.
func Resources() []Resource {
	return []Resource{
		ResourceClients,
		ResourcePrograms,
		ResourceForms,
		ResourceCalls,
		ResourceGoals,
		ResourceSettings,
		ResourceBilling,
		ResourceAdmin,
		ResourceExports,
		ResourceAttendance,
	}
}

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExport  Action = "export"
	ActionPublish Action = "publish"
	ActionUse     Action = "use"
)

// Scope represents the breadth of data a permission grants access to,
// ordered broadest first: all > program > assigned/session > none.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeProgram  Scope = "program"
	ScopeAssigned Scope = "assigned"
	ScopeSession  Scope = "session"
	ScopeNone     Scope = "none"
)

// Permission represents a grant of an action on a resource at a scope.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Scope    Scope    `json:"scope"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action) + ":" + string(p.Scope)
}

// Identity is the authenticated principal, supplied by the authentication
// layer. This service never creates one.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	OrgID  uuid.UUID `json:"org_id"`
	Role   Role      `json:"role"`
	Email  string    `json:"email,omitempty"`
}

// IdentityFromContext retrieves the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	return identity, ok
}

// ScopeContext carries the per-request data a scoped permission is
// evaluated against. All fields are optional; the resolver denies when a
// field required by the selected scope is missing.
type ScopeContext struct {
	ProgramID       *uuid.UUID `json:"program_id,omitempty"`
	ClientID        *uuid.UUID `json:"client_id,omitempty"`
	ResourceOwnerID *uuid.UUID `json:"resource_owner_id,omitempty"`
	SessionID       *uuid.UUID `json:"session_id,omitempty"`
}

// DenyReason classifies why a check denied. Reasons are a closed set so
// audit records and logs stay queryable.
type DenyReason string

const (
	DenyNoGrant             DenyReason = "no_grant"
	DenyScopeDenied         DenyReason = "scope_denied"
	DenyInsufficientContext DenyReason = "insufficient_context"
	DenyLookupFailed        DenyReason = "lookup_failed"
	DenyLookupTimeout       DenyReason = "lookup_timeout"
)

// CheckRequest describes a single access request to evaluate. SettingArea
// is set on settings-area routes so a delegation override can apply when
// the static matrix grants nothing.
type CheckRequest struct {
	Resource    Resource      `json:"resource"`
	Action      Action        `json:"action"`
	ResourceID  *uuid.UUID    `json:"resource_id,omitempty"`
	Scope       *ScopeContext `json:"scope,omitempty"`
	SettingArea *SettingArea  `json:"setting_area,omitempty"`
}

// AdminContact identifies a human in the caller's organization to escalate
// a denial to. It is a UX aid, never a security boundary.
type AdminContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Decision is the outcome of a permission check. Every check produces a
// Decision value; checks never panic and never fail open.
type Decision struct {
	Allowed      bool          `json:"allowed"`
	Scope        Scope         `json:"scope,omitempty"`
	Reason       DenyReason    `json:"reason,omitempty"`
	UserMessage  string        `json:"user_message,omitempty"`
	AdminContact *AdminContact `json:"admin_contact,omitempty"`
}

// DecisionFromContext retrieves the authorization decision stored by the
// access middleware for the current request.
func DecisionFromContext(ctx context.Context) (*Decision, bool) {
	decision, ok := ctx.Value(contextkeys.DecisionKey).(*Decision)
	return decision, ok
}

// EnrollmentStatus is the status of a client's program enrollment.
// Only ENROLLED and COMPLETED enrollments count toward scope overlap.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentPending   EnrollmentStatus = "PENDING"
)

// ProgramMembership resolves the program set a user belongs to.
type ProgramMembership interface {
	ProgramsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ClientEnrollments resolves a client's active program enrollments
// (status ENROLLED or COMPLETED).
type ClientEnrollments interface {
	EnrolledPrograms(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error)
}

// ClientAccess resolves direct assignment and explicit shares of a client.
type ClientAccess interface {
	// IsAssigned reports whether the client is directly assigned to the user.
	IsAssigned(ctx context.Context, clientID, userID uuid.UUID) (bool, error)
	// HasActiveShare reports whether a non-revoked, unexpired share grants
	// the user access to the client.
	HasActiveShare(ctx context.Context, clientID, userID uuid.UUID) (bool, error)
}

// SessionDirectory reports whether a session is currently active.
type SessionDirectory interface {
	SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// AdminContacts resolves an organization's escalation contact.
type AdminContacts interface {
	AdminContact(ctx context.Context, orgID uuid.UUID) (*AdminContact, error)
}
