// Package delegation implements admin-delegated overrides that grant
// non-admin users access to specific settings areas of their organization.
package delegation

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/authz"
)

// Delegation is the persisted override row. At most one row exists per
// (org, user); a grant replaces the previous row wholesale.
type Delegation struct {
	OrgID                 uuid.UUID  `json:"org_id"`
	UserID                uuid.UUID  `json:"user_id"`
	CanManageBilling      bool       `json:"can_manage_billing"`
	CanManageTeam         bool       `json:"can_manage_team"`
	CanManageIntegrations bool       `json:"can_manage_integrations"`
	CanManageBranding     bool       `json:"can_manage_branding"`
	DelegatedByID         uuid.UUID  `json:"delegated_by_id"`
	DelegatedAt           time.Time  `json:"delegated_at"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the row has lapsed at the given instant.
// Expired rows are treated exactly like absent rows.
func (d *Delegation) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}

// Allows returns the boolean field for the requested settings area.
func (d *Delegation) Allows(area authz.SettingArea) bool {
	switch area {
	case authz.SettingBilling:
		return d.CanManageBilling
	case authz.SettingTeam:
		return d.CanManageTeam
	case authz.SettingIntegrations:
		return d.CanManageIntegrations
	case authz.SettingBranding:
		return d.CanManageBranding
	default:
		return false
	}
}

// Grant is the write request for an upsert. The four booleans always
// replace the stored row; partial grants do not accumulate across calls.
type Grant struct {
	OrgID                 uuid.UUID  `json:"org_id"`
	UserID                uuid.UUID  `json:"user_id"`
	DelegatedByID         uuid.UUID  `json:"delegated_by_id"`
	CanManageBilling      bool       `json:"can_manage_billing"`
	CanManageTeam         bool       `json:"can_manage_team"`
	CanManageIntegrations bool       `json:"can_manage_integrations"`
	CanManageBranding     bool       `json:"can_manage_branding"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// Snapshot is a caller-owned, point-in-time copy of a user's delegation,
// used by the capability view so UI gating needs no lookups at render
// time. Staleness is acceptable; the server stays authoritative.
type Snapshot struct {
	Role                  authz.Role `json:"role"`
	CanManageBilling      bool       `json:"can_manage_billing"`
	CanManageTeam         bool       `json:"can_manage_team"`
	CanManageIntegrations bool       `json:"can_manage_integrations"`
	CanManageBranding     bool       `json:"can_manage_branding"`
	FetchedAt             time.Time  `json:"fetched_at"`
}

// Allows returns the snapshot's boolean for the requested settings area,
// with the admin bypass applied.
func (s Snapshot) Allows(area authz.SettingArea) bool {
	if authz.IsAdminRole(s.Role) {
		return true
	}
	switch area {
	case authz.SettingBilling:
		return s.CanManageBilling
	case authz.SettingTeam:
		return s.CanManageTeam
	case authz.SettingIntegrations:
		return s.CanManageIntegrations
	case authz.SettingBranding:
		return s.CanManageBranding
	default:
		return false
	}
}
