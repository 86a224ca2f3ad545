// Package capability builds the client-facing view of what a user may do,
// so UIs can hide controls without issuing a check per element. The view
// is advisory; the server re-checks every operation.
package capability

import (
	"sort"
	"time"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/delegation"
)

// SettingsAccess mirrors the delegation snapshot's per-area booleans with
// the admin bypass already applied.
type SettingsAccess struct {
	Billing      bool `json:"billing"`
	Team         bool `json:"team"`
	Integrations bool `json:"integrations"`
	Branding     bool `json:"branding"`
}

// View is a point-in-time capability summary for one user.
type View struct {
	Role        authz.Role         `json:"role"`
	Permissions []authz.Permission `json:"permissions"`
	Settings    SettingsAccess     `json:"settings"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

// Builder derives views from the permission matrix.
type Builder struct {
	matrix *authz.Matrix
}

// NewBuilder creates a view builder over the given matrix.
func NewBuilder(matrix *authz.Matrix) *Builder {
	return &Builder{matrix: matrix}
}

// For builds the capability view for an identity and its delegation
// snapshot.
func (b *Builder) For(identity *authz.Identity, snap delegation.Snapshot) View {
	perms := b.matrix.Permissions(identity.Role)
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource != perms[j].Resource {
			return perms[i].Resource < perms[j].Resource
		}
		return perms[i].Action < perms[j].Action
	})
	if perms == nil {
		perms = []authz.Permission{}
	}

	return View{
		Role:        identity.Role,
		Permissions: perms,
		Settings: SettingsAccess{
			Billing:      snap.Allows(authz.SettingBilling),
			Team:         snap.Allows(authz.SettingTeam),
			Integrations: snap.Allows(authz.SettingIntegrations),
			Branding:     snap.Allows(authz.SettingBranding),
		},
		FetchedAt: snap.FetchedAt,
	}
}

// Can reports whether the view grants the action on the resource at any
// scope. Admin roles always can.
func (v View) Can(resource authz.Resource, action authz.Action) bool {
	_, ok := v.CanWithScope(resource, action)
	return ok
}

// CanWithScope returns the granted scope for the action, if any.
func (v View) CanWithScope(resource authz.Resource, action authz.Action) (authz.Scope, bool) {
	if authz.IsAdminRole(v.Role) {
		return authz.ScopeAll, true
	}
	for _, p := range v.Permissions {
		if p.Resource == resource && p.Action == action {
			return p.Scope, true
		}
	}
	return "", false
}

// HasSettingsAccess reports the view's flag for a settings area.
func (v View) HasSettingsAccess(area authz.SettingArea) bool {
	switch area {
	case authz.SettingBilling:
		return v.Settings.Billing
	case authz.SettingTeam:
		return v.Settings.Team
	case authz.SettingIntegrations:
		return v.Settings.Integrations
	case authz.SettingBranding:
		return v.Settings.Branding
	default:
		return false
	}
}
