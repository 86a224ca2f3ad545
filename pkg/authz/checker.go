package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/observability"
)

// SettingArea names one of the delegable settings areas. Admin-level roles
// always hold every area implicitly; non-admins need a delegation row.
type SettingArea string

const (
	SettingBilling      SettingArea = "billing"
	SettingTeam         SettingArea = "team"
	SettingIntegrations SettingArea = "integrations"
	SettingBranding     SettingArea = "branding"
)

// SettingsDelegation is the delegation override consulted for settings-area
// requests that the static matrix does not grant.
type SettingsDelegation interface {
	HasSettingsAccess(ctx context.Context, role Role, orgID, userID uuid.UUID, area SettingArea) (bool, error)
}

// Checker composes the permission matrix, the scope resolver and the
// delegation override into a single allow/deny decision. It is the only
// component that produces Decisions; handlers never re-derive them.
type Checker struct {
	matrix     *Matrix
	resolver   *Resolver
	delegation SettingsDelegation
	contacts   AdminContacts
	logger     *observability.Logger
}

// NewChecker creates a permission checker. delegation and contacts may be
// nil; a nil delegation disables the settings override and a nil contacts
// directory omits escalation contacts from denials.
func NewChecker(matrix *Matrix, resolver *Resolver, delegation SettingsDelegation, contacts AdminContacts, logger *observability.Logger) *Checker {
	return &Checker{
		matrix:     matrix,
		resolver:   resolver,
		delegation: delegation,
		contacts:   contacts,
		logger:     logger,
	}
}

// User-facing denial messages, varied by the scope that failed.
const (
	msgNoGrant      = "You don't have permission to perform this action."
	msgProgramScope = "You can only access records in programs you belong to."
	msgAssigned     = "You can only access clients assigned to you."
	msgSession      = "You can only access records for sessions that are currently active."
)

func scopeDeniedMessage(scope Scope) string {
	switch scope {
	case ScopeAssigned:
		return msgAssigned
	case ScopeSession:
		return msgSession
	default:
		return msgProgramScope
	}
}

// Check evaluates a single access request. Every outcome is a value; data
// that is missing or ambiguous denies, it never allows and never panics.
func (c *Checker) Check(ctx context.Context, identity Identity, req CheckRequest) Decision {
	if IsAdminRole(identity.Role) {
		return Decision{Allowed: true, Scope: ScopeAll}
	}

	scope, ok := c.matrix.ScopeFor(identity.Role, req.Resource, req.Action)
	if !ok {
		if req.SettingArea != nil && c.delegation != nil {
			return c.checkDelegated(ctx, identity, *req.SettingArea)
		}
		return c.deny(ctx, identity, DenyNoGrant, msgNoGrant)
	}

	if scope == ScopeAll {
		return Decision{Allowed: true, Scope: ScopeAll}
	}

	res, err := c.resolver.Allowed(ctx, scope, identity.Role, identity.UserID, req.Scope)
	if err != nil {
		return c.denyOnLookupError(ctx, identity, req, err)
	}
	if res.MissingContext {
		// Fail closed, but flag as an engineering defect: the caller
		// omitted context the scope requires.
		c.logger.WithFields(map[string]interface{}{
			"defect":   true,
			"user_id":  identity.UserID.String(),
			"resource": string(req.Resource),
			"action":   string(req.Action),
			"scope":    string(scope),
		}).Error("permission check missing required scope context")
		return c.deny(ctx, identity, DenyInsufficientContext, msgNoGrant)
	}
	if !res.Allowed {
		return c.deny(ctx, identity, DenyScopeDenied, scopeDeniedMessage(scope))
	}

	return Decision{Allowed: true, Scope: scope}
}

// checkDelegated consults the delegation override for a settings-area
// request the matrix does not grant.
func (c *Checker) checkDelegated(ctx context.Context, identity Identity, area SettingArea) Decision {
	granted, err := c.delegation.HasSettingsAccess(ctx, identity.Role, identity.OrgID, identity.UserID, area)
	if err != nil {
		reason := DenyLookupFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = DenyLookupTimeout
		}
		c.logger.WithError(err).WithField("user_id", identity.UserID.String()).
			Error("delegation lookup failed, denying")
		return c.deny(ctx, identity, reason, msgNoGrant)
	}
	if !granted {
		return c.deny(ctx, identity, DenyNoGrant, msgNoGrant)
	}
	return Decision{Allowed: true, Scope: ScopeAll}
}

// denyOnLookupError fails closed on a collaborator failure, distinguishing
// timeouts so they can be tracked separately.
func (c *Checker) denyOnLookupError(ctx context.Context, identity Identity, req CheckRequest, err error) Decision {
	reason := DenyLookupFailed
	if errors.Is(err, context.DeadlineExceeded) {
		reason = DenyLookupTimeout
	}
	c.logger.WithError(err).WithFields(map[string]interface{}{
		"user_id":  identity.UserID.String(),
		"resource": string(req.Resource),
		"action":   string(req.Action),
	}).Error("scope lookup failed, denying")
	return c.deny(ctx, identity, reason, msgNoGrant)
}

// deny assembles a denial with an escalation contact for the caller's org.
// Contact resolution is best-effort; a failure leaves the contact unset.
func (c *Checker) deny(ctx context.Context, identity Identity, reason DenyReason, message string) Decision {
	d := Decision{Reason: reason, UserMessage: message}
	if c.contacts != nil {
		contact, err := c.contacts.AdminContact(ctx, identity.OrgID)
		if err == nil {
			d.AdminContact = contact
		}
	}
	return d
}
