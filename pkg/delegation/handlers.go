package delegation

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/httputil"
)

// Handlers provides HTTP handlers for delegation management.
type Handlers struct {
	service *Service
}

// NewHandlers creates new delegation handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the delegation routes. Reads and writes take
// separate access gates; a nil gate leaves the route unguarded.
func (h *Handlers) RegisterRoutes(router *mux.Router, read, write func(http.Handler) http.Handler) {
	router.Handle("/orgs/{orgID}/delegations", gate(read, h.ListDelegations)).Methods("GET")
	router.Handle("/orgs/{orgID}/delegations/{userID}", gate(read, h.GetDelegation)).Methods("GET")
	router.Handle("/orgs/{orgID}/delegations/{userID}", gate(write, h.PutDelegation)).Methods("PUT")
	router.Handle("/orgs/{orgID}/delegations/{userID}", gate(write, h.DeleteDelegation)).Methods("DELETE")
}

func gate(mw func(http.Handler) http.Handler, handler http.HandlerFunc) http.Handler {
	if mw == nil {
		return handler
	}
	return mw(handler)
}

// authorizeOrg confines delegation management to the caller's own
// organization; only a super admin may operate on another org.
func authorizeOrg(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) bool {
	identity, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if identity.OrgID != orgID && identity.Role != authz.RoleSuperAdmin {
		httputil.WriteErrorMessage(w, http.StatusForbidden, "delegations can only be managed within your organization")
		return false
	}
	return true
}

func pathUUIDs(r *http.Request) (orgID, userID uuid.UUID, err error) {
	vars := mux.Vars(r)
	orgID, err = uuid.Parse(vars["orgID"])
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid org id")
	}
	if raw, ok := vars["userID"]; ok {
		userID, err = uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, uuid.Nil, errors.New("invalid user id")
		}
	}
	return orgID, userID, nil
}

// ListDelegations returns all delegation rows for an organization.
func (h *Handlers) ListDelegations(w http.ResponseWriter, r *http.Request) {
	orgID, _, err := pathUUIDs(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if !authorizeOrg(w, r, orgID) {
		return
	}

	delegations, err := h.service.ListByOrg(r.Context(), orgID)
	if err != nil {
		httputil.WriteInternalError(w, "failed to list delegations")
		return
	}
	if delegations == nil {
		delegations = []*Delegation{}
	}

	httputil.WriteSuccess(w, map[string]interface{}{"delegations": delegations})
}

// GetDelegation returns a user's delegation row.
func (h *Handlers) GetDelegation(w http.ResponseWriter, r *http.Request) {
	orgID, userID, err := pathUUIDs(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if !authorizeOrg(w, r, orgID) {
		return
	}

	d, err := h.service.Get(r.Context(), orgID, userID)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFound(w, "delegation not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, "failed to get delegation")
		return
	}

	httputil.WriteSuccess(w, d)
}

// PutDelegation grants or replaces a user's delegation. The caller must be
// an authenticated admin of the organization.
func (h *Handlers) PutDelegation(w http.ResponseWriter, r *http.Request) {
	orgID, userID, err := pathUUIDs(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	identity, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !authorizeOrg(w, r, orgID) {
		return
	}

	var req struct {
		CanManageBilling      bool       `json:"can_manage_billing"`
		CanManageTeam         bool       `json:"can_manage_team"`
		CanManageIntegrations bool       `json:"can_manage_integrations"`
		CanManageBranding     bool       `json:"can_manage_branding"`
		ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}

	d, err := h.service.Grant(r.Context(), &Grant{
		OrgID:                 orgID,
		UserID:                userID,
		DelegatedByID:         identity.UserID,
		CanManageBilling:      req.CanManageBilling,
		CanManageTeam:         req.CanManageTeam,
		CanManageIntegrations: req.CanManageIntegrations,
		CanManageBranding:     req.CanManageBranding,
		ExpiresAt:             req.ExpiresAt,
	})
	if err != nil {
		httputil.WriteInternalError(w, "failed to grant delegation")
		return
	}

	httputil.WriteSuccess(w, d)
}

// DeleteDelegation revokes a user's delegation. Revoking an absent
// delegation still returns 204.
func (h *Handlers) DeleteDelegation(w http.ResponseWriter, r *http.Request) {
	orgID, userID, err := pathUUIDs(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if !authorizeOrg(w, r, orgID) {
		return
	}

	if err := h.service.Revoke(r.Context(), orgID, userID); err != nil {
		httputil.WriteInternalError(w, "failed to revoke delegation")
		return
	}

	httputil.WriteNoContent(w)
}
