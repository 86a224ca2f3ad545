package capability

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/delegation"
	"github.com/brightpath/casehub/pkg/httputil"
)

// Handlers serves the capability view for the authenticated user.
type Handlers struct {
	builder     *Builder
	delegations *delegation.Service
}

// NewHandlers creates new capability handlers. delegations may be nil when
// delegation is not configured; the settings flags then reflect role only.
func NewHandlers(builder *Builder, delegations *delegation.Service) *Handlers {
	return &Handlers{builder: builder, delegations: delegations}
}

// RegisterRoutes registers capability routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me/capabilities", h.GetCapabilities).Methods("GET")
}

// GetCapabilities returns the caller's capability view.
func (h *Handlers) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var snap delegation.Snapshot
	if h.delegations != nil {
		var err error
		snap, err = h.delegations.SnapshotFor(r.Context(), identity)
		if err != nil {
			httputil.WriteInternalError(w, "failed to load delegation snapshot")
			return
		}
	} else {
		snap = delegation.Snapshot{Role: identity.Role}
	}

	httputil.WriteSuccess(w, h.builder.For(identity, snap))
}
