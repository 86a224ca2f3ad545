package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/httputil"
)

// Handlers exposes denial log queries to org administrators.
type Handlers struct {
	store LogStore
}

// NewHandlers creates new audit handlers.
func NewHandlers(store LogStore) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes mounts the denial log routes behind an access gate.
// A nil gate leaves the routes unguarded.
func (h *Handlers) RegisterRoutes(router *mux.Router, gate func(http.Handler) http.Handler) {
	router.Handle("/audit/denials", guarded(gate, h.SearchDenials)).Methods("GET")
	router.Handle("/audit/denials/stats", guarded(gate, h.DenialStats)).Methods("GET")
}

func guarded(gate func(http.Handler) http.Handler, handler http.HandlerFunc) http.Handler {
	if gate == nil {
		return handler
	}
	return gate(handler)
}

// requestOrg resolves the organization to query. Queries are scoped to the
// caller's org; only a super admin may name another org explicitly.
func requestOrg(r *http.Request) (uuid.UUID, bool) {
	identity, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}

	if raw := r.URL.Query().Get("org_id"); raw != "" && identity.Role == authz.RoleSuperAdmin {
		if orgID, err := uuid.Parse(raw); err == nil {
			return orgID, true
		}
	}
	return identity.OrgID, true
}

// SearchDenials returns persisted denial events for the caller's org.
func (h *Handlers) SearchDenials(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requestOrg(r)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := SearchFilter{OrgID: &orgID}
	q := r.URL.Query()

	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid user_id")
			return
		}
		filter.UserID = &userID
	}
	if raw := q.Get("resource"); raw != "" {
		filter.Resource = authz.Resource(raw)
	}
	if raw := q.Get("reason"); raw != "" {
		filter.Reasons = []authz.DenyReason{authz.DenyReason(raw)}
	}
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid start time")
			return
		}
		filter.StartTime = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid end time")
			return
		}
		filter.EndTime = &t
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, "failed to search denial logs")
		return
	}
	if events == nil {
		events = []*DenialEvent{}
	}

	httputil.WriteSuccess(w, map[string]interface{}{"denials": events})
}

// DenialStats summarizes denial events for the caller's org. The optional
// "days" parameter limits the window; the default covers all retained logs.
func (h *Handlers) DenialStats(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requestOrg(r)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			httputil.WriteBadRequest(w, "invalid days")
			return
		}
		t := time.Now().UTC().AddDate(0, 0, -days)
		since = &t
	}

	stats, err := h.store.GetStats(r.Context(), orgID, since)
	if err != nil {
		httputil.WriteInternalError(w, "failed to compute denial stats")
		return
	}

	httputil.WriteSuccess(w, stats)
}
