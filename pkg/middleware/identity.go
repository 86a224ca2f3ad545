package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/contextkeys"
)

// Headers set by the upstream gateway after it authenticates the request.
// Authentication itself happens before traffic reaches this service.
const (
	UserIDHeader    = "X-User-ID"
	OrgIDHeader     = "X-Org-ID"
	RoleHeader      = "X-User-Role"
	UserEmailHeader = "X-User-Email"
)

// Identity reads the gateway identity headers and places the resulting
// authz.Identity on the request context. Requests with missing or malformed
// headers continue without an identity; downstream enforcement rejects them.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromHeaders(r)
			if ok {
				r = r.WithContext(contextkeys.WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFromHeaders(r *http.Request) (*authz.Identity, bool) {
	userID, err := uuid.Parse(r.Header.Get(UserIDHeader))
	if err != nil {
		return nil, false
	}
	orgID, err := uuid.Parse(r.Header.Get(OrgIDHeader))
	if err != nil {
		return nil, false
	}

	role := authz.Role(r.Header.Get(RoleHeader))
	if !validRole(role) {
		return nil, false
	}

	return &authz.Identity{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
		Email:  r.Header.Get(UserEmailHeader),
	}, true
}

func validRole(role authz.Role) bool {
	for _, known := range authz.Roles() {
		if role == known {
			return true
		}
	}
	return false
}
