package capability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/contextkeys"
)

func TestGetCapabilities(t *testing.T) {
	router := mux.NewRouter()
	NewHandlers(NewBuilder(authz.DefaultMatrix()), nil).RegisterRoutes(router)

	identity := &authz.Identity{UserID: uuid.New(), OrgID: uuid.New(), Role: authz.RoleCaseManager}
	req := httptest.NewRequest("GET", "/me/capabilities", nil)
	req = req.WithContext(contextkeys.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, authz.RoleCaseManager, view.Role)
	assert.NotEmpty(t, view.Permissions)
	assert.False(t, view.Settings.Billing)
}

func TestGetCapabilities_RequiresIdentity(t *testing.T) {
	router := mux.NewRouter()
	NewHandlers(NewBuilder(authz.DefaultMatrix()), nil).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/me/capabilities", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
