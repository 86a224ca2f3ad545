package delegation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/contextkeys"
	"github.com/brightpath/casehub/pkg/observability"
)

func setupHandlers(t *testing.T) (*Handlers, *mux.Router) {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(NewService(NewStore(db), logger, nil))

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, nil, nil)
	return handlers, router
}

func asAdmin(r *http.Request, orgID uuid.UUID) *http.Request {
	identity := &authz.Identity{
		UserID: uuid.New(),
		OrgID:  orgID,
		Role:   authz.RoleAdmin,
	}
	return r.WithContext(contextkeys.WithIdentity(r.Context(), identity))
}

func TestHandlers_PutGetDelete(t *testing.T) {
	_, router := setupHandlers(t)

	orgID := uuid.New()
	userID := uuid.New()
	path := fmt.Sprintf("/orgs/%s/delegations/%s", orgID, userID)

	body, _ := json.Marshal(map[string]bool{
		"can_manage_billing": true,
		"can_manage_team":    false,
	})
	req := httptest.NewRequest("PUT", path, bytes.NewReader(body))
	req = asAdmin(req, orgID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT returned %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", path, nil)
	req = asAdmin(req, orgID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET returned %d: %s", rec.Code, rec.Body.String())
	}

	var got Delegation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !got.CanManageBilling {
		t.Error("Expected billing flag to be set")
	}
	if got.CanManageTeam {
		t.Error("Expected team flag to be false")
	}

	req = httptest.NewRequest("DELETE", path, nil)
	req = asAdmin(req, orgID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE returned %d", rec.Code)
	}

	req = httptest.NewRequest("GET", path, nil)
	req = asAdmin(req, orgID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after revocation, got %d", rec.Code)
	}
}

func TestHandlers_PutRequiresIdentity(t *testing.T) {
	_, router := setupHandlers(t)

	path := fmt.Sprintf("/orgs/%s/delegations/%s", uuid.New(), uuid.New())
	req := httptest.NewRequest("PUT", path, bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", rec.Code)
	}
}

func TestHandlers_ForeignOrgIsForbidden(t *testing.T) {
	_, router := setupHandlers(t)

	callerOrg := uuid.New()
	otherOrg := uuid.New()
	userID := uuid.New()
	path := fmt.Sprintf("/orgs/%s/delegations/%s", otherOrg, userID)

	// An admin of one org cannot touch delegations in another.
	req := httptest.NewRequest("PUT", path, bytes.NewReader([]byte(`{"can_manage_billing":true}`)))
	req = asAdmin(req, callerOrg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Cross-org PUT returned %d, want 403", rec.Code)
	}

	for _, method := range []string{"GET", "DELETE"} {
		req = httptest.NewRequest(method, path, nil)
		req = asAdmin(req, callerOrg)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("Cross-org %s returned %d, want 403", method, rec.Code)
		}
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/orgs/%s/delegations", otherOrg), nil)
	req = asAdmin(req, callerOrg)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Cross-org list returned %d, want 403", rec.Code)
	}

	// Nothing was written to the other org.
	req = httptest.NewRequest("GET", path, nil)
	req = asAdmin(req, otherOrg)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 in the other org, got %d", rec.Code)
	}
}

func TestHandlers_SuperAdminMayManageAnyOrg(t *testing.T) {
	_, router := setupHandlers(t)

	otherOrg := uuid.New()
	path := fmt.Sprintf("/orgs/%s/delegations/%s", otherOrg, uuid.New())

	identity := &authz.Identity{
		UserID: uuid.New(),
		OrgID:  uuid.New(),
		Role:   authz.RoleSuperAdmin,
	}
	req := httptest.NewRequest("PUT", path, bytes.NewReader([]byte(`{"can_manage_team":true}`)))
	req = req.WithContext(contextkeys.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Super admin PUT returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlers_InvalidUUIDs(t *testing.T) {
	_, router := setupHandlers(t)

	req := httptest.NewRequest("GET", "/orgs/not-a-uuid/delegations/also-bad", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed ids, got %d", rec.Code)
	}
}

func TestHandlers_ListDelegations(t *testing.T) {
	_, router := setupHandlers(t)

	orgID := uuid.New()
	for i := 0; i < 2; i++ {
		path := fmt.Sprintf("/orgs/%s/delegations/%s", orgID, uuid.New())
		req := httptest.NewRequest("PUT", path, bytes.NewReader([]byte(`{"can_manage_team":true}`)))
		req = asAdmin(req, orgID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("PUT returned %d", rec.Code)
		}
	}

	req := httptest.NewRequest("GET", fmt.Sprintf("/orgs/%s/delegations", orgID), nil)
	req = asAdmin(req, orgID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET returned %d", rec.Code)
	}

	var resp struct {
		Delegations []Delegation `json:"delegations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Delegations) != 2 {
		t.Errorf("Expected 2 delegations, got %d", len(resp.Delegations))
	}
}
