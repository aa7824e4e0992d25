package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, api *fakeVenueAPI, allowed modules.Set, authenticated bool) *mux.Router {
	t.Helper()
	services := func(r *http.Request) (*RoleService, error) {
		if !authenticated {
			return nil, errors.New("no session")
		}
		return NewRoleService(api), nil
	}
	allowedFn := func(r *http.Request) (modules.Set, bool) {
		return allowed, authenticated
	}

	router := mux.NewRouter()
	NewHandlers(services, allowedFn).RegisterRoutes(router)
	return router
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func settingsAccess() modules.Set {
	return modules.NewSet(modules.Dashboard, modules.Settings)
}

func TestHandlers_RequireSettingsModule(t *testing.T) {
	api := newFakeVenueAPI()

	rec := doRequest(setupRouter(t, api, nil, false), http.MethodGet, "/settings/api/roles", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(setupRouter(t, api, modules.NewSet(modules.Dashboard), true), http.MethodGet, "/settings/api/roles", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, api.calls)
}

func TestHandlers_Overview(t *testing.T) {
	router := setupRouter(t, newFakeVenueAPI(), settingsAccess(), true)

	rec := doRequest(router, http.MethodGet, "/settings/api/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var overview struct {
		Roles []struct {
			ID        string `json:"_id"`
			Name      string `json:"name"`
			Members   int    `json:"members"`
			Protected bool   `json:"protected"`
		} `json:"roles"`
		Catalogue []modules.CategoryGroup `json:"catalogue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Roles, 2)
	assert.True(t, overview.Roles[0].Protected)
	assert.Equal(t, 1, overview.Roles[1].Members)
	assert.NotEmpty(t, overview.Catalogue)
}

func TestHandlers_CreateRole(t *testing.T) {
	api := newFakeVenueAPI()
	router := setupRouter(t, api, settingsAccess(), true)

	rec := doRequest(router, http.MethodPost, "/settings/api/roles", map[string]interface{}{
		"name":           "Kitchen",
		"allowedModules": []string{"events", "equipment", "made-up"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown modules: made-up", decodeError(t, rec))
	assert.Empty(t, api.calls)

	rec = doRequest(router, http.MethodPost, "/settings/api/roles", map[string]interface{}{
		"name":           "Kitchen",
		"allowedModules": []string{"events", "equipment"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp rolesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Roles, 3)
	assert.Equal(t, []modules.ID{modules.Events, modules.Equipment}, resp.Roles[2].AllowedModules.IDs())

	rec = doRequest(router, http.MethodPost, "/settings/api/roles", map[string]interface{}{"name": "Admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrReservedName.Error(), decodeError(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/settings/api/roles", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_UpdateRole(t *testing.T) {
	api := newFakeVenueAPI()
	router := setupRouter(t, api, settingsAccess(), true)

	rec := doRequest(router, http.MethodPut, "/settings/api/roles/r-sales", map[string]interface{}{
		"name":           "Sales",
		"allowedModules": []string{"quotes"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPut, "/settings/api/roles/r-admin", map[string]interface{}{
		"name":           "Admin",
		"allowedModules": []string{},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrProtectedRole.Error(), decodeError(t, rec))

	rec = doRequest(router, http.MethodPut, "/settings/api/roles/nope", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_DeleteRole(t *testing.T) {
	api := newFakeVenueAPI()
	router := setupRouter(t, api, settingsAccess(), true)

	rec := doRequest(router, http.MethodDelete, "/settings/api/roles/r-admin", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/settings/api/roles/r-sales", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrRoleInUse.Error(), decodeError(t, rec))

	assert.Zero(t, api.callCount("DELETE"))
}

func TestHandlers_BackendErrors(t *testing.T) {
	api := newFakeVenueAPI()
	router := setupRouter(t, api, settingsAccess(), true)

	api.fail["GET "+backend.PathRoles] = &backend.APIError{Status: http.StatusUnprocessableEntity, Message: "tenant suspended"}
	rec := doRequest(router, http.MethodGet, "/settings/api/roles", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "tenant suspended", decodeError(t, rec))

	api.fail["GET "+backend.PathRoles] = &backend.NetworkError{Op: "roles.list", Err: context.DeadlineExceeded}
	rec = doRequest(router, http.MethodGet, "/settings/api/roles", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlers_Catalogue(t *testing.T) {
	router := setupRouter(t, newFakeVenueAPI(), settingsAccess(), true)

	rec := doRequest(router, http.MethodGet, "/settings/api/modules", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []modules.CategoryGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	assert.Equal(t, modules.ByCategory(), groups)
}
