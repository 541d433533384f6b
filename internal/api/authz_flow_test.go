package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxlog/logbook-backend/internal/rbac"
	"github.com/praxlog/logbook-backend/internal/store"
	"github.com/praxlog/logbook-backend/internal/testutil"
)

func TestTemplateLifecycle_OwnerAndEditor(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()

	ownerEmail := testutil.UniqueEmail("owner")
	editorEmail := testutil.UniqueEmail("editor")
	testutil.CreateTestUser(t, st, ownerEmail, rbac.RoleManager)
	editor := testutil.CreateTestUser(t, st, editorEmail)

	ownerToken := login(t, handler, ownerEmail)
	editorToken := login(t, handler, editorEmail)

	// The manager creates a template and becomes its owner.
	rec := doJSON(t, handler, http.MethodPost, "/api/templates", ownerToken, map[string]string{
		"name": "Clinical Rotations",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	templateID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	// Before any grant, the editor cannot even view it.
	rec = doJSON(t, handler, http.MethodGet, "/api/templates/"+templateID, editorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The owner grants editor access.
	rec = doJSON(t, handler, http.MethodPost, "/api/templates/"+templateID+"/access", ownerToken, map[string]string{
		"user_id": editor.ID.String(),
		"role":    rbac.LogbookRoleEditor,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Editor can now view and create entries via body discovery.
	rec = doJSON(t, handler, http.MethodGet, "/api/templates/"+templateID, editorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/entries", editorToken, map[string]string{
		"template_id": templateID,
		"content":     "first procedure observed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Editor cannot delete the template or manage access.
	rec = doJSON(t, handler, http.MethodDelete, "/api/templates/"+templateID, editorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "owner", decodeBody(t, rec)["required_access"])

	rec = doJSON(t, handler, http.MethodPost, "/api/templates/"+templateID+"/access", editorToken, map[string]string{
		"user_id": editor.ID.String(),
		"role":    rbac.LogbookRoleViewer,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The owner deletes it.
	rec = doJSON(t, handler, http.MethodDelete, "/api/templates/"+templateID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateEntry_WithoutTemplateIDIsBadRequest(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)

	email := testutil.UniqueEmail("no-template")
	testutil.CreateTestUser(t, sharedDB.Store(), email)
	token := login(t, handler, email)

	rec := doJSON(t, handler, http.MethodPost, "/api/entries", token, map[string]string{
		"content": "orphan entry",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_RESOURCE_ID", decodeBody(t, rec)["error_code"])
}

func TestGrantAccess_UnknownLogbookRoleRejected(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()

	ownerEmail := testutil.UniqueEmail("grant-owner")
	testutil.CreateTestUser(t, st, ownerEmail, rbac.RoleManager)
	member := testutil.CreateTestUser(t, st, testutil.UniqueEmail("grant-member"))
	token := login(t, handler, ownerEmail)

	rec := doJSON(t, handler, http.MethodPost, "/api/templates", token, map[string]string{"name": "X"})
	require.Equal(t, http.StatusCreated, rec.Code)
	templateID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, handler, http.MethodPost, "/api/templates/"+templateID+"/access", token, map[string]string{
		"user_id": member.ID.String(),
		"role":    "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["error_code"])
}

func TestPlatformAdmin_BypassesGrants(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()

	ownerEmail := testutil.UniqueEmail("bypass-owner")
	adminEmail := testutil.UniqueEmail("platform-admin")
	testutil.CreateTestUser(t, st, ownerEmail, rbac.RoleManager)
	testutil.CreateTestUser(t, st, adminEmail, rbac.RoleSuperAdmin)

	ownerToken := login(t, handler, ownerEmail)
	adminToken := login(t, handler, adminEmail)

	rec := doJSON(t, handler, http.MethodPost, "/api/templates", ownerToken, map[string]string{"name": "Private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	templateID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	// No grant exists for the admin, yet every operation succeeds.
	rec = doJSON(t, handler, http.MethodGet, "/api/templates/"+templateID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/templates/"+templateID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleSync_TakesEffectImmediately(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()
	ctx := context.Background()

	role, err := st.CreateRole(ctx, "curriculum_lead", "curriculum oversight")
	require.NoError(t, err)

	adminEmail := testutil.UniqueEmail("role-admin")
	memberEmail := testutil.UniqueEmail("role-member")
	testutil.CreateTestUser(t, st, adminEmail, rbac.RoleSuperAdmin)
	testutil.CreateTestUser(t, st, memberEmail, "curriculum_lead")

	adminToken := login(t, handler, adminEmail)
	memberToken := login(t, handler, memberEmail)

	// Cached resolution: no templates.create yet.
	rec := doJSON(t, handler, http.MethodPost, "/api/templates", memberToken, map[string]string{"name": "Y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The admin grants the permission to the custom role.
	rec = doJSON(t, handler, http.MethodPut, "/api/roles/"+role.ID.String()+"/permissions", adminToken,
		map[string]any{"permissions": []string{rbac.PermCreateTemplates}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The cached entry was invalidated, so the next request sees it.
	rec = doJSON(t, handler, http.MethodPost, "/api/templates", memberToken, map[string]string{"name": "Y"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRoleDelete_RevokesHolderAccessImmediately(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()
	ctx := context.Background()

	role, err := st.CreateRole(ctx, "programme_director", "programme oversight")
	require.NoError(t, err)
	require.NoError(t, st.SetRolePermissions(ctx, role.ID, []string{rbac.PermCreateTemplates}))

	adminEmail := testutil.UniqueEmail("delete-admin")
	memberEmail := testutil.UniqueEmail("delete-member")
	testutil.CreateTestUser(t, st, adminEmail, rbac.RoleSuperAdmin)
	testutil.CreateTestUser(t, st, memberEmail, "programme_director")

	adminToken := login(t, handler, adminEmail)
	memberToken := login(t, handler, memberEmail)

	// The role's permission is live and cached.
	rec := doJSON(t, handler, http.MethodPost, "/api/templates", memberToken, map[string]string{"name": "Z"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodDelete, "/api/roles/"+role.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The membership cascaded away and the cached resolution was
	// invalidated, so the very next request is denied.
	rec = doJSON(t, handler, http.MethodPost, "/api/templates", memberToken, map[string]string{"name": "Z"})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestAdminArea_DenialIsAudited(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)
	st := sharedDB.Store()
	ctx := context.Background()

	email := testutil.UniqueEmail("not-admin")
	user := testutil.CreateTestUser(t, st, email)
	token := login(t, handler, email)

	rec := doJSON(t, handler, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	userID := user.ID
	records, err := st.ListAudit(ctx, store.AuditFilter{UserID: &userID, Action: "ADMIN_ACCESS_DENIED"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Description, "/api/admin/users")
}

func TestAdminArea_FlagAdmits(t *testing.T) {
	defer sharedDB.CleanupDatabase(t)
	handler := newTestHandler(t)

	email := testutil.UniqueEmail("real-admin")
	testutil.CreateTestAdmin(t, sharedDB, email)
	token := login(t, handler, email)

	rec := doJSON(t, handler, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
