package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/ratelimit"
	"github.com/praxlog/logbook-backend/internal/rbac"
	"github.com/praxlog/logbook-backend/internal/store"
)

type fakeParser struct {
	claims *auth.TokenClaims
	err    error
}

func (f *fakeParser) ParseToken(ctx context.Context, token string) (*auth.TokenClaims, error) {
	return f.claims, f.err
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
	calls   []string
}

func (f *fakeRevocations) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	f.calls = append(f.calls, token)
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[token] = true
	return f.err
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[token], nil
}

type fakeUsers struct {
	users map[uuid.UUID]store.User
	err   error
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error) {
	if f.err != nil {
		return store.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

type fakeGlobal struct {
	access auth.Access
	err    error
}

func (f *fakeGlobal) ResolveGlobalAccess(ctx context.Context, userID uuid.UUID) (auth.Access, error) {
	return f.access, f.err
}

type fakeResource struct {
	role    string
	hasRole bool
	isOwner bool
	err     error
}

func (f *fakeResource) ResolveRole(ctx context.Context, p *auth.Principal, templateID uuid.UUID) (string, bool, error) {
	return f.role, f.hasRole, f.err
}

func (f *fakeResource) HasPermission(ctx context.Context, p *auth.Principal, templateID uuid.UUID, permission string) (bool, error) {
	if f.err != nil || !f.hasRole {
		return false, f.err
	}
	return rbac.LogbookRoleHasPermission(f.role, permission), nil
}

func (f *fakeResource) HasAnyRole(ctx context.Context, p *auth.Principal, templateID uuid.UUID, roles []string) (bool, error) {
	if f.err != nil || !f.hasRole {
		return false, f.err
	}
	if len(roles) == 0 {
		return true, nil
	}
	for _, want := range roles {
		if f.role == want {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResource) IsOwner(ctx context.Context, p *auth.Principal, templateID uuid.UUID) (bool, error) {
	return f.isOwner, f.err
}

type fakeRecorder struct {
	events []audit.Event
}

func (f *fakeRecorder) Record(ctx context.Context, ev audit.Event) {
	f.events = append(f.events, ev)
}

type guardFixture struct {
	guard    *Guard
	parser   *fakeParser
	tokens   *fakeRevocations
	users    *fakeUsers
	global   *fakeGlobal
	resource *fakeResource
	recorder *fakeRecorder
	userID   uuid.UUID
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	userID := uuid.New()
	f := &guardFixture{
		parser: &fakeParser{claims: &auth.TokenClaims{
			UserID:    userID,
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}},
		tokens: &fakeRevocations{},
		users: &fakeUsers{users: map[uuid.UUID]store.User{
			userID: {ID: userID, Email: "user@example.com", Status: store.UserStatusActive},
		}},
		global:   &fakeGlobal{access: auth.Access{Roles: []string{"user"}}},
		resource: &fakeResource{},
		recorder: &fakeRecorder{},
		userID:   userID,
	}
	f.guard = NewGuard(f.parser, f.tokens, f.users, f.global, f.resource,
		ratelimit.NewLimiter(client), f.recorder)
	return f
}

func okHandler() (http.Handler, *bool) {
	reached := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), &reached
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate_AttachesPrincipal(t *testing.T) {
	f := newGuardFixture(t)

	var principal *auth.Principal
	handler := f.guard.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = auth.GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, f.userID, principal.ID)
	assert.Equal(t, "user@example.com", principal.Email)
	assert.Equal(t, "test-token", principal.Token)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	f := newGuardFixture(t)
	handler, reached := okHandler()

	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body["error_code"])
}

func TestAuthenticate_HTMLClientGetsRedirect(t *testing.T) {
	f := newGuardFixture(t)
	handler, _ := okHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	f := newGuardFixture(t)
	f.tokens.revoked = map[string]bool{"test-token": true}
	handler, reached := okHandler()

	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestAuthenticate_RevocationFaultFailsClosed(t *testing.T) {
	f := newGuardFixture(t)
	f.tokens.err = errors.New("redis down")
	handler, reached := okHandler()

	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
}

func TestAuthenticate_InactiveAccount(t *testing.T) {
	f := newGuardFixture(t)
	u := f.users.users[f.userID]
	u.Status = store.UserStatusInactive
	f.users.users[f.userID] = u
	handler, reached := okHandler()

	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestAuthenticate_ResolverFaultFailsClosed(t *testing.T) {
	f := newGuardFixture(t)
	f.global.err = errors.New("database down")
	handler, reached := okHandler()

	rec := httptest.NewRecorder()
	f.guard.Authenticate(handler).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
}

func TestTokenFreshness_ExpiredTokenRevokedAndRejected(t *testing.T) {
	f := newGuardFixture(t)
	expiredAt := time.Now().Add(-time.Minute)
	f.parser.claims.ExpiresAt = expiredAt
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.TokenFreshness(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "TOKEN_EXPIRED", body["error_code"])
	assert.NotEmpty(t, body["expired_at"])
	assert.Contains(t, f.tokens.calls, "test-token")
}

func TestTokenFreshness_FreshTokenPasses(t *testing.T) {
	f := newGuardFixture(t)
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.TokenFreshness(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/me"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
	assert.Empty(t, f.tokens.calls)
}

func TestRequireRoles_ORSemantics(t *testing.T) {
	f := newGuardFixture(t)
	f.global.access = auth.Access{Roles: []string{"manager"}}
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.RequireRoles("admin", "manager")(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/x"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestRequireRoles_DeniedEchoesCurrentAccess(t *testing.T) {
	f := newGuardFixture(t)
	f.global.access = auth.Access{Roles: []string{"user"}, Permissions: []string{"logbooks.view.own"}}
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.RequireRoles("admin|super_admin")(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/x"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "FORBIDDEN", body["error_code"])
	required := body["required"].(map[string]any)
	assert.ElementsMatch(t, []any{"admin", "super_admin"}, required["roles"])
	current := body["current"].(map[string]any)
	assert.ElementsMatch(t, []any{"user"}, current["roles"])
	assert.ElementsMatch(t, []any{"logbooks.view.own"}, current["permissions"])
}

func TestRequirePermissions_ORSemantics(t *testing.T) {
	f := newGuardFixture(t)
	f.global.access = auth.Access{Permissions: []string{"users.view"}}
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.RequirePermissions("users.manage,users.view")(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/x"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestRequireTemplateAccess_MissingID(t *testing.T) {
	f := newGuardFixture(t)
	handler, reached := okHandler()

	chain := f.guard.Authenticate(
		f.guard.RequireTemplateAccess(ResourceCheck{Permission: rbac.PermCreateEntry})(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/entries"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "MISSING_RESOURCE_ID", body["error_code"])
}

func TestRequireTemplateAccess_GrantAdmits(t *testing.T) {
	f := newGuardFixture(t)
	f.resource.role = rbac.LogbookRoleEditor
	f.resource.hasRole = true
	templateID := uuid.New()

	var gotID uuid.UUID
	var gotRole string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetTemplateID(r.Context())
		gotRole, _ = GetTemplateRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	chain := f.guard.Authenticate(
		f.guard.RequireTemplateAccess(ResourceCheck{Permission: rbac.PermCreateEntry})(handler))
	req := authedRequest(http.MethodPost, "/api/entries?template_id="+templateID.String())
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, templateID, gotID)
	assert.Equal(t, rbac.LogbookRoleEditor, gotRole)
}

func TestRequireTemplateAccess_RoleWithoutPermissionDenied(t *testing.T) {
	f := newGuardFixture(t)
	f.resource.role = rbac.LogbookRoleViewer
	f.resource.hasRole = true
	handler, reached := okHandler()

	chain := f.guard.Authenticate(
		f.guard.RequireTemplateAccess(ResourceCheck{Permission: rbac.PermCreateEntry})(handler))
	req := authedRequest(http.MethodPost, "/api/entries?template_id="+uuid.NewString())
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, rbac.PermCreateEntry, body["required_access"])
}

func TestRequireTemplateAccess_ResolverFaultFailsClosed(t *testing.T) {
	f := newGuardFixture(t)
	f.resource.err = errors.New("database down")
	handler, reached := okHandler()

	chain := f.guard.Authenticate(
		f.guard.RequireTemplateAccess(ResourceCheck{Permission: rbac.PermViewLogbook})(handler))
	req := authedRequest(http.MethodGet, "/api/templates?template_id="+uuid.NewString())
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
}

func TestRequireTemplateOwner(t *testing.T) {
	f := newGuardFixture(t)
	f.resource.isOwner = false
	handler, reached := okHandler()

	chain := f.guard.Authenticate(
		f.guard.RequireTemplateOwner(ResourceCheck{})(handler))
	req := authedRequest(http.MethodDelete, "/api/templates?template_id="+uuid.NewString())
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "owner", body["required_access"])

	f.resource.isOwner = true
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/templates?template_id="+uuid.NewString()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestRateLimit_HeadersAndCeiling(t *testing.T) {
	f := newGuardFixture(t)
	handler, _ := okHandler()
	limited := f.guard.RateLimit(2, time.Minute)(handler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "RATE_LIMITED", body["error_code"])
	assert.Contains(t, body["message"], "minute")
	assert.NotNil(t, body["retry_after_seconds"])
}

func TestAdminArea_NonAdminDeniedAndAudited(t *testing.T) {
	f := newGuardFixture(t)
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.AdminArea(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/users"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "administrator", body["required_access"])

	require.Len(t, f.recorder.events, 1)
	ev := f.recorder.events[0]
	assert.Equal(t, audit.ActionAdminAccessDenied, ev.Action)
	require.NotNil(t, ev.UserID)
	assert.Equal(t, f.userID, *ev.UserID)
	assert.Contains(t, ev.Description, "/api/admin/users")
}

func TestAdminArea_AdminPasses(t *testing.T) {
	f := newGuardFixture(t)
	u := f.users.users[f.userID]
	u.IsAdmin = true
	f.users.users[f.userID] = u
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.AdminArea(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/users"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
	assert.Empty(t, f.recorder.events)
}

// Anonymous requests to the admin area fail authentication upstream and must
// not produce an audit record.
func TestAdminArea_AnonymousNotAudited(t *testing.T) {
	f := newGuardFixture(t)
	handler, reached := okHandler()

	chain := f.guard.Authenticate(f.guard.AdminArea(handler))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
	assert.Empty(t, f.recorder.events)
}
