package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/store"
)

// CreateTestUser inserts a user with a hashed password and optional extra
// global roles. Every user gets the default role at creation.
func CreateTestUser(t *testing.T, st *store.Store, email string, roles ...string) store.User {
	t.Helper()
	ctx := context.Background()

	hash, err := auth.HashPassword("test-password")
	require.NoError(t, err)

	user, err := st.CreateUser(ctx, email, hash)
	require.NoError(t, err)

	for _, role := range roles {
		require.NoError(t, st.AssignRole(ctx, user.ID, role))
	}
	return user
}

// CreateTestAdmin inserts a user with the legacy administrator flag set.
func CreateTestAdmin(t *testing.T, tdb *TestDatabase, email string) store.User {
	t.Helper()

	user := CreateTestUser(t, tdb.Store(), email)
	require.NoError(t, tdb.Store().SetUserAdmin(context.Background(), user.ID, true))
	user.IsAdmin = true
	return user
}

// CreateTestTemplate inserts a template owned by the given user.
func CreateTestTemplate(t *testing.T, st *store.Store, ownerID uuid.UUID, name string) store.Template {
	t.Helper()

	tpl, err := st.CreateTemplate(context.Background(), name, nil, ownerID)
	require.NoError(t, err)
	return tpl
}

// GrantTestAccess upserts a per-template grant.
func GrantTestAccess(t *testing.T, st *store.Store, userID, templateID uuid.UUID, role string) store.AccessGrant {
	t.Helper()

	grant, err := st.UpsertGrant(context.Background(), userID, templateID, role, nil)
	require.NoError(t, err)
	return grant
}

// UniqueEmail returns a unique address for test isolation.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}
