package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	ctx := context.Background()

	token, err := service.GenerateToken(ctx, userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Contains(t, token, ".")
}

func TestJWTService_ParseToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	ctx := context.Background()

	token, err := service.GenerateToken(ctx, userID)
	require.NoError(t, err)

	claims, err := service.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestJWTService_ParseToken_InvalidToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = service.ParseToken(ctx, "invalid-token")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestJWTService_ParseToken_WrongSecret(t *testing.T) {
	service1, err := NewJWTService([]byte("secret-1"), "test-issuer", time.Hour)
	require.NoError(t, err)

	service2, err := NewJWTService([]byte("secret-2"), "test-issuer", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	ctx := context.Background()

	token, err := service1.GenerateToken(ctx, userID)
	require.NoError(t, err)

	_, err = service2.ParseToken(ctx, token)
	assert.Error(t, err)
}

func TestJWTService_ParseToken_WrongIssuer(t *testing.T) {
	service1, err := NewJWTService([]byte("shared-secret"), "issuer-a", time.Hour)
	require.NoError(t, err)

	service2, err := NewJWTService([]byte("shared-secret"), "issuer-b", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()

	token, err := service1.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = service2.ParseToken(ctx, token)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "issuer")
}

// An expired token still parses: freshness is a separate pipeline stage and
// must be able to read the expiry off a genuine credential.
func TestJWTService_ParseToken_ExpiredStillParses(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", -time.Minute)
	require.NoError(t, err)

	userID := uuid.New()
	ctx := context.Background()

	token, err := service.GenerateToken(ctx, userID)
	require.NoError(t, err)

	claims, err := service.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.True(t, claims.ExpiresAt.Before(time.Now()))
}
