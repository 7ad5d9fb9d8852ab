package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	mgr := NewJWTManager("access-secret-32-chars-long!!!!!", "refresh-secret-32-chars-long!!!!", 15*time.Minute, 7*24*time.Hour)
	return NewService(mgr, rdb)
}

func TestRefreshTokens_Rotation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokens(ctx, "user-123", "writer@example.com")
	require.NoError(t, err)

	rotated, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The rotated access token keeps the identity claims intact.
	claims, err := svc.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "writer@example.com", claims.Email)
}

func TestRefreshTokens_ReplayRejected(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokens(ctx, "user-456", "user@example.com")
	require.NoError(t, err)

	_, err = svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// The old token was revoked by the rotation.
	_, err = svc.RefreshTokens(ctx, pair.RefreshToken)
	assert.Error(t, err)
}

func TestLogout_RevokesAllSessions(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first, err := svc.GenerateTokens(ctx, "user-789", "multi@example.com")
	require.NoError(t, err)
	second, err := svc.GenerateTokens(ctx, "user-789", "multi@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "user-789"))

	_, err = svc.RefreshTokens(ctx, first.RefreshToken)
	assert.Error(t, err)
	_, err = svc.RefreshTokens(ctx, second.RefreshToken)
	assert.Error(t, err)
}
