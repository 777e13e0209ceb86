package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/models"
)

func testUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Email: "alice@example.com", Role: models.RoleGym}
}

func TestTokenService(t *testing.T) {
	svc := NewTokenService("secret", "gym-backend", time.Hour, 24*time.Hour)
	user := testUser()

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	claims, err := svc.Parse(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleGym, claims.Role)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.NotEmpty(t, claims.Id)
	assert.Equal(t, pair.AccessClaims.Id, claims.Id)

	refresh, err := svc.Parse(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, claims.Id, refresh.Id)
	assert.True(t, refresh.ExpiresAtTime().After(claims.ExpiresAtTime()))

	_, err = svc.Parse(pair.AccessToken, TokenRefresh)
	assert.Error(t, err)

	other := NewTokenService("other-secret", "gym-backend", time.Hour, time.Hour)
	_, err = other.Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err)

	foreign := NewTokenService("secret", "someone-else", time.Hour, time.Hour)
	_, err = foreign.Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err)
}

func TestTokenServiceExpiry(t *testing.T) {
	svc := NewTokenService("secret", "gym-backend", time.Minute, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err)
}

func TestTokenServiceRejectsUnsignedAndForeignAlgorithms(t *testing.T) {
	svc := NewTokenService("secret", "gym-backend", time.Hour, time.Hour)

	claims := &Claims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   models.RoleSuperAdmin,
		Type:   TokenAccess,
		StandardClaims: jwt.StandardClaims{
			Id:        "x",
			Issuer:    "gym-backend",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Parse(raw, TokenAccess)
	assert.Error(t, err)

	_, err = svc.Parse("", TokenAccess)
	assert.Error(t, err)
}

func TestRevocationStores(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	stores := map[string]RevocationStore{
		"redis":  NewRedisRevocationStore(client),
		"memory": NewMemoryRevocationStore(),
	}
	ctx := context.Background()

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			revoked, err := store.IsRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, revoked)

			require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
			revoked, err = store.IsRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
			revoked, err = store.IsRevoked(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}

	t.Run("redis entry expires with the token", func(t *testing.T) {
		store := NewRedisRevocationStore(client)
		require.NoError(t, store.Revoke(ctx, "short", time.Now().Add(time.Minute)))
		mr.FastForward(2 * time.Minute)

		revoked, err := store.IsRevoked(ctx, "short")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("memory cleanup", func(t *testing.T) {
		store := NewMemoryRevocationStore()
		require.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Second)))
		require.NoError(t, store.Revoke(ctx, "live", time.Now().Add(time.Hour)))

		assert.Equal(t, 1, store.Cleanup())
		revoked, _ := store.IsRevoked(ctx, "live")
		assert.True(t, revoked)
	})
}

func TestAttemptLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	limiter := NewLoginAttemptLimiter(client, 3, time.Minute)
	for i := 1; i <= 3; i++ {
		exceeded, err := limiter.Exceeded(ctx, "gym:alice@example.com")
		require.NoError(t, err)
		assert.False(t, exceeded)

		n, err := limiter.Fail(ctx, "gym:alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	exceeded, err := limiter.Exceeded(ctx, "gym:alice@example.com")
	require.NoError(t, err)
	assert.True(t, exceeded)
	assert.True(t, mr.Exists("login_attempts:gym:alice@example.com"))

	require.NoError(t, limiter.Reset(ctx, "gym:alice@example.com"))
	exceeded, err = limiter.Exceeded(ctx, "gym:alice@example.com")
	require.NoError(t, err)
	assert.False(t, exceeded)

	t.Run("window", func(t *testing.T) {
		_, err := limiter.Fail(ctx, "client:bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, mr.TTL("login_attempts:client:bob@example.com"))
	})

	t.Run("disabled without redis", func(t *testing.T) {
		disabled := NewOTPAttemptLimiter(nil, 1, time.Minute)
		n, err := disabled.Fail(ctx, "k")
		require.NoError(t, err)
		assert.Zero(t, n)

		exceeded, err := disabled.Exceeded(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exceeded)
	})
}
