package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/auth"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

func newTestUserService(t *testing.T) (*UserService, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "smartbin-test"})
	require.NoError(t, err)
	repo := database.NewMemoryRepository[models.User](database.UsersCollection)
	return NewUserService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newTestUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Nickname: "driver1", FullName: "Dana K", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Nickname: "driver1", Password: "another1"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Register(ctx, RegisterInput{Nickname: "driver2", Password: "123"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	res, err := svc.Login(ctx, "driver1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := tokens.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "Dana K", claims.Name)
	assert.Equal(t, "Guest", claims.Role)

	_, err = svc.Login(ctx, "driver1", "wrong-pass")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	svc, tokens := newTestUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Nickname: "ops", Password: "secret1"})
	require.NoError(t, err)
	first, err := svc.Login(ctx, "ops", "secret1")
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, u.ID, "SalesManager")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, u.ID, first.RefreshToken)
	require.NoError(t, err)
	claims, err := tokens.ParseAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "SalesManager", claims.Role)

	// The old refresh token was rotated out.
	_, err = svc.Refresh(ctx, u.ID, first.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	svc.Logout(u.ID, second.RefreshToken)
	_, err = svc.Refresh(ctx, u.ID, second.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestAdminUserManagement(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Nickname: "boss", Password: "secret1", Role: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.Create(ctx, CreateUserInput{Nickname: "x", Password: "secret1", Role: "God"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateRole(ctx, u.ID, "Owner")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.UpdateRole(ctx, "missing", "Guest")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	pw := "newsecret"
	updated, err := svc.Update(ctx, u.ID, UpdateUserInput{FullName: "The Boss", Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "The Boss", updated.FullName)
	_, err = svc.Login(ctx, "boss", "newsecret")
	assert.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	ok, err := svc.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Delete(ctx, u.ID))
	ok, err = svc.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Delete(ctx, u.ID), apperror.ErrNotFound)
}
