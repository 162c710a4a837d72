package auth

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
)

func newTestTokenService(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "smartbin-test", Audience: "smartbin-clients"})
	require.NoError(t, err)
	svc.now = func() time.Time { return now }
	return svc
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{})
	assert.Error(t, err)
}

func TestIssueAndParseAccessToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	pair, err := svc.IssueTokenPair("user-1", "Aigerim", models.RoleSalesManager)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 32)
	assert.NotContains(t, pair.RefreshToken, "-")
	assert.Equal(t, now.Add(15*time.Minute), pair.ExpiresAt)

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Aigerim", claims.Name)
	assert.Equal(t, "SalesManager", claims.Role)
	assert.Equal(t, "smartbin-test", claims.Issuer)
}

func TestAccessTokenExpiresAfterFifteenMinutes(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	pair, err := svc.IssueTokenPair("user-1", "Aigerim", models.RoleGuest)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(14 * time.Minute) }
	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.NoError(t, err)

	svc.now = func() time.Time { return now.Add(16 * time.Minute) }
	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated))
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService(t, now)

	other, err := NewTokenService(config.JWTConfig{Secret: "other-secret", Issuer: "smartbin-test", Audience: "smartbin-clients"})
	require.NoError(t, err)
	foreign, err := other.IssueTokenPair("user-1", "Mallory", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(foreign.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.ParseAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: "Admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(unsigned)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	svc := newTestTokenService(t, time.Now())

	first, err := svc.IssueTokenPair("user-1", "Aigerim", models.RoleGuest)
	require.NoError(t, err)
	assert.True(t, svc.IsRefreshTokenValid("user-1", first.RefreshToken))

	second, err := svc.IssueTokenPair("user-1", "Aigerim", models.RoleGuest)
	require.NoError(t, err)
	assert.False(t, svc.IsRefreshTokenValid("user-1", first.RefreshToken))
	assert.True(t, svc.IsRefreshTokenValid("user-1", second.RefreshToken))

	// A stale token must not evict the live one.
	assert.False(t, svc.RemoveRefreshToken("user-1", first.RefreshToken))
	assert.True(t, svc.IsRefreshTokenValid("user-1", second.RefreshToken))

	assert.True(t, svc.RemoveRefreshToken("user-1", second.RefreshToken))
	assert.False(t, svc.IsRefreshTokenValid("user-1", second.RefreshToken))
	assert.False(t, svc.IsRefreshTokenValid("user-2", ""))
}

func TestRefreshStoreConcurrentIssue(t *testing.T) {
	store := NewRefreshStore()
	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = store.Issue("user-1")
		}(i)
	}
	wg.Wait()

	live := 0
	for _, tok := range tokens {
		if store.Valid("user-1", tok) {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify(hash, "s3cret"))
	assert.False(t, h.Verify(hash, "wrong"))

	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).Cost)
}

func TestEvaluate(t *testing.T) {
	assert.NoError(t, Evaluate(models.RoleGuest, "Admin"))
	assert.NoError(t, Evaluate(models.RoleSalesManager, "SalesManager"))
	assert.NoError(t, Evaluate(models.RoleGuest, "Guest"))

	err := Evaluate(models.RoleAdmin, "SalesManager")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	err = Evaluate(models.RoleSalesManager, "Guest")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	err = Evaluate(models.RoleGuest, "Root")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.ErrorIs(t, err, apperror.ErrUnknownRole)
}
