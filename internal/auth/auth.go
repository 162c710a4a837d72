// server/internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
)

// AccessTokenTTL is the fixed lifetime of an access token.
const AccessTokenTTL = 15 * time.Minute

// Claims defines the payload for the access token. The user id travels in "sub".
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// TokenService issues HS256 access tokens and keeps one live refresh token
// per user.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	refresh  *RefreshStore
	now      func() time.Time
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		refresh:  NewRefreshStore(),
		now:      time.Now,
	}, nil
}

// IssueTokenPair signs a new access token and rotates the user's refresh token.
func (s *TokenService) IssueTokenPair(userID, displayName string, role models.Role) (*TokenPair, error) {
	now := s.now()
	expiresAt := now.Add(AccessTokenTTL)

	claims := &Claims{
		Name: displayName,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  signed,
		RefreshToken: s.refresh.Issue(userID),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseAccessToken verifies signature, expiry, issuer and audience.
func (s *TokenService) ParseAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", apperror.ErrUnauthenticated)
	}
	return claims, nil
}

func (s *TokenService) IsRefreshTokenValid(userID, token string) bool {
	return s.refresh.Valid(userID, token)
}

func (s *TokenService) RemoveRefreshToken(userID, token string) bool {
	return s.refresh.Remove(userID, token)
}
