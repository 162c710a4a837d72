// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/auth"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

const minPasswordLength = 6

// TokenIssuer is the token capability the user service needs.
type TokenIssuer interface {
	IssueTokenPair(userID, displayName string, role models.Role) (*auth.TokenPair, error)
	IsRefreshTokenValid(userID, token string) bool
	RemoveRefreshToken(userID, token string) bool
}

type RegisterInput struct {
	Nickname string `json:"nickname" binding:"required"`
	FullName string `json:"fullName"`
	Password string `json:"password" binding:"required"`
}

type CreateUserInput struct {
	Nickname string `json:"nickname" binding:"required"`
	FullName string `json:"fullName"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// UpdateUserInput changes profile fields. A nil Password keeps the current one.
type UpdateUserInput struct {
	FullName                   string  `json:"fullName"`
	Password                   *string `json:"password"`
	PasswordRecreationRequired bool    `json:"passwordRecreationRequired"`
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	*auth.TokenPair
	User *models.User `json:"user"`
}

type UserService struct {
	repo   database.Repository[models.User]
	hasher auth.PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewUserService(repo database.Repository[models.User], hasher auth.PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{repo: repo, hasher: hasher, tokens: tokens, now: utcNow}
}

// Register creates a Guest account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in.Nickname, in.FullName, in.Password, models.RoleGuest)
}

// Create is the admin path and may assign any role. An empty role means Guest.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	role := models.RoleGuest
	if in.Role != "" {
		parsed, err := models.ParseRole(in.Role)
		if err != nil {
			return nil, apperror.Validation("%v", err)
		}
		role = parsed
	}
	return s.create(ctx, in.Nickname, in.FullName, in.Password, role)
}

func (s *UserService) create(ctx context.Context, nickname, fullName, password string, role models.Role) (*models.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, apperror.Validation("nickname is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperror.Validation("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.repo.FindOne(ctx, bson.M{"nickname": nickname}); err == nil {
		return nil, fmt.Errorf("nickname %q is taken: %w", nickname, apperror.ErrConflict)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:                    database.NewID(),
		Nickname:              nickname,
		FullName:              strings.TrimSpace(fullName),
		PasswordHash:          hashed,
		Role:                  role,
		PasswordLastChangedAt: now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown nicknames and
// wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, nickname, password string) (*LoginResult, error) {
	user, err := s.repo.FindOne(ctx, bson.M{"nickname": strings.TrimSpace(nickname)})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid nickname or password", apperror.ErrUnauthenticated)
		}
		return nil, err
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid nickname or password", apperror.ErrUnauthenticated)
	}
	return s.issue(user)
}

// Refresh exchanges a live refresh token for a new pair. The role is reloaded
// from storage so role changes apply on the next refresh.
func (s *UserService) Refresh(ctx context.Context, userID, refreshToken string) (*LoginResult, error) {
	if !s.tokens.IsRefreshTokenValid(userID, refreshToken) {
		return nil, fmt.Errorf("%w: invalid refresh token", apperror.ErrUnauthenticated)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.tokens.RemoveRefreshToken(userID, refreshToken)
			return nil, fmt.Errorf("%w: user no longer exists", apperror.ErrUnauthenticated)
		}
		return nil, err
	}
	return s.issue(user)
}

// Logout drops the refresh token if it is still the live one.
func (s *UserService) Logout(userID, refreshToken string) {
	s.tokens.RemoveRefreshToken(userID, refreshToken)
}

func (s *UserService) issue(user *models.User) (*LoginResult, error) {
	name := user.FullName
	if name == "" {
		name = user.Nickname
	}
	pair, err := s.tokens.IssueTokenPair(user.ID, name, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: pair, User: user}, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.FindWhere(ctx, nil)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	now := s.now()
	set := bson.M{
		"fullName":                   strings.TrimSpace(in.FullName),
		"passwordRecreationRequired": in.PasswordRecreationRequired,
		"updatedAt":                  now,
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, apperror.Validation("password must be at least %d characters", minPasswordLength)
		}
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		set["passwordHash"] = hashed
		set["passwordLastChangedAt"] = now
	}
	return s.repo.UpdateByID(ctx, id, database.Update{Set: set})
}

func (s *UserService) UpdateRole(ctx context.Context, id, role string) (*models.User, error) {
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	return s.repo.UpdateByID(ctx, id, database.Update{Set: bson.M{
		"role":      parsed,
		"updatedAt": s.now(),
	}})
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}

// Exists reports whether a user with the id is stored.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.FindByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	return false, err
}
