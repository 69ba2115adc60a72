package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/auth"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/security"
)

const minPasswordLength = 8

// invalidCredentialsMessage is shared by every login failure path so a
// caller cannot tell an unknown identity from a wrong password.
const invalidCredentialsMessage = "invalid credentials"

type userStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
}

type adminStore interface {
	FindAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

type principalStore interface {
	userStore
	adminStore
}

// RegisterInput holds the validated payload to create a shopper account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UserLoginInput carries shopper credentials.
type UserLoginInput struct {
	Email    string
	Password string
}

// AdminLoginInput carries back-office credentials.
type AdminLoginInput struct {
	Username string
	Password string
}

// UserDTO is the public projection of a user row.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is returned on successful login. Email is empty for admin
// principals; the admins table has no email column.
type AuthResult struct {
	Token       string
	PrincipalID uuid.UUID
	Kind        enums.PrincipalKind
	Username    string
	Email       string
}

// Service exposes account and principal operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	LoginUser(ctx context.Context, input UserLoginInput) (*AuthResult, error)
	LoginAdmin(ctx context.Context, input AdminLoginInput) (*AuthResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	ResolvePrincipal(ctx context.Context, kind enums.PrincipalKind, id uuid.UUID) error
}

type service struct {
	repo   principalStore
	jwtCfg config.JWTConfig
	pwCfg  config.PasswordConfig
	now    func() time.Time
}

// NewService constructs the accounts service.
func NewService(repo principalStore, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		repo:   repo,
		jwtCfg: jwtCfg,
		pwCfg:  pwCfg,
		now:    time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.repo.FindUserByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing account")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Pre-check raced with another registration; map the unique
		// violation to the same conflict error.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	return userDTO(user), nil
}

func (s *service) LoginUser(ctx context.Context, input UserLoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	if err := s.verifyPassword(input.Password, user.PasswordHash); err != nil {
		return nil, err
	}

	token, err := s.mintToken(user.ID, enums.PrincipalKindUser)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:       token,
		PrincipalID: user.ID,
		Kind:        enums.PrincipalKindUser,
		Username:    user.Username,
		Email:       user.Email,
	}, nil
}

func (s *service) LoginAdmin(ctx context.Context, input AdminLoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	admin, err := s.repo.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading admin")
	}

	if err := s.verifyPassword(input.Password, admin.PasswordHash); err != nil {
		return nil, err
	}

	token, err := s.mintToken(admin.ID, enums.PrincipalKindAdmin)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:       token,
		PrincipalID: admin.ID,
		Kind:        enums.PrincipalKindAdmin,
		Username:    admin.Username,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return userDTO(user), nil
}

// ResolvePrincipal confirms the id still exists in the table named by kind.
// Admin tokens only ever resolve against admins, user tokens against users.
func (s *service) ResolvePrincipal(ctx context.Context, kind enums.PrincipalKind, id uuid.UUID) error {
	var err error
	switch kind {
	case enums.PrincipalKindUser:
		_, err = s.repo.FindUserByID(ctx, id)
	case enums.PrincipalKindAdmin:
		_, err = s.repo.FindAdminByID(ctx, id)
	default:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown principal kind")
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "principal no longer exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving principal")
	}
	return nil
}

func (s *service) verifyPassword(password, hash string) error {
	ok, err := security.VerifyPassword(password, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return nil
}

func (s *service) mintToken(id uuid.UUID, kind enums.PrincipalKind) (string, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		PrincipalID: id,
		Kind:        kind,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return token, nil
}

func userDTO(user *models.User) *UserDTO {
	return &UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
