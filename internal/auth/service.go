package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/users"
	pkgauth "github.com/lonchera-pe/cantina-backend/pkg/auth"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/security"
)

// Service authenticates users and mints access tokens.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type passwordVerifier interface {
	Verify(password, encoded string) (bool, error)
}

type service struct {
	users     userFinder
	passwords passwordVerifier
	jwtCfg    config.JWTConfig
	now       func() time.Time
}

// ServiceParams bundles the login service collaborators.
type ServiceParams struct {
	Users     userFinder
	Passwords passwordVerifier
	JWTConfig config.JWTConfig
	Now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Passwords == nil {
		return nil, fmt.Errorf("password verifier required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:     params.Users,
		passwords: params.Passwords,
		jwtCfg:    params.JWTConfig,
		now:       now,
	}, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
}

// Login resolves credentials to a signed access token. All credential
// failures collapse into the same unauthorized response.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up user")
	}
	if !user.IsActive {
		return nil, invalidCredentials()
	}

	ok, err := s.passwords.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to verify password")
	}
	if !ok {
		return nil, invalidCredentials()
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		SchoolID: user.SchoolID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint token")
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		User:        users.FromModel(user),
	}, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

// ArgonVerifier checks passwords against argon2id hashes produced at
// provisioning time.
type ArgonVerifier struct{}

func (ArgonVerifier) Verify(password, encoded string) (bool, error) {
	return security.VerifyPassword(password, encoded)
}
