package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/security"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, access scope.Access, role *enums.UserRole) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// Service provisions and manages user records. There is no self-signup:
// every user is created server-side by a privileged caller.
type Service interface {
	Provision(ctx context.Context, access scope.Access, input ProvisionInput) (*UserDTO, string, error)
	Update(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateInput) (*UserDTO, error)
	Deactivate(ctx context.Context, access scope.Access, id uuid.UUID) error
	ResetPassword(ctx context.Context, access scope.Access, id uuid.UUID) (string, error)
	GetByID(ctx context.Context, access scope.Access, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, access scope.Access, role *enums.UserRole) ([]UserDTO, error)
}

type service struct {
	repo        userRepository
	passwordCfg config.PasswordConfig
}

// NewService builds a users service.
func NewService(repo userRepository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

// ProvisionInput captures the fields for a new user. Password is optional;
// when blank a temporary one is generated and returned to the caller.
type ProvisionInput struct {
	Email    string
	FullName string
	Phone    *string
	Role     enums.UserRole
	SchoolID *uuid.UUID
	Password string
}

// UpdateInput carries optional profile updates. Role changes are deliberate
// omissions; reprovision instead.
type UpdateInput struct {
	FullName *string
	Phone    *string
	IsActive *bool
}

func (s *service) Provision(ctx context.Context, access scope.Access, input ProvisionInput) (*UserDTO, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if input.FullName == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if !input.Role.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	if input.Role == enums.UserRoleAdmin {
		if !access.Admin() {
			return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "only admins may create admins")
		}
		if input.SchoolID != nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "admins are not school scoped")
		}
	} else {
		if input.SchoolID == nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("school required for role %q", input.Role))
		}
		if err := access.Require(*input.SchoolID); err != nil {
			return nil, "", err
		}
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing email")
	}

	password := input.Password
	generated := ""
	if password == "" {
		temp, err := security.GenerateTempPassword(16)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		password = temp
		generated = temp
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		FullName:     input.FullName,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         input.Role,
		SchoolID:     input.SchoolID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return FromModel(user), generated, nil
}

func (s *service) Update(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateInput) (*UserDTO, error) {
	user, err := s.load(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name must not be blank")
		}
		user.FullName = *input.FullName
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return FromModel(user), nil
}

func (s *service) Deactivate(ctx context.Context, access scope.Access, id uuid.UUID) error {
	user, err := s.load(ctx, access, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	if err := s.repo.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate user")
	}
	return nil
}

// ResetPassword issues a fresh temporary password for the user. The old hash
// is overwritten immediately.
func (s *service) ResetPassword(ctx context.Context, access scope.Access, id uuid.UUID) (string, error) {
	user, err := s.load(ctx, access, id)
	if err != nil {
		return "", err
	}
	temp, err := security.GenerateTempPassword(16)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(temp, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password hash")
	}
	return temp, nil
}

func (s *service) GetByID(ctx context.Context, access scope.Access, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, access, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, access scope.Access, role *enums.UserRole) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx, access, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, access scope.Access, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	if user.SchoolID != nil {
		if err := access.Require(*user.SchoolID); err != nil {
			return nil, err
		}
	} else if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts are admin managed")
	}
	return user, nil
}
