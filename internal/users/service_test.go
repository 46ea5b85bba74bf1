package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

type fakeUserRepo struct {
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*models.User{},
		byEmail: map[string]*models.User{},
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = uuid.New()
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) List(context.Context, scope.Access, *enums.UserRole) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	if user, ok := f.byID[id]; ok {
		user.PasswordHash = hash
	}
	return nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func adminAccess() scope.Access {
	return scope.Access{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestProvisionParentGeneratesTempPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, err := NewService(repo, testPasswordConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	schoolID := uuid.New()
	dto, temp, err := svc.Provision(context.Background(), adminAccess(), ProvisionInput{
		Email:    "Madre@Example.com",
		FullName: "Rosa Flores",
		Role:     enums.UserRoleParent,
		SchoolID: &schoolID,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if temp == "" {
		t.Fatal("expected a generated temp password")
	}
	if dto.Email != "madre@example.com" {
		t.Fatalf("email must be normalized, got %q", dto.Email)
	}
	stored := repo.byID[dto.ID]
	if stored.PasswordHash == "" || strings.Contains(stored.PasswordHash, temp) {
		t.Fatal("password must be stored hashed")
	}
}

func TestProvisionDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := NewService(repo, testPasswordConfig())

	schoolID := uuid.New()
	input := ProvisionInput{
		Email:    "staff@example.com",
		FullName: "Carla Soto",
		Role:     enums.UserRoleStaff,
		SchoolID: &schoolID,
	}
	if _, _, err := svc.Provision(context.Background(), adminAccess(), input); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	_, _, err := svc.Provision(context.Background(), adminAccess(), input)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestProvisionSchoolBindingRules(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := NewService(repo, testPasswordConfig())
	schoolID := uuid.New()

	if _, _, err := svc.Provision(context.Background(), adminAccess(), ProvisionInput{
		Email:    "teacher@example.com",
		FullName: "Jorge Paz",
		Role:     enums.UserRoleTeacher,
	}); err == nil {
		t.Fatal("non-admin role without school must fail")
	}

	if _, _, err := svc.Provision(context.Background(), adminAccess(), ProvisionInput{
		Email:    "root@example.com",
		FullName: "Root",
		Role:     enums.UserRoleAdmin,
		SchoolID: &schoolID,
	}); err == nil {
		t.Fatal("admin with school binding must fail")
	}

	staff := scope.Access{UserID: uuid.New(), Role: enums.UserRoleStaff, SchoolID: &schoolID}
	if _, _, err := svc.Provision(context.Background(), staff, ProvisionInput{
		Email:    "root2@example.com",
		FullName: "Root Two",
		Role:     enums.UserRoleAdmin,
	}); err == nil {
		t.Fatal("non-admin caller must not create admins")
	}

	otherSchool := uuid.New()
	if _, _, err := svc.Provision(context.Background(), staff, ProvisionInput{
		Email:    "kitchen@example.com",
		FullName: "Pedro Inga",
		Role:     enums.UserRoleKitchen,
		SchoolID: &otherSchool,
	}); err == nil {
		t.Fatal("staff must not provision into a foreign school")
	}
}

func TestResetPasswordReplacesHash(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := NewService(repo, testPasswordConfig())

	schoolID := uuid.New()
	dto, _, err := svc.Provision(context.Background(), adminAccess(), ProvisionInput{
		Email:    "parent@example.com",
		FullName: "Elsa Ramos",
		Role:     enums.UserRoleParent,
		SchoolID: &schoolID,
		Password: "initial-password-123",
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	before := repo.byID[dto.ID].PasswordHash

	temp, err := svc.ResetPassword(context.Background(), adminAccess(), dto.ID)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if temp == "" {
		t.Fatal("expected a temp password")
	}
	if repo.byID[dto.ID].PasswordHash == before {
		t.Fatal("hash must change on reset")
	}
}

func TestLoadScopesAdminRows(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := NewService(repo, testPasswordConfig())

	admin, _, err := svc.Provision(context.Background(), adminAccess(), ProvisionInput{
		Email:    "root@example.com",
		FullName: "Root",
		Role:     enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	schoolID := uuid.New()
	staff := scope.Access{UserID: uuid.New(), Role: enums.UserRoleStaff, SchoolID: &schoolID}
	if _, err := svc.GetByID(context.Background(), staff, admin.ID); err == nil {
		t.Fatal("staff must not read admin accounts")
	}
	if _, err := svc.GetByID(context.Background(), adminAccess(), admin.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}
