package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/auth"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	pkgauth "github.com/lonchera-pe/cantina-backend/pkg/auth"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

type fakeDBPinger struct{}

func (fakeDBPinger) Ping(context.Context) error { return nil }

// fakeAccounts embeds the interface so only the methods a test exercises
// need real bodies.
type fakeAccounts struct {
	accounts.Service
	students map[uuid.UUID]*models.Student
	balance  decimal.Decimal
}

func (f *fakeAccounts) GetStudent(_ context.Context, access scope.Access, id uuid.UUID) (*models.Student, error) {
	student, ok := f.students[id]
	if !ok {
		return nil, errNotFound()
	}
	if err := access.Require(student.SchoolID); err != nil {
		return nil, err
	}
	return student, nil
}

func (f *fakeAccounts) AvailableBalance(context.Context, scope.Access, ledger.AccountRef) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeAccounts) ListStudents(_ context.Context, _ scope.Access, guardian *uuid.UUID) ([]models.Student, error) {
	var out []models.Student
	for _, student := range f.students {
		if guardian == nil || student.GuardianUserID == *guardian {
			out = append(out, *student)
		}
	}
	return out, nil
}

type fakeAuth struct {
	auth.Service
	result *auth.LoginResult
}

func (f *fakeAuth) Login(context.Context, auth.LoginInput) (*auth.LoginResult, error) {
	return f.result, nil
}

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
}

func routerConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "cantina-test", ExpirationMinutes: 15},
	}
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole, userID uuid.UUID, schoolID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   userID,
		Role:     role,
		SchoolID: schoolID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func newTestRouter(cfg *config.Config, svcs Services) http.Handler {
	return NewRouter(cfg, nil, fakeDBPinger{}, nil, svcs)
}

func TestHealthLiveNeedsNoAuth(t *testing.T) {
	router := newTestRouter(routerConfig(), Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if env := resp.Header().Get("X-Cantina-Env"); env != "test" {
		t.Fatalf("expected env header, got %q", env)
	}
}

func TestParentRoutesRequireToken(t *testing.T) {
	router := newTestRouter(routerConfig(), Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/parent/balance", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAdminRoutesRejectStaff(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(cfg, Services{})
	school := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleStaff, uuid.New(), &school))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestParentBalanceEndToEnd(t *testing.T) {
	cfg := routerConfig()
	school := uuid.New()
	guardian := uuid.New()
	student := &models.Student{
		ID:             uuid.New(),
		SchoolID:       school,
		GuardianUserID: guardian,
		FullName:       "Valeria Campos",
		IsActive:       true,
	}
	accountsSvc := &fakeAccounts{
		students: map[uuid.UUID]*models.Student{student.ID: student},
		balance:  decimal.RequireFromString("37.50"),
	}
	router := newTestRouter(cfg, Services{Accounts: accountsSvc})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parent/balance?student_id="+student.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleParent, guardian, &school))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "37.5") {
		t.Fatalf("balance missing from body: %s", resp.Body.String())
	}
}

func TestParentCannotReadForeignStudent(t *testing.T) {
	cfg := routerConfig()
	school := uuid.New()
	otherGuardian := uuid.New()
	student := &models.Student{
		ID:             uuid.New(),
		SchoolID:       school,
		GuardianUserID: otherGuardian,
		FullName:       "Bruno Salas",
		IsActive:       true,
	}
	accountsSvc := &fakeAccounts{students: map[uuid.UUID]*models.Student{student.ID: student}}
	router := newTestRouter(cfg, Services{Accounts: accountsSvc})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parent/balance?student_id="+student.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleParent, uuid.New(), &school))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestLoginRouteWired(t *testing.T) {
	cfg := routerConfig()
	result := &auth.LoginResult{AccessToken: "signed", ExpiresAt: time.Now().Add(15 * time.Minute)}
	router := newTestRouter(cfg, Services{Auth: &fakeAuth{result: result}})

	body := strings.NewReader(`{"email":"parent@example.pe","password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "signed" {
		t.Fatalf("unexpected token %q", envelope.Data.AccessToken)
	}
}
