package menus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

const dateLayout = "2006-01-02"

// Service manages the menu catalog read by the ordering flow.
type Service interface {
	CreateCategory(ctx context.Context, access scope.Access, input CategoryInput) (*models.LunchCategory, error)
	UpdateCategory(ctx context.Context, access scope.Access, id uuid.UUID, input CategoryInput) (*models.LunchCategory, error)
	DeactivateCategory(ctx context.Context, access scope.Access, id uuid.UUID) error
	ListCategories(ctx context.Context, access scope.Access) ([]models.LunchCategory, error)

	UpsertMenu(ctx context.Context, access scope.Access, input MenuInput) (*models.LunchMenu, error)
	PublishMenu(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchMenu, error)
	MenusByRange(ctx context.Context, access scope.Access, from, to time.Time) ([]models.LunchMenu, error)
	SearchMenus(ctx context.Context, access scope.Access, query string) ([]models.LunchMenu, error)
	ImportMenus(ctx context.Context, access scope.Access, categoryID uuid.UUID, rows []ImportRow) (int, error)
}

type service struct {
	repo Repository
}

// NewService builds a menus service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menus repository required")
	}
	return &service{repo: repo}, nil
}

// CategoryInput captures a lunch category. A nil price means free.
type CategoryInput struct {
	SchoolID uuid.UUID
	Name     string
	Audience enums.MenuAudience
	Price    *decimal.Decimal
}

// MenuInput captures one daily menu for a category.
type MenuInput struct {
	CategoryID uuid.UUID
	MenuDate   time.Time
	Dishes     types.MenuDishes
	Published  bool
}

// ImportRow is one already-parsed spreadsheet row keyed by ISO date.
type ImportRow struct {
	Date   string
	Dishes types.MenuDishes
}

func (s *service) CreateCategory(ctx context.Context, access scope.Access, input CategoryInput) (*models.LunchCategory, error) {
	if err := access.Require(input.SchoolID); err != nil {
		return nil, err
	}
	if err := validateCategory(input); err != nil {
		return nil, err
	}

	row := &models.LunchCategory{
		SchoolID: input.SchoolID,
		Name:     input.Name,
		Audience: input.Audience,
		Price:    input.Price,
		IsActive: true,
	}
	if err := s.repo.CreateCategory(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return row, nil
}

func (s *service) UpdateCategory(ctx context.Context, access scope.Access, id uuid.UUID, input CategoryInput) (*models.LunchCategory, error) {
	row, err := s.loadCategory(ctx, access, id)
	if err != nil {
		return nil, err
	}
	input.SchoolID = row.SchoolID
	if err := validateCategory(input); err != nil {
		return nil, err
	}
	row.Name = input.Name
	row.Audience = input.Audience
	row.Price = input.Price
	if err := s.repo.UpdateCategory(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return row, nil
}

func (s *service) DeactivateCategory(ctx context.Context, access scope.Access, id uuid.UUID) error {
	row, err := s.loadCategory(ctx, access, id)
	if err != nil {
		return err
	}
	if !row.IsActive {
		return nil
	}
	row.IsActive = false
	if err := s.repo.UpdateCategory(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate category")
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context, access scope.Access) ([]models.LunchCategory, error) {
	rows, err := s.repo.ListCategories(ctx, access)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

// UpsertMenu creates or replaces the menu for (category, date).
func (s *service) UpsertMenu(ctx context.Context, access scope.Access, input MenuInput) (*models.LunchMenu, error) {
	category, err := s.loadCategory(ctx, access, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if input.MenuDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu date required")
	}

	existing, err := s.repo.FindMenuByCategoryDate(ctx, input.CategoryID, input.MenuDate)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find menu")
	}
	if existing != nil {
		existing.Dishes = input.Dishes
		existing.Published = input.Published
		if err := s.repo.UpdateMenu(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu")
		}
		return existing, nil
	}

	row := &models.LunchMenu{
		SchoolID:   category.SchoolID,
		CategoryID: input.CategoryID,
		MenuDate:   input.MenuDate,
		Dishes:     input.Dishes,
		Published:  input.Published,
	}
	if err := s.repo.CreateMenu(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu")
	}
	return row, nil
}

func (s *service) PublishMenu(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchMenu, error) {
	row, err := s.repo.FindMenu(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "menu not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	if row.Published {
		return row, nil
	}
	row.Published = true
	if err := s.repo.UpdateMenu(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish menu")
	}
	return row, nil
}

func (s *service) MenusByRange(ctx context.Context, access scope.Access, from, to time.Time) ([]models.LunchMenu, error) {
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "range end before start")
	}
	rows, err := s.repo.ListMenus(ctx, access, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menus")
	}
	return rows, nil
}

func (s *service) SearchMenus(ctx context.Context, access scope.Access, query string) ([]models.LunchMenu, error) {
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query required")
	}
	rows, err := s.repo.SearchMenus(ctx, access, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search menus")
	}
	return rows, nil
}

// ImportMenus upserts one menu per ISO-dated row. Rows with bad dates fail
// the whole import; admins fix the sheet rather than getting half a month.
func (s *service) ImportMenus(ctx context.Context, access scope.Access, categoryID uuid.UUID, rows []ImportRow) (int, error) {
	if len(rows) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no rows to import")
	}

	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("row %d: invalid date %q", i+1, row.Date))
		}
		dates[i] = date
	}

	imported := 0
	for i, row := range rows {
		if _, err := s.UpsertMenu(ctx, access, MenuInput{
			CategoryID: categoryID,
			MenuDate:   dates[i],
			Dishes:     row.Dishes,
		}); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (s *service) loadCategory(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchCategory, error) {
	row, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return row, nil
}

func validateCategory(input CategoryInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if !input.Audience.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audience %q", input.Audience))
	}
	if input.Price != nil && input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}
