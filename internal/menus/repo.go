package menus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
)

// Repository manages lunch categories and daily menus.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCategory(ctx context.Context, row *models.LunchCategory) error
	FindCategory(ctx context.Context, id uuid.UUID) (*models.LunchCategory, error)
	UpdateCategory(ctx context.Context, row *models.LunchCategory) error
	ListCategories(ctx context.Context, access scope.Access) ([]models.LunchCategory, error)

	CreateMenu(ctx context.Context, row *models.LunchMenu) error
	FindMenu(ctx context.Context, id uuid.UUID) (*models.LunchMenu, error)
	FindMenuByCategoryDate(ctx context.Context, categoryID uuid.UUID, date time.Time) (*models.LunchMenu, error)
	UpdateMenu(ctx context.Context, row *models.LunchMenu) error
	ListMenus(ctx context.Context, access scope.Access, from, to time.Time) ([]models.LunchMenu, error)
	SearchMenus(ctx context.Context, access scope.Access, query string) ([]models.LunchMenu, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a menus repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCategory(ctx context.Context, row *models.LunchCategory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.LunchCategory, error) {
	var row models.LunchCategory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateCategory(ctx context.Context, row *models.LunchCategory) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) ListCategories(ctx context.Context, access scope.Access) ([]models.LunchCategory, error) {
	var rows []models.LunchCategory
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateMenu(ctx context.Context, row *models.LunchMenu) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindMenu(ctx context.Context, id uuid.UUID) (*models.LunchMenu, error) {
	var row models.LunchMenu
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindMenuByCategoryDate(ctx context.Context, categoryID uuid.UUID, date time.Time) (*models.LunchMenu, error) {
	var row models.LunchMenu
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Where("menu_date = ?", date.Format("2006-01-02")).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateMenu(ctx context.Context, row *models.LunchMenu) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) ListMenus(ctx context.Context, access scope.Access, from, to time.Time) ([]models.LunchMenu, error) {
	var rows []models.LunchMenu
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("menu_date >= ? AND menu_date <= ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("menu_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SearchMenus matches the query against the dish JSON. Good enough for the
// small per-school menu volumes; no text index needed.
func (r *repository) SearchMenus(ctx context.Context, access scope.Access, query string) ([]models.LunchMenu, error) {
	var rows []models.LunchMenu
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("dishes::text ILIKE ?", "%"+query+"%").
		Order("menu_date DESC").
		Limit(100).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
