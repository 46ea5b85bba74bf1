package schools

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
)

// Repository manages school and lunch-configuration rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.School) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	FindByCode(ctx context.Context, code string) (*models.School, error)
	Update(ctx context.Context, row *models.School) error
	List(ctx context.Context) ([]models.School, error)

	CreateLunchConfiguration(ctx context.Context, row *models.LunchConfiguration) error
	FindLunchConfiguration(ctx context.Context, schoolID uuid.UUID) (*models.LunchConfiguration, error)
	UpdateLunchConfiguration(ctx context.Context, row *models.LunchConfiguration) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a schools repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.School) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	var row models.School
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.School, error) {
	var row models.School
	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, row *models.School) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) List(ctx context.Context) ([]models.School, error) {
	var rows []models.School
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateLunchConfiguration(ctx context.Context, row *models.LunchConfiguration) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindLunchConfiguration(ctx context.Context, schoolID uuid.UUID) (*models.LunchConfiguration, error) {
	var row models.LunchConfiguration
	if err := r.db.WithContext(ctx).First(&row, "school_id = ?", schoolID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateLunchConfiguration(ctx context.Context, row *models.LunchConfiguration) error {
	return r.db.WithContext(ctx).Save(row).Error
}
