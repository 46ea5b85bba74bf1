package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// Repository persists billing periods and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePeriod(ctx context.Context, period *models.BillingPeriod) error
	FindPeriod(ctx context.Context, id uuid.UUID) (*models.BillingPeriod, error)
	FindOpenPeriod(ctx context.Context, schoolID uuid.UUID) (*models.BillingPeriod, error)
	ListPeriods(ctx context.Context, access scope.Access, schoolID uuid.UUID) ([]models.BillingPeriod, error)
	ClosePeriod(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	ListOpenPeriodsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BillingPeriod, error)

	CreatePayment(ctx context.Context, payment *models.BillingPayment) error
	ListPayments(ctx context.Context, access scope.Access, periodID uuid.UUID) ([]models.BillingPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreatePeriod(ctx context.Context, period *models.BillingPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *repository) FindPeriod(ctx context.Context, id uuid.UUID) (*models.BillingPeriod, error) {
	var period models.BillingPeriod
	if err := r.db.WithContext(ctx).First(&period, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) FindOpenPeriod(ctx context.Context, schoolID uuid.UUID) (*models.BillingPeriod, error) {
	var period models.BillingPeriod
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Where("status = ?", enums.BillingPeriodStatusOpen).
		Order("start_date DESC").
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) ListPeriods(ctx context.Context, access scope.Access, schoolID uuid.UUID) ([]models.BillingPeriod, error) {
	var periods []models.BillingPeriod
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("school_id = ?", schoolID).
		Order("start_date DESC").
		Find(&periods).Error
	return periods, err
}

// ClosePeriod flips an open period to closed. Zero rows affected means the
// period was already closed or does not exist.
func (r *repository) ClosePeriod(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BillingPeriod{}).
		Where("id = ?", id).
		Where("status = ?", enums.BillingPeriodStatusOpen).
		Updates(map[string]interface{}{
			"status":    enums.BillingPeriodStatusClosed,
			"closed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ListOpenPeriodsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BillingPeriod, error) {
	var periods []models.BillingPeriod
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BillingPeriodStatusOpen).
		Where("end_date <= ?", cutoff.Format(dateLayout)).
		Order("end_date ASC").
		Limit(limit).
		Find(&periods).Error
	return periods, err
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.BillingPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, access scope.Access, periodID uuid.UUID) ([]models.BillingPayment, error) {
	var payments []models.BillingPayment
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("period_id = ?", periodID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}
