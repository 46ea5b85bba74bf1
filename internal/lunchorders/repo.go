package lunchorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// Repository manages lunch order persistence. Status transitions go through
// conditional updates so concurrent modifications lose cleanly.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.LunchOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LunchOrder, error)
	ListForDate(ctx context.Context, access scope.Access, date time.Time, status *enums.LunchOrderStatus) ([]models.LunchOrder, error)
	ListForAccount(ctx context.Context, ref ledger.AccountRef, from, to time.Time) ([]models.LunchOrder, error)
	LinkTransaction(ctx context.Context, id, transactionID uuid.UUID) error
	Transition(ctx context.Context, id uuid.UUID, from []enums.LunchOrderStatus, to enums.LunchOrderStatus, sets map[string]interface{}) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lunch orders repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.LunchOrder) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LunchOrder, error) {
	var row models.LunchOrder
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListForDate(ctx context.Context, access scope.Access, date time.Time, status *enums.LunchOrderStatus) ([]models.LunchOrder, error) {
	query := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("order_date = ?", date.Format(dateLayout)).
		Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.LunchOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListForAccount(ctx context.Context, ref ledger.AccountRef, from, to time.Time) ([]models.LunchOrder, error) {
	query := r.db.WithContext(ctx).
		Where("order_date >= ? AND order_date <= ?", from.Format(dateLayout), to.Format(dateLayout)).
		Order("order_date DESC")
	if ref.IsStudent() {
		query = query.Where("student_id = ?", *ref.StudentID)
	} else {
		query = query.Where("teacher_profile_id = ?", *ref.TeacherProfileID)
	}

	var rows []models.LunchOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) LinkTransaction(ctx context.Context, id, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LunchOrder{}).
		Where("id = ?", id).
		UpdateColumn("transaction_id", transactionID).Error
}

// Transition moves an order between states only when it is still in one of
// the expected source states. Zero rows affected means somebody else won.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []enums.LunchOrderStatus, to enums.LunchOrderStatus, sets map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for column, value := range sets {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.LunchOrder{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
