package recharges

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// Repository manages recharge request persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.RechargeRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RechargeRequest, error)
	List(ctx context.Context, access scope.Access, filter ListFilter) ([]models.RechargeRequest, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.RechargeRequest, error)
	MarkApproved(ctx context.Context, id, reviewedBy uuid.UUID, at time.Time) (int64, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reviewedBy *uuid.UUID, at time.Time, reason string) (int64, error)
	LinkTransaction(ctx context.Context, id, transactionID uuid.UUID) error
}

// ListFilter narrows recharge listings.
type ListFilter struct {
	Status      *enums.RechargeRequestStatus
	SubmittedBy *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recharges repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.RechargeRequest) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RechargeRequest, error) {
	var row models.RechargeRequest
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, access scope.Access, filter ListFilter) ([]models.RechargeRequest, error) {
	query := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Order("created_at DESC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SubmittedBy != nil {
		query = query.Where("submitted_by = ?", *filter.SubmittedBy)
	}

	var rows []models.RechargeRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.RechargeRequest, error) {
	var rows []models.RechargeRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.RechargeRequestStatusPending).
		Where("expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkApproved flips pending to approved. Zero rows affected means the
// request was already reviewed; callers treat that as a state conflict and
// never credit twice.
func (r *repository) MarkApproved(ctx context.Context, id, reviewedBy uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RechargeRequest{}).
		Where("id = ?", id).
		Where("status = ?", enums.RechargeRequestStatusPending).
		Updates(map[string]interface{}{
			"status":      enums.RechargeRequestStatusApproved,
			"reviewed_by": reviewedBy,
			"reviewed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkRejected(ctx context.Context, id uuid.UUID, reviewedBy *uuid.UUID, at time.Time, reason string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RechargeRequest{}).
		Where("id = ?", id).
		Where("status = ?", enums.RechargeRequestStatusPending).
		Updates(map[string]interface{}{
			"status":           enums.RechargeRequestStatusRejected,
			"reviewed_by":      reviewedBy,
			"reviewed_at":      at,
			"rejection_reason": reason,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) LinkTransaction(ctx context.Context, id, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.RechargeRequest{}).
		Where("id = ?", id).
		UpdateColumn("transaction_id", transactionID).Error
}
