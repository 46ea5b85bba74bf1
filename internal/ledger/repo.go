package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
)

// Repository manages persistence for the transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListForAccount(ctx context.Context, ref AccountRef, params pagination.Params) ([]models.Transaction, error)
	ListPendingForAccount(ctx context.Context, ref AccountRef) ([]models.Transaction, error)
	SumPending(ctx context.Context, ref AccountRef) (decimal.Decimal, error)
	SumPaid(ctx context.Context, ref AccountRef) (decimal.Decimal, error)
	SumSpentInWindow(ctx context.Context, ref AccountRef, window Window) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, from, to enums.PaymentStatus) (int64, error)
	AdjustStudentBalance(ctx context.Context, studentID uuid.UUID, delta decimal.Decimal) error
	AdjustTeacherBalance(ctx context.Context, teacherProfileID uuid.UUID, delta decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.Transaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var row models.Transaction
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListForAccount(ctx context.Context, ref AccountRef, params pagination.Params) ([]models.Transaction, error) {
	query := r.scopeAccount(r.db.WithContext(ctx), ref).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPendingForAccount(ctx context.Context, ref AccountRef) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.scopeAccount(r.db.WithContext(ctx), ref).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// SumPending folds the pending side of the ledger. Debt is the negation of
// this sum floored at zero; callers own that interpretation.
func (r *repository) SumPending(ctx context.Context, ref AccountRef) (decimal.Decimal, error) {
	return r.sumAmount(
		r.scopeAccount(r.db.WithContext(ctx), ref).
			Where("payment_status = ?", enums.PaymentStatusPending).
			Where("type IN ?", []enums.TransactionType{
				enums.TransactionTypePurchase,
				enums.TransactionTypeRefund,
				enums.TransactionTypeAdjustment,
			}),
	)
}

func (r *repository) SumPaid(ctx context.Context, ref AccountRef) (decimal.Decimal, error) {
	return r.sumAmount(
		r.scopeAccount(r.db.WithContext(ctx), ref).
			Where("payment_status = ?", enums.PaymentStatusPaid),
	)
}

// SumSpentInWindow returns the positive amount consumed by purchases minus
// refunds inside the window, cancelled rows excluded.
func (r *repository) SumSpentInWindow(ctx context.Context, ref AccountRef, window Window) (decimal.Decimal, error) {
	sum, err := r.sumAmount(
		r.scopeAccount(r.db.WithContext(ctx), ref).
			Where("payment_status <> ?", enums.PaymentStatusCancelled).
			Where("type IN ?", []enums.TransactionType{
				enums.TransactionTypePurchase,
				enums.TransactionTypeRefund,
			}).
			Where("created_at >= ? AND created_at < ?", window.Start, window.End),
	)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.Neg(), nil
}

func (r *repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, from, to enums.PaymentStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id IN ?", ids).
		Where("payment_status = ?", from).
		Update("payment_status", to)
	return res.RowsAffected, res.Error
}

func (r *repository) AdjustStudentBalance(ctx context.Context, studentID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", studentID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *repository) AdjustTeacherBalance(ctx context.Context, teacherProfileID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.TeacherProfile{}).
		Where("id = ?", teacherProfileID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *repository) scopeAccount(query *gorm.DB, ref AccountRef) *gorm.DB {
	if ref.StudentID != nil {
		return query.Where("student_id = ?", *ref.StudentID)
	}
	return query.Where("teacher_profile_id = ?", *ref.TeacherProfileID)
}

func (r *repository) sumAmount(query *gorm.DB) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := query.
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
