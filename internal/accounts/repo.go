package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// Debtor is one row of the top-debtors report: an account and its pending
// debt folded from the ledger.
type Debtor struct {
	StudentID        *uuid.UUID      `gorm:"column:student_id"`
	TeacherProfileID *uuid.UUID      `gorm:"column:teacher_profile_id"`
	FullName         string          `gorm:"column:full_name"`
	SchoolID         uuid.UUID       `gorm:"column:school_id"`
	Debt             decimal.Decimal `gorm:"column:debt"`
}

// Repository manages student and teacher-profile account rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateStudent(ctx context.Context, row *models.Student) error
	FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	UpdateStudent(ctx context.Context, row *models.Student) error
	ListStudents(ctx context.Context, access scope.Access, guardianUserID *uuid.UUID) ([]models.Student, error)

	CreateTeacherProfile(ctx context.Context, row *models.TeacherProfile) error
	FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error)
	FindTeacherProfileByUser(ctx context.Context, userID uuid.UUID) (*models.TeacherProfile, error)
	UpdateTeacherProfile(ctx context.Context, row *models.TeacherProfile) error
	ListTeacherProfiles(ctx context.Context, access scope.Access) ([]models.TeacherProfile, error)

	TopDebtors(ctx context.Context, access scope.Access, limit int) ([]Debtor, error)
	PendingDebtTotal(ctx context.Context, access scope.Access) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateStudent(ctx context.Context, row *models.Student) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var row models.Student
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateStudent(ctx context.Context, row *models.Student) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) ListStudents(ctx context.Context, access scope.Access, guardianUserID *uuid.UUID) ([]models.Student, error) {
	query := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("is_active = ?", true).
		Order("full_name ASC")
	if guardianUserID != nil {
		query = query.Where("guardian_user_id = ?", *guardianUserID)
	}

	var rows []models.Student
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateTeacherProfile(ctx context.Context, row *models.TeacherProfile) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error) {
	var row models.TeacherProfile
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindTeacherProfileByUser(ctx context.Context, userID uuid.UUID) (*models.TeacherProfile, error) {
	var row models.TeacherProfile
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateTeacherProfile(ctx context.Context, row *models.TeacherProfile) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) ListTeacherProfiles(ctx context.Context, access scope.Access) ([]models.TeacherProfile, error) {
	var rows []models.TeacherProfile
	err := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Where("is_active = ?", true).
		Order("full_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// debtFold builds the per-account pending-debt subqueries. Debt is the
// negated pending sum, so only negative sums count as debt.
func (r *repository) debtFold(ctx context.Context, access scope.Access) (students, teachers *gorm.DB) {
	pendingTypes := []enums.TransactionType{
		enums.TransactionTypePurchase,
		enums.TransactionTypeRefund,
		enums.TransactionTypeAdjustment,
	}

	base := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Scopes(access.SchoolFilterOn("transactions.school_id")).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("type IN ?", pendingTypes)

	students = base.Session(&gorm.Session{}).
		Select("transactions.student_id, NULL::uuid AS teacher_profile_id, students.full_name, transactions.school_id, -SUM(transactions.amount) AS debt").
		Joins("JOIN students ON students.id = transactions.student_id").
		Where("transactions.student_id IS NOT NULL").
		Group("transactions.student_id, students.full_name, transactions.school_id")

	teachers = base.Session(&gorm.Session{}).
		Select("NULL::uuid AS student_id, transactions.teacher_profile_id, teacher_profiles.full_name, transactions.school_id, -SUM(transactions.amount) AS debt").
		Joins("JOIN teacher_profiles ON teacher_profiles.id = transactions.teacher_profile_id").
		Where("transactions.teacher_profile_id IS NOT NULL").
		Group("transactions.teacher_profile_id, teacher_profiles.full_name, transactions.school_id")

	return students, teachers
}

// TopDebtors folds pending ledger amounts per account and returns the largest
// debts first.
func (r *repository) TopDebtors(ctx context.Context, access scope.Access, limit int) ([]Debtor, error) {
	students, teachers := r.debtFold(ctx, access)

	var rows []Debtor
	err := r.db.WithContext(ctx).
		Table("(? UNION ALL ?) AS debtors", students, teachers).
		Where("debt > 0").
		Order("debt DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingDebtTotal sums pending debt across every account in scope. Accounts
// with a net pending credit do not offset other accounts' debt.
func (r *repository) PendingDebtTotal(ctx context.Context, access scope.Access) (decimal.Decimal, error) {
	students, teachers := r.debtFold(ctx, access)

	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Table("(? UNION ALL ?) AS debtors", students, teachers).
		Where("debt > 0").
		Select("COALESCE(SUM(debt), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
