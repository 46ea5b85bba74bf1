package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// Repository persists the central catalog, warehouse stock and supply
// requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)

	UpsertSchoolPrice(ctx context.Context, price *models.ProductSchoolPrice) error
	DeleteSchoolPrice(ctx context.Context, productID, schoolID uuid.UUID) error
	FindSchoolPrice(ctx context.Context, productID, schoolID uuid.UUID) (*models.ProductSchoolPrice, error)
	ListSchoolPrices(ctx context.Context, schoolID uuid.UUID) ([]models.ProductSchoolPrice, error)

	CreateItem(ctx context.Context, item *models.InventoryItem) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, item *models.InventoryItem) error
	ListItems(ctx context.Context, activeOnly bool) ([]models.InventoryItem, error)

	CreateStock(ctx context.Context, stock *models.InventoryStock) error
	FindStock(ctx context.Context, itemID uuid.UUID) (*models.InventoryStock, error)
	AdjustStock(ctx context.Context, itemID uuid.UUID, delta int) (int64, error)

	CreateRequest(ctx context.Context, request *models.SupplyRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error)
	ListRequests(ctx context.Context, access scope.Access, status *enums.SupplyRequestStatus) ([]models.SupplyRequest, error)
	TransitionRequest(ctx context.Context, id uuid.UUID, from []enums.SupplyRequestStatus, to enums.SupplyRequestStatus, sets map[string]interface{}) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed inventory repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var products []models.Product
	err := query.Find(&products).Error
	return products, err
}

func (r *repository) UpsertSchoolPrice(ctx context.Context, price *models.ProductSchoolPrice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "school_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
		}).
		Create(price).Error
}

func (r *repository) DeleteSchoolPrice(ctx context.Context, productID, schoolID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("school_id = ?", schoolID).
		Delete(&models.ProductSchoolPrice{}).Error
}

func (r *repository) FindSchoolPrice(ctx context.Context, productID, schoolID uuid.UUID) (*models.ProductSchoolPrice, error) {
	var price models.ProductSchoolPrice
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("school_id = ?", schoolID).
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) ListSchoolPrices(ctx context.Context, schoolID uuid.UUID) ([]models.ProductSchoolPrice, error) {
	var prices []models.ProductSchoolPrice
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Find(&prices).Error
	return prices, err
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) ListItems(ctx context.Context, activeOnly bool) ([]models.InventoryItem, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var items []models.InventoryItem
	err := query.Find(&items).Error
	return items, err
}

func (r *repository) CreateStock(ctx context.Context, stock *models.InventoryStock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) FindStock(ctx context.Context, itemID uuid.UUID) (*models.InventoryStock, error) {
	var stock models.InventoryStock
	if err := r.db.WithContext(ctx).First(&stock, "item_id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// AdjustStock applies a signed delta with the non-negative guard in the WHERE
// clause. Zero rows affected means the delta would underflow (or the stock
// row is missing).
func (r *repository) AdjustStock(ctx context.Context, itemID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryStock{}).
		Where("item_id = ?", itemID).
		Where("quantity + ? >= 0", delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return result.RowsAffected, result.Error
}

func (r *repository) CreateRequest(ctx context.Context, request *models.SupplyRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	var request models.SupplyRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListRequests(ctx context.Context, access scope.Access, status *enums.SupplyRequestStatus) ([]models.SupplyRequest, error) {
	query := r.db.WithContext(ctx).
		Scopes(access.SchoolFilter()).
		Preload("Items").
		Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var requests []models.SupplyRequest
	err := query.Find(&requests).Error
	return requests, err
}

func (r *repository) TransitionRequest(ctx context.Context, id uuid.UUID, from []enums.SupplyRequestStatus, to enums.SupplyRequestStatus, sets map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for column, value := range sets {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
