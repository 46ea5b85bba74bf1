package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
	dbpkg "github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the central catalog, warehouse stock and the school supply
// request lifecycle. The catalog and warehouse are admin-owned; schools only
// file requests against them.
type Service interface {
	CreateProduct(ctx context.Context, access scope.Access, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, access scope.Access, id uuid.UUID, input ProductInput) (*models.Product, error)
	DeactivateProduct(ctx context.Context, access scope.Access, id uuid.UUID) error
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)

	SetSchoolPrice(ctx context.Context, access scope.Access, productID, schoolID uuid.UUID, price decimal.Decimal) error
	RemoveSchoolPrice(ctx context.Context, access scope.Access, productID, schoolID uuid.UUID) error
	PriceFor(ctx context.Context, productID, schoolID uuid.UUID) (decimal.Decimal, error)

	CreateItem(ctx context.Context, access scope.Access, input ItemInput) (*models.InventoryItem, error)
	ListItems(ctx context.Context, activeOnly bool) ([]models.InventoryItem, error)
	AdjustStock(ctx context.Context, access scope.Access, itemID uuid.UUID, delta int) (*models.InventoryStock, error)
	GetStock(ctx context.Context, itemID uuid.UUID) (*models.InventoryStock, error)

	SubmitRequest(ctx context.Context, access scope.Access, input RequestInput) (*models.SupplyRequest, error)
	ApproveRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error)
	RejectRequest(ctx context.Context, access scope.Access, id uuid.UUID, notes string) (*models.SupplyRequest, error)
	FulfillRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error)
	GetRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error)
	ListRequests(ctx context.Context, access scope.Access, status *enums.SupplyRequestStatus) ([]models.SupplyRequest, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an inventory service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// ProductInput creates or updates a catalog product.
type ProductInput struct {
	Code      string
	Name      string
	Unit      string
	BasePrice decimal.Decimal
}

// ItemInput creates a warehouse item, optionally linked to a catalog product.
type ItemInput struct {
	ProductID *uuid.UUID
	Name      string
	Unit      string
}

// RequestInput files a supply request from a school.
type RequestInput struct {
	SchoolID uuid.UUID
	Notes    string
	Items    []RequestItemInput
}

// RequestItemInput is one requested line.
type RequestItemInput struct {
	ItemID   uuid.UUID
	Quantity int
}

func (s *service) CreateProduct(ctx context.Context, access scope.Access, input ProductInput) (*models.Product, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the catalog")
	}
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	product := &models.Product{
		Code:      strings.ToLower(strings.TrimSpace(input.Code)),
		Name:      strings.TrimSpace(input.Name),
		Unit:      defaultUnit(input.Unit),
		BasePrice: input.BasePrice,
		IsActive:  true,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, access scope.Access, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the catalog")
	}
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	product.Code = strings.ToLower(strings.TrimSpace(input.Code))
	product.Name = strings.TrimSpace(input.Name)
	product.Unit = defaultUnit(input.Unit)
	product.BasePrice = input.BasePrice
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) DeactivateProduct(ctx context.Context, access scope.Access, id uuid.UUID) error {
	if !access.Admin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the catalog")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) SetSchoolPrice(ctx context.Context, access scope.Access, productID, schoolID uuid.UUID, price decimal.Decimal) error {
	if !access.Admin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins set school prices")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	err := s.repo.UpsertSchoolPrice(ctx, &models.ProductSchoolPrice{
		ProductID: productID,
		SchoolID:  schoolID,
		Price:     price,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set school price")
	}
	return nil
}

func (s *service) RemoveSchoolPrice(ctx context.Context, access scope.Access, productID, schoolID uuid.UUID) error {
	if !access.Admin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins set school prices")
	}
	if err := s.repo.DeleteSchoolPrice(ctx, productID, schoolID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove school price")
	}
	return nil
}

// PriceFor resolves the school override when present, the base price
// otherwise.
func (s *service) PriceFor(ctx context.Context, productID, schoolID uuid.UUID) (decimal.Decimal, error) {
	if override, err := s.repo.FindSchoolPrice(ctx, productID, schoolID); err == nil {
		return override.Price, nil
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	return product.BasePrice, nil
}

func (s *service) CreateItem(ctx context.Context, access scope.Access, input ItemInput) (*models.InventoryItem, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the warehouse")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	item := &models.InventoryItem{
		ProductID: input.ProductID,
		Name:      strings.TrimSpace(input.Name),
		Unit:      defaultUnit(input.Unit),
		IsActive:  true,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
		}
		// Every item carries a stock row so adjustments never upsert.
		if err := repo.CreateStock(ctx, &models.InventoryStock{ItemID: item.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, activeOnly bool) ([]models.InventoryItem, error) {
	items, err := s.repo.ListItems(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}

func (s *service) AdjustStock(ctx context.Context, access scope.Access, itemID uuid.UUID, delta int) (*models.InventoryStock, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins adjust warehouse stock")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	affected, err := s.repo.AdjustStock(ctx, itemID, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stock would go negative").
			WithDetails(map[string]any{"item_id": itemID, "delta": delta})
	}
	return s.GetStock(ctx, itemID)
}

func (s *service) GetStock(ctx context.Context, itemID uuid.UUID) (*models.InventoryStock, error) {
	stock, err := s.repo.FindStock(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "stock row not found")
	}
	return stock, nil
}

func (s *service) SubmitRequest(ctx context.Context, access scope.Access, input RequestInput) (*models.SupplyRequest, error) {
	if input.SchoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if err := access.Require(input.SchoolID); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	request := &models.SupplyRequest{
		SchoolID:    input.SchoolID,
		RequestedBy: access.UserID,
		Status:      enums.SupplyRequestStatusRequested,
	}
	if input.Notes != "" {
		request.Notes = &input.Notes
	}
	seen := make(map[uuid.UUID]bool)
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if seen[line.ItemID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate item in request")
		}
		seen[line.ItemID] = true
		item, err := s.repo.FindItem(ctx, line.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found")
		}
		if !item.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %s is inactive", item.Name))
		}
		request.Items = append(request.Items, models.SupplyRequestItem{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
		})
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supply request")
	}
	return request, nil
}

func (s *service) ApproveRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins review supply requests")
	}
	now := time.Now()
	affected, err := s.repo.TransitionRequest(ctx, id,
		[]enums.SupplyRequestStatus{enums.SupplyRequestStatusRequested},
		enums.SupplyRequestStatusApproved,
		map[string]interface{}{"reviewed_by": access.UserID, "reviewed_at": now},
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve request")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already reviewed")
	}
	return s.loadRequest(ctx, id)
}

func (s *service) RejectRequest(ctx context.Context, access scope.Access, id uuid.UUID, notes string) (*models.SupplyRequest, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins review supply requests")
	}
	now := time.Now()
	sets := map[string]interface{}{"reviewed_by": access.UserID, "reviewed_at": now}
	if notes != "" {
		sets["notes"] = notes
	}
	affected, err := s.repo.TransitionRequest(ctx, id,
		[]enums.SupplyRequestStatus{enums.SupplyRequestStatusRequested},
		enums.SupplyRequestStatusRejected,
		sets,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject request")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already reviewed")
	}
	return s.loadRequest(ctx, id)
}

// FulfillRequest decrements warehouse stock for every line and marks the
// request fulfilled in one transaction. Any underflow rolls everything back.
func (s *service) FulfillRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins fulfil supply requests")
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.TransitionRequest(ctx, id,
			[]enums.SupplyRequestStatus{enums.SupplyRequestStatusApproved},
			enums.SupplyRequestStatusFulfilled,
			map[string]interface{}{"fulfilled_at": now},
		)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfil request")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("request is %s, not fulfillable", request.Status))
		}
		for _, line := range request.Items {
			moved, err := repo.AdjustStock(ctx, line.ItemID, -line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if moved == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{"item_id": line.ItemID, "requested": line.Quantity})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	request.Status = enums.SupplyRequestStatusFulfilled
	request.FulfilledAt = &now
	return request, nil
}

func (s *service) GetRequest(ctx context.Context, access scope.Access, id uuid.UUID) (*models.SupplyRequest, error) {
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(request.SchoolID); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, access scope.Access, status *enums.SupplyRequestStatus) ([]models.SupplyRequest, error) {
	requests, err := s.repo.ListRequests(ctx, access, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supply requests")
	}
	return requests, nil
}

func (s *service) loadRequest(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	request, err := s.repo.FindRequest(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "supply request not found")
	}
	return request, nil
}

func validateProduct(input ProductInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product code required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.BasePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}
	return nil
}

func defaultUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return "unidad"
	}
	return unit
}
