package repository

import (
	"context"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status             string
	SiteID             *uuid.UUID
	SiteManagerID      *uuid.UUID
	TransportManagerID *uuid.UUID
	Page               int
	Limit              int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByIDWithProducts(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, version int, fields map[string]interface{}) error
	ReplaceProducts(ctx context.Context, orderID uuid.UUID, products []model.OrderProduct) error
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order together with its products.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByIDWithProducts(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Scopes(withProducts).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction and
// loads its products.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	if err := db.Where("order_id = ?", id).Find(&order.Products).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateGuarded writes fields only if the row still has the given version and
// bumps the version. It returns ErrStaleWrite when no row matched.
func (r *orderRepository) UpdateGuarded(ctx context.Context, id uuid.UUID, version int, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = version + 1

	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *orderRepository) ReplaceProducts(ctx context.Context, orderID uuid.UUID, products []model.OrderProduct) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", orderID).Delete(&model.OrderProduct{}).Error; err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	for i := range products {
		products[i].OrderID = orderID
	}
	return db.Create(&products).Error
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}
	if filter.SiteManagerID != nil {
		db = db.Where("site_manager_id = ?", *filter.SiteManagerID)
	}
	if filter.TransportManagerID != nil {
		db = db.Where("transport_manager_id = ?", *filter.TransportManagerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(withProducts).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// withProducts loads line items together with their catalog products.
func withProducts(db *gorm.DB) *gorm.DB {
	return db.Preload("Products").Preload("Products.Product")
}
