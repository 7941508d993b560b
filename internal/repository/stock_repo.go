package repository

import (
	"context"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementFilter struct {
	ProductID *uuid.UUID
	SiteID    *uuid.UUID
	General   bool // only movements with no site
	Source    string
	Page      int
	Limit     int
}

// StockRepository is the append-only ledger store. Rows are never updated
// except to void them.
type StockRepository interface {
	Append(ctx context.Context, m *model.StockMovement) error
	Latest(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (*model.StockMovement, error)
	List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Append(ctx context.Context, m *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(m).Error
}

// Latest returns the most recent active movement for exactly this scope, or
// nil when the scope has no history.
func (r *stockRepository) Latest(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (*model.StockMovement, error) {
	var rows []model.StockMovement
	db := scope(GetDB(ctx, r.db), productID, siteID)
	if err := db.Where("status = ?", model.MovementActive).
		Order("created_at DESC").Order("id DESC").
		Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *stockRepository) List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	var rows []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	} else if filter.General {
		db = db.Where("site_id IS NULL")
	}
	if filter.Source != "" {
		db = db.Where("source = ?", filter.Source)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListLowStock returns tracked products whose latest general snapshot is at
// or below their threshold. Products with no general history count as 0.
func (r *stockRepository) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.* FROM products p
		LEFT JOIN LATERAL (
			SELECT sm.quantity FROM stock_movements sm
			WHERE sm.product_id = p.id AND sm.site_id IS NULL AND sm.status = ?
			ORDER BY sm.created_at DESC, sm.id DESC
			LIMIT 1
		) latest ON TRUE
		WHERE p.deleted_at IS NULL
		  AND p.store <> ?
		  AND p.low_stock_threshold > 0
		  AND COALESCE(latest.quantity, 0) <= p.low_stock_threshold
		ORDER BY p.name ASC
	`, model.MovementActive, model.StoreLPO).Scan(&products).Error
	return products, err
}

func scope(db *gorm.DB, productID uuid.UUID, siteID *uuid.UUID) *gorm.DB {
	db = db.Where("product_id = ?", productID)
	if siteID == nil {
		return db.Where("site_id IS NULL")
	}
	return db.Where("site_id = ?", *siteID)
}
