package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MovementActive = "active"
	MovementVoided = "voided"
)

// Movement sources
const (
	SourceOrderCompleted = "order_completed"
	SourceReturn         = "return"
	SourceWastage        = "wastage"
	SourceAdjustment     = "adjustment"
)

// StockMovement is an append-only ledger row. Quantity is the absolute stock
// of the (product, site) scope after this movement; Delta is the change that
// produced it. A nil SiteID is general (warehouse) stock.
type StockMovement struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_scope,priority:1" json:"product_id"`
	SiteID    *uuid.UUID `gorm:"type:uuid;index:idx_stock_scope,priority:2" json:"site_id"`
	Quantity  int        `gorm:"type:int;not null" json:"quantity"`
	Delta     int        `gorm:"type:int;not null" json:"delta"`
	Source    string     `gorm:"type:varchar(30);not null" json:"source"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ReturnID  *uuid.UUID `gorm:"type:uuid;index" json:"return_id"`
	Status    string     `gorm:"type:varchar(10);not null;default:'active'" json:"status"`
	Note      string     `gorm:"type:text" json:"note"`
	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `gorm:"index:idx_stock_scope,priority:3" json:"created_at"`
}
