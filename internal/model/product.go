package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product stores
const (
	StoreHardware  = "hardware_store"
	StoreLPO       = "lpo"
	StoreWarehouse = "warehouse"
)

// Product is a catalog item. AvailableQty is a read-optimized cache of the
// stock ledger and may drift from it.
type Product struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Category          string         `gorm:"type:varchar(100);index" json:"category"`
	Store             string         `gorm:"type:varchar(30);not null;default:'hardware_store'" json:"store"`
	UnitType          string         `gorm:"type:varchar(30)" json:"unit_type"`
	LowStockThreshold int            `gorm:"type:int;default:0;not null" json:"low_stock_threshold"`
	AvailableQty      int            `gorm:"type:int;default:0;not null" json:"available_qty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TracksStock reports whether the ledger applies to this product.
func (p *Product) TracksStock() bool {
	return p.Store != StoreLPO
}

// Site is a physical project location with its own stock scope.
type Site struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Location  string    `gorm:"type:varchar(255)" json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
