package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReturnKindReturn  = "return"
	ReturnKindWastage = "wastage"
)

// Return types: where the goods are being returned or wasted from.
const (
	ReturnTypeSite  = "site"
	ReturnTypeStore = "store"
)

const (
	ReturnStatusRecorded = "recorded"
)

// ReturnRecord captures a return of unused goods or a wastage report.
type ReturnRecord struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind      string       `gorm:"type:varchar(10);not null;index" json:"kind"`
	Type      string       `gorm:"type:varchar(10);not null" json:"type"`
	ManagerID uuid.UUID    `gorm:"type:uuid;not null;index" json:"manager_id"`
	SiteID    *uuid.UUID   `gorm:"type:uuid;index" json:"site_id"`
	OrderID   *uuid.UUID   `gorm:"type:uuid;index" json:"order_id"`
	Date      time.Time    `gorm:"not null" json:"date"`
	Status    string       `gorm:"type:varchar(20);not null;default:'recorded'" json:"status"`
	Reason    string       `gorm:"type:text" json:"reason"`
	Items     []ReturnItem `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ReturnItem struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReturnID        uuid.UUID `gorm:"type:uuid;not null;index" json:"return_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	OrderedQuantity int       `gorm:"type:int" json:"ordered_quantity"`
	ReturnQuantity  int       `gorm:"type:int;not null" json:"return_quantity"`
	UnitType        string    `gorm:"type:varchar(30)" json:"unit_type"`
	AdjustStock     bool      `gorm:"default:false" json:"adjust_stock"`
}

// TableName keeps the table name readable.
func (ReturnRecord) TableName() string {
	return "returns"
}
