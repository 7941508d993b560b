package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Order statuses
const (
	OrderStatusPending       = "pending"
	OrderStatusApproved      = "approved"
	OrderStatusRejected      = "rejected"
	OrderStatusInTransit     = "in_transit"
	OrderStatusOutOfDelivery = "out_of_delivery"
	OrderStatusCompleted     = "completed"
	OrderStatusCancelled     = "cancelled"
)

// Delivery sub-states tracked by transport
const (
	DeliveryStatusNone      = ""
	DeliveryStatusAssigned  = "assigned"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Order is a site's materials request. Version is bumped on every status
// write and guards against concurrent transitions.
type Order struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SiteID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"site_id"`
	SiteManagerID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"site_manager_id"`
	TransportManagerID    *uuid.UUID     `gorm:"type:uuid;index" json:"transport_manager_id"`
	SupplierID            *uuid.UUID     `gorm:"type:uuid" json:"supplier_id"`
	Status                string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DeliveryStatus        string         `gorm:"type:varchar(20);not null;default:''" json:"delivery_status"`
	Priority              string         `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	ExpectedDeliveryDate  *time.Time     `json:"expected_delivery_date"`
	IsLPO                 bool           `gorm:"default:false" json:"is_lpo"`
	IsCustomProduct       bool           `gorm:"default:false" json:"is_custom_product"`
	Note                  string         `gorm:"type:text" json:"note"`
	RejectedNote          string         `gorm:"type:text" json:"rejected_note"`
	ProductStatus         string         `gorm:"type:varchar(30)" json:"product_status"`
	ProductRejectionNotes string         `gorm:"type:text" json:"product_rejection_notes"`
	Version               int            `gorm:"type:int;not null;default:1" json:"version"`
	Products              []OrderProduct `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"products"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// OrderProduct is one line of an order: either a catalog product with a
// quantity or a custom request described by a note and/or images.
type OrderProduct struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    *uuid.UUID     `gorm:"type:uuid;index" json:"product_id"`
	Product      *Product       `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity     int            `gorm:"type:int;not null;default:0" json:"quantity"`
	IsCustom     bool           `gorm:"default:false" json:"is_custom"`
	CustomNote   string         `gorm:"type:text" json:"custom_note"`
	CustomImages datatypes.JSON `gorm:"type:jsonb" json:"custom_images"`
	SupplierID   *uuid.UUID     `gorm:"type:uuid" json:"supplier_id"`
}
