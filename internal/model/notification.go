package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification event types
const (
	EventOrderCreated            = "order_created"
	EventOrderApproved           = "order_approved"
	EventOrderRejected           = "order_rejected"
	EventTransportAssigned       = "transport_manager_assigned"
	EventOrderStatusChanged      = "order_status_changed"
	EventOrderReadyForCompletion = "order_ready_for_completion"
	EventOrderCompleted          = "order_completed"
	EventDeliveryCompleted       = "delivery_completed"
	EventOrderCancelled          = "order_cancelled"
	EventLowStock                = "low_stock"
	EventReturnRecorded          = "return_recorded"
)

// Notification is one inbox entry for one recipient.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Type        string         `gorm:"type:varchar(50);not null;index" json:"type"`
	OrderID     *uuid.UUID     `gorm:"type:uuid;index" json:"order_id"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	ReadAt      *time.Time     `json:"read_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}
