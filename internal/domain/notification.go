package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types
const (
	NotifyNewMessage    = "new_message"
	NotifyNewOrder      = "new_order"
	NotifyOrderStatus   = "order_status"
	NotifyPayment       = "payment"
	NotifyQuote         = "quote"
	NotifyDispute       = "dispute"
	NotifyErrandUpdated = "errand"
)

// Notification is an in-app alert for a user
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Type      string         `gorm:"size:32;not null" json:"type"`
	Title     string         `gorm:"size:160;not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Data      datatypes.JSON `json:"data,omitempty"` // e.g. {"order_id": 1}
	ReadAt    *time.Time     `gorm:"index" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
