package domain

import "time"

// MaxMessageLength bounds a chat message body, in runes
const MaxMessageLength = 4000

// ChatRoom is a conversation between a buyer and a seller, optionally about one service
type ChatRoom struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BuyerID       uint       `gorm:"uniqueIndex:idx_room_parties;not null" json:"buyer_id"`
	SellerID      uint       `gorm:"uniqueIndex:idx_room_parties;not null;index" json:"seller_id"`
	ServiceID     uint       `gorm:"uniqueIndex:idx_room_parties;not null;default:0" json:"service_id"` // 0 when not about a service
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HasParticipant reports whether the user is the buyer or seller of the room
func (r *ChatRoom) HasParticipant(userID uint) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// Counterpart returns the other participant of the room
func (r *ChatRoom) Counterpart(userID uint) uint {
	if r.BuyerID == userID {
		return r.SellerID
	}
	return r.BuyerID
}

// Message is one chat line; ReadAt is set once the recipient has read it
type Message struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RoomID    uint       `gorm:"index;not null" json:"room_id"`
	SenderID  uint       `gorm:"index;not null" json:"sender_id"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	ReadAt    *time.Time `gorm:"index" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// Quote statuses
const (
	QuotePending   = "pending"
	QuoteAccepted  = "accepted"
	QuoteDeclined  = "declined"
	QuoteWithdrawn = "withdrawn"
)

// Quote is a custom offer a seller sends inside a chat room
type Quote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomID       uint      `gorm:"index;not null" json:"room_id"`
	SellerID     uint      `gorm:"index;not null" json:"seller_id"`
	BuyerID      uint      `gorm:"index;not null" json:"buyer_id"`
	ServiceID    *uint     `json:"service_id,omitempty"`
	Title        string    `gorm:"size:160;not null" json:"title"`
	Details      string    `gorm:"type:text" json:"details"`
	PriceCents   int64     `gorm:"not null" json:"price_cents"`
	DeliveryDays int       `gorm:"not null" json:"delivery_days"`
	Status       string    `gorm:"size:16;not null;default:pending" json:"status"`
	OrderID      *uint     `json:"order_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
