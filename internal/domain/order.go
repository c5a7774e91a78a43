package domain

import "time"

// Order statuses
const (
	OrderPending    = "pending"
	OrderAccepted   = "accepted"
	OrderInProgress = "in_progress"
	OrderDelivered  = "delivered"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderDisputed   = "disputed"
)

// OrderStatuses is the fixed status enumeration, in lifecycle order
var OrderStatuses = []string{
	OrderPending, OrderAccepted, OrderInProgress, OrderDelivered,
	OrderCompleted, OrderCancelled, OrderDisputed,
}

// Actors that drive order transitions
const (
	ActorBuyer  = "buyer"
	ActorSeller = "seller"
	ActorAdmin  = "admin"
)

type transition struct{ from, to string }

// orderTransitions maps every allowed move to the actor who may make it
var orderTransitions = map[transition]string{
	{OrderPending, OrderAccepted}:     ActorSeller,
	{OrderPending, OrderCancelled}:    ActorBuyer,
	{OrderAccepted, OrderInProgress}:  ActorSeller,
	{OrderAccepted, OrderCancelled}:   ActorBuyer,
	{OrderInProgress, OrderDelivered}: ActorSeller,
	{OrderInProgress, OrderDisputed}:  ActorBuyer,
	{OrderDelivered, OrderCompleted}:  ActorBuyer,
	{OrderDelivered, OrderInProgress}: ActorBuyer, // Revision request
	{OrderDelivered, OrderDisputed}:   ActorBuyer,
	{OrderDisputed, OrderCompleted}:   ActorAdmin, // Verdict for seller
	{OrderDisputed, OrderCancelled}:   ActorAdmin, // Verdict for buyer
}

// CanTransitionOrder reports whether actor may move an order from one status to another
func CanTransitionOrder(from, to, actor string) bool {
	who, ok := orderTransitions[transition{from, to}]
	return ok && who == actor
}

// Order is a purchase of a service (or accepted quote) by a buyer
type Order struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Reference    string     `gorm:"size:36;uniqueIndex;not null" json:"reference"` // Public UUID
	ServiceID    *uint      `gorm:"index" json:"service_id,omitempty"`
	Service      *Service   `json:"service,omitempty"`
	QuoteID      *uint      `gorm:"index" json:"quote_id,omitempty"`
	BuyerID      uint       `gorm:"index;not null" json:"buyer_id"`
	SellerID     uint       `gorm:"index;not null" json:"seller_id"`
	Title        string     `gorm:"size:160;not null" json:"title"`
	PriceCents   int64      `gorm:"not null" json:"price_cents"`
	DeliveryDays int        `gorm:"not null;default:1" json:"delivery_days"`
	Requirements string     `gorm:"type:text" json:"requirements"`
	Status       string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Payment statuses
const (
	PaymentSuccess  = "success"
	PaymentRefunded = "refunded"
)

// Payment records a verified provider transaction for an order
type Payment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OrderID     uint       `gorm:"index;not null" json:"order_id"`
	Reference   string     `gorm:"size:128;uniqueIndex;not null" json:"reference"` // Provider reference
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"size:8;not null" json:"currency"`
	Status      string     `gorm:"size:16;not null" json:"status"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Dispute statuses and verdicts
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"

	VerdictBuyer  = "buyer"
	VerdictSeller = "seller"
)

// Dispute is raised by a buyer against an in-flight order and settled by an admin
type Dispute struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	OrderID    uint       `gorm:"uniqueIndex;not null" json:"order_id"`
	Order      *Order     `json:"order,omitempty"`
	OpenedBy   uint       `gorm:"not null" json:"opened_by"`
	Reason     string     `gorm:"type:text;not null" json:"reason"`
	Status     string     `gorm:"size:16;not null;default:open;index" json:"status"`
	Verdict    string     `gorm:"size:16" json:"verdict,omitempty"`
	Note       string     `gorm:"type:text" json:"note,omitempty"`
	ResolvedBy *uint      `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
