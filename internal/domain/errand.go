package domain

import "time"

// Errand statuses
const (
	ErrandOpen      = "open"
	ErrandAccepted  = "accepted"
	ErrandPickedUp  = "picked_up"
	ErrandDelivered = "delivered"
	ErrandCompleted = "completed"
	ErrandCancelled = "cancelled"
)

// Errand actors
const (
	ErrandActorCustomer = "customer"
	ErrandActorHelper   = "helper"
)

var errandTransitions = map[transition]string{
	{ErrandOpen, ErrandAccepted}:       ErrandActorHelper,
	{ErrandOpen, ErrandCancelled}:      ErrandActorCustomer,
	{ErrandAccepted, ErrandPickedUp}:   ErrandActorHelper,
	{ErrandAccepted, ErrandCancelled}:  ErrandActorCustomer,
	{ErrandPickedUp, ErrandDelivered}:  ErrandActorHelper,
	{ErrandDelivered, ErrandCompleted}: ErrandActorCustomer,
}

// CanTransitionErrand reports whether actor may move an errand between statuses
func CanTransitionErrand(from, to, actor string) bool {
	who, ok := errandTransitions[transition{from, to}]
	return ok && who == actor
}

// Errand is a pickup-and-drop task posted by a customer and run by a helper
type Errand struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CustomerID     uint      `gorm:"index;not null" json:"customer_id"`
	HelperID       *uint     `gorm:"index" json:"helper_id,omitempty"`
	Title          string    `gorm:"size:160;not null" json:"title"`
	Details        string    `gorm:"type:text" json:"details"`
	PickupAddress  string    `gorm:"size:255;not null" json:"pickup_address"`
	DropoffAddress string    `gorm:"size:255;not null" json:"dropoff_address"`
	PickupLat      *float64  `json:"pickup_lat,omitempty"`
	PickupLng      *float64  `json:"pickup_lng,omitempty"`
	DropoffLat     *float64  `json:"dropoff_lat,omitempty"`
	DropoffLng     *float64  `json:"dropoff_lng,omitempty"`
	BudgetCents    int64     `gorm:"not null" json:"budget_cents"`
	Status         string    `gorm:"size:16;not null;default:open;index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
