package domain

import "time"

// SellerProfile is the public storefront of a user who sells services
type SellerProfile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName string    `gorm:"size:120;not null" json:"display_name"`
	Bio         string    `gorm:"type:text" json:"bio"`
	Skills      string    `gorm:"size:512" json:"skills"` // Comma separated
	Location    string    `gorm:"size:255" json:"location"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups services for browsing
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"size:64;uniqueIndex;not null" json:"slug" yaml:"slug"`
	Name string `gorm:"size:120;not null" json:"name" yaml:"name"`
}

// Service is a listing offered by a seller
type Service struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SellerID     uint      `gorm:"index;not null" json:"seller_id"` // Users.ID of the seller
	CategoryID   *uint     `gorm:"index" json:"category_id,omitempty"`
	Category     *Category `json:"category,omitempty"`
	Title        string    `gorm:"size:160;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	PriceCents   int64     `gorm:"not null" json:"price_cents"`
	DeliveryDays int       `gorm:"not null;default:1" json:"delivery_days"`
	ImageURL     string    `gorm:"size:512" json:"image_url,omitempty"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Favorite marks a service saved by a user
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorite_user_service;not null" json:"user_id"`
	ServiceID uint      `gorm:"uniqueIndex:idx_favorite_user_service;not null" json:"service_id"`
	Service   *Service  `json:"service,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
