package domain

import "time"

// Roles a user may hold
const (
	RoleBuyer  = "buyer"  // Default role, can order services and post errands
	RoleSeller = "seller" // Has a seller profile and lists services
	RoleHelper = "helper" // Runs errands for customers
	RoleAdmin  = "admin"  // Resolves disputes, manages users
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r string) bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleHelper, RoleAdmin:
		return true
	}
	return false
}

// User Model
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`                             // Primary key
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`       // Unique, lowercased email
	Password      string         `gorm:"not null" json:"-"`                                // Hashed password
	Name          string         `gorm:"size:120;not null" json:"name"`                    // Display name
	Phone         string         `gorm:"size:32" json:"phone,omitempty"`                   // Optional phone number
	AvatarURL     string         `gorm:"size:512" json:"avatar_url,omitempty"`             // Object storage URL
	Role          string         `gorm:"size:16;default:buyer;not null;index" json:"role"` // Role: buyer, seller, helper, admin
	SellerProfile *SellerProfile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"seller_profile,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
