package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"` // Login email
	Password string `json:"password" binding:"required"`            // Checked against the password policy
	Name     string `json:"name" binding:"required,max=120"`        // Display name
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	Password string `json:"password" binding:"required"` // Plain password
}

// AuthResponse carries a session token and the user it belongs to
type AuthResponse struct {
	Token string      `json:"token"` // JWT session token
	User  domain.User `json:"user"`  // Password hash is never serialized
}

// UpdateMeRequest is the body of PUT /me; nil fields are left unchanged
type UpdateMeRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=120"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url,max=512"`
}

// RegisterHandler creates a buyer account and returns a session token
func RegisterHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Validate password strength
		if failed := utils.ValidatePassword(req.Password); len(failed) > 0 {
			// Report the first failure, list them all in details
			c.JSON(http.StatusBadRequest, gin.H{"error": failed[0], "code": "weak_password", "details": failed})
			return
		}
		// Hash the password before storing it
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err, "Failed to hash password")
			return
		}
		// Lowercase email to keep the unique index case-insensitive
		user := domain.User{
			Email:    strings.ToLower(strings.TrimSpace(req.Email)),
			Name:     strings.TrimSpace(req.Name),
			Password: string(hash),
			Role:     domain.RoleBuyer,
		}
		// Check whether the email is taken
		var existing int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			respondError(c, err, "Failed to register")
			return
		}
		if existing > 0 {
			respondError(c, conflict("Email already registered"), "")
			return
		}
		// Create user; the unique index catches a concurrent signup
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Email already registered"), "")
				return
			}
			respondError(c, err, "Failed to register")
			return
		}
		// Issue a session token
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			respondError(c, err, "Failed to generate token")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User registered")
		c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		var user domain.User // Find user by email
		if err := db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
			// Same answer for unknown email and wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "invalid_credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "invalid_credentials"})
			return
		}
		// Issue a session token
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			respondError(c, err, "Failed to generate token")
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
	}
}

// MeHandler returns the authenticated user with their seller profile, if any
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var user domain.User // Load user with profile
		if err := db.WithContext(c.Request.Context()).Preload("SellerProfile").First(&user, userID).Error; err != nil {
			respondError(c, notFoundOr(err, "User"), "Failed to load user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// UpdateMeHandler edits the caller's basic profile fields
func UpdateMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req UpdateMeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Collect only the fields that were sent
		updates := map[string]any{}
		if req.Name != nil {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			updates["phone"] = strings.TrimSpace(*req.Phone)
		}
		if req.AvatarURL != nil {
			updates["avatar_url"] = *req.AvatarURL
		}
		ctx := c.Request.Context()
		// Skip the write when nothing changed
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				respondError(c, err, "Failed to update profile")
				return
			}
		}
		var user domain.User // Reload the stored row
		if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
			respondError(c, notFoundOr(err, "User"), "Failed to load user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// notFoundOr turns a gorm not-found error into a 404 naming what was missing
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
