package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Cache TTLs

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Cache keys and TTLs for public catalogue reads
const (
	sellerCachePrefix   = "seller:"
	servicesCachePrefix = "services:"
	categoriesCacheKey  = "categories:all"
	catalogueTTL        = 60 * time.Second
)

// SellerProfileRequest is the body of POST /sellers and PUT /sellers/me
type SellerProfileRequest struct {
	DisplayName string   `json:"display_name" binding:"required,max=120"`
	Bio         string   `json:"bio" binding:"max=4000"`
	Skills      []string `json:"skills" binding:"max=20,dive,max=40"`
	Location    string   `json:"location" binding:"max=255"`
	Lat         *float64 `json:"lat" binding:"omitempty,latitude"`
	Lng         *float64 `json:"lng" binding:"omitempty,longitude"`
}

func (r *SellerProfileRequest) apply(p *domain.SellerProfile) {
	p.DisplayName = strings.TrimSpace(r.DisplayName)
	p.Bio = strings.TrimSpace(r.Bio)
	// Drop blank skills, store the rest comma-separated
	skills := make([]string, 0, len(r.Skills))
	for _, s := range r.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	p.Skills = strings.Join(skills, ",")
	p.Location = strings.TrimSpace(r.Location)
	p.Lat, p.Lng = r.Lat, r.Lng
}

// SellerResponse is the public view of a seller
type SellerResponse struct {
	Profile  domain.SellerProfile `json:"profile"`
	Name     string               `json:"name"`
	Services []domain.Service     `json:"services"`
	Cached   bool                 `json:"cached"`
}

// BecomeSellerHandler creates the caller's seller profile and upgrades any non-admin caller to seller
func BecomeSellerHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req SellerProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		profile := domain.SellerProfile{UserID: userID}
		req.apply(&profile)

		var user domain.User
		// Create the profile and promote the user atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&user, userID).Error; err != nil {
				return notFoundOr(err, "User")
			}
			// One profile per user
			var existing int64
			if err := tx.Model(&domain.SellerProfile{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return conflict("Seller profile already exists")
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			// Owning a profile makes the user a seller; admins already pass every gate
			if user.Role != domain.RoleAdmin && user.Role != domain.RoleSeller {
				if err := tx.Model(&user).Update("role", domain.RoleSeller).Error; err != nil {
					return err
				}
				user.Role = domain.RoleSeller
			}
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to create seller profile")
			return
		}
		// Fresh token carrying the new role
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			respondError(c, err, "Failed to generate token")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "profile_id": profile.ID}).Info("Seller profile created")
		c.JSON(http.StatusCreated, gin.H{"profile": profile, "token": token, "role": user.Role})
	}
}

// UpdateSellerProfileHandler edits the caller's seller profile
func UpdateSellerProfileHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req SellerProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		var profile domain.SellerProfile // Load caller's profile
		if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			respondError(c, notFoundOr(err, "Seller profile"), "Failed to load seller profile")
			return
		}
		req.apply(&profile)
		if err := db.WithContext(ctx).Save(&profile).Error; err != nil {
			respondError(c, err, "Failed to update seller profile")
			return
		}
		_ = utils.DeleteCache(ctx, rdb, sellerCachePrefix+strconv.FormatUint(uint64(userID), 10)) // Invalidate public view
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// GetSellerHandler returns a seller's public profile and active services; :id is the seller's user id
func GetSellerHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Parse seller id
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := sellerCachePrefix + strconv.FormatUint(uint64(id), 10)
		var resp SellerResponse
		// Try cache first
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &resp); err == nil && found {
			resp.Cached = true
			c.JSON(http.StatusOK, resp)
			return
		}
		var user domain.User // Load user with profile
		if err := db.WithContext(ctx).Preload("SellerProfile").First(&user, id).Error; err != nil {
			respondError(c, notFoundOr(err, "Seller"), "Failed to load seller")
			return
		}
		// Plain users are not sellers
		if user.SellerProfile == nil {
			respondError(c, notFound("Seller"), "")
			return
		}
		var services []domain.Service // Active services only
		if err := db.WithContext(ctx).Preload("Category").
			Where("seller_id = ? AND active = ?", id, true).
			Order("created_at desc").Find(&services).Error; err != nil {
			respondError(c, err, "Failed to load services")
			return
		}
		if services == nil {
			services = []domain.Service{}
		}
		resp = SellerResponse{Profile: *user.SellerProfile, Name: user.Name, Services: services}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, catalogueTTL) // Cache result
		c.JSON(http.StatusOK, resp)
	}
}

// ListCategoriesHandler returns every category, cached
func ListCategoriesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cats []domain.Category
		// Try cache first
		if found, err := utils.GetCache(ctx, rdb, categoriesCacheKey, &cats); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"categories": cats, "cached": true})
			return
		}
		if err := db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
			respondError(c, err, "Failed to load categories")
			return
		}
		if cats == nil {
			cats = []domain.Category{}
		}
		_ = utils.SetCache(ctx, rdb, categoriesCacheKey, cats, 10*time.Minute) // Categories change rarely
		c.JSON(http.StatusOK, gin.H{"categories": cats, "cached": false})
	}
}

// lookupCategory resolves a category slug; an empty slug means no category
func lookupCategory(tx *gorm.DB, slug string) (*uint, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, nil
	}
	var cat domain.Category // Unknown slugs are a client error
	if err := tx.Where("slug = ?", slug).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(http.StatusBadRequest, "invalid_request", "Unknown category")
		}
		return nil, err
	}
	return &cat.ID, nil
}
