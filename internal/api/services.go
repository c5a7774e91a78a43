package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// featuredPool bounds how many recent services the featured shuffle draws from
const featuredPool = 200

// ServiceRequest is the body of POST /services
type ServiceRequest struct {
	Title        string `json:"title" binding:"required,min=3,max=160"`
	Description  string `json:"description" binding:"max=10000"`
	PriceCents   int64  `json:"price_cents" binding:"required,gt=0"`
	DeliveryDays int    `json:"delivery_days" binding:"required,min=1,max=365"`
	CategorySlug string `json:"category" binding:"max=64"`
	ImageURL     string `json:"image_url" binding:"omitempty,url,max=512"`
}

// ServiceUpdateRequest is the body of PUT /services/:id; nil fields are left unchanged
type ServiceUpdateRequest struct {
	Title        *string `json:"title" binding:"omitempty,min=3,max=160"`
	Description  *string `json:"description" binding:"omitempty,max=10000"`
	PriceCents   *int64  `json:"price_cents" binding:"omitempty,gt=0"`
	DeliveryDays *int    `json:"delivery_days" binding:"omitempty,min=1,max=365"`
	CategorySlug *string `json:"category" binding:"omitempty,max=64"`
	ImageURL     *string `json:"image_url" binding:"omitempty,url,max=512"`
	Active       *bool   `json:"active"`
}

// ListServicesHandler browses active services with search, filters and pagination
func ListServicesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := parsePage(c) // Parse pagination
		// Encode sorts by key, so equal queries share a cache entry
		cacheKey := servicesCachePrefix + "list:" + c.Request.URL.Query().Encode()
		var cached Page[domain.Service]
		// Try cache first
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}

		query := db.WithContext(ctx).Model(&domain.Service{}).Where("services.active = ?", true)
		// Case-insensitive text search over title and description
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			query = query.Where("LOWER(services.title) LIKE ? OR LOWER(services.description) LIKE ?", like, like)
		}
		// Filter by category slug
		if slug := c.Query("category"); slug != "" {
			query = query.Joins("JOIN categories ON categories.id = services.category_id").
				Where("categories.slug = ?", strings.ToLower(slug))
		}
		// Filter by seller
		if sellerID := c.Query("seller_id"); sellerID != "" {
			v, err := strconv.ParseUint(sellerID, 10, 64)
			if err != nil {
				badRequest(c, "Invalid seller_id")
				return
			}
			query = query.Where("services.seller_id = ?", v)
		}
		// Price range in minor units
		if minPrice := c.Query("min_price"); minPrice != "" {
			v, err := strconv.ParseInt(minPrice, 10, 64)
			if err != nil || v < 0 {
				badRequest(c, "Invalid min_price")
				return
			}
			query = query.Where("services.price_cents >= ?", v)
		}
		if maxPrice := c.Query("max_price"); maxPrice != "" {
			v, err := strconv.ParseInt(maxPrice, 10, 64)
			if err != nil || v < 0 {
				badRequest(c, "Invalid max_price")
				return
			}
			query = query.Where("services.price_cents <= ?", v)
		}

		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count services")
			return
		}
		var services []domain.Service // Newest first
		if err := query.Preload("Category").
			Order("services.created_at desc, services.id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&services).Error; err != nil {
			respondError(c, err, "Failed to fetch services")
			return
		}
		resp := newPage(services, page, pageSize, total)
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, catalogueTTL) // Cache result
		c.JSON(http.StatusOK, resp)
	}
}

// FeaturedServicesHandler returns a securely shuffled sample of recent active services
func FeaturedServicesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 12 // Default sample size
		if l := c.Query("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 24 {
				limit = v
			}
		}
		var services []domain.Service // Draw from the newest services
		if err := db.WithContext(c.Request.Context()).Preload("Category").
			Where("active = ?", true).
			Order("id desc").Limit(featuredPool).
			Find(&services).Error; err != nil {
			respondError(c, err, "Failed to fetch services")
			return
		}
		// Crypto-random order so the pick is not predictable
		if err := utils.SecureShuffle(services); err != nil {
			respondError(c, err, "Failed to shuffle services")
			return
		}
		if len(services) > limit {
			services = services[:limit]
		}
		if services == nil {
			services = []domain.Service{}
		}
		c.JSON(http.StatusOK, gin.H{"services": services})
	}
}

// GetServiceHandler returns one active service with its seller; inactive services are hidden behind a 404
func GetServiceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Parse service id
		if !ok {
			return
		}
		var svc domain.Service // Load service with category
		if err := db.WithContext(c.Request.Context()).Preload("Category").First(&svc, id).Error; err != nil {
			respondError(c, notFoundOr(err, "Service"), "Failed to load service")
			return
		}
		// Removed services are gone for everyone, including their seller
		if !svc.Active {
			respondError(c, notFound("Service"), "")
			return
		}
		var seller domain.User // Public seller card
		if err := db.WithContext(c.Request.Context()).Preload("SellerProfile").First(&seller, svc.SellerID).Error; err != nil {
			respondError(c, notFoundOr(err, "Seller"), "Failed to load seller")
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": svc, "seller": gin.H{"id": seller.ID, "name": seller.Name, "profile": seller.SellerProfile}})
	}
}

// CreateServiceHandler lists a new service for the calling seller
func CreateServiceHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req ServiceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		// Resolve optional category
		categoryID, err := lookupCategory(db.WithContext(ctx), req.CategorySlug)
		if err != nil {
			respondError(c, err, "Failed to resolve category")
			return
		}
		// New services are listed immediately
		svc := domain.Service{
			SellerID:     userID,
			CategoryID:   categoryID,
			Title:        strings.TrimSpace(req.Title),
			Description:  strings.TrimSpace(req.Description),
			PriceCents:   req.PriceCents,
			DeliveryDays: req.DeliveryDays,
			ImageURL:     req.ImageURL,
			Active:       true,
		}
		if err := db.WithContext(ctx).Create(&svc).Error; err != nil {
			respondError(c, err, "Failed to create service")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "service_id": svc.ID}).Info("Service created")
		invalidateCatalogue(c, rdb, userID) // Listings changed
		c.JSON(http.StatusCreated, gin.H{"service": svc})
	}
}

// UpdateServiceHandler edits a service owned by the caller
func UpdateServiceHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse service id
		if !ok {
			return
		}
		var req ServiceUpdateRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ctx := c.Request.Context()
		svc, err := loadOwnedService(db.WithContext(ctx), id, userID) // Owner only
		if err != nil {
			respondError(c, err, "Failed to load service")
			return
		}
		// Collect only the fields that were sent
		updates := map[string]any{}
		if req.Title != nil {
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			updates["description"] = strings.TrimSpace(*req.Description)
		}
		if req.PriceCents != nil {
			updates["price_cents"] = *req.PriceCents
		}
		if req.DeliveryDays != nil {
			updates["delivery_days"] = *req.DeliveryDays
		}
		if req.ImageURL != nil {
			updates["image_url"] = *req.ImageURL
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}
		if req.CategorySlug != nil {
			categoryID, err := lookupCategory(db.WithContext(ctx), *req.CategorySlug)
			if err != nil {
				respondError(c, err, "Failed to resolve category")
				return
			}
			updates["category_id"] = categoryID
		}
		// Skip the write when nothing changed
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(svc).Updates(updates).Error; err != nil {
				respondError(c, err, "Failed to update service")
				return
			}
		}
		// Reload the stored row
		if err := db.WithContext(ctx).Preload("Category").First(svc, svc.ID).Error; err != nil {
			respondError(c, err, "Failed to load service")
			return
		}
		invalidateCatalogue(c, rdb, userID) // Listings changed
		c.JSON(http.StatusOK, gin.H{"service": svc})
	}
}

// DeleteServiceHandler deactivates a service; orders keep referencing it
func DeleteServiceHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse service id
		if !ok {
			return
		}
		ctx := c.Request.Context()
		svc, err := loadOwnedService(db.WithContext(ctx), id, userID) // Owner only
		if err != nil {
			respondError(c, err, "Failed to load service")
			return
		}
		// Soft delete: hide it from the catalogue
		if err := db.WithContext(ctx).Model(svc).Update("active", false).Error; err != nil {
			respondError(c, err, "Failed to remove service")
			return
		}
		invalidateCatalogue(c, rdb, userID) // Listings changed
		c.JSON(http.StatusOK, gin.H{"message": "Service removed"})
	}
}

// loadOwnedService loads a service the caller sells; other sellers get 403
func loadOwnedService(db *gorm.DB, id, userID uint) (*domain.Service, error) {
	var svc domain.Service
	if err := db.First(&svc, id).Error; err != nil {
		return nil, notFoundOr(err, "Service")
	}
	if svc.SellerID != userID {
		return nil, utils.ErrForbidden
	}
	return &svc, nil
}

// invalidateCatalogue drops cached service lists and the seller's public page
func invalidateCatalogue(c *gin.Context, rdb *redis.Client, sellerID uint) {
	ctx := c.Request.Context()
	if err := utils.DeleteCachePrefix(ctx, rdb, servicesCachePrefix); err != nil {
		logrus.WithFields(logrus.Fields{"error": err.Error()}).Debug("service cache invalidation failed")
	}
	_ = utils.DeleteCache(ctx, rdb, sellerCachePrefix+strconv.FormatUint(uint64(sellerID), 10))
}
