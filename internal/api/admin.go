package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Time durations

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const adminUsersCachePrefix = "admin:users:" // Invalidated on role changes

// UpdateRoleRequest is the body of PUT /admin/users/:id/role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"` // Checked against domain.ValidRole
}

// ListUsersHandler pages users for admins, filtered by ?role and ?q (name or email)
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := parsePage(c) // Parse pagination
		// Build cache key from the normalized query string
		cacheKey := adminUsersCachePrefix + c.Request.URL.Query().Encode()
		var cached Page[domain.User]
		// Try cache first
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.WithContext(ctx).Model(&domain.User{})
		// Optional role filter
		if role := c.Query("role"); role != "" {
			query = query.Where("role = ?", role)
		}
		// Search by name or email
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			query = query.Where("LOWER(name) LIKE ? OR email LIKE ?", like, like)
		}
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count users")
			return
		}
		var users []domain.User
		// Preload SellerProfile relation, apply offset and limit for pagination
		if err := query.Preload("SellerProfile").Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, err, "Failed to fetch users")
			return
		}
		resp := newPage(users, page, pageSize, total)
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// ListAllOrdersHandler pages every order for admins, with optional ?status, ?buyer_id, ?seller_id, ?from and ?to filters
func ListAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(c.Request.Context()).Model(&domain.Order{})
		// Optional filters
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if buyerID := c.Query("buyer_id"); buyerID != "" {
			query = query.Where("buyer_id = ?", buyerID)
		}
		if sellerID := c.Query("seller_id"); sellerID != "" {
			query = query.Where("seller_id = ?", sellerID)
		}
		// Creation window, RFC3339 bounds
		if from := c.Query("from"); from != "" {
			t, err := time.Parse(time.RFC3339, from)
			if err != nil {
				badRequest(c, "from must be RFC3339")
				return
			}
			query = query.Where("created_at >= ?", t)
		}
		if to := c.Query("to"); to != "" {
			t, err := time.Parse(time.RFC3339, to)
			if err != nil {
				badRequest(c, "to must be RFC3339")
				return
			}
			query = query.Where("created_at <= ?", t)
		}
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count orders")
			return
		}
		var orders []domain.Order // Newest first
		if err := query.Order("created_at desc, id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&orders).Error; err != nil {
			respondError(c, err, "Failed to fetch orders")
			return
		}
		// Platform-wide tally, unaffected by filters
		stats, err := orderStats(c.Request.Context(), db, "")
		if err != nil {
			respondError(c, err, "Failed to count orders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": newPage(orders, page, pageSize, total), "stats": stats})
	}
}

// UpdateUserRoleHandler changes a user's role; admins cannot demote themselves
func UpdateUserRoleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse user id
		if !ok {
			return
		}
		var req UpdateRoleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidRole(req.Role) {
			badRequest(c, "role must be one of buyer, seller, helper, admin")
			return
		}
		// Keep at least the acting admin in place
		if id == adminID && req.Role != domain.RoleAdmin {
			badRequest(c, "You cannot change your own role")
			return
		}
		ctx := c.Request.Context()
		// Gates read the role from the DB, so this takes effect on the next request
		res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("role", req.Role)
		if res.Error != nil {
			respondError(c, res.Error, "Failed to update role")
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, notFound("User"), "")
			return
		}
		logrus.WithFields(logrus.Fields{"admin_id": adminID, "user_id": id, "role": req.Role}).Info("User role changed")
		_ = utils.DeleteCachePrefix(ctx, rdb, adminUsersCachePrefix) // Cached user lists show roles
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": req.Role})
	}
}
