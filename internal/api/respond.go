package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"marketplace/internal/domain"     // Importing domain models
	"marketplace/internal/middleware" // Caller identity
	"marketplace/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Page is the paginated envelope every list endpoint returns
type Page[T any] struct {
	Items      []T   `json:"items"`       // Current page
	Page       int   `json:"page"`        // 1-based page number
	PageSize   int   `json:"page_size"`   // Items per page
	Total      int64 `json:"total"`       // Matching items overall
	TotalPages int   `json:"total_pages"` // Pages at this size
	Cached     bool  `json:"cached"`      // Served from Redis
}

func newPage[T any](items []T, page, size int, total int64) Page[T] {
	// Always encode an empty list, never null
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: page, PageSize: size, Total: total, TotalPages: utils.TotalPages(total, size)}
}

// respondError writes err as a JSON error body; unexpected errors are logged and hidden behind fallback
func respondError(c *gin.Context, err error, fallback string) {
	status, code := utils.ErrorStatus(err) // Map error to HTTP status
	// Log server-side failures only
	if status >= http.StatusInternalServerError {
		fields := logrus.Fields{"path": c.FullPath(), "error": err.Error()}
		// Attach the caller when known
		if id, ok := middleware.UserID(c); ok {
			fields["user_id"] = id
		}
		logrus.WithFields(fields).Error(fallback)
	}
	c.JSON(status, gin.H{"error": utils.ErrorMessage(err, fallback), "code": code})
}

// badRequest writes a 400 with msg
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}

// currentUser returns the authenticated caller or writes 401
func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c) // Get userID from context
	// Check if userID exists in context
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
	}
	return id, ok
}

// currentRole reads the caller's role from the database; the token's copy may be stale
func currentRole(c *gin.Context, db *gorm.DB, userID uint) (string, error) {
	var user domain.User // Only the role column is needed
	if err := db.WithContext(c.Request.Context()).Select("id", "role").First(&user, userID).Error; err != nil {
		return "", notFoundOr(err, "User")
	}
	return user.Role, nil
}

// idParam parses a positive numeric path parameter or writes 400
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64) // Parse path param
	// Reject non-numeric and zero ids
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// parsePage reads page and page_size query params with the defaults 1 and 20, page_size capped at 100
func parsePage(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 20 // Defaults
	// Parse page number
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	// Parse page size, ignoring out-of-range values
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// notFound builds a 404 for the named resource
func notFound(what string) *utils.AppError {
	return utils.NewError(http.StatusNotFound, "not_found", what+" not found")
}

// conflict builds a 409 with msg
func conflict(msg string) *utils.AppError {
	return utils.NewError(http.StatusConflict, "conflict", msg)
}
