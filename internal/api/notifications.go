package api

import (
	"context"       // Context for DB operations
	"encoding/json" // Notification payloads
	"net/http"      // HTTP status codes
	"time"          // Read timestamps

	"marketplace/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/datatypes"        // JSON column type
	"gorm.io/gorm"             // GORM ORM library
)

// notify records an in-app notification inside the caller's transaction
func notify(tx *gorm.DB, userID uint, kind, title, body string, data map[string]any) error {
	n := domain.Notification{UserID: userID, Type: kind, Title: title, Body: body}
	// Payload is optional
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(b)
	}
	return tx.Create(&n).Error
}

func countUnreadNotifications(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, err
}

// ListNotificationsHandler pages the caller's notifications, newest first; ?unread=true filters
func ListNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(c.Request.Context()).Model(&domain.Notification{}).Where("user_id = ?", userID)
		// Optional unread filter
		if c.Query("unread") == "true" {
			query = query.Where("read_at IS NULL")
		}
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count notifications")
			return
		}
		var items []domain.Notification // Newest first
		if err := query.Order("created_at desc, id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
			respondError(c, err, "Failed to fetch notifications")
			return
		}
		c.JSON(http.StatusOK, newPage(items, page, pageSize, total))
	}
}

// UnreadNotificationsHandler returns the caller's unread notification count
func UnreadNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		n, err := countUnreadNotifications(c.Request.Context(), db, userID)
		if err != nil {
			respondError(c, err, "Failed to count notifications")
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": n})
	}
}

// MarkNotificationReadHandler marks one of the caller's notifications read
func MarkNotificationReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse notification id
		if !ok {
			return
		}
		// Owner filter keeps other users' notifications untouched
		res := db.WithContext(c.Request.Context()).Model(&domain.Notification{}).
			Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
			Update("read_at", time.Now())
		if res.Error != nil {
			respondError(c, res.Error, "Failed to update notification")
			return
		}
		if res.RowsAffected == 0 {
			// Either already read or not the caller's
			var n int64
			if err := db.WithContext(c.Request.Context()).Model(&domain.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
				respondError(c, err, "Failed to update notification")
				return
			}
			if n == 0 {
				respondError(c, notFound("Notification"), "")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
	}
}

// MarkAllNotificationsReadHandler marks every unread notification of the caller read
func MarkAllNotificationsReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		res := db.WithContext(c.Request.Context()).Model(&domain.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Update("read_at", time.Now())
		if res.Error != nil {
			respondError(c, res.Error, "Failed to update notifications")
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked": res.RowsAffected})
	}
}
