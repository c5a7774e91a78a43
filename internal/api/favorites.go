package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ListFavoritesHandler pages the caller's saved services
func ListFavoritesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(c.Request.Context()).Model(&domain.Favorite{}).Where("user_id = ?", userID)
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count favorites")
			return
		}
		var favs []domain.Favorite // Most recently saved first
		if err := query.Preload("Service").Order("created_at desc, id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).Find(&favs).Error; err != nil {
			respondError(c, err, "Failed to fetch favorites")
			return
		}
		c.JSON(http.StatusOK, newPage(favs, page, pageSize, total))
	}
}

// ToggleFavoriteHandler saves a service, or un-saves it when already saved
func ToggleFavoriteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		serviceID, ok := idParam(c, "serviceId") // Parse service id
		if !ok {
			return
		}
		var favorited bool
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			// Already saved: remove it
			res := tx.Where("user_id = ? AND service_id = ?", userID, serviceID).Delete(&domain.Favorite{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				return nil
			}
			// Only active services can be saved
			var svc domain.Service
			if err := tx.Select("id").Where("id = ? AND active = ?", serviceID, true).First(&svc).Error; err != nil {
				return notFoundOr(err, "Service")
			}
			favorited = true
			return tx.Create(&domain.Favorite{UserID: userID, ServiceID: serviceID}).Error
		})
		if err != nil {
			respondError(c, err, "Failed to update favorite")
			return
		}
		c.JSON(http.StatusOK, gin.H{"service_id": serviceID, "favorited": favorited})
	}
}
