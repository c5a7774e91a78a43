package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// CreateErrandRequest is the body of POST /errands. Coordinates come from /geocode.
type CreateErrandRequest struct {
	Title          string   `json:"title" binding:"required,min=3,max=160"`
	Details        string   `json:"details" binding:"max=4000"`
	PickupAddress  string   `json:"pickup_address" binding:"required,max=255"`
	DropoffAddress string   `json:"dropoff_address" binding:"required,max=255"`
	PickupLat      *float64 `json:"pickup_lat" binding:"omitempty,latitude"`
	PickupLng      *float64 `json:"pickup_lng" binding:"omitempty,longitude"`
	DropoffLat     *float64 `json:"dropoff_lat" binding:"omitempty,latitude"`
	DropoffLng     *float64 `json:"dropoff_lng" binding:"omitempty,longitude"`
	BudgetCents    int64    `json:"budget_cents" binding:"required,gt=0"` // Offered pay in minor units
}

// errandActions maps the action path segment to the target status
var errandActions = map[string]string{
	"accept":   domain.ErrandAccepted,
	"pickup":   domain.ErrandPickedUp,
	"deliver":  domain.ErrandDelivered,
	"complete": domain.ErrandCompleted,
	"cancel":   domain.ErrandCancelled,
}

// CreateErrandHandler posts a new open errand for the caller
func CreateErrandHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req CreateErrandRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// New errands start open with no helper
		errand := domain.Errand{
			CustomerID:     userID,
			Title:          strings.TrimSpace(req.Title),
			Details:        strings.TrimSpace(req.Details),
			PickupAddress:  strings.TrimSpace(req.PickupAddress),
			DropoffAddress: strings.TrimSpace(req.DropoffAddress),
			PickupLat:      req.PickupLat,
			PickupLng:      req.PickupLng,
			DropoffLat:     req.DropoffLat,
			DropoffLng:     req.DropoffLng,
			BudgetCents:    req.BudgetCents,
			Status:         domain.ErrandOpen,
		}
		if err := db.WithContext(c.Request.Context()).Create(&errand).Error; err != nil {
			respondError(c, err, "Failed to create errand")
			return
		}
		logrus.WithFields(logrus.Fields{"errand_id": errand.ID, "user_id": userID}).Info("Errand posted")
		c.JSON(http.StatusCreated, gin.H{"errand": errand})
	}
}

// ListErrandsHandler pages errands the caller posted or runs; ?status filters
func ListErrandsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		// Either side of the errand
		query := db.WithContext(c.Request.Context()).Model(&domain.Errand{}).
			Where("customer_id = ? OR helper_id = ?", userID, userID)
		listErrands(c, query)
	}
}

// ListOpenErrandsHandler pages errands waiting for a helper
func ListOpenErrandsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.Errand{}).Where("status = ?", domain.ErrandOpen)
		listErrands(c, query)
	}
}

func listErrands(c *gin.Context, query *gorm.DB) {
	page, pageSize := parsePage(c) // Parse pagination
	// Optional status filter
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64 // Count for pagination
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "Failed to count errands")
		return
	}
	var errands []domain.Errand // Newest first
	if err := query.Order("created_at desc, id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&errands).Error; err != nil {
		respondError(c, err, "Failed to fetch errands")
		return
	}
	c.JSON(http.StatusOK, newPage(errands, page, pageSize, total))
}

// GetErrandHandler returns an errand to its customer, its helper, or any helper while it is open
func GetErrandHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse errand id
		if !ok {
			return
		}
		var errand domain.Errand // Load the errand
		if err := db.WithContext(c.Request.Context()).First(&errand, id).Error; err != nil {
			respondError(c, notFoundOr(err, "Errand"), "Failed to load errand")
			return
		}
		// Parties always see it; others depend on the stored role
		visible := errandActor(&errand, userID) != ""
		if !visible {
			role, err := currentRole(c, db, userID)
			if err != nil {
				respondError(c, err, "Failed to load user")
				return
			}
			visible = role == domain.RoleAdmin || (role == domain.RoleHelper && errand.Status == domain.ErrandOpen)
		}
		// Strangers get 404
		if !visible {
			respondError(c, notFound("Errand"), "")
			return
		}
		c.JSON(http.StatusOK, gin.H{"errand": errand})
	}
}

// ErrandActionHandler applies one lifecycle action (accept, pickup, deliver, complete, cancel)
func ErrandActionHandler(db *gorm.DB, action string) gin.HandlerFunc {
	target := errandActions[action] // Resolved once at route setup
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse errand id
		if !ok {
			return
		}
		var errand domain.Errand
		// Check and apply the transition atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&errand, id).Error; err != nil {
				return notFoundOr(err, "Errand")
			}
			actor := errandActor(&errand, userID)
			updates := map[string]any{"status": target}
			if target == domain.ErrandAccepted {
				// Any helper may claim an open errand, but not their own
				if errand.CustomerID == userID {
					return utils.NewError(http.StatusBadRequest, "invalid_request", "You cannot run your own errand")
				}
				actor = domain.ErrandActorHelper
				updates["helper_id"] = userID
			}
			// Strangers get 404
			if actor == "" {
				return notFound("Errand")
			}
			// Validate against the state machine
			if !domain.CanTransitionErrand(errand.Status, target, actor) {
				return utils.ErrInvalidTransition
			}
			// Guarded update: the WHERE clause pins the status we validated
			res := tx.Model(&domain.Errand{}).Where("id = ? AND status = ?", errand.ID, errand.Status).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return conflict("Errand was changed by someone else, reload and retry")
			}
			errand.Status = target
			if target == domain.ErrandAccepted {
				errand.HelperID = &userID
			}

			// Tell the other party, if there is one yet
			recipient := errand.CustomerID
			if actor == domain.ErrandActorCustomer {
				if errand.HelperID == nil {
					return nil
				}
				recipient = *errand.HelperID
			}
			return notify(tx, recipient, domain.NotifyErrandUpdated, "Errand "+strings.ReplaceAll(target, "_", " "), errand.Title,
				map[string]any{"errand_id": errand.ID, "status": target})
		})
		if err != nil {
			respondError(c, err, "Failed to update errand")
			return
		}
		logrus.WithFields(logrus.Fields{"errand_id": errand.ID, "user_id": userID, "status": errand.Status}).Info("Errand status changed")
		c.JSON(http.StatusOK, gin.H{"errand": errand})
	}
}

// errandActor names the caller's side of the errand, or "" when they are not a party
func errandActor(e *domain.Errand, userID uint) string {
	if e.CustomerID == userID {
		return domain.ErrandActorCustomer
	}
	if e.HelperID != nil && *e.HelperID == userID {
		return domain.ErrandActorHelper
	}
	return ""
}
