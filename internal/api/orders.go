package api

import (
	"context"  // Context for DB operations
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Public order references
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	ServiceID    uint   `json:"service_id" binding:"required"`    // Service being bought
	Requirements string `json:"requirements" binding:"max=10000"` // Buyer's brief
}

// UpdateOrderStatusRequest is the body of POST /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"` // Target status
}

// CreateOrderHandler places a pending order for an active service
func CreateOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req CreateOrderRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		var order domain.Order
		// Create the order and notify the seller atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var svc domain.Service // Only active services can be ordered
			if err := tx.Where("id = ? AND active = ?", req.ServiceID, true).First(&svc).Error; err != nil {
				return notFoundOr(err, "Service")
			}
			// Prevent buying from yourself
			if svc.SellerID == buyerID {
				return utils.NewError(http.StatusBadRequest, "invalid_request", "You cannot order your own service")
			}
			// Snapshot title, price and delivery time from the service
			order = domain.Order{
				Reference:    uuid.NewString(),
				ServiceID:    &svc.ID,
				BuyerID:      buyerID,
				SellerID:     svc.SellerID,
				Title:        svc.Title,
				PriceCents:   svc.PriceCents,
				DeliveryDays: svc.DeliveryDays,
				Requirements: strings.TrimSpace(req.Requirements),
				Status:       domain.OrderPending,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err // Return error to rollback
			}
			return notify(tx, order.SellerID, domain.NotifyNewOrder, "New order", "You received an order for "+order.Title,
				map[string]any{"order_id": order.ID})
		})
		if err != nil {
			respondError(c, err, "Failed to place order")
			return
		}
		// Log order placement
		logrus.WithFields(logrus.Fields{
			"order_id":  order.ID,
			"buyer_id":  buyerID,
			"seller_id": order.SellerID,
			"amount":    order.PriceCents,
		}).Info("Order placed")
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

// ListOrdersHandler pages the caller's orders; ?role=seller lists sales, default lists purchases
func ListOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(c.Request.Context()).Model(&domain.Order{})
		// Pick the side of the order
		switch c.DefaultQuery("role", "buyer") {
		case "buyer":
			query = query.Where("buyer_id = ?", userID)
		case "seller":
			query = query.Where("seller_id = ?", userID)
		default:
			badRequest(c, "role must be buyer or seller")
			return
		}
		// Optional status filter
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
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
		c.JSON(http.StatusOK, newPage(orders, page, pageSize, total))
	}
}

// GetOrderHandler returns an order to its buyer, its seller, or an admin
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse order id
		if !ok {
			return
		}
		// Admin access depends on the stored role, not the token's
		role, err := currentRole(c, db, userID)
		if err != nil {
			respondError(c, err, "Failed to load user")
			return
		}
		order, err := loadOrderFor(db.WithContext(c.Request.Context()), id, userID, role)
		if err != nil {
			respondError(c, err, "Failed to load order")
			return
		}
		var payments []domain.Payment // Payment history for the order
		if err := db.WithContext(c.Request.Context()).Where("order_id = ?", order.ID).Order("id").Find(&payments).Error; err != nil {
			respondError(c, err, "Failed to load payments")
			return
		}
		if payments == nil {
			payments = []domain.Payment{}
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "payments": payments})
	}
}

// UpdateOrderStatusHandler moves an order along its lifecycle on behalf of its buyer or seller
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse order id
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Disputes carry a reason, so they have their own endpoint
		if req.Status == domain.OrderDisputed {
			badRequest(c, "Open a dispute to contest an order")
			return
		}
		var order domain.Order
		// Check and apply the transition atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&order, id).Error; err != nil {
				return notFoundOr(err, "Order")
			}
			// Strangers get 404
			actor := orderActor(&order, userID)
			if actor == "" {
				return notFound("Order")
			}
			// Validate against the state machine
			if !domain.CanTransitionOrder(order.Status, req.Status, actor) {
				return utils.ErrInvalidTransition
			}
			// Work starts only once the buyer has paid
			if req.Status == domain.OrderInProgress && order.Status == domain.OrderAccepted && order.PaidAt == nil {
				return utils.NewError(http.StatusConflict, "payment_required", "Order must be paid before work starts")
			}
			if err := transitionOrder(tx, &order, req.Status); err != nil {
				return err // Return error to rollback
			}
			// Tell the other party
			recipient := order.BuyerID
			if actor == domain.ActorBuyer {
				recipient = order.SellerID
			}
			return notify(tx, recipient, domain.NotifyOrderStatus, "Order "+strings.ReplaceAll(req.Status, "_", " "),
				order.Title, map[string]any{"order_id": order.ID, "status": req.Status})
		})
		if err != nil {
			respondError(c, err, "Failed to update order")
			return
		}
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "user_id": userID, "status": order.Status}).Info("Order status changed")
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// OrderStatsHandler tallies the caller's orders by status; ?role=seller counts sales
func OrderStatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		// Only the two sides are valid; role becomes part of the column name
		role := c.DefaultQuery("role", "buyer")
		if role != "buyer" && role != "seller" {
			badRequest(c, "role must be buyer or seller")
			return
		}
		stats, err := orderStats(c.Request.Context(), db, role+"_id = ?", userID)
		if err != nil {
			respondError(c, err, "Failed to count orders")
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// orderStats fetches the statuses of matching orders and tallies them
func orderStats(ctx context.Context, db *gorm.DB, where string, args ...any) (utils.StatusCounts, error) {
	query := db.WithContext(ctx).Model(&domain.Order{})
	// Empty filter counts every order
	if where != "" {
		query = query.Where(where, args...)
	}
	var statuses []string // One entry per order
	if err := query.Pluck("status", &statuses).Error; err != nil {
		return utils.StatusCounts{}, err
	}
	return utils.TallyOrderStatuses(statuses), nil
}

// orderActor names the caller's side of the order, or "" when they are not a party
func orderActor(o *domain.Order, userID uint) string {
	switch userID {
	case o.BuyerID:
		return domain.ActorBuyer
	case o.SellerID:
		return domain.ActorSeller
	}
	return ""
}

// transitionOrder updates the status only if nobody changed it since it was read
func transitionOrder(tx *gorm.DB, order *domain.Order, to string) error {
	// Guarded update: the WHERE clause pins the status we validated
	res := tx.Model(&domain.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	// Nothing matched: someone moved the order first
	if res.RowsAffected == 0 {
		return conflict("Order was changed by someone else, reload and retry")
	}
	order.Status = to
	return nil
}

// loadOrderFor loads an order visible to the caller; strangers get 404
func loadOrderFor(db *gorm.DB, id, userID uint, role string) (*domain.Order, error) {
	var order domain.Order // Load order with its service
	if err := db.Preload("Service").First(&order, id).Error; err != nil {
		return nil, notFoundOr(err, "Order")
	}
	// Parties and admins only
	if orderActor(&order, userID) == "" && role != domain.RoleAdmin {
		return nil, notFound("Order")
	}
	return &order, nil
}
