package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Resolution timestamps

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// OpenDisputeRequest is the body of POST /orders/:id/disputes
type OpenDisputeRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=4000"` // What went wrong
}

// ResolveDisputeRequest is the body of POST /admin/disputes/:id/resolve
type ResolveDisputeRequest struct {
	Verdict string `json:"verdict" binding:"required,oneof=buyer seller"` // Side that wins
	Note    string `json:"note" binding:"max=4000"`                       // Shown to both parties
}

// OpenDisputeHandler lets a buyer contest an order that is in progress or delivered
func OpenDisputeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse order id
		if !ok {
			return
		}
		var req OpenDisputeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Please describe the problem (at least 10 characters)")
			return
		}
		var dispute domain.Dispute
		// Move the order to disputed and record the dispute atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var order domain.Order // Load the contested order
			if err := tx.First(&order, id).Error; err != nil {
				return notFoundOr(err, "Order")
			}
			// Strangers get 404
			actor := orderActor(&order, userID)
			if actor == "" {
				return notFound("Order")
			}
			// Only the buyer of an active order may dispute
			if !domain.CanTransitionOrder(order.Status, domain.OrderDisputed, actor) {
				return utils.ErrInvalidTransition
			}
			if err := transitionOrder(tx, &order, domain.OrderDisputed); err != nil {
				return err // Return error to rollback
			}
			dispute = domain.Dispute{
				OrderID:  order.ID,
				OpenedBy: userID,
				Reason:   strings.TrimSpace(req.Reason),
				Status:   domain.DisputeOpen,
			}
			if err := tx.Create(&dispute).Error; err != nil {
				return err // Return error to rollback
			}
			// Tell the seller
			return notify(tx, order.SellerID, domain.NotifyDispute, "Order disputed", order.Title,
				map[string]any{"order_id": order.ID, "dispute_id": dispute.ID})
		})
		if err != nil {
			respondError(c, err, "Failed to open dispute")
			return
		}
		logrus.WithFields(logrus.Fields{"order_id": id, "dispute_id": dispute.ID, "user_id": userID}).Info("Dispute opened")
		c.JSON(http.StatusCreated, gin.H{"dispute": dispute})
	}
}

// ListDisputesHandler pages disputes for admins; ?status=open|resolved filters
func ListDisputesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(c.Request.Context()).Model(&domain.Dispute{})
		// Optional status filter
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count disputes")
			return
		}
		var disputes []domain.Dispute // Newest first, with their orders
		if err := query.Preload("Order").Order("created_at desc, id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).Find(&disputes).Error; err != nil {
			respondError(c, err, "Failed to fetch disputes")
			return
		}
		c.JSON(http.StatusOK, newPage(disputes, page, pageSize, total))
	}
}

// ResolveDisputeHandler settles an open dispute. A buyer verdict cancels the order and
// marks its payments refunded; a seller verdict completes the order.
func ResolveDisputeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse dispute id
		if !ok {
			return
		}
		var req ResolveDisputeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "verdict must be buyer or seller")
			return
		}
		var dispute domain.Dispute
		var order domain.Order
		// Settle order, payments and dispute atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&dispute, id).Error; err != nil {
				return notFoundOr(err, "Dispute")
			}
			// A dispute is resolved once
			if dispute.Status != domain.DisputeOpen {
				return conflict("Dispute is already resolved")
			}
			if err := tx.First(&order, dispute.OrderID).Error; err != nil {
				return notFoundOr(err, "Order")
			}
			// Verdict decides where the order ends up
			target := domain.OrderCompleted
			if req.Verdict == domain.VerdictBuyer {
				target = domain.OrderCancelled
			}
			if !domain.CanTransitionOrder(order.Status, target, domain.ActorAdmin) {
				return utils.ErrInvalidTransition
			}
			if err := transitionOrder(tx, &order, target); err != nil {
				return err // Return error to rollback
			}
			// Buyer wins: captured payments are refunded
			if req.Verdict == domain.VerdictBuyer {
				if err := tx.Model(&domain.Payment{}).
					Where("order_id = ? AND status = ?", order.ID, domain.PaymentSuccess).
					Update("status", domain.PaymentRefunded).Error; err != nil {
					return err
				}
			}
			now := time.Now()
			// Guarded update against a concurrent resolution
			res := tx.Model(&domain.Dispute{}).Where("id = ? AND status = ?", dispute.ID, domain.DisputeOpen).Updates(map[string]any{
				"status":      domain.DisputeResolved,
				"verdict":     req.Verdict,
				"note":        strings.TrimSpace(req.Note),
				"resolved_by": adminID,
				"resolved_at": now,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return conflict("Dispute is already resolved")
			}
			dispute.Status, dispute.Verdict, dispute.Note = domain.DisputeResolved, req.Verdict, strings.TrimSpace(req.Note)
			dispute.ResolvedBy, dispute.ResolvedAt = &adminID, &now

			// Tell both parties
			data := map[string]any{"order_id": order.ID, "dispute_id": dispute.ID, "verdict": req.Verdict}
			for _, uid := range []uint{order.BuyerID, order.SellerID} {
				if err := notify(tx, uid, domain.NotifyDispute, "Dispute resolved", order.Title, data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to resolve dispute")
			return
		}
		// Log the verdict
		logrus.WithFields(logrus.Fields{
			"dispute_id": dispute.ID,
			"order_id":   order.ID,
			"verdict":    req.Verdict,
			"admin_id":   adminID,
		}).Info("Dispute resolved")
		c.JSON(http.StatusOK, gin.H{"dispute": dispute, "order": order})
	}
}
